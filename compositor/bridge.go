package compositor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// DefaultTimeout bounds every compositor call.
const DefaultTimeout = 2 * time.Second

// Bridge owns a lazily connected Compositor. Every call is bounded by a
// timeout. A failed or timed out call drops the connection and the next call
// connects again.
type Bridge struct {
	name    string
	connect Connector
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	handle Compositor // nil until first use and after a failure
}

// NewBridge creates a bridge for the named backend. It does not connect.
func NewBridge(name string, connect Connector, timeout time.Duration) *Bridge {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Bridge{
		name:    name,
		connect: connect,
		timeout: timeout,
		logger:  slog.Default().With("component", "compositor", "backend", name),
	}
}

// Name returns the backend name.
func (b *Bridge) Name() string {
	return b.name
}

// ListWindows returns the current windows. Failures wrap ErrUnavailable.
func (b *Bridge) ListWindows(ctx context.Context) ([]Window, error) {
	var windows []Window
	err := b.call(ctx, func(ctx context.Context, c Compositor) error {
		var err error
		windows, err = c.ListWindows(ctx)
		return err
	})
	return windows, err
}

// ActivateWindow focuses the window with the given id. A window that closed
// since it was listed yields ErrWindowNotFound.
func (b *Bridge) ActivateWindow(ctx context.Context, id string) error {
	return b.call(ctx, func(ctx context.Context, c Compositor) error {
		windows, err := c.ListWindows(ctx)
		if err != nil {
			return err
		}
		if !slices.ContainsFunc(windows, func(w Window) bool { return w.ID == id }) {
			return fmt.Errorf("%w: %s", ErrWindowNotFound, id)
		}
		return c.ActivateWindow(ctx, id)
	})
}

// ApplyLayerRules requests layer rules for namespace. It never fails: the
// rules are cosmetic, so errors are only logged.
func (b *Bridge) ApplyLayerRules(ctx context.Context, namespace string, rules []string) {
	err := b.call(ctx, func(ctx context.Context, c Compositor) error {
		return c.ApplyLayerRules(ctx, namespace, rules)
	})
	switch {
	case err == nil:
		b.logger.Debug("applied layer rules", "namespace", namespace, "rules", len(rules))
	case errors.Is(err, ErrUnsupported):
		b.logger.Debug("layer rules not supported")
	default:
		b.logger.Warn("failed to apply layer rules", "error", err)
	}
}

// Close drops the connection, if any.
func (b *Bridge) Close() {
	b.mu.Lock()
	c := b.handle
	b.mu.Unlock()
	if c != nil {
		b.drop(c)
	}
}

type result struct {
	err error
}

// call runs fn against a live connection under the bridge timeout. No lock
// is held while fn runs.
func (b *Bridge) call(ctx context.Context, fn func(context.Context, Compositor) error) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	c, err := b.acquire(ctx)
	if err != nil {
		return err
	}

	done := make(chan result, 1)
	go func() {
		done <- result{err: fn(ctx, c)}
	}()

	select {
	case r := <-done:
		if r.err == nil || errors.Is(r.err, ErrWindowNotFound) || errors.Is(r.err, ErrUnsupported) {
			return r.err
		}
		b.drop(c)
		if errors.Is(r.err, ErrUnavailable) {
			return r.err
		}
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, b.name, r.err)
	case <-ctx.Done():
		b.drop(c)
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, b.name, ctx.Err())
	}
}

// acquire returns the live connection, connecting if there is none.
func (b *Bridge) acquire(ctx context.Context) (Compositor, error) {
	b.mu.Lock()
	c := b.handle
	b.mu.Unlock()
	if c != nil {
		return c, nil
	}

	c, err := b.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %v", ErrUnavailable, b.name, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handle != nil {
		// Another caller connected first.
		c.Close()
		return b.handle, nil
	}
	b.handle = c
	return c, nil
}

// drop closes c and forgets it if it is still the current connection.
func (b *Bridge) drop(c Compositor) {
	b.mu.Lock()
	current := b.handle == c
	if current {
		b.handle = nil
	}
	b.mu.Unlock()

	if !current {
		return
	}
	if err := c.Close(); err != nil {
		b.logger.Debug("close connection", "error", err)
	}
}
