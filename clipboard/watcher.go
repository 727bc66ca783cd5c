package clipboard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	sysclip "github.com/atotto/clipboard"
)

// ErrUnsupported is returned when no clipboard utility is available.
var ErrUnsupported = errors.New("clipboard: no clipboard utility available")

// Reader reads the current text clipboard.
type Reader interface {
	ReadText() (string, error)
}

// Writer replaces the text clipboard.
type Writer interface {
	WriteText(text string) error
}

// System is the desktop clipboard, accessed through wl-clipboard, xclip or
// xsel, whichever is installed.
type System struct{}

func (System) ReadText() (string, error) {
	if sysclip.Unsupported {
		return "", ErrUnsupported
	}
	return sysclip.ReadAll()
}

func (System) WriteText(text string) error {
	if sysclip.Unsupported {
		return ErrUnsupported
	}
	return sysclip.WriteAll(text)
}

// Watcher polls a Reader and adds new content to a History.
type Watcher struct {
	reader   Reader
	history  *History
	interval time.Duration
	onChange func(Item)
	logger   *slog.Logger
}

// NewWatcher creates a watcher. onChange, if non-nil, is called after every
// item added by the watcher, outside any lock.
func NewWatcher(reader Reader, history *History, interval time.Duration, onChange func(Item)) *Watcher {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Watcher{
		reader:   reader,
		history:  history,
		interval: interval,
		onChange: onChange,
		logger:   slog.Default().With("component", "clipboard"),
	}
}

// Run polls until ctx is cancelled. It returns ErrUnsupported immediately
// when the platform has no clipboard utility.
func (w *Watcher) Run(ctx context.Context) error {
	text, err := w.reader.ReadText()
	if errors.Is(err, ErrUnsupported) {
		return err
	}
	if err == nil {
		w.add(text)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		text, err := w.reader.ReadText()
		if err != nil {
			// Empty or non-text clipboards fail on every poll; log once.
			if failures == 0 {
				w.logger.Debug("clipboard read failed", "error", err)
			}
			failures++
			continue
		}
		failures = 0

		w.add(text)
	}
}

func (w *Watcher) add(text string) {
	item, added := w.history.Add(text, "text/plain")
	if added && w.onChange != nil {
		w.onChange(item)
	}
}
