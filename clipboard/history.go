// Package clipboard keeps a bounded in-memory history of clipboard contents
// and polls the system clipboard to fill it.
package clipboard

import (
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const previewMaxRunes = 30

// Item is one clipboard snapshot. Items are never mutated after Add.
type Item struct {
	// ID is unique for the lifetime of the History.
	ID      uint64
	Content string
	// Mime is a hint such as "text/plain".
	Mime string
	At   time.Time
}

// Key returns the ID as a string for use in entry identifiers.
func (it Item) Key() string {
	return strconv.FormatUint(it.ID, 10)
}

// Preview returns the first line of the content, shortened for display.
func (it Item) Preview() string {
	line, _, _ := strings.Cut(it.Content, "\n")
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) <= previewMaxRunes {
		return line
	}
	return string([]rune(line)[:previewMaxRunes]) + "..."
}

// History is a fixed-capacity ring of clipboard items. The oldest item is
// evicted when a new one does not fit.
type History struct {
	mu     sync.RWMutex
	items  []Item // ring storage, len == capacity once full
	head   int    // index of the oldest item
	count  int
	nextID uint64
	now    func() time.Time
}

// NewHistory creates a history holding at most capacity items. A
// non-positive capacity is treated as 1.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{
		items: make([]Item, capacity),
		now:   time.Now,
	}
}

// Cap returns the fixed capacity.
func (h *History) Cap() int {
	return len(h.items)
}

// Len returns the number of stored items.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Add stores content as the newest item. Empty content and content equal to
// the newest item are ignored. It reports whether an item was added.
func (h *History) Add(content, mime string) (Item, bool) {
	if content == "" {
		return Item{}, false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count > 0 {
		newest := h.items[(h.head+h.count-1)%len(h.items)]
		if newest.Content == content {
			return Item{}, false
		}
	}

	h.nextID++
	it := Item{ID: h.nextID, Content: content, Mime: mime, At: h.now()}

	if h.count < len(h.items) {
		h.items[(h.head+h.count)%len(h.items)] = it
		h.count++
	} else {
		h.items[h.head] = it
		h.head = (h.head + 1) % len(h.items)
	}
	return it, true
}

// Snapshot returns the items newest first.
func (h *History) Snapshot() []Item {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Item, h.count)
	for i := range h.count {
		out[i] = h.items[(h.head+h.count-1-i)%len(h.items)]
	}
	return out
}

// Get returns the item with the given ID if it is still held.
func (h *History) Get(id uint64) (Item, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for i := range h.count {
		it := h.items[(h.head+i)%len(h.items)]
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Clear drops every item. IDs keep increasing.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.items)
	h.head = 0
	h.count = 0
}
