// Package history tracks the ordered turns of a single conversation and,
// optionally, archives them durably.
package history

import (
	"errors"
	"sync"
	"time"

	"frostgreet/pkg/domain"
)

// ErrIndexOutOfRange is returned when a turn index does not exist.
var ErrIndexOutOfRange = errors.New("turn index out of range")

// History is the append-only turn log of one conversation. Entries keep
// insertion order; only Reset removes them.
type History struct {
	mu      sync.RWMutex
	entries []domain.HistoryEntry
}

// New returns an empty history.
func New() *History {
	return &History{}
}

// Append records a completed turn.
func (h *History) Append(turnType domain.TurnType, request string, output domain.Output) domain.HistoryEntry {
	entry := domain.HistoryEntry{
		Type:      turnType,
		Request:   request,
		Output:    output,
		CreatedAt: time.Now().UTC(),
	}
	h.mu.Lock()
	h.entries = append(h.entries, entry)
	h.mu.Unlock()
	return entry
}

// Turn returns the output recorded at index without mutating the log.
func (h *History) Turn(index int) (domain.Output, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if index < 0 || index >= len(h.entries) {
		return domain.Output{}, ErrIndexOutOfRange
	}
	return h.entries[index].Output, nil
}

// Len reports the number of recorded turns.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Entries returns a copy of the log in insertion order.
func (h *History) Entries() []domain.HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]domain.HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Reset discards all turns.
func (h *History) Reset() {
	h.mu.Lock()
	h.entries = nil
	h.mu.Unlock()
}
