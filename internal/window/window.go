package window

import (
	"errors"
	"sync"

	"vital-monitor/internal/models"
)

// ErrOutOfOrder indicates a measurement older than the newest entry already
// held. Input is assumed monotonically non-decreasing; regressions are
// rejected, not re-sorted.
var ErrOutOfOrder = errors.New("out of order measurement")

// Window is a bounded, timestamp-ordered history of recent measurements.
// It is mutated only by the ingestion path; analytic readers get copies so
// a fit never observes a window being mutated mid-computation.
type Window struct {
	mu       sync.RWMutex
	capacity int
	entries  []models.Measurement
}

// New creates a rolling window holding at most capacity measurements.
func New(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{
		capacity: capacity,
		entries:  make([]models.Measurement, 0, capacity),
	}
}

// Append inserts a measurement, evicting the oldest entry once the window
// exceeds capacity. Equal timestamps keep insertion order.
func (w *Window) Append(m models.Measurement) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if n := len(w.entries); n > 0 && m.Timestamp.Before(w.entries[n-1].Timestamp) {
		return ErrOutOfOrder
	}

	w.entries = append(w.entries, m)
	if len(w.entries) > w.capacity {
		w.entries = w.entries[1:]
	}
	return nil
}

// Latest returns the most recent measurement, or false when the window is
// empty.
func (w *Window) Latest() (models.Measurement, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if len(w.entries) == 0 {
		return models.Measurement{}, false
	}
	return w.entries[len(w.entries)-1], true
}

// Slice returns a copy of the last n measurements in timestamp order, fewer
// if history is shorter.
func (w *Window) Slice(n int) []models.Measurement {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if n > len(w.entries) {
		n = len(w.entries)
	}
	if n <= 0 {
		return nil
	}
	out := make([]models.Measurement, n)
	copy(out, w.entries[len(w.entries)-n:])
	return out
}

// Snapshot returns a copy of the full window contents.
func (w *Window) Snapshot() []models.Measurement {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]models.Measurement, len(w.entries))
	copy(out, w.entries)
	return out
}

// Len returns the number of held measurements.
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entries)
}
