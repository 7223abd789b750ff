package entropy

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DefaultHistorySize matches the depth of the slot hashes sysvar.
const DefaultHistorySize = 512

var ErrStaleSlot = errors.New("entropy: slot is not newer than the most recent sample")

// History is a fixed-size ring of samples. Appends must carry a strictly
// increasing slot; the oldest entry is dropped once the ring is full.
type History struct {
	mu      sync.RWMutex
	samples []Sample
	next    int
	count   int
}

func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{samples: make([]Sample, size)}
}

func (h *History) Record(sample Sample) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count > 0 {
		last := h.samples[(h.next-1+len(h.samples))%len(h.samples)]
		if sample.Slot <= last.Slot {
			return fmt.Errorf("slot %d after %d: %w", sample.Slot, last.Slot, ErrStaleSlot)
		}
	}

	h.samples[h.next] = sample
	h.next = (h.next + 1) % len(h.samples)
	if h.count < len(h.samples) {
		h.count++
	}
	return nil
}

func (h *History) MostRecent(_ context.Context) (Sample, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 {
		return Sample{}, ErrUnavailable
	}
	return h.samples[(h.next-1+len(h.samples))%len(h.samples)], nil
}

// Lookup returns the sample recorded for slot, if it is still in the ring.
func (h *History) Lookup(slot uint64) (Sample, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for i := 0; i < h.count; i++ {
		sample := h.samples[(h.next-1-i+2*len(h.samples))%len(h.samples)]
		if sample.Slot == slot {
			return sample, true
		}
		if sample.Slot < slot {
			break
		}
	}
	return Sample{}, false
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Refresh reads the feeder head and records it when it is newer than the
// most recent sample. It reports whether a sample was appended.
func Refresh(ctx context.Context, history *History, feeder Feeder) (bool, error) {
	head, err := feeder.Head(ctx)
	if err != nil {
		return false, err
	}

	if last, err := history.MostRecent(ctx); err == nil && head.Slot <= last.Slot {
		return false, nil
	}
	if err := history.Record(head); err != nil {
		return false, err
	}
	return true, nil
}
