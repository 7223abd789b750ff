// Package entropy keeps a bounded, append-only history of recent chain
// hashes and feeds it from a chain head source.
package entropy

import (
	"context"
	"errors"
)

var ErrUnavailable = errors.New("entropy: no recorded sample available")

// Sample is one recorded chain hash. Slots strictly increase within a history.
type Sample struct {
	Slot uint64
	Hash [32]byte
}

// Source hands out the most recent sample that has already been recorded.
type Source interface {
	MostRecent(ctx context.Context) (Sample, error)
}

// Feeder reads the current chain head.
type Feeder interface {
	Head(ctx context.Context) (Sample, error)
}
