package entropy

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"sync"
)

// LocalFeeder produces a fresh random hash per call for local and
// development ledgers that have no chain to follow.
type LocalFeeder struct {
	mu   sync.Mutex
	slot uint64
}

func NewLocalFeeder(startSlot uint64) *LocalFeeder {
	return &LocalFeeder{slot: startSlot}
}

func (f *LocalFeeder) Head(_ context.Context) (Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var noise [32]byte
	if _, err := rand.Read(noise[:]); err != nil {
		return Sample{}, err
	}

	f.slot++
	var slot [8]byte
	binary.BigEndian.PutUint64(slot[:], f.slot)
	return Sample{Slot: f.slot, Hash: sha256.Sum256(append(slot[:], noise[:]...))}, nil
}
