package raffle

import (
	"github.com/holiman/uint256"
)

// WinnerIndex reads hash as a big-endian unsigned 256-bit integer and reduces
// it modulo capacity. The same hash always yields the same slot.
func WinnerIndex(hash [32]byte, capacity int) int {
	if capacity <= 0 {
		return 0
	}
	value := new(uint256.Int).SetBytes(hash[:])
	return int(value.Mod(value, uint256.NewInt(uint64(capacity))).Uint64())
}
