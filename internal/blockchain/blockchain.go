package blockchain

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/tonkeeper/tongo/ton"
)

const (
	RaffleAccountSeed = "RAFFLE_ACCOUNT_SEED"
	RaffleVaultSeed   = "RAFFLE_VAULT_SEED"

	derivationMarker = "ProgramDerivedAddress"
)

// None is the zero address. It marks "no winner" and is never derived.
var None = ton.AccountID{}

func IsNone(address ton.AccountID) bool {
	return address == None
}

// DeriveAddress computes a basechain address from the program id and seeds.
// Any caller can recompute it, so no lookup table is needed.
func DeriveAddress(program ton.AccountID, seeds ...[]byte) ton.AccountID {
	h := sha256.New()
	var length [2]byte
	for _, seed := range seeds {
		binary.BigEndian.PutUint16(length[:], uint16(len(seed)))
		h.Write(length[:])
		h.Write(seed)
	}

	var workchain [4]byte
	binary.BigEndian.PutUint32(workchain[:], uint32(program.Workchain))
	h.Write(workchain[:])
	h.Write(program.Address[:])
	h.Write([]byte(derivationMarker))

	derived := ton.AccountID{Workchain: 0}
	copy(derived.Address[:], h.Sum(nil))
	return derived
}

func RaffleAccountAddress(program ton.AccountID, tierID string) ton.AccountID {
	return DeriveAddress(program, []byte(RaffleAccountSeed), []byte(tierID))
}

func VaultAddress(program ton.AccountID, tierID string) ton.AccountID {
	return DeriveAddress(program, []byte(RaffleVaultSeed), []byte(tierID))
}
