package entropy

import (
	"context"
	"fmt"

	"github.com/tonkeeper/tongo/liteapi"
	"go.uber.org/zap"

	"tierraffle/internal/logger"
)

// LiteFeeder follows the masterchain head through a lite server. The slot is
// the masterchain seqno and the hash is the block root hash.
type LiteFeeder struct {
	client *liteapi.Client
}

func NewLiteFeeder() (*LiteFeeder, error) {
	logger.Debug("lite feeder initialization: connecting to mainnet lite servers...")
	client, err := liteapi.NewClientWithDefaultMainnet()
	if err != nil {
		return nil, fmt.Errorf("entropy: lite client: %w", err)
	}
	logger.Debug("lite feeder initialization: connecting to mainnet lite servers... done")
	return &LiteFeeder{client: client}, nil
}

func (f *LiteFeeder) Head(ctx context.Context) (Sample, error) {
	info, err := f.client.GetMasterchainInfo(ctx)
	if err != nil {
		return Sample{}, fmt.Errorf("entropy: masterchain info: %w", err)
	}

	sample := Sample{
		Slot: uint64(info.Last.Seqno),
		Hash: [32]byte(info.Last.RootHash),
	}
	logger.Debug("lite feeder: masterchain head", zap.Uint64("seqno", sample.Slot))
	return sample, nil
}
