package entropy

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tonkeeper/tonapi-go"
	"go.uber.org/zap"

	"tierraffle/internal/logger"
)

const rateLimitAttempts = 20

var rateLimitBackoff = 500 * time.Millisecond

// TonapiFeeder follows the masterchain head through tonapi.
type TonapiFeeder struct {
	client *tonapi.Client
}

func NewTonapiFeeder(token string) (*TonapiFeeder, error) {
	logger.Debug("tonapi feeder initialization: tonapi client...")
	client, err := tonapi.NewClient(tonapi.TonApiURL, tonapi.WithToken(token))
	if err != nil {
		return nil, fmt.Errorf("entropy: tonapi client: %w", err)
	}
	return &TonapiFeeder{client: client}, nil
}

func (f *TonapiFeeder) Head(ctx context.Context) (Sample, error) {
	block, err := rateLimitRetry(ctx, func() (*tonapi.BlockchainBlock, error) {
		return f.client.GetBlockchainMasterchainHead(ctx)
	})
	if err != nil {
		return Sample{}, fmt.Errorf("entropy: masterchain head: %w", err)
	}

	return sampleFromBlock(block.Seqno, block.RootHash)
}

func sampleFromBlock(seqno int32, rootHash string) (Sample, error) {
	if seqno < 0 {
		return Sample{}, fmt.Errorf("entropy: negative seqno %d", seqno)
	}

	decoded, err := hex.DecodeString(rootHash)
	if err != nil {
		return Sample{}, fmt.Errorf("entropy: root hash: %w", err)
	}
	if len(decoded) != 32 {
		return Sample{}, fmt.Errorf("entropy: root hash has %d bytes", len(decoded))
	}

	sample := Sample{Slot: uint64(seqno)}
	copy(sample.Hash[:], decoded)
	return sample, nil
}

// rateLimitRetry repeats fn while tonapi answers 429, up to a fixed number
// of attempts or until ctx is done.
func rateLimitRetry[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	for attempt := 0; attempt < rateLimitAttempts; attempt++ {
		result, err = fn()
		if !isRateLimited(err) {
			return result, err
		}

		logger.Debug("tonapi: rate limited, backing off", zap.Int("attempt", attempt+1))
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(rateLimitBackoff):
		}
	}
	return result, err
}

func isRateLimited(err error) bool {
	var e *tonapi.ErrorStatusCode
	return errors.As(err, &e) && e.StatusCode == http.StatusTooManyRequests
}
