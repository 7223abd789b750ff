package entropy

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tonkeeper/tonapi-go"
)

func TestHistoryIsEmptyUntilRecorded(t *testing.T) {
	history := NewHistory(4)

	_, err := history.MostRecent(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)

	require.NoError(t, history.Record(Sample{Slot: 7, Hash: [32]byte{7}}))
	sample, err := history.MostRecent(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(7), sample.Slot)
	require.Equal(t, [32]byte{7}, sample.Hash)
}

func TestHistoryIsAppendOnly(t *testing.T) {
	history := NewHistory(4)
	require.NoError(t, history.Record(Sample{Slot: 10}))

	require.ErrorIs(t, history.Record(Sample{Slot: 10}), ErrStaleSlot)
	require.ErrorIs(t, history.Record(Sample{Slot: 9}), ErrStaleSlot)
	require.Equal(t, 1, history.Len())
}

func TestHistoryIsBounded(t *testing.T) {
	history := NewHistory(3)
	for slot := uint64(1); slot <= 5; slot++ {
		require.NoError(t, history.Record(Sample{Slot: slot, Hash: [32]byte{byte(slot)}}))
	}

	require.Equal(t, 3, history.Len())
	_, ok := history.Lookup(2)
	require.False(t, ok)
	sample, ok := history.Lookup(3)
	require.True(t, ok)
	require.Equal(t, [32]byte{3}, sample.Hash)

	latest, err := history.MostRecent(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(5), latest.Slot)
}

type scriptedFeeder struct {
	samples []Sample
	err     error
}

func (f *scriptedFeeder) Head(context.Context) (Sample, error) {
	if f.err != nil {
		return Sample{}, f.err
	}
	sample := f.samples[0]
	if len(f.samples) > 1 {
		f.samples = f.samples[1:]
	}
	return sample, nil
}

func TestRefreshSkipsAlreadyRecordedHeads(t *testing.T) {
	ctx := context.Background()
	history := NewHistory(8)
	feeder := &scriptedFeeder{samples: []Sample{{Slot: 1}, {Slot: 1}, {Slot: 2}}}

	appended, err := Refresh(ctx, history, feeder)
	require.NoError(t, err)
	require.True(t, appended)

	appended, err = Refresh(ctx, history, feeder)
	require.NoError(t, err)
	require.False(t, appended)

	appended, err = Refresh(ctx, history, feeder)
	require.NoError(t, err)
	require.True(t, appended)
	require.Equal(t, 2, history.Len())

	feeder.err = errors.New("lite server down")
	_, err = Refresh(ctx, history, feeder)
	require.Error(t, err)
	require.Equal(t, 2, history.Len())
}

func TestLocalFeederAdvances(t *testing.T) {
	feeder := NewLocalFeeder(100)
	first, err := feeder.Head(context.Background())
	require.NoError(t, err)
	second, err := feeder.Head(context.Background())
	require.NoError(t, err)

	require.Equal(t, uint64(101), first.Slot)
	require.Equal(t, uint64(102), second.Slot)
	require.NotEqual(t, first.Hash, second.Hash)
}

func TestSampleFromBlock(t *testing.T) {
	hash := strings.Repeat("ab", 32)
	sample, err := sampleFromBlock(42, hash)
	require.NoError(t, err)
	require.Equal(t, uint64(42), sample.Slot)
	require.Equal(t, byte(0xab), sample.Hash[31])

	_, err = sampleFromBlock(42, "abcd")
	require.Error(t, err)
	_, err = sampleFromBlock(-1, hash)
	require.Error(t, err)
	_, err = sampleFromBlock(1, "zz")
	require.Error(t, err)
}

func TestRateLimitRetry(t *testing.T) {
	previous := rateLimitBackoff
	rateLimitBackoff = time.Millisecond
	t.Cleanup(func() { rateLimitBackoff = previous })

	calls := 0
	value, err := rateLimitRetry(context.Background(), func() (int, error) {
		calls++
		if calls < 3 {
			return 0, &tonapi.ErrorStatusCode{StatusCode: 429}
		}
		return 7, nil
	})
	require.NoError(t, err)
	require.Equal(t, 7, value)
	require.Equal(t, 3, calls)

	calls = 0
	_, err = rateLimitRetry(context.Background(), func() (int, error) {
		calls++
		return 0, &tonapi.ErrorStatusCode{StatusCode: 500}
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}
