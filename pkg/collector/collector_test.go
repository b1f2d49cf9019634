package collector

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/errors"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/items"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/logger"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/models"
)

// scriptedSource replays fixed batches, then empty batches forever.
// closeAfter > 0 closes the source once that many batches were pulled.
type scriptedSource struct {
	batches    [][]string
	pulls      int
	triggers   int
	closeAfter int
	pullErr    error
	triggerErr error
}

func (s *scriptedSource) NextBatch(ctx context.Context) ([]models.RawItem, error) {
	if s.pullErr != nil && s.pulls >= len(s.batches) {
		return nil, s.pullErr
	}
	var out []models.RawItem
	if s.pulls < len(s.batches) {
		for _, id := range s.batches[s.pulls] {
			out = append(out, models.RawItem{ID: id, Title: "title " + id})
		}
	}
	s.pulls++
	return out, nil
}

func (s *scriptedSource) TriggerMore(ctx context.Context) error {
	s.triggers++
	return s.triggerErr
}

func (s *scriptedSource) IsClosed() bool {
	return s.closeAfter > 0 && s.pulls >= s.closeAfter
}

func itemIDs(store *items.Store) []string {
	var out []string
	for _, it := range store.Items() {
		out = append(out, it.ID)
	}
	return out
}

func newCollector(opts Options) *Collector {
	return New(opts, logger.NewNopLogger())
}

func TestRunStallScenario(t *testing.T) {
	src := &scriptedSource{batches: [][]string{{"A", "B"}, {"B", "C"}}}
	store := items.NewStore()

	res, err := newCollector(Options{MaxItems: 100, StallLimit: 3}).Run(context.Background(), src, store)

	require.NoError(t, err)
	assert.Equal(t, StopStalled, res.Reason)
	assert.Equal(t, []string{"A", "B", "C"}, itemIDs(store))
	assert.Equal(t, 2+3, res.Batches, "two productive batches then stallLimit empty ones")
	assert.Equal(t, 3, res.Added)
	assert.Equal(t, 3, res.Total)
}

func TestRunDedupAndFirstObservationOrder(t *testing.T) {
	src := &scriptedSource{batches: [][]string{
		{"5", "3"},
		{"3", "9", "5", "1"},
		{"1", "9"},
		{"7", "3"},
	}}
	store := items.NewStore()

	_, err := newCollector(Options{MaxItems: 100, StallLimit: 2}).Run(context.Background(), src, store)

	require.NoError(t, err)
	assert.Equal(t, []string{"5", "3", "9", "1", "7"}, itemIDs(store))
}

func TestDuplicateOnlyBatchesAdvanceStall(t *testing.T) {
	// The feed keeps repeating the same items and never closes
	batches := make([][]string, 50)
	for i := range batches {
		batches[i] = []string{"A", "B"}
	}
	src := &scriptedSource{batches: batches}

	res, err := newCollector(Options{MaxItems: 100, StallLimit: 4}).Run(context.Background(), src, items.NewStore())

	require.NoError(t, err)
	assert.Equal(t, StopStalled, res.Reason)
	assert.Equal(t, 1+4, res.Batches)
}

func TestRunStopsAtMaxItems(t *testing.T) {
	src := &scriptedSource{batches: [][]string{{"A", "B"}, {"C", "D"}, {"E"}}}
	store := items.NewStore()

	res, err := newCollector(Options{MaxItems: 3, StallLimit: 10}).Run(context.Background(), src, store)

	require.NoError(t, err)
	assert.Equal(t, StopMaxItems, res.Reason)
	assert.Equal(t, 2, res.Batches)
	assert.Equal(t, 4, store.Len(), "a batch is merged whole before the limit is checked")
}

func TestRunSourceClosedAfterItems(t *testing.T) {
	src := &scriptedSource{batches: [][]string{{"A"}, {"B"}}, closeAfter: 2}

	res, err := newCollector(Options{MaxItems: 100, StallLimit: 10}).Run(context.Background(), src, items.NewStore())

	require.NoError(t, err)
	assert.Equal(t, StopSourceClosed, res.Reason)
	assert.Equal(t, 2, res.Total)
}

func TestRunClosedBeforeAnyItemIsUnavailable(t *testing.T) {
	src := &scriptedSource{closeAfter: 1}

	res, err := newCollector(Options{MaxItems: 100, StallLimit: 10}).Run(context.Background(), src, items.NewStore())

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrorTypeSourceUnavailable))
	assert.Equal(t, StopSourceClosed, res.Reason)
	assert.Equal(t, 0, res.Total)
}

func TestRunSourceErrorKeepsPartialResults(t *testing.T) {
	cause := stderrors.New("page crashed")
	src := &scriptedSource{batches: [][]string{{"A", "B"}}, pullErr: cause}
	store := items.NewStore()

	res, err := newCollector(Options{MaxItems: 100, StallLimit: 10}).Run(context.Background(), src, store)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrorTypeSourceUnavailable))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, StopSourceError, res.Reason)
	assert.Equal(t, []string{"A", "B"}, itemIDs(store))
}

func TestRunTriggerError(t *testing.T) {
	src := &scriptedSource{batches: [][]string{{"A"}}, triggerErr: stderrors.New("scroll failed")}

	res, err := newCollector(Options{MaxItems: 100, StallLimit: 10}).Run(context.Background(), src, items.NewStore())

	assert.True(t, errors.Is(err, errors.ErrorTypeSourceUnavailable))
	assert.Equal(t, StopSourceError, res.Reason)
	assert.Equal(t, 1, res.Total)
}

func TestRunFlushesAfterProductiveBatches(t *testing.T) {
	src := &scriptedSource{batches: [][]string{{"A"}, {"A"}, {"B"}}}
	var flushed [][]string
	flusher := FlushFunc(func(ctx context.Context, snapshot []models.Item) error {
		var ids []string
		for _, it := range snapshot {
			ids = append(ids, it.ID)
		}
		flushed = append(flushed, ids)
		return nil
	})

	_, err := newCollector(Options{MaxItems: 100, StallLimit: 2, Flusher: flusher}).Run(context.Background(), src, items.NewStore())

	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A"}, {"A", "B"}}, flushed)
}

func TestRunFlushFailureIsPersistenceError(t *testing.T) {
	src := &scriptedSource{batches: [][]string{{"A"}, {"B"}}}
	flusher := FlushFunc(func(ctx context.Context, snapshot []models.Item) error {
		return stderrors.New("disk full")
	})

	res, err := newCollector(Options{MaxItems: 100, StallLimit: 2, Flusher: flusher}).Run(context.Background(), src, items.NewStore())

	assert.True(t, errors.Is(err, errors.ErrorTypePersistence))
	assert.Equal(t, StopFlushFailed, res.Reason)
	assert.Equal(t, 1, res.Batches)
}

func TestRunCancelledDuringSettle(t *testing.T) {
	src := &scriptedSource{batches: [][]string{{"A"}}}
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	res, err := newCollector(Options{MaxItems: 100, StallLimit: 10, SettleInterval: time.Minute}).Run(ctx, src, items.NewStore())

	require.NoError(t, err)
	assert.Equal(t, StopCancelled, res.Reason)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 1, res.Total)
}

func TestRunSeededStoreOnlyCountsNewItems(t *testing.T) {
	store := items.NewStore()
	store.Seed([]models.Item{{ID: "A"}, {ID: "B"}})
	src := &scriptedSource{batches: [][]string{{"B", "C"}}}

	res, err := newCollector(Options{MaxItems: 100, StallLimit: 1}).Run(context.Background(), src, store)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, []string{"A", "B", "C"}, itemIDs(store))
}
