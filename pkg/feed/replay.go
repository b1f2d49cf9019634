package feed

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/errors"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/models"
)

// ReplaySource yields recorded batches in order. After the last batch it
// keeps returning empty batches, like a feed that stopped loading.
type ReplaySource struct {
	mu      sync.Mutex
	batches [][]models.RawItem
	next    int
	closed  bool
}

// NewReplaySource creates a source over in-memory batches
func NewReplaySource(batches [][]models.RawItem) *ReplaySource {
	return &ReplaySource{batches: batches}
}

// LoadReplay reads a fixture file holding a JSON array of batches
func LoadReplay(path string) (*ReplaySource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.SourceUnavailable("read replay fixture", err)
	}
	var batches [][]models.RawItem
	if err := json.Unmarshal(data, &batches); err != nil {
		return nil, errors.SourceUnavailable("decode replay fixture", err)
	}
	return NewReplaySource(batches), nil
}

func (s *ReplaySource) NextBatch(ctx context.Context) ([]models.RawItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next >= len(s.batches) {
		return nil, nil
	}
	batch := s.batches[s.next]
	return batch, nil
}

// TriggerMore advances to the next recorded batch
func (s *ReplaySource) TriggerMore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next < len(s.batches) {
		s.next++
	}
	return nil
}

func (s *ReplaySource) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close marks the source closed; the collector stops at its next check
func (s *ReplaySource) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
