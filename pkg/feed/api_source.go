package feed

import (
	"context"
	"sync"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/models"
)

// APISource pages through the favorites API. NextBatch returns the page at
// the current cursor; TriggerMore moves to the next page. Once the last page
// has been delivered the source reports closed.
type APISource struct {
	client *Client

	mu     sync.Mutex
	cursor int64
	page   *models.FavoritesResponse
	closed bool
}

// NewAPISource creates a source starting at the first page
func NewAPISource(client *Client) *APISource {
	return &APISource{client: client}
}

func (s *APISource) NextBatch(ctx context.Context) ([]models.RawItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page == nil {
		page, err := s.client.FetchPage(ctx, s.cursor)
		if err != nil {
			return nil, err
		}
		s.page = page
	}

	batch := make([]models.RawItem, 0, len(s.page.AwemeList))
	for _, a := range s.page.AwemeList {
		if raw, ok := ToRawItem(a); ok {
			batch = append(batch, raw)
		}
	}
	return batch, nil
}

func (s *APISource) TriggerMore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page == nil {
		return nil
	}
	if s.page.HasMore == 0 {
		s.closed = true
		return nil
	}
	s.cursor = s.page.Cursor
	s.page = nil
	return nil
}

func (s *APISource) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Cursor returns the cursor of the page currently being read
func (s *APISource) Cursor() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}
