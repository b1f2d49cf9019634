package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/models"
)

// mockDouyinServer simulates the favorites listing API, the cover CDN and
// the video CDN behind one httptest server
type mockDouyinServer struct {
	server       *httptest.Server
	pageSize     int
	total        int
	listRequests int32
	coverHits    int32
	mu           sync.RWMutex
	errorCovers  map[string]int
	video        []byte
}

func newMockDouyinServer(total, pageSize int) *mockDouyinServer {
	m := &mockDouyinServer{
		pageSize:    pageSize,
		total:       total,
		errorCovers: make(map[string]int),
		video:       bytes.Repeat([]byte("0123456789"), 1000),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/aweme/v1/web/aweme/listcollection/", m.handleList)
	mux.HandleFunc("/covers/", m.handleCover)
	mux.HandleFunc("/videos/", m.handleVideo)

	m.server = httptest.NewServer(mux)
	return m
}

func (m *mockDouyinServer) URL() string {
	return m.server.URL
}

func (m *mockDouyinServer) ListURL() string {
	return m.server.URL + "/aweme/v1/web/aweme/listcollection/"
}

func (m *mockDouyinServer) Close() {
	m.server.Close()
}

// handleList serves newest-first pages keyed by cursor
func (m *mockDouyinServer) handleList(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.listRequests, 1)

	if r.Header.Get("Cookie") == "" {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.FavoritesResponse{StatusCode: 8, StatusMsg: "not logged in"})
		return
	}

	cursor, _ := strconv.Atoi(r.URL.Query().Get("cursor"))
	end := cursor + m.pageSize
	if end > m.total {
		end = m.total
	}

	page := models.FavoritesResponse{Cursor: int64(end)}
	if end < m.total {
		page.HasMore = 1
	}
	for i := cursor; i < end; i++ {
		id := fmt.Sprintf("73%05d", i)
		page.AwemeList = append(page.AwemeList, models.Aweme{
			AwemeID:    id,
			Desc:       fmt.Sprintf("video %d #fav", i),
			CreateTime: 1700000000 + int64(i),
			Author:     models.Author{Nickname: fmt.Sprintf("author%d", i%3), SecUID: "sec" + strconv.Itoa(i%3)},
			Video: models.Video{
				Cover: models.URLList{URLList: []string{m.server.URL + "/covers/" + id + ".jpeg"}},
			},
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(page)
}

func (m *mockDouyinServer) handleCover(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.coverHits, 1)
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/covers/"), ".jpeg")

	m.mu.RLock()
	code := m.errorCovers[id]
	m.mu.RUnlock()
	if code > 0 {
		w.WriteHeader(code)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	_, _ = w.Write([]byte("cover-" + id))
}

func (m *mockDouyinServer) handleVideo(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Referer") != "https://www.douyin.com/" {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "video/mp4")
	http.ServeContent(w, r, "v.mp4", time.Time{}, bytes.NewReader(m.video))
}

// SetCoverError makes the cover of id fail with code
func (m *mockDouyinServer) SetCoverError(id string, code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCovers[id] = code
}

func (m *mockDouyinServer) ClearCoverErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCovers = make(map[string]int)
}

func (m *mockDouyinServer) ListRequests() int {
	return int(atomic.LoadInt32(&m.listRequests))
}

func (m *mockDouyinServer) CoverHits() int {
	return int(atomic.LoadInt32(&m.coverHits))
}
