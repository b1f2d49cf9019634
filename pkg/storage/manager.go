package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/errors"
)

const coverExt = ".jpg"

// Manager owns the cover cache directory. A file at PathFor(id) is the only
// cache-hit signal, so files only appear there fully written.
type Manager struct {
	dir   string
	mu    sync.RWMutex
	known map[string]bool
}

// NewManager creates the cache directory if needed and indexes existing covers
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Persistence("failed to create cover directory", err)
	}

	m := &Manager{dir: dir, known: make(map[string]bool)}
	if err := m.scanExistingFiles(); err != nil {
		return nil, errors.Persistence("failed to scan cover directory", err)
	}
	return m, nil
}

func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && filepath.Ext(name) == coverExt {
			m.known[strings.TrimSuffix(name, coverExt)] = true
		}
	}
	return nil
}

// FileName is the cache file name for an item id. The name derives from the
// id alone so CDN URL rotation never invalidates the cache.
func FileName(id string) string {
	return SanitizeID(id) + coverExt
}

// SanitizeID maps an id to a safe file name stem. Letters, digits, '-' and
// '_' are kept; every other byte becomes ~xx (lower hex), so distinct ids
// never share a file and the stem stays safe in URLs. The empty id is "~".
func SanitizeID(id string) string {
	if id == "" {
		return "~"
	}
	const hex = "0123456789abcdef"
	var b strings.Builder
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteByte(c)
		default:
			b.WriteByte('~')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0f])
		}
	}
	return b.String()
}

// PathFor returns the cache path for an item id
func (m *Manager) PathFor(id string) string {
	return filepath.Join(m.dir, FileName(id))
}

// IsCached reports whether the cover for id is already on disk
func (m *Manager) IsCached(id string) bool {
	key := SanitizeID(id)

	m.mu.RLock()
	known := m.known[key]
	m.mu.RUnlock()
	if known {
		if _, err := os.Stat(m.PathFor(id)); err == nil {
			return true
		}
		m.mu.Lock()
		delete(m.known, key)
		m.mu.Unlock()
		return false
	}

	if _, err := os.Stat(m.PathFor(id)); err == nil {
		m.mu.Lock()
		m.known[key] = true
		m.mu.Unlock()
		return true
	}
	return false
}

// Save streams r into the cache for id. The data goes to a temp file that is
// renamed into place only after a complete copy; on any error the temp file
// is removed and nothing appears at PathFor(id).
func (m *Manager) Save(id string, r io.Reader) (int64, error) {
	final := m.PathFor(id)

	out, err := os.CreateTemp(m.dir, FileName(id)+".tmp-*")
	if err != nil {
		return 0, errors.Persistence("failed to create temporary cover file", err)
	}
	tempFile := out.Name()

	n, err := io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return n, errors.TransientFetch(fmt.Sprintf("copy cover for %s", id), 0, err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return n, errors.Persistence("failed to close cover file", closeErr)
	}
	if err := os.Chmod(tempFile, 0644); err != nil {
		os.Remove(tempFile)
		return n, errors.Persistence("failed to set cover permissions", err)
	}
	if err := os.Rename(tempFile, final); err != nil {
		os.Remove(tempFile)
		return n, errors.Persistence("failed to move cover into place", err)
	}

	m.mu.Lock()
	m.known[SanitizeID(id)] = true
	m.mu.Unlock()
	return n, nil
}

// Dir returns the cache directory
func (m *Manager) Dir() string {
	return m.dir
}

// CachedCount returns the number of covers known to be on disk
func (m *Manager) CachedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.known)
}
