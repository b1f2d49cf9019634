package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/errors"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/logger"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/models"
)

// Manager reads and atomically rewrites the item manifest
type Manager struct {
	path   string
	logger logger.Logger
}

// NewManager creates a manager for the manifest at path
func NewManager(path string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Manager{path: path, logger: log}
}

// Path returns the manifest file path
func (m *Manager) Path() string {
	return m.path
}

// Load reads the manifest. A missing file is an empty manifest.
func (m *Manager) Load() ([]models.Item, error) {
	file, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.Item{}, nil
		}
		return nil, errors.Persistence("failed to open manifest", err)
	}
	defer file.Close()

	var items []models.Item
	if err := json.NewDecoder(file).Decode(&items); err != nil {
		return nil, errors.Persistence("failed to decode manifest", err)
	}
	if items == nil {
		items = []models.Item{}
	}

	m.logger.DebugWithFields("Manifest loaded", map[string]interface{}{
		"path":  m.path,
		"items": len(items),
	})
	return items, nil
}

// Save replaces the manifest with items
func (m *Manager) Save(items []models.Item) error {
	if items == nil {
		items = []models.Item{}
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(items); err != nil {
		return errors.Persistence("failed to encode manifest", err)
	}

	if err := m.writeAtomic(buf.Bytes()); err != nil {
		return err
	}

	m.logger.DebugWithFields("Manifest saved", map[string]interface{}{
		"path":  m.path,
		"items": len(items),
	})
	return nil
}

// SaveRaw persists a client-supplied JSON array of items. The body is
// validated against the item schema, every item needs an id, and it is
// written as received, re-indented. Fields this program does not know about
// survive later Load and Save cycles through Item.Extra.
func (m *Manager) SaveRaw(body []byte) (int, error) {
	var items []models.Item
	if err := json.Unmarshal(body, &items); err != nil {
		return 0, errors.MalformedRequest(fmt.Sprintf("manifest must be a JSON array of items: %v", err))
	}
	if items == nil {
		return 0, errors.MalformedRequest("manifest must be a JSON array of items")
	}
	for i, it := range items {
		if it.ID == "" {
			return 0, errors.MalformedRequest(fmt.Sprintf("item %d has no id", i))
		}
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(body), "", "  "); err != nil {
		return 0, errors.MalformedRequest(err.Error())
	}
	buf.WriteByte('\n')

	if err := m.writeAtomic(buf.Bytes()); err != nil {
		return 0, err
	}

	m.logger.InfoWithFields("Manifest replaced", map[string]interface{}{
		"path":  m.path,
		"items": len(items),
	})
	return len(items), nil
}

// Backup copies the current manifest to {path}.bak. No manifest, no backup.
func (m *Manager) Backup() error {
	src, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Persistence("failed to open manifest for backup", err)
	}
	defer src.Close()

	dst, err := os.Create(m.path + ".bak")
	if err != nil {
		return errors.Persistence("failed to create manifest backup", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return errors.Persistence("failed to copy manifest to backup", err)
	}

	m.logger.Debug("Manifest backed up")
	return nil
}

// writeAtomic writes data to a temp file beside the manifest, syncs it and
// renames it over the old file. On failure the old manifest is untouched.
func (m *Manager) writeAtomic(data []byte) error {
	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Persistence("failed to create manifest directory", err)
	}

	file, err := os.CreateTemp(dir, filepath.Base(m.path)+".tmp-*")
	if err != nil {
		return errors.Persistence("failed to create temporary manifest file", err)
	}
	tempPath := file.Name()

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errors.Persistence("failed to write manifest", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errors.Persistence("failed to sync manifest file", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return errors.Persistence("failed to close manifest file", err)
	}

	// CreateTemp uses 0600
	if err := os.Chmod(tempPath, 0644); err != nil {
		os.Remove(tempPath)
		return errors.Persistence("failed to set manifest permissions", err)
	}

	if err := os.Rename(tempPath, m.path); err != nil {
		os.Remove(tempPath)
		return errors.Persistence("failed to replace manifest file", err)
	}
	return nil
}
