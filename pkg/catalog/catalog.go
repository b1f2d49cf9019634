// Package catalog mirrors the manifest into SQLite so the wall can be
// searched by title and author without loading the whole manifest.
// The manifest stays the source of truth; Sync replaces the mirror's
// contents with whatever the manifest holds.
package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/errors"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/models"
)

//go:embed schema.sql
var schema string

// Catalog is a SQLite mirror of the manifest
type Catalog struct {
	db *sql.DB
}

// Open opens (creating if needed) the catalog at path. ":memory:" gives a
// private in-memory catalog.
func Open(path string) (*Catalog, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Persistence("failed to create catalog directory", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Persistence("failed to open catalog", err)
	}
	// One writer at a time; also keeps ":memory:" on a single database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, errors.Persistence("failed to enable catalog WAL", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Persistence("failed to initialise catalog schema", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Persistence("failed to reach catalog", err)
	}

	return &Catalog{db: db}, nil
}

// Close closes the database
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Sync makes the catalog hold exactly items, in order, in one transaction
func (c *Catalog) Sync(ctx context.Context, items []models.Item) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Persistence("failed to begin catalog sync", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Rows still at -1 after the upserts are gone from the manifest
	if _, err := tx.ExecContext(ctx, `UPDATE items SET position = -1`); err != nil {
		return errors.Persistence("failed to mark stale catalog rows", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO items (id, position, title, author, author_id, cover_url, video_url, create_time, local_cover, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			position = excluded.position,
			title = excluded.title,
			author = excluded.author,
			author_id = excluded.author_id,
			cover_url = excluded.cover_url,
			video_url = excluded.video_url,
			create_time = excluded.create_time,
			local_cover = excluded.local_cover,
			synced_at = excluded.synced_at
	`)
	if err != nil {
		return errors.Persistence("failed to prepare catalog upsert", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, it := range items {
		if it.ID == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			it.ID, i, it.Title, it.Author, it.AuthorID,
			it.CoverURL, it.VideoURL, it.CreateTime, it.LocalCover, now,
		); err != nil {
			return errors.Persistence(fmt.Sprintf("failed to upsert catalog item %s", it.ID), err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE position = -1`); err != nil {
		return errors.Persistence("failed to delete stale catalog rows", err)
	}

	if err := tx.Commit(); err != nil {
		return errors.Persistence("failed to commit catalog sync", err)
	}
	return nil
}

// Search returns up to limit items whose title or author contains q, in
// manifest order. An empty q matches everything.
func (c *Catalog) Search(ctx context.Context, q string, limit int) ([]models.Item, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + escapeLike(strings.TrimSpace(q)) + "%"

	rows, err := c.db.QueryContext(ctx, `
		SELECT id, title, author, author_id, cover_url, video_url, create_time, local_cover
		FROM items
		WHERE title LIKE ? ESCAPE '\' OR author LIKE ? ESCAPE '\'
		ORDER BY position
		LIMIT ?
	`, pattern, pattern, limit)
	if err != nil {
		return nil, errors.Persistence("failed to search catalog", err)
	}
	defer rows.Close()

	result := []models.Item{}
	for rows.Next() {
		var it models.Item
		if err := rows.Scan(&it.ID, &it.Title, &it.Author, &it.AuthorID,
			&it.CoverURL, &it.VideoURL, &it.CreateTime, &it.LocalCover); err != nil {
			return nil, errors.Persistence("failed to read catalog row", err)
		}
		result = append(result, it)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Persistence("failed to iterate catalog rows", err)
	}
	return result, nil
}

// Count returns the number of catalogued items
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, errors.Persistence("failed to count catalog items", err)
	}
	return n, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
