package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/errors"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/models"
)

func openMemory(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func sample() []models.Item {
	return []models.Item{
		{ID: "3", Title: "猫咪合集", Author: "阿猫", CoverURL: "https://c/3"},
		{ID: "1", Title: "Street food tour", Author: "foodie", CreateTime: 1700000000},
		{ID: "2", Title: "100% real cat", Author: "someone", LocalCover: "data/covers/2.jpg"},
	}
}

func TestSyncAndSearchKeepManifestOrder(t *testing.T) {
	c := openMemory(t)
	ctx := context.Background()
	require.NoError(t, c.Sync(ctx, sample()))

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	all, err := c.Search(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"3", "1", "2"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, int64(1700000000), all[1].CreateTime)
	assert.Equal(t, "data/covers/2.jpg", all[2].LocalCover)
}

func TestSearchMatchesTitleAndAuthor(t *testing.T) {
	c := openMemory(t)
	ctx := context.Background()
	require.NoError(t, c.Sync(ctx, sample()))

	got, err := c.Search(ctx, "cat", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)

	got, err = c.Search(ctx, "阿猫", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].ID)

	got, err = c.Search(ctx, "nothing here", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	c := openMemory(t)
	ctx := context.Background()
	require.NoError(t, c.Sync(ctx, sample()))

	got, err := c.Search(ctx, "%", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

func TestSearchLimit(t *testing.T) {
	c := openMemory(t)
	ctx := context.Background()
	require.NoError(t, c.Sync(ctx, sample()))

	got, err := c.Search(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSyncReplacesPreviousContents(t *testing.T) {
	c := openMemory(t)
	ctx := context.Background()
	require.NoError(t, c.Sync(ctx, sample()))

	next := []models.Item{
		{ID: "2", Title: "renamed"},
		{ID: "9", Title: "new"},
	}
	require.NoError(t, c.Sync(ctx, next))

	all, err := c.Search(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "2", all[0].ID)
	assert.Equal(t, "renamed", all[0].Title)
	assert.Equal(t, "9", all[1].ID)
}

func TestSyncSkipsEmptyIDs(t *testing.T) {
	c := openMemory(t)
	ctx := context.Background()
	require.NoError(t, c.Sync(ctx, []models.Item{{ID: ""}, {ID: "a"}}))

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpenCreatesDirectoryAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "catalog.db")
	ctx := context.Background()

	c, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, c.Sync(ctx, sample()))
	require.NoError(t, c.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSyncCancelledContext(t *testing.T) {
	c := openMemory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Sync(ctx, sample())
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypePersistence, errors.TypeOf(err))
}

func TestClosedCatalogErrorsArePersistenceErrors(t *testing.T) {
	c := openMemory(t)
	require.NoError(t, c.Close())
	ctx := context.Background()

	_, err := c.Count(ctx)
	assert.Equal(t, errors.ErrorTypePersistence, errors.TypeOf(err))
	_, err = c.Search(ctx, "x", 10)
	assert.Equal(t, errors.ErrorTypePersistence, errors.TypeOf(err))
	assert.True(t, errors.Is(c.Sync(ctx, sample()), errors.ErrorTypePersistence))
}

func TestOpenUnwritablePathIsPersistenceError(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := Open(filepath.Join(blocker, "catalog.db"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypePersistence, errors.TypeOf(err))
}
