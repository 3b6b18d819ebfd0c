package meta

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardvault/pkg/database"
	"cardvault/pkg/models"
)

func testRepo(t *testing.T) *Repo {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "meta.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return NewRepo(db)
}

func TestGetMissingRow(t *testing.T) {
	r := testRepo(t)
	m, err := r.Get(context.Background(), "default_cards")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestPutThenGetRoundTrip(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()

	remote := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	processed := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)
	require.NoError(t, r.Put(ctx, &models.DatasetMeta{
		Kind:             "default_cards",
		DownloadURI:      "https://bulk.example/default.json",
		RemoteUpdatedAt:  &remote,
		ETag:             `"v1"`,
		LocalProcessedAt: &processed,
		RecordCount:      95000,
		Status:           models.SyncStatusOK,
	}))

	m, err := r.Get(ctx, "default_cards")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, `"v1"`, m.ETag)
	assert.Equal(t, 95000, m.RecordCount)
	assert.Equal(t, models.SyncStatusOK, m.Status)
	require.NotNil(t, m.RemoteUpdatedAt)
	assert.True(t, m.RemoteUpdatedAt.Equal(remote))
	require.NotNil(t, m.LocalProcessedAt)
	assert.True(t, m.LocalProcessedAt.Equal(processed))
}

func TestPutOverwritesExistingRow(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, &models.DatasetMeta{
		Kind: "rulings", ETag: `"v1"`, RecordCount: 10, Status: models.SyncStatusOK,
	}))
	require.NoError(t, r.Put(ctx, &models.DatasetMeta{
		Kind: "rulings", RecordCount: 0, Status: models.SyncStatusNotModified,
	}))

	m, err := r.Get(ctx, "rulings")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Empty(t, m.ETag)
	assert.Equal(t, models.SyncStatusNotModified, m.Status)
	assert.Nil(t, m.RemoteUpdatedAt)
}

func TestSetStatus(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()

	require.NoError(t, r.SetStatus(ctx, "default_cards", models.SyncStatusError))
	m, err := r.Get(ctx, "default_cards")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, models.SyncStatusError, m.Status)

	// existing rows keep their other columns
	require.NoError(t, r.Put(ctx, &models.DatasetMeta{
		Kind: "default_cards", RecordCount: 5, Status: models.SyncStatusOK,
	}))
	require.NoError(t, r.SetStatus(ctx, "default_cards", models.SyncStatusError))
	m, err = r.Get(ctx, "default_cards")
	require.NoError(t, err)
	assert.Equal(t, 5, m.RecordCount)
	assert.Equal(t, models.SyncStatusError, m.Status)
}

func TestScanTolerance(t *testing.T) {
	// rows written by older builds may hold NULLs in optional columns
	r := testRepo(t)
	_, err := r.DB.Exec(`INSERT INTO dataset_meta (kind, status) VALUES ('legacy', 'ok')`)
	require.NoError(t, err)

	m, err := r.Get(context.Background(), "legacy")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Empty(t, m.DownloadURI)
	assert.Zero(t, m.RecordCount)
}
