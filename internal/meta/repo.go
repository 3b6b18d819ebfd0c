// Package meta persists per-dataset sync bookkeeping in SQLite.
package meta

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cardvault/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Get loads the bookkeeping row for one dataset kind. A missing row is
// (nil, nil): the dataset has simply never been synced.
func (r *Repo) Get(ctx context.Context, kind string) (*models.DatasetMeta, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT kind, download_uri, remote_updated_at, etag, local_processed_at, record_count, status
		FROM dataset_meta WHERE kind = ?`, kind)

	var m models.DatasetMeta
	var remoteUpdated, localProcessed sql.NullTime
	var downloadURI, etag sql.NullString
	err := row.Scan(&m.Kind, &downloadURI, &remoteUpdated, &etag, &localProcessed, &m.RecordCount, &m.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load dataset meta %q: %w", kind, err)
	}
	m.DownloadURI = downloadURI.String
	m.ETag = etag.String
	if remoteUpdated.Valid {
		m.RemoteUpdatedAt = &remoteUpdated.Time
	}
	if localProcessed.Valid {
		m.LocalProcessedAt = &localProcessed.Time
	}
	return &m, nil
}

// Put upserts the bookkeeping row, replacing every field.
func (r *Repo) Put(ctx context.Context, m *models.DatasetMeta) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO dataset_meta (kind, download_uri, remote_updated_at, etag, local_processed_at, record_count, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind) DO UPDATE SET
			download_uri = excluded.download_uri,
			remote_updated_at = excluded.remote_updated_at,
			etag = excluded.etag,
			local_processed_at = excluded.local_processed_at,
			record_count = excluded.record_count,
			status = excluded.status`,
		m.Kind, m.DownloadURI, m.RemoteUpdatedAt, m.ETag, m.LocalProcessedAt, m.RecordCount, m.Status)
	if err != nil {
		return fmt.Errorf("save dataset meta %q: %w", m.Kind, err)
	}
	return nil
}

// SetStatus updates only the status column, creating the row if needed.
func (r *Repo) SetStatus(ctx context.Context, kind, status string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO dataset_meta (kind, status) VALUES (?, ?)
		ON CONFLICT(kind) DO UPDATE SET status = excluded.status`,
		kind, status)
	if err != nil {
		return fmt.Errorf("update dataset status %q: %w", kind, err)
	}
	return nil
}
