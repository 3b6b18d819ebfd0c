package database

import (
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS dataset_meta (
  kind               TEXT PRIMARY KEY,
  download_uri       TEXT,
  remote_updated_at  TIMESTAMP,
  etag               TEXT,
  local_processed_at TIMESTAMP,
  record_count       INTEGER NOT NULL DEFAULT 0,
  status             TEXT NOT NULL DEFAULT 'ok'
);
`

func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
