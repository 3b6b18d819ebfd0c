package models

import "time"

// Dataset sync statuses recorded in dataset_meta and returned by Sync.
const (
	SyncStatusOK          = "ok"
	SyncStatusLocked      = "locked"
	SyncStatusNotModified = "not_modified"
	SyncStatusError       = "error"
)

// Download outcomes.
const (
	DownloadStatusDownloaded  = "downloaded"
	DownloadStatusNotModified = "not_modified"
)

// DatasetMeta is the durable per-dataset record used to decide whether a
// refresh is needed. One row per dataset kind; overwritten on every sync
// attempt, never deleted.
type DatasetMeta struct {
	Kind             string     `json:"kind"`
	DownloadURI      string     `json:"download_uri,omitempty"`
	RemoteUpdatedAt  *time.Time `json:"remote_updated_at,omitempty"`
	ETag             string     `json:"etag,omitempty"`
	LocalProcessedAt *time.Time `json:"local_processed_at,omitempty"`
	RecordCount      int        `json:"record_count"`
	Status           string     `json:"status"`
}

// SyncResult describes the outcome of one sync attempt.
type SyncResult struct {
	Kind            string `json:"kind"`
	RunID           string `json:"run_id,omitempty"`
	Status          string `json:"status"`
	RecordCount     int    `json:"record_count"`
	TotalCards      int    `json:"total_cards,omitempty"`
	BytesDownloaded int64  `json:"bytes_downloaded"`
	Epoch           int64  `json:"epoch"`
}

// DownloadResult describes whether the on-disk artifact changed and how
// many bytes were written.
type DownloadResult struct {
	Status string `json:"status"`
	Bytes  int64  `json:"bytes"`
	Total  int64  `json:"total"`
	ETag   string `json:"etag,omitempty"`
	Path   string `json:"path"`
}

// DatasetStats describes one dataset's on-disk artifact and its indexes.
type DatasetStats struct {
	File       string         `json:"file"`
	Exists     bool           `json:"exists"`
	SizeBytes  int64          `json:"size_bytes"`
	ModifiedAt *time.Time     `json:"modified_at,omitempty"`
	AgeSeconds float64        `json:"age_seconds,omitempty"`
	Stale      bool           `json:"stale"`
	Records    int            `json:"records"`
	IndexSizes map[string]int `json:"index_sizes,omitempty"`
}

// CacheStats is the diagnostics payload for operator tooling.
type CacheStats struct {
	Prints        DatasetStats `json:"prints"`
	Rulings       DatasetStats `json:"rulings"`
	UniqueSets    int          `json:"unique_sets"`
	UniqueOracles int          `json:"unique_oracles"`
	Epoch         int64        `json:"epoch"`
	Ready         bool         `json:"ready"`
}
