package events

import "time"

// PublishEvent announces that a new index generation went live.
type PublishEvent struct {
	Type    string    `json:"type"` // "cache.publish"
	Dataset string    `json:"dataset"`
	Epoch   int64     `json:"epoch"`
	Records int       `json:"records"`
	At      time.Time `json:"at"`
}

// ProgressEvent reports throttled download progress for a running sync.
type ProgressEvent struct {
	Type    string    `json:"type"` // "cache.progress"
	Dataset string    `json:"dataset"`
	RunID   string    `json:"run_id"`
	Bytes   int64     `json:"bytes"`
	Total   int64     `json:"total,omitempty"`
	Percent float64   `json:"percent,omitempty"`
	At      time.Time `json:"at"`
}

func NewPublishEvent(dataset string, epoch int64, records int) PublishEvent {
	return PublishEvent{
		Type:    "cache.publish",
		Dataset: dataset,
		Epoch:   epoch,
		Records: records,
		At:      time.Now().UTC(),
	}
}

func NewProgressEvent(dataset, runID string, bytes, total int64) ProgressEvent {
	e := ProgressEvent{
		Type:    "cache.progress",
		Dataset: dataset,
		RunID:   runID,
		Bytes:   bytes,
		Total:   total,
		At:      time.Now().UTC(),
	}
	if total > 0 {
		e.Percent = float64(bytes) * 100 / float64(total)
	}
	return e
}
