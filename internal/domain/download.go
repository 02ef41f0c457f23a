package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// DownloadStatus represents the current status of a download
type DownloadStatus string

const (
	StatusStarting    DownloadStatus = "starting"
	StatusQueued      DownloadStatus = "queued"
	StatusDownloading DownloadStatus = "downloading"
	StatusFinished    DownloadStatus = "finished"
	StatusError       DownloadStatus = "error"
	StatusCancelled   DownloadStatus = "cancelled"
	StatusPaused      DownloadStatus = "paused"
)

var (
	ErrDownloadNotFound = errors.New("download not found")
	ErrNoPausedRecord   = errors.New("no paused record for download")
	ErrInvalidSettings  = errors.New("invalid settings")
	ErrShuttingDown     = errors.New("download manager is shutting down")
)

// IsTerminal reports whether no further status change can happen for this attempt.
// Paused is terminal for the process but the download itself can be resumed.
func (s DownloadStatus) IsTerminal() bool {
	return s == StatusFinished || s == StatusError || s == StatusCancelled
}

// IsActive reports whether the download holds, or is waiting for, a worker.
func (s DownloadStatus) IsActive() bool {
	return s == StatusStarting || s == StatusQueued || s == StatusDownloading
}

// IsIntentionalStop reports whether the status was written by a cancel or pause request.
func (s DownloadStatus) IsIntentionalStop() bool {
	return s == StatusCancelled || s == StatusPaused
}

var allowedTransitions = map[DownloadStatus][]DownloadStatus{
	StatusStarting:    {StatusDownloading, StatusFinished, StatusError, StatusCancelled, StatusPaused},
	StatusQueued:      {StatusStarting, StatusCancelled},
	StatusDownloading: {StatusFinished, StatusError, StatusCancelled, StatusPaused},
	StatusPaused:      {StatusCancelled},
	StatusError:       {StatusCancelled},
}

// CanTransition reports whether a ledger update may move a record from one status to another.
// Writing the same status again is always allowed.
func CanTransition(from, to DownloadStatus) bool {
	if from == to {
		return true
	}
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// DownloadRecord is the ledger entry the user sees for one download attempt
type DownloadRecord struct {
	ID        string         `json:"id"`
	Status    DownloadStatus `json:"status"`
	Progress  float64        `json:"progress"`
	Speed     string         `json:"speed"`
	ETA       string         `json:"eta"`
	Filename  *string        `json:"filename"`
	Title     *string        `json:"title"`
	Thumbnail *string        `json:"thumbnail"`
	Error     *string        `json:"error"`
	URL       string         `json:"url"`
	FormatID  string         `json:"formatId"`
	SaveDir   string         `json:"saveDir"`
	BatchID   *string        `json:"batchId"`
	Index     *int           `json:"index"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewDownloadRecord creates a ledger entry with the default progress fields
func NewDownloadRecord(id string, status DownloadStatus) *DownloadRecord {
	return &DownloadRecord{
		ID:        id,
		Status:    status,
		Progress:  0,
		Speed:     "0",
		ETA:       "0",
		Timestamp: time.Now(),
	}
}

// NewDownloadID returns a fresh opaque download identifier
func NewDownloadID() string {
	return uuid.New().String()
}

// Clone returns a deep copy safe to hand outside the ledger
func (r *DownloadRecord) Clone() *DownloadRecord {
	c := *r
	c.Filename = cloneString(r.Filename)
	c.Title = cloneString(r.Title)
	c.Thumbnail = cloneString(r.Thumbnail)
	c.Error = cloneString(r.Error)
	c.BatchID = cloneString(r.BatchID)
	if r.Index != nil {
		idx := *r.Index
		c.Index = &idx
	}
	return &c
}

// IsBatch reports whether the record belongs to a batch
func (r *DownloadRecord) IsBatch() bool {
	return r.BatchID != nil
}

// RecordPatch is a partial update merged into a ledger entry. Nil fields are left untouched.
type RecordPatch struct {
	Status    *DownloadStatus
	Progress  *float64
	Speed     *string
	ETA       *string
	Filename  *string
	Title     *string
	Thumbnail *string
	Error     *string
	Touch     bool // refresh the record timestamp
}

// Apply merges the patch into the record
func (p RecordPatch) Apply(r *DownloadRecord) {
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.Progress != nil {
		r.Progress = *p.Progress
	}
	if p.Speed != nil {
		r.Speed = *p.Speed
	}
	if p.ETA != nil {
		r.ETA = *p.ETA
	}
	if p.Filename != nil {
		r.Filename = cloneString(p.Filename)
	}
	if p.Title != nil {
		r.Title = cloneString(p.Title)
	}
	if p.Thumbnail != nil {
		r.Thumbnail = cloneString(p.Thumbnail)
	}
	if p.Error != nil {
		r.Error = cloneString(p.Error)
	}
	if p.Touch {
		r.Timestamp = time.Now()
	}
}

// IsIntentionalStop reports whether the patch is exactly the cancel/pause status write
func (p RecordPatch) IsIntentionalStop() bool {
	return p.Status != nil && p.Status.IsIntentionalStop()
}

// StatusPatch is a shorthand for a patch that only changes the status
func StatusPatch(status DownloadStatus) RecordPatch {
	return RecordPatch{Status: &status}
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// EventType identifies a message on the progress channel
type EventType string

const (
	EventProgress EventType = "progress"
	EventRemoved  EventType = "removed"
)

// ProgressEvent is pushed to every connected observer on each ledger mutation.
// The record fields are flattened next to type and downloadId on the wire.
type ProgressEvent struct {
	Type       EventType `json:"type"`
	DownloadID string    `json:"downloadId"`
	*DownloadRecord
}

// DownloadStats is a count of ledger entries per status
type DownloadStats struct {
	Total        int `json:"total"`
	Starting     int `json:"starting"`
	Queued       int `json:"queued"`
	Downloading  int `json:"downloading"`
	Finished     int `json:"finished"`
	Failed       int `json:"failed"`
	Cancelled    int `json:"cancelled"`
	Paused       int `json:"paused"`
	QueueLength  int `json:"queue_length"`
	BatchWorkers int `json:"batch_workers"`
	MaxBatch     int `json:"max_batch_workers"`
}

// DefaultFormatSelector is used when a request reaches the engine without a resolved format
const DefaultFormatSelector = "bv*+ba/b"

// DownloadRequest carries what a caller knows about a download it wants started
type DownloadRequest struct {
	URL       string  `json:"url" binding:"required"`
	FormatID  string  `json:"formatId"`
	SaveDir   string  `json:"saveDir"`
	Title     *string `json:"title"`
	Thumbnail *string `json:"thumbnail"`
	BatchID   *string `json:"batchId"`
	Index     *int    `json:"index"`
}
