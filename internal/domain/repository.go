package domain

import "time"

// PausedDownloadInfo is the durable record needed to restart a paused download equivalently
type PausedDownloadInfo struct {
	DownloadID string    `json:"downloadId" gorm:"primaryKey"`
	URL        string    `json:"url" gorm:"not null"`
	FormatID   string    `json:"format_id"`
	SaveDir    string    `json:"save_dir"`
	Title      *string   `json:"title"`
	Thumbnail  *string   `json:"thumbnail"`
	Filename   *string   `json:"filename"`
	Progress   float64   `json:"progress"`
	FilePath   string    `json:"filePath"`
	BatchID    *string   `json:"batchId"`
	Index      *int      `json:"index"`
	Timestamp  time.Time `json:"timestamp" gorm:"index"`
}

// TableName specifies the table name for GORM
func (PausedDownloadInfo) TableName() string {
	return "paused_downloads"
}

// PauseStore defines the durable store of paused downloads' resume parameters
type PauseStore interface {
	// SavePaused creates or replaces the record for info.DownloadID
	SavePaused(info *PausedDownloadInfo) error

	// GetPaused returns the record for a download, or nil if there is none
	GetPaused(downloadID string) (*PausedDownloadInfo, error)

	// DeletePaused removes the record for a download; missing records are not an error
	DeletePaused(downloadID string) error

	// ListPaused returns every record, oldest first
	ListPaused() ([]*PausedDownloadInfo, error)

	// ClearPaused removes every record
	ClearPaused() error
}

// SettingsStore defines persistence for the runtime settings object
type SettingsStore interface {
	// LoadSettings returns the stored settings, or nil if none were saved yet
	LoadSettings() (*Settings, error)

	// SaveSettings replaces the stored settings
	SaveSettings(settings *Settings) error
}
