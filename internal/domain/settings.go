package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// DefaultMaxConcurrentPlaylistDownloads is used when nothing was persisted yet
const DefaultMaxConcurrentPlaylistDownloads = 2

// Settings holds process-wide runtime settings
type Settings struct {
	ID                             uint `json:"-" gorm:"primaryKey"`
	MaxConcurrentPlaylistDownloads int  `json:"maxConcurrentPlaylistDownloads" validate:"min=1"`
}

// TableName specifies the table name for GORM
func (Settings) TableName() string {
	return "settings"
}

// SettingsPatch is a partial settings update
type SettingsPatch struct {
	MaxConcurrentPlaylistDownloads *int `json:"maxConcurrentPlaylistDownloads,omitempty" validate:"omitempty,min=1"`
}

var validate = validator.New()

// DefaultSettings returns settings with default values
func DefaultSettings() *Settings {
	return &Settings{
		ID:                             1,
		MaxConcurrentPlaylistDownloads: DefaultMaxConcurrentPlaylistDownloads,
	}
}

// Validate checks the settings against their constraints
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return nil
}

// Merge returns a copy of s with the patch applied, validated
func (s *Settings) Merge(patch SettingsPatch) (*Settings, error) {
	if err := validate.Struct(patch); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	merged := *s
	if patch.MaxConcurrentPlaylistDownloads != nil {
		merged.MaxConcurrentPlaylistDownloads = *patch.MaxConcurrentPlaylistDownloads
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}
