package infrastructure

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yourusername/mediashelf/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SQLiteStore implements PauseStore and SettingsStore using SQLite
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (and migrates) the database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.PausedDownloadInfo{}, &domain.Settings{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SavePaused inserts or replaces the pause record for a download
func (s *SQLiteStore) SavePaused(info *domain.PausedDownloadInfo) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "download_id"}},
		UpdateAll: true,
	}).Create(info).Error
}

// GetPaused returns the pause record for a download, or nil if there is none
func (s *SQLiteStore) GetPaused(downloadID string) (*domain.PausedDownloadInfo, error) {
	var info domain.PausedDownloadInfo
	err := s.db.First(&info, "download_id = ?", downloadID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &info, nil
}

// DeletePaused removes the pause record for a download. Missing records are not an error.
func (s *SQLiteStore) DeletePaused(downloadID string) error {
	return s.db.Delete(&domain.PausedDownloadInfo{}, "download_id = ?", downloadID).Error
}

// ListPaused returns every pause record, oldest first
func (s *SQLiteStore) ListPaused() ([]*domain.PausedDownloadInfo, error) {
	var infos []*domain.PausedDownloadInfo
	err := s.db.Order("timestamp ASC").Find(&infos).Error
	return infos, err
}

// ClearPaused removes every pause record
func (s *SQLiteStore) ClearPaused() error {
	return s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&domain.PausedDownloadInfo{}).Error
}

// LoadSettings returns the stored settings, or nil if none were ever saved
func (s *SQLiteStore) LoadSettings() (*domain.Settings, error) {
	var settings domain.Settings
	err := s.db.First(&settings, 1).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &settings, nil
}

// SaveSettings persists the single settings row
func (s *SQLiteStore) SaveSettings(settings *domain.Settings) error {
	row := *settings
	row.ID = 1
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row).Error
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
