package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogCategory represents different log categories
type LogCategory string

const (
	CategoryQueue    LogCategory = "queue"    // download lifecycle events (JSON)
	CategoryError    LogCategory = "error"    // application errors (JSON)
	CategoryDownload LogCategory = "download" // raw fetcher output (plain text)
)

const dateLayout = "20060102"

// MultiLogger writes categorized logs to one file per category per day.
// Files roll over to a new name the first time they are written after midnight.
type MultiLogger struct {
	config MultiLoggerConfig
	now    func() time.Time

	mu      sync.Mutex
	date    string
	files   map[LogCategory]*os.File
	loggers map[LogCategory]*zap.Logger
}

// MultiLoggerConfig contains configuration for multi-output logging
type MultiLoggerConfig struct {
	Level   string // debug, info, warn, error
	LogsDir string
}

// NewMultiLogger creates a new multi-output logger
func NewMultiLogger(config MultiLoggerConfig) (*MultiLogger, error) {
	return newMultiLogger(config, time.Now)
}

func newMultiLogger(config MultiLoggerConfig, now func() time.Time) (*MultiLogger, error) {
	if config.LogsDir == "" {
		return nil, fmt.Errorf("logs_dir must be specified")
	}
	if err := os.MkdirAll(config.LogsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	ml := &MultiLogger{
		config:  config,
		now:     now,
		files:   make(map[LogCategory]*os.File),
		loggers: make(map[LogCategory]*zap.Logger),
	}

	ml.mu.Lock()
	defer ml.mu.Unlock()
	if err := ml.openLocked(now().Format(dateLayout)); err != nil {
		ml.closeLocked()
		return nil, err
	}
	return ml, nil
}

func (ml *MultiLogger) openLocked(date string) error {
	level, err := zapcore.ParseLevel(ml.config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	levels := map[LogCategory]zapcore.Level{
		CategoryQueue: level,
		CategoryError: zapcore.ErrorLevel,
	}
	for category, lvl := range levels {
		file, err := os.OpenFile(ml.pathFor(category, date), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open %s log: %w", category, err)
		}
		ml.files[category] = file
		ml.loggers[category] = zap.New(zapcore.NewCore(jsonEncoder(), zapcore.AddSync(file), lvl))
	}
	ml.date = date
	return nil
}

func jsonEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.CallerKey = ""
	return zapcore.NewJSONEncoder(encoderConfig)
}

func (ml *MultiLogger) closeLocked() {
	for category, l := range ml.loggers {
		_ = l.Sync()
		delete(ml.loggers, category)
	}
	for category, f := range ml.files {
		_ = f.Close()
		delete(ml.files, category)
	}
}

// rotateLocked reopens every category file when the calendar day changed
func (ml *MultiLogger) rotateLocked() {
	today := ml.now().Format(dateLayout)
	if today == ml.date {
		return
	}
	ml.closeLocked()
	if err := ml.openLocked(today); err != nil {
		fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
	}
}

func (ml *MultiLogger) pathFor(category LogCategory, date string) string {
	return filepath.Join(ml.config.LogsDir, fmt.Sprintf("%s-%s.log", category, date))
}

// GetLogsDir returns the logs directory path
func (ml *MultiLogger) GetLogsDir() string {
	return ml.config.LogsDir
}

// GetLogger returns the structured logger for a category, rotating first if needed
func (ml *MultiLogger) GetLogger(category LogCategory) *zap.Logger {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	ml.rotateLocked()
	if l, ok := ml.loggers[category]; ok {
		return l
	}
	if l, ok := ml.loggers[CategoryError]; ok {
		return l
	}
	return zap.NewNop()
}

// Queue returns the queue logger
func (ml *MultiLogger) Queue() *zap.Logger {
	return ml.GetLogger(CategoryQueue)
}

// Error returns the error logger
func (ml *MultiLogger) Error() *zap.Logger {
	return ml.GetLogger(CategoryError)
}

// LogAppError logs an application-level error
func (ml *MultiLogger) LogAppError(msg string, fields ...zap.Field) {
	ml.Error().Error(msg, fields...)
}

// LogQueueEvent logs a download lifecycle event with structured data
func (ml *MultiLogger) LogQueueEvent(event string, fields ...zap.Field) {
	ml.Queue().Info(event, fields...)
}

// OpenDownloadLog opens today's raw fetcher output log for appending.
// The caller owns the returned file.
func (ml *MultiLogger) OpenDownloadLog() (*os.File, error) {
	path := ml.pathFor(CategoryDownload, ml.now().Format(dateLayout))
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open download log: %w", err)
	}
	return file, nil
}

// Sync flushes all loggers
func (ml *MultiLogger) Sync() error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	var lastErr error
	for _, l := range ml.loggers {
		if err := l.Sync(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Close flushes and closes every category file
func (ml *MultiLogger) Close() error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	var lastErr error
	for _, l := range ml.loggers {
		if err := l.Sync(); err != nil {
			lastErr = err
		}
	}
	ml.closeLocked()
	return lastErr
}
