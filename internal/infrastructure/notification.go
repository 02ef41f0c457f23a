package infrastructure

import (
	"fmt"
	"os/exec"
	"strconv"

	"github.com/yourusername/mediashelf/internal/domain"
	"go.uber.org/zap"
)

// NotificationService sends desktop notifications for finished and failed downloads
type NotificationService struct {
	config domain.NotificationConfig
	logger *zap.Logger
	run    func(name string, args ...string) error
}

// NewNotificationService creates a new notification service
func NewNotificationService(config domain.NotificationConfig, log *zap.Logger) *NotificationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotificationService{
		config: config,
		logger: log,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// Send sends a notification using the configured method
func (n *NotificationService) Send(title, message string) error {
	if !n.config.Enabled {
		return nil
	}

	var err error
	switch n.config.Method {
	case "osascript":
		script := fmt.Sprintf("display notification %s with title %s", strconv.Quote(message), strconv.Quote(title))
		err = n.run("osascript", "-e", script)
	case "notify-send":
		err = n.run("notify-send", title, message)
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}

	if err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", n.config.Method),
			zap.Error(err))
		return err
	}
	return nil
}

// NotifyDownloadFinished sends a notification when a download completes
func (n *NotificationService) NotifyDownloadFinished(record *domain.DownloadRecord) {
	_ = n.Send("Download Finished", describe(record))
}

// NotifyDownloadFailed sends a notification when a download fails
func (n *NotificationService) NotifyDownloadFailed(record *domain.DownloadRecord) {
	_ = n.Send("Download Failed", describe(record))
}

func describe(record *domain.DownloadRecord) string {
	switch {
	case record.Filename != nil && *record.Filename != "":
		return truncateString(*record.Filename, 60)
	case record.Title != nil && *record.Title != "":
		return truncateString(*record.Title, 60)
	default:
		return truncateString(record.URL, 60)
	}
}

// truncateString truncates a string to maxLen runes
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
