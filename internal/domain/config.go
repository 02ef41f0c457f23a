package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Download     DownloadConfig     `mapstructure:"download"`
	Queue        QueueConfig        `mapstructure:"queue"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DownloadConfig contains fetcher and filesystem configuration
type DownloadConfig struct {
	BaseDir         string `mapstructure:"base_dir"`       // save_dir names are resolved below this
	ThumbnailsDir   string `mapstructure:"thumbnails_dir"` // searched recursively before asking for thumbnails
	LogsDir         string `mapstructure:"logs_dir"`
	FetcherBinary   string `mapstructure:"fetcher_binary"`
	Retries         int    `mapstructure:"retries"`
	FragmentRetries int    `mapstructure:"fragment_retries"`
	SocketTimeout   int    `mapstructure:"socket_timeout"` // seconds
	MergeFormat     string `mapstructure:"merge_format"`
	ThumbnailFormat string `mapstructure:"thumbnail_format"`
}

// QueueConfig contains batch queue and persistence configuration
type QueueConfig struct {
	DatabasePath                   string        `mapstructure:"database_path"`
	MaxConcurrentPlaylistDownloads int           `mapstructure:"max_concurrent_playlist_downloads"`
	DrainCooldown                  time.Duration `mapstructure:"drain_cooldown"`
	KillGracePeriod                time.Duration `mapstructure:"kill_grace_period"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8090,
		},
		Download: DownloadConfig{
			BaseDir:         "$HOME/Videos/mediashelf",
			ThumbnailsDir:   "$HOME/Videos/mediashelf/.thumbnails",
			LogsDir:         "$HOME/.mediashelf/logs",
			FetcherBinary:   "yt-dlp",
			Retries:         10,
			FragmentRetries: 10,
			SocketTimeout:   30,
			MergeFormat:     "mp4",
			ThumbnailFormat: "jpg",
		},
		Queue: QueueConfig{
			DatabasePath:                   "$HOME/.mediashelf/mediashelf.db",
			MaxConcurrentPlaylistDownloads: DefaultMaxConcurrentPlaylistDownloads,
			DrainCooldown:                  500 * time.Millisecond,
			KillGracePeriod:                3 * time.Second,
		},
		Notification: NotificationConfig{
			Enabled: false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
