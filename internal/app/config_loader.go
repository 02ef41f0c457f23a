package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/yourusername/mediashelf/internal/domain"
)

// EnvPrefix is the prefix of environment overrides, e.g. MEDIASHELF_SERVER_PORT
const EnvPrefix = "MEDIASHELF"

// LoadConfig loads configuration from defaults, an optional YAML file, a .env file and the environment
func LoadConfig(configPath string) (*domain.Config, error) {
	// a missing .env is normal
	_ = godotenv.Load()

	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, config)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.mediashelf")
		v.AddConfigPath("/etc/mediashelf")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults registers every key so AutomaticEnv can override keys absent from the file
func setDefaults(v *viper.Viper, c *domain.Config) {
	for key, value := range configKeys(c) {
		v.SetDefault(key, value)
	}
}

// configKeys flattens the config into viper keys
func configKeys(c *domain.Config) map[string]interface{} {
	return map[string]interface{}{
		"server.host": c.Server.Host,
		"server.port": c.Server.Port,

		"download.base_dir":         c.Download.BaseDir,
		"download.thumbnails_dir":   c.Download.ThumbnailsDir,
		"download.logs_dir":         c.Download.LogsDir,
		"download.fetcher_binary":   c.Download.FetcherBinary,
		"download.retries":          c.Download.Retries,
		"download.fragment_retries": c.Download.FragmentRetries,
		"download.socket_timeout":   c.Download.SocketTimeout,
		"download.merge_format":     c.Download.MergeFormat,
		"download.thumbnail_format": c.Download.ThumbnailFormat,

		"queue.database_path":                     c.Queue.DatabasePath,
		"queue.max_concurrent_playlist_downloads": c.Queue.MaxConcurrentPlaylistDownloads,
		"queue.drain_cooldown":                    c.Queue.DrainCooldown.String(),
		"queue.kill_grace_period":                 c.Queue.KillGracePeriod.String(),

		"notification.enabled": c.Notification.Enabled,
		"notification.method":  c.Notification.Method,

		"logging.level":       c.Logging.Level,
		"logging.format":      c.Logging.Format,
		"logging.output_path": c.Logging.OutputPath,
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Download.BaseDir = expandPath(config.Download.BaseDir)
	config.Download.ThumbnailsDir = expandPath(config.Download.ThumbnailsDir)
	config.Download.LogsDir = expandPath(config.Download.LogsDir)
	config.Queue.DatabasePath = expandPath(config.Queue.DatabasePath)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Download.BaseDir == "" {
		return fmt.Errorf("download base directory not configured")
	}

	if config.Download.FetcherBinary == "" {
		return fmt.Errorf("fetcher binary not configured")
	}

	if config.Download.Retries < 0 || config.Download.FragmentRetries < 0 {
		return fmt.Errorf("retries cannot be negative")
	}

	if config.Queue.MaxConcurrentPlaylistDownloads < 1 {
		return fmt.Errorf("max concurrent playlist downloads must be at least 1")
	}

	if config.Queue.DatabasePath == "" {
		return fmt.Errorf("database path not configured")
	}

	if config.Queue.DrainCooldown < 0 || config.Queue.KillGracePeriod < 0 {
		return fmt.Errorf("queue durations cannot be negative")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	for key, value := range configKeys(config) {
		v.Set(key, value)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
