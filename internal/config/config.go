package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Translation contains defaults for the translation session.
type Translation struct {
	DefaultSpokenLanguage   string   `toml:"default_spoken_language"`
	DefaultSignedLanguage   string   `toml:"default_signed_language"`
	PivotLanguage           string   `toml:"pivot_language"`
	PivotSources            []string `toml:"pivot_sources"`
	LocaleAwareSegmentation bool     `toml:"locale_aware_segmentation"`
	NotationMetricsAutoload bool     `toml:"notation_metrics_autoload"`
}

// Endpoints contains the remote service URLs.
type Endpoints struct {
	NormalizationURL string `toml:"normalization_url"`
	DescriptionURL   string `toml:"description_url"`
	PivotURL         string `toml:"pivot_url"`
	PivotClient      string `toml:"pivot_client"`
	SignWritingURL   string `toml:"signwriting_url"`
	PoseURL          string `toml:"pose_url"`
}

// Network contains HTTP client behaviour and connectivity settings.
type Network struct {
	TimeoutSeconds       int     `toml:"timeout_seconds"`
	RetryAttempts        int     `toml:"retry_attempts"`
	RequestsPerSecond    float64 `toml:"requests_per_second"`
	Offline              bool    `toml:"offline"`
	ProbeURL             string  `toml:"probe_url"`
	ProbeIntervalSeconds int     `toml:"probe_interval_seconds"`
}

// Detector contains configuration for spoken language detection.
type Detector struct {
	Engine              string   `toml:"engine"`
	Languages           []string `toml:"languages"`
	MinRelativeDistance float64  `toml:"min_relative_distance"`
}

// History contains configuration for the translation history store.
type History struct {
	Enabled       bool `toml:"enabled"`
	RetentionDays int  `toml:"retention_days"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	// MinLevel is the lowest notice level pushed: info, warn or error.
	MinLevel string `toml:"min_level"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	// RetentionDays prunes daemon run logs older than this; 0 keeps them all.
	RetentionDays int `toml:"retention_days"`
}

// Config encapsulates all configuration values for signflow.
//
// Configuration sections by subsystem:
//   - Paths: state/log directories and API bind address
//   - Translation: session defaults, pivot language rules, segmentation
//   - Endpoints: remote normalization, description, pivot, notation and pose services
//   - Network: HTTP timeouts, retries, throttling, connectivity probing
//   - Detector: spoken language detection engine
//   - History: persisted translation history
//   - Notifications: ntfy push notifications for session notices
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Translation   Translation   `toml:"translation"`
	Endpoints     Endpoints     `toml:"endpoints"`
	Network       Network       `toml:"network"`
	Detector      Detector      `toml:"detector"`
	History       History       `toml:"history"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("signflow.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon and CLI operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryDBPath returns the location of the translation history database.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the daemon lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "signflowd.lock")
}

// PIDPath returns the daemon pid file location.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "signflowd.pid")
}

// HTTPTimeout returns the per-request timeout for remote service calls.
func (c *Config) HTTPTimeout() time.Duration {
	if c.Network.TimeoutSeconds <= 0 {
		return time.Duration(defaultTimeoutSeconds) * time.Second
	}
	return time.Duration(c.Network.TimeoutSeconds) * time.Second
}

// ProbeInterval returns how often the connectivity probe runs. Zero disables probing.
func (c *Config) ProbeInterval() time.Duration {
	if strings.TrimSpace(c.Network.ProbeURL) == "" || c.Network.ProbeIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Network.ProbeIntervalSeconds) * time.Second
}

// HistoryRetention returns how long history entries are kept. Zero keeps
// them forever.
func (c *Config) HistoryRetention() time.Duration {
	if c.History.RetentionDays <= 0 {
		return 0
	}
	return time.Duration(c.History.RetentionDays) * 24 * time.Hour
}

// LogRetention returns how long per-run daemon logs are kept.
func (c *Config) LogRetention() time.Duration {
	if c.Logging.RetentionDays <= 0 {
		return 0
	}
	return time.Duration(c.Logging.RetentionDays) * 24 * time.Hour
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
