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

// Service contains the inference service endpoint settings.
type Service struct {
	BaseURL   string `toml:"base_url"`
	TimeoutMS int    `toml:"timeout_ms"`
	ClientID  string `toml:"client_id"`
}

// Task contains the defaults applied to a fresh inference task.
type Task struct {
	BaseModelType           string  `toml:"base_model_type"`
	BaseModel               string  `toml:"base_model"`
	ImageWidth              int     `toml:"image_width"`
	ImageHeight             int     `toml:"image_height"`
	Steps                   int     `toml:"steps"`
	CFG                     int     `toml:"cfg"`
	NumImages               int     `toml:"num_images"`
	SafetyChecker           bool    `toml:"safety_checker"`
	LoraWeight              float64 `toml:"lora_weight"`
	ControlNetWeight        float64 `toml:"controlnet_weight"`
	TaskType                int     `toml:"task_type"`
	VRAMLimit               int     `toml:"vram_limit"`
	DiscardStaleDerivations bool    `toml:"discard_stale_derivations"`
}

// Assets contains the static asset locations used during task derivation.
type Assets struct {
	PoseDir     string `toml:"pose_dir"`
	PoseCatalog string `toml:"pose_catalog"`
}

// Paths contains directory configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Watch contains configuration for the status poller.
type Watch struct {
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
}

// Notifications contains ntfy delivery settings. An empty topic disables
// notifications.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for sdportal.
//
// Configuration sections by subsystem:
//   - Service: inference service base URL, request timeout, client identifier
//   - Task: defaults for new tasks and derivation policy
//   - Assets: pose image directory and optional catalog manifest
//   - Paths: ledger, image output, and log directories
//   - Watch: status polling interval
//   - Notifications: ntfy topic for task completion events
//   - Logging: log format and level
type Config struct {
	Service       Service       `toml:"service"`
	Task          Task          `toml:"task"`
	Assets        Assets        `toml:"assets"`
	Paths         Paths         `toml:"paths"`
	Watch         Watch         `toml:"watch"`
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

	projectPath, err := filepath.Abs("sdportal.toml")
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

// EnsureDirectories creates the directories the CLI writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RequestTimeout returns the per-request timeout for the inference service.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Service.TimeoutMS) * time.Millisecond
}

// PollInterval returns the delay between watcher passes.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Watch.PollIntervalSeconds) * time.Second
}

// NotificationTimeout returns the per-request timeout for ntfy deliveries.
func (c *Config) NotificationTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeoutSeconds) * time.Second
}

// LedgerPath returns the location of the submission ledger database.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.DataDir, "tasks.db")
}

// WatchLockPath returns the lock file guarding a single running watcher.
func (c *Config) WatchLockPath() string {
	return filepath.Join(c.Paths.DataDir, "watch.lock")
}

// VRAMLimit returns the configured vram limit, or nil when unset.
func (c *Config) VRAMLimit() *int {
	if c.Task.VRAMLimit <= 0 {
		return nil
	}
	limit := c.Task.VRAMLimit
	return &limit
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
