package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"sdportal/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndGeneratesClientID(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("SDPORTAL_BASE_URL", "")
	t.Setenv("SDPORTAL_CLIENT_ID", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "sdportal")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.LedgerPath() != filepath.Join(wantData, "tasks.db") {
		t.Fatalf("unexpected ledger path: %q", cfg.LedgerPath())
	}
	if cfg.Service.BaseURL != config.Default().Service.BaseURL {
		t.Fatalf("unexpected base url: %q", cfg.Service.BaseURL)
	}
	if cfg.RequestTimeout() != 3*time.Second {
		t.Fatalf("expected 3s request timeout, got %s", cfg.RequestTimeout())
	}
	if cfg.Service.ClientID == "" {
		t.Fatal("expected generated client id")
	}
	if !cfg.Task.DiscardStaleDerivations {
		t.Fatal("expected stale derivations to be discarded by default")
	}
	if cfg.VRAMLimit() != nil {
		t.Fatalf("expected no vram limit by default, got %d", *cfg.VRAMLimit())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.OutputDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "sdportal.toml")
	t.Setenv("SDPORTAL_BASE_URL", "")
	t.Setenv("SDPORTAL_CLIENT_ID", "")

	type payload struct {
		Service struct {
			BaseURL   string `toml:"base_url"`
			TimeoutMS int    `toml:"timeout_ms"`
			ClientID  string `toml:"client_id"`
		} `toml:"service"`
		Task struct {
			BaseModelType string `toml:"base_model_type"`
			VRAMLimit     int    `toml:"vram_limit"`
		} `toml:"task"`
		Paths struct {
			DataDir string `toml:"data_dir"`
		} `toml:"paths"`
	}
	custom := payload{}
	custom.Service.BaseURL = "http://relay.example.com/"
	custom.Service.TimeoutMS = 1500
	custom.Service.ClientID = "client-abc"
	custom.Task.BaseModelType = "SD_XL_TURBO"
	custom.Task.VRAMLimit = 8
	custom.Paths.DataDir = filepath.Join(tempDir, "data")
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Service.BaseURL != "http://relay.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Service.BaseURL)
	}
	if cfg.RequestTimeout() != 1500*time.Millisecond {
		t.Fatalf("unexpected timeout: %s", cfg.RequestTimeout())
	}
	if cfg.Service.ClientID != "client-abc" {
		t.Fatalf("unexpected client id: %q", cfg.Service.ClientID)
	}
	if cfg.Task.BaseModelType != "sd_xl_turbo" {
		t.Fatalf("expected lowercased base model type, got %q", cfg.Task.BaseModelType)
	}
	if limit := cfg.VRAMLimit(); limit == nil || *limit != 8 {
		t.Fatalf("unexpected vram limit: %v", limit)
	}
	if cfg.Paths.DataDir != filepath.Join(tempDir, "data") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
}

func TestEnvVarOverridesConfigFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "sdportal.toml")
	content := "[service]\nbase_url = \"https://file.example.com\"\nclient_id = \"from-file\"\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SDPORTAL_BASE_URL", "https://env.example.com")
	t.Setenv("SDPORTAL_CLIENT_ID", "from-env")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Service.BaseURL != "https://env.example.com" {
		t.Fatalf("expected env base url, got %q", cfg.Service.BaseURL)
	}
	if cfg.Service.ClientID != "from-env" {
		t.Fatalf("expected env client id, got %q", cfg.Service.ClientID)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"scheme", func(c *config.Config) { c.Service.BaseURL = "ftp://example.com" }, "http or https"},
		{"model type", func(c *config.Config) { c.Task.BaseModelType = "sd_3" }, "task.base_model_type"},
		{"lora weight", func(c *config.Config) { c.Task.LoraWeight = 1.5 }, "task.lora_weight"},
		{"controlnet weight", func(c *config.Config) { c.Task.ControlNetWeight = -0.1 }, "task.controlnet_weight"},
		{"steps", func(c *config.Config) { c.Task.Steps = 0 }, "task.steps"},
		{"ntfy topic", func(c *config.Config) { c.Notifications.NtfyTopic = "my-renders" }, "notifications.ntfy_topic"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	t.Setenv("SDPORTAL_BASE_URL", "")
	t.Setenv("SDPORTAL_CLIENT_ID", "")
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Task.Steps != 40 || cfg.Task.CFG != 5 {
		t.Fatalf("unexpected sample task defaults: %+v", cfg.Task)
	}
}
