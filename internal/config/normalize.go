package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

func (c *Config) normalize() error {
	c.normalizeService()
	c.normalizeTask()
	if err := c.normalizeAssets(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNotifyTimeoutSecs
	}
}

func (c *Config) normalizeService() {
	if value, ok := os.LookupEnv("SDPORTAL_BASE_URL"); ok && strings.TrimSpace(value) != "" {
		c.Service.BaseURL = value
	}
	c.Service.BaseURL = strings.TrimRight(strings.TrimSpace(c.Service.BaseURL), "/")
	if c.Service.TimeoutMS <= 0 {
		c.Service.TimeoutMS = defaultTimeoutMS
	}
	if value, ok := os.LookupEnv("SDPORTAL_CLIENT_ID"); ok && strings.TrimSpace(value) != "" {
		c.Service.ClientID = value
	}
	c.Service.ClientID = strings.TrimSpace(c.Service.ClientID)
	if c.Service.ClientID == "" {
		c.Service.ClientID = uuid.NewString()
	}
}

func (c *Config) normalizeTask() {
	c.Task.BaseModelType = strings.ToLower(strings.TrimSpace(c.Task.BaseModelType))
	if c.Task.BaseModelType == "" {
		c.Task.BaseModelType = defaultBaseModelType
	}
	c.Task.BaseModel = strings.TrimSpace(c.Task.BaseModel)
	if c.Task.NumImages <= 0 {
		c.Task.NumImages = defaultNumImages
	}
}

func (c *Config) normalizeAssets() error {
	var err error
	if c.Assets.PoseDir, err = expandPath(strings.TrimSpace(c.Assets.PoseDir)); err != nil {
		return fmt.Errorf("assets.pose_dir: %w", err)
	}
	if c.Assets.PoseCatalog, err = expandPath(strings.TrimSpace(c.Assets.PoseCatalog)); err != nil {
		return fmt.Errorf("assets.pose_catalog: %w", err)
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Watch.PollIntervalSeconds <= 0 {
		c.Watch.PollIntervalSeconds = defaultPollIntervalSeconds
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
