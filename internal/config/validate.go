package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var knownBaseModelTypes = map[string]struct{}{
	"sd_1_5":      {},
	"sd_2_1":      {},
	"sd_xl":       {},
	"sd_xl_turbo": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateService(); err != nil {
		return err
	}
	if err := c.validateTask(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateService() error {
	if c.Service.BaseURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("service.base_url is required. Set SDPORTAL_BASE_URL or edit %s (create with 'sdportal config init')", defaultPath)
	}
	parsed, err := url.Parse(c.Service.BaseURL)
	if err != nil {
		return fmt.Errorf("service.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("service.base_url must use http or https, got %q", c.Service.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("service.base_url must include a host, got %q", c.Service.BaseURL)
	}
	return nil
}

func (c *Config) validateTask() error {
	if _, ok := knownBaseModelTypes[c.Task.BaseModelType]; !ok {
		return fmt.Errorf("task.base_model_type %q is not one of sd_1_5, sd_2_1, sd_xl, sd_xl_turbo", c.Task.BaseModelType)
	}
	if c.Task.ImageWidth <= 0 || c.Task.ImageHeight <= 0 {
		return errors.New("task.image_width and task.image_height must be positive")
	}
	if c.Task.Steps <= 0 {
		return errors.New("task.steps must be positive")
	}
	if c.Task.CFG < 0 {
		return errors.New("task.cfg must not be negative")
	}
	if c.Task.LoraWeight < 0 || c.Task.LoraWeight > 1 {
		return errors.New("task.lora_weight must be between 0 and 1")
	}
	if c.Task.ControlNetWeight < 0 || c.Task.ControlNetWeight > 1 {
		return errors.New("task.controlnet_weight must be between 0 and 1")
	}
	if c.Task.TaskType < 0 {
		return errors.New("task.task_type must not be negative")
	}
	if c.Task.VRAMLimit < 0 {
		return errors.New("task.vram_limit must not be negative")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	parsed, err := url.Parse(topic)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) topic URL, got %q", topic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
