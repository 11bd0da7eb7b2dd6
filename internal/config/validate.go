package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateEndpoints(); err != nil {
		return err
	}
	if err := c.validateNetwork(); err != nil {
		return err
	}
	if err := c.validateDetector(); err != nil {
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

func (c *Config) validateTranslation() error {
	if c.Translation.DefaultSignedLanguage == "" {
		return errors.New("translation.default_signed_language must be set")
	}
	for _, source := range c.Translation.PivotSources {
		if source == c.Translation.PivotLanguage {
			return fmt.Errorf("translation.pivot_sources must not include the pivot language %q", source)
		}
	}
	return nil
}

func (c *Config) validateEndpoints() error {
	endpoints := []struct {
		key   string
		value string
	}{
		{"endpoints.normalization_url", c.Endpoints.NormalizationURL},
		{"endpoints.description_url", c.Endpoints.DescriptionURL},
		{"endpoints.pivot_url", c.Endpoints.PivotURL},
		{"endpoints.signwriting_url", c.Endpoints.SignWritingURL},
		{"endpoints.pose_url", c.Endpoints.PoseURL},
	}
	for _, endpoint := range endpoints {
		parsed, err := url.Parse(endpoint.value)
		if err != nil {
			return fmt.Errorf("%s: %w", endpoint.key, err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("%s must be an http(s) URL, got %q", endpoint.key, endpoint.value)
		}
	}
	return nil
}

func (c *Config) validateNetwork() error {
	if c.Network.RequestsPerSecond < 0 {
		return errors.New("network.requests_per_second must be >= 0")
	}
	if c.Network.ProbeURL != "" {
		parsed, err := url.Parse(c.Network.ProbeURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return fmt.Errorf("network.probe_url must be an http(s) URL, got %q", c.Network.ProbeURL)
		}
	}
	return nil
}

func (c *Config) validateDetector() error {
	switch c.Detector.Engine {
	case "lingua", "whatlang":
	default:
		return fmt.Errorf("detector.engine: unsupported value %q (want lingua or whatlang)", c.Detector.Engine)
	}
	if c.Detector.MinRelativeDistance < 0 || c.Detector.MinRelativeDistance > 0.99 {
		return errors.New("detector.min_relative_distance must be between 0 and 0.99")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if topic := c.Notifications.NtfyTopic; topic != "" {
		parsed, err := url.Parse(topic)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return fmt.Errorf("notifications.ntfy_topic must be a full ntfy topic URL, got %q", topic)
		}
	}
	switch c.Notifications.MinLevel {
	case "info", "warn", "error":
	default:
		return fmt.Errorf("notifications.min_level: unsupported value %q", c.Notifications.MinLevel)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
