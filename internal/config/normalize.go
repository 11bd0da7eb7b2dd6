package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTranslation()
	c.normalizeEndpoints()
	c.normalizeNetwork()
	c.normalizeDetector()
	c.normalizeHistory()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("SIGNFLOW_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeTranslation() {
	c.Translation.DefaultSpokenLanguage = strings.ToLower(strings.TrimSpace(c.Translation.DefaultSpokenLanguage))
	c.Translation.DefaultSignedLanguage = strings.ToLower(strings.TrimSpace(c.Translation.DefaultSignedLanguage))
	if c.Translation.DefaultSignedLanguage == "" {
		c.Translation.DefaultSignedLanguage = defaultSignedLanguage
	}
	c.Translation.PivotLanguage = strings.ToLower(strings.TrimSpace(c.Translation.PivotLanguage))
	if c.Translation.PivotLanguage == "" {
		c.Translation.PivotLanguage = defaultPivotLanguage
	}
	c.Translation.PivotSources = normalizeCodes(c.Translation.PivotSources)
}

func (c *Config) normalizeEndpoints() {
	c.Endpoints.NormalizationURL = trimOrDefault(c.Endpoints.NormalizationURL, defaultNormalizationURL)
	c.Endpoints.DescriptionURL = trimOrDefault(c.Endpoints.DescriptionURL, defaultDescriptionURL)
	c.Endpoints.PivotURL = trimOrDefault(c.Endpoints.PivotURL, defaultPivotURL)
	c.Endpoints.PivotClient = trimOrDefault(c.Endpoints.PivotClient, defaultPivotClient)
	c.Endpoints.SignWritingURL = trimOrDefault(c.Endpoints.SignWritingURL, defaultSignWritingURL)
	c.Endpoints.PoseURL = trimOrDefault(c.Endpoints.PoseURL, defaultPoseURL)
}

func (c *Config) normalizeNetwork() {
	if c.Network.TimeoutSeconds <= 0 {
		c.Network.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.Network.RetryAttempts <= 0 {
		c.Network.RetryAttempts = 1
	}
	if value, ok := os.LookupEnv("SIGNFLOW_OFFLINE"); ok {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			c.Network.Offline = parsed
		}
	}
	c.Network.ProbeURL = strings.TrimSpace(c.Network.ProbeURL)
}

func (c *Config) normalizeDetector() {
	c.Detector.Engine = strings.ToLower(strings.TrimSpace(c.Detector.Engine))
	if c.Detector.Engine == "" {
		c.Detector.Engine = defaultDetectorEngine
	}
	c.Detector.Languages = normalizeCodes(c.Detector.Languages)
}

func (c *Config) normalizeHistory() {
	if c.History.RetentionDays < 0 {
		c.History.RetentionDays = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNotifyTimeoutSeconds
	}
	c.Notifications.MinLevel = strings.ToLower(strings.TrimSpace(c.Notifications.MinLevel))
	if c.Notifications.MinLevel == "" {
		c.Notifications.MinLevel = defaultNotifyMinLevel
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func trimOrDefault(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}

func normalizeCodes(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		normalized := strings.ToLower(strings.TrimSpace(code))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
