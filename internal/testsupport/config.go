package testsupport

import (
	"path/filepath"
	"testing"

	"signflow/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Remote endpoints keep their defaults unless WithEndpoints is given.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Network.RetryAttempts = 1
	cfgVal.Network.RequestsPerSecond = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithEndpoints points every remote service at baseURL, using the service
// name as the path.
func WithEndpoints(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Endpoints.NormalizationURL = baseURL + "/normalize"
		b.cfg.Endpoints.DescriptionURL = baseURL + "/describe"
		b.cfg.Endpoints.PivotURL = baseURL + "/pivot"
		b.cfg.Endpoints.SignWritingURL = baseURL + "/signwriting"
		b.cfg.Endpoints.PoseURL = baseURL + "/pose"
	}
}

// WithOffline forces the connectivity monitor offline.
func WithOffline() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Network.Offline = true
	}
}

// WithAPIToken sets the daemon bearer token.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithHistory enables or disables the history store.
func WithHistory(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = enabled
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
