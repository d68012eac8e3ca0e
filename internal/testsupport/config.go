package testsupport

import (
	"path/filepath"
	"testing"

	"sdportal/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Service.BaseURL = "http://127.0.0.1:0"
	cfgVal.Service.ClientID = "test-client"
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Assets.PoseDir = filepath.Join(base, "poses")
	cfgVal.Watch.PollIntervalSeconds = 1

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

// WithBaseURL points the test config at a relay, usually an EnvelopeServer.
func WithBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Service.BaseURL = url
	}
}

// WithClientID overrides the client identifier.
func WithClientID(id string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Service.ClientID = id
	}
}

// WithModelType overrides the default base model type.
func WithModelType(modelType string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Task.BaseModelType = modelType
	}
}

// WithStaleGuard toggles discarding of superseded derivations.
func WithStaleGuard(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Task.DiscardStaleDerivations = enabled
	}
}
