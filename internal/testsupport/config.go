// Package testsupport holds shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"keepsake/internal/config"
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
	cfgVal.API.BaseURL = "http://127.0.0.1:0"
	cfgVal.API.Token = "test"
	cfgVal.Assets.Dir = filepath.Join(base, "assets")
	cfgVal.Drafts.Dir = filepath.Join(base, "drafts")
	cfgVal.Logging.Dir = filepath.Join(base, "logs")
	cfgVal.Viewer.Bind = "127.0.0.1:0"

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

// WithAPIBaseURL points the persistence client at a test server.
func WithAPIBaseURL(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.BaseURL = baseURL
	}
}

// WithAPIToken sets the bearer token on the test config.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.Token = token
	}
}

// WithAssetsBackend selects the asset storage backend.
func WithAssetsBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Assets.Backend = backend
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Assets.Dir)
}
