package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileAppliesDefaults(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if exists {
		t.Fatal("expected missing file to be reported")
	}
	if cfg.Playback.SlideTimeoutMillis != defaultSlideTimeoutMillis {
		t.Fatalf("defaults not applied: %+v", cfg.Playback)
	}
	if cfg.Assets.Backend != "filesystem" {
		t.Fatalf("default assets backend: %q", cfg.Assets.Backend)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[api]
base_url = "https://api.example.com/"
token = "secret"

[viewer]
bind = "127.0.0.1:9000"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolution mismatch: %q %v", resolved, exists)
	}
	if cfg.API.BaseURL != "https://api.example.com" {
		t.Fatalf("base URL not normalized: %q", cfg.API.BaseURL)
	}
	if cfg.API.Token != "secret" || cfg.Viewer.Bind != "127.0.0.1:9000" {
		t.Fatalf("values not applied: %+v", cfg)
	}
}

func TestValidateRejectsBadBackend(t *testing.T) {
	cfg := Default()
	cfg.Assets.Backend = "ftp"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "assets.backend") {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestValidateRejectsS3WithoutBucket(t *testing.T) {
	cfg := Default()
	cfg.Assets.Backend = "s3"
	cfg.Assets.S3.Bucket = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected bucket error")
	}
}

func TestValidateRejectsOutOfRangeSlideTimeout(t *testing.T) {
	cfg := Default()
	cfg.Playback.SlideTimeoutMillis = 100
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected slide timeout error")
	}
}

func TestValidateRejectsRelativeBaseURL(t *testing.T) {
	cfg := Default()
	cfg.API.BaseURL = "api.example.com"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for URL without scheme")
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Drafts.Dir = filepath.Join(dir, "drafts")
	cfg.Logging.Dir = filepath.Join(dir, "logs")
	cfg.Assets.Dir = filepath.Join(dir, "assets")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	for _, p := range []string{cfg.Drafts.Dir, cfg.Logging.Dir, cfg.Assets.Dir} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("directory %s missing: %v", p, err)
		}
	}
}

func TestSampleConfigMentionsEverySection(t *testing.T) {
	sample := SampleConfig()
	for _, section := range []string{"[api]", "[assets]", "[drafts]", "[playback]", "[viewer]", "[share]", "[logging]"} {
		if !strings.Contains(sample, section) {
			t.Errorf("sample config missing %s", section)
		}
	}
}
