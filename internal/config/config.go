package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// API configures the persistence backend client.
type API struct {
	BaseURL           string  `toml:"base_url"`
	Token             string  `toml:"token"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Assets selects and configures the asset store backend.
type Assets struct {
	// Backend is "filesystem" or "s3".
	Backend string `toml:"backend"`
	// Dir is the upload directory for the filesystem backend.
	Dir string `toml:"dir"`
	// BaseURL prefixes returned asset URLs for the filesystem backend.
	BaseURL string `toml:"base_url"`
	S3      S3     `toml:"s3"`
}

// S3 configures the S3-compatible asset store backend.
type S3 struct {
	Bucket        string `toml:"bucket"`
	Region        string `toml:"region"`
	Endpoint      string `toml:"endpoint"`
	PathStyle     bool   `toml:"path_style"`
	PublicBaseURL string `toml:"public_base_url"`
	KeyPrefix     string `toml:"key_prefix"`
}

// Drafts configures the local autosave store.
type Drafts struct {
	Dir string `toml:"dir"`
}

// Playback configures slideshow pacing defaults.
type Playback struct {
	SlideTimeoutMillis int `toml:"slide_timeout_millis"`
	VideoGraceSeconds  int `toml:"video_grace_seconds"`
}

// Viewer configures the local viewer server.
type Viewer struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Share configures deep links and QR rendering.
type Share struct {
	LinkBaseURL string `toml:"link_base_url"`
	QRSize      int    `toml:"qr_size"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Config encapsulates all configuration values for Keepsake.
type Config struct {
	API      API      `toml:"api"`
	Assets   Assets   `toml:"assets"`
	Drafts   Drafts   `toml:"drafts"`
	Playback Playback `toml:"playback"`
	Viewer   Viewer   `toml:"viewer"`
	Share    Share    `toml:"share"`
	Logging  Logging  `toml:"logging"`
}

// SampleConfig returns the annotated sample configuration file contents.
func SampleConfig() string {
	return sampleConfig
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/keepsake/config.toml")
}

// ExpandPath resolves a leading ~ against the user's home directory.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

// CreateSample writes the annotated sample configuration to path.
func CreateSample(path string) error {
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded. The second return is the resolved
// path and the third reports whether a file existed there.
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

// EnsureDirectories creates the directories the configuration references.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Drafts.Dir, c.Logging.Dir}
	if c.Assets.Backend == "filesystem" {
		dirs = append(dirs, c.Assets.Dir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure directory %s: %w", dir, err)
		}
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	candidate := strings.TrimSpace(path)
	if candidate == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		candidate = defaultPath
	} else {
		expanded, err := expandPath(candidate)
		if err != nil {
			return "", false, err
		}
		candidate = expanded
	}

	if _, err := os.Stat(candidate); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	return candidate, true, nil
}

func (c *Config) normalize() error {
	paths := []*string{&c.Drafts.Dir, &c.Logging.Dir, &c.Assets.Dir}
	for _, p := range paths {
		expanded, err := expandPath(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	c.Share.LinkBaseURL = strings.TrimRight(strings.TrimSpace(c.Share.LinkBaseURL), "/")
	c.Assets.Backend = strings.ToLower(strings.TrimSpace(c.Assets.Backend))
	return nil
}

func expandPath(pathValue string) (string, error) {
	trimmed := strings.TrimSpace(pathValue)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	return filepath.Clean(trimmed), nil
}
