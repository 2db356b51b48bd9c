package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"keepsake/internal/capsule"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateAssets(); err != nil {
		return err
	}
	if err := c.validatePlayback(); err != nil {
		return err
	}
	if err := c.validateViewer(); err != nil {
		return err
	}
	if err := c.validateShare(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.BaseURL != "" {
		parsed, err := url.Parse(c.API.BaseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("api.base_url %q must be an absolute URL", c.API.BaseURL)
		}
	}
	if c.API.TimeoutSeconds < 0 {
		return errors.New("api.timeout_seconds must not be negative")
	}
	if c.API.RequestsPerSecond < 0 {
		return errors.New("api.requests_per_second must not be negative")
	}
	return nil
}

func (c *Config) validateAssets() error {
	switch c.Assets.Backend {
	case "filesystem":
		if strings.TrimSpace(c.Assets.Dir) == "" {
			return errors.New("assets.dir must be set for the filesystem backend")
		}
	case "s3":
		if strings.TrimSpace(c.Assets.S3.Bucket) == "" {
			return errors.New("assets.s3.bucket must be set for the s3 backend")
		}
	default:
		return fmt.Errorf("assets.backend %q must be filesystem or s3", c.Assets.Backend)
	}
	return nil
}

func (c *Config) validatePlayback() error {
	timeout := c.Playback.SlideTimeoutMillis
	if timeout < capsule.MinSlideshowTimeout || timeout > capsule.MaxSlideshowTimeout {
		return fmt.Errorf("playback.slide_timeout_millis must be between %d and %d",
			capsule.MinSlideshowTimeout, capsule.MaxSlideshowTimeout)
	}
	if c.Playback.VideoGraceSeconds <= 0 {
		return errors.New("playback.video_grace_seconds must be positive")
	}
	return nil
}

func (c *Config) validateViewer() error {
	if strings.TrimSpace(c.Viewer.Bind) == "" {
		return errors.New("viewer.bind must be set")
	}
	return nil
}

func (c *Config) validateShare() error {
	if c.Share.QRSize <= 0 {
		return errors.New("share.qr_size must be positive")
	}
	return nil
}
