package assets

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"keepsake/internal/config"
	"keepsake/internal/services"
)

const component = "assets"

// Kind declares what an uploaded file is used as.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// ParseKind converts a string into a known Kind.
func ParseKind(value string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindImage:
		return KindImage, true
	case KindVideo:
		return KindVideo, true
	case KindAudio:
		return KindAudio, true
	default:
		return "", false
	}
}

// Store accepts a raw file plus its declared kind and returns a stable,
// publicly fetchable URL.
type Store interface {
	Upload(ctx context.Context, kind Kind, filename string, body io.Reader) (string, error)
}

// NewFromConfig builds the store selected by the assets backend setting.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Assets.Backend)) {
	case "", "filesystem":
		return NewFilesystemStore(cfg.Assets.Dir, cfg.Assets.BaseURL)
	case "s3":
		return NewS3Store(ctx, cfg.Assets.S3)
	default:
		return nil, services.Wrap(services.ErrValidation, component, "new",
			fmt.Sprintf("unknown backend %q", cfg.Assets.Backend), nil)
	}
}

// objectKey builds the storage key for an upload: kind directory, random
// identifier, original extension lowercased.
func objectKey(kind Kind, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return string(kind) + "/" + uuid.NewString() + ext
}

// contentTypeFor maps common asset extensions to MIME types; unknown
// extensions fall back to octet-stream.
func contentTypeFor(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg":
		return "audio/ogg"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	default:
		return "application/octet-stream"
	}
}
