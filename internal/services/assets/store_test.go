package assets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"keepsake/internal/services"
	"keepsake/internal/testsupport"
)

func TestFilesystemUpload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFilesystemStore(dir, "https://assets.example.com/")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	url, err := store.Upload(context.Background(), KindImage, "Holiday Photo.JPG", strings.NewReader("fake-bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(url, "https://assets.example.com/image/") {
		t.Fatalf("unexpected url %q", url)
	}
	if !strings.HasSuffix(url, ".jpg") {
		t.Fatalf("extension must survive lowercased, got %q", url)
	}

	rel := strings.TrimPrefix(url, "https://assets.example.com/")
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("read stored asset: %v", err)
	}
	if string(data) != "fake-bytes" {
		t.Fatalf("stored content mismatch: %q", data)
	}
}

func TestFilesystemUploadUniqueURLs(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir(), "https://a.example.com")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	first, err := store.Upload(context.Background(), KindVideo, "clip.mp4", strings.NewReader("a"))
	if err != nil {
		t.Fatalf("upload 1: %v", err)
	}
	second, err := store.Upload(context.Background(), KindVideo, "clip.mp4", strings.NewReader("b"))
	if err != nil {
		t.Fatalf("upload 2: %v", err)
	}
	if first == second {
		t.Fatalf("same filename must not collide: %q", first)
	}
}

func TestFilesystemRejectsUnknownKind(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir(), "https://a.example.com")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	_, err = store.Upload(context.Background(), Kind("document"), "a.pdf", strings.NewReader("x"))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("unknown kind: %v", err)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		input string
		want  Kind
		ok    bool
	}{
		{"image", KindImage, true},
		{" Video ", KindVideo, true},
		{"AUDIO", KindAudio, true},
		{"document", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		got, ok := ParseKind(tc.input)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseKind(%q) = %q, %v; want %q, %v", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := map[string]string{
		"a.jpg":    "image/jpeg",
		"b.JPEG":   "image/jpeg",
		"c.png":    "image/png",
		"clip.mp4": "video/mp4",
		"song.mp3": "audio/mpeg",
		"odd.bin":  "application/octet-stream",
		"noext":    "application/octet-stream",
	}
	for filename, want := range tests {
		if got := contentTypeFor(filename); got != want {
			t.Fatalf("contentTypeFor(%q) = %q, want %q", filename, got, want)
		}
	}
}

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	err    error
}

func (f *fakeS3) PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3UploadBuildsKeyAndURL(t *testing.T) {
	api := &fakeS3{}
	store := &S3Store{
		client:        api,
		bucket:        "capsules",
		region:        "us-east-1",
		keyPrefix:     "uploads",
		publicBaseURL: "https://cdn.example.com",
	}

	url, err := store.Upload(context.Background(), KindAudio, "theme song.MP3", strings.NewReader("notes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(api.inputs) != 1 {
		t.Fatalf("expected one put, got %d", len(api.inputs))
	}
	input := api.inputs[0]
	if aws.ToString(input.Bucket) != "capsules" {
		t.Fatalf("bucket %q", aws.ToString(input.Bucket))
	}
	key := aws.ToString(input.Key)
	if !strings.HasPrefix(key, "uploads/audio/") || !strings.HasSuffix(key, ".mp3") {
		t.Fatalf("unexpected key %q", key)
	}
	if aws.ToString(input.ContentType) != "audio/mpeg" {
		t.Fatalf("content type %q", aws.ToString(input.ContentType))
	}
	if url != "https://cdn.example.com/"+key {
		t.Fatalf("url %q does not match key %q", url, key)
	}
}

func TestS3PublicURLDefaultsToBucketHost(t *testing.T) {
	store := &S3Store{bucket: "capsules", region: "eu-west-1"}
	got := store.publicURL("image/x.png")
	want := "https://capsules.s3.eu-west-1.amazonaws.com/image/x.png"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestS3UploadFailure(t *testing.T) {
	store := &S3Store{client: &fakeS3{err: errors.New("denied")}, bucket: "b", region: "us-east-1"}
	_, err := store.Upload(context.Background(), KindImage, "x.png", strings.NewReader("x"))
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("put failure: %v", err)
	}
}

func TestNewFromConfigSelectsBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := NewFromConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("filesystem backend: %v", err)
	}
	if _, ok := store.(*FilesystemStore); !ok {
		t.Fatalf("expected filesystem store, got %T", store)
	}

	cfg.Assets.Backend = "tape"
	if _, err := NewFromConfig(context.Background(), cfg); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("unknown backend: %v", err)
	}

	cfg.Assets.Backend = "s3"
	cfg.Assets.S3.Bucket = ""
	if _, err := NewFromConfig(context.Background(), cfg); err == nil {
		t.Fatal("s3 backend without bucket must fail")
	}
}

func TestNewFromConfigUsesConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAssetsBackend("filesystem"))
	if _, err := os.Stat(cfg.Assets.Dir); err == nil {
		t.Fatal("assets dir should not exist before the store is built")
	}
	if _, err := NewFromConfig(context.Background(), cfg); err != nil {
		t.Fatalf("new from config: %v", err)
	}
	if _, err := os.Stat(cfg.Assets.Dir); err != nil {
		t.Fatalf("store must create the assets dir: %v", err)
	}
}
