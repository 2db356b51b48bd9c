package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"keepsake/internal/config"
	"keepsake/internal/services"
)

// s3API is the slice of the S3 client the store uses.
type s3API interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads assets to an S3 bucket. A custom endpoint with path-style
// addressing supports LocalStack and S3-compatible object stores.
type S3Store struct {
	client        s3API
	bucket        string
	region        string
	keyPrefix     string
	publicBaseURL string
}

// NewS3Store builds the S3 backend from configuration. Credentials come from
// the standard AWS environment chain.
func NewS3Store(ctx context.Context, cfg config.S3) (*S3Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3 bucket required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, component, "new", "load aws config", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:        client,
		bucket:        cfg.Bucket,
		region:        cfg.Region,
		keyPrefix:     strings.Trim(cfg.KeyPrefix, "/"),
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// Upload puts the object and returns its public URL.
func (s *S3Store) Upload(ctx context.Context, kind Kind, filename string, body io.Reader) (string, error) {
	if _, ok := ParseKind(string(kind)); !ok {
		return "", services.Wrap(services.ErrValidation, component, "upload",
			"unknown asset kind "+string(kind), nil)
	}
	key := objectKey(kind, filename)
	if s.keyPrefix != "" {
		key = s.keyPrefix + "/" + key
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentTypeFor(filename)),
	})
	if err != nil {
		return "", services.Wrap(services.ErrTransient, component, "upload", "put object", err)
	}
	return s.publicURL(key), nil
}

func (s *S3Store) publicURL(key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
