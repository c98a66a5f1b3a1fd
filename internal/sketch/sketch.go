package sketch

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"

	"masterplan-studio/internal/config"
)

type uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// Store persists user-drawn interface sketches submitted with mockup
// requests. Sketches arrive base64-encoded; they are decoded, downscaled
// when oversized, re-encoded as PNG, and written to a local directory or S3.
type Store struct {
	maxBytes int64
	maxWidth int
	local    uploader
	s3       uploader
}

// NewStore builds the sketch store and chooses an uploader. S3 is used when
// a bucket is configured, the uploads directory otherwise.
func NewStore(ctx context.Context, cfg config.Config) (*Store, error) {
	baseDir := cfg.UploadsDir
	if baseDir == "" {
		baseDir = "./uploads"
	}

	var s3Upload uploader
	if cfg.SketchS3Bucket != "" {
		client, err := newS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s3Upload = &s3Uploader{client: client, bucket: cfg.SketchS3Bucket}
	}

	maxBytes := cfg.SketchMaxBytes
	if maxBytes == 0 {
		maxBytes = 8 * 1024 * 1024
	}
	maxWidth := cfg.SketchMaxWidth
	if maxWidth == 0 {
		maxWidth = 1280
	}

	return &Store{
		maxBytes: maxBytes,
		maxWidth: maxWidth,
		local:    &localUploader{baseDir: baseDir},
		s3:       s3Upload,
	}, nil
}

func newS3Client(ctx context.Context, cfg config.Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.SketchS3Region),
	}
	if cfg.SketchS3Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					URL:               cfg.SketchS3Endpoint,
					HostnameImmutable: cfg.SketchS3PathStyle,
					SigningRegion:     cfg.SketchS3Region,
					Source:            aws.EndpointSourceCustom,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.SketchS3PathStyle
	}), nil
}

// SaveAll persists a batch of base64 sketches, returning the locations of
// the ones that stuck. Individual failures are logged and skipped: a lost
// sketch must never fail the mockup job it accompanies.
func (s *Store) SaveAll(ctx context.Context, sessionID string, images []string) []string {
	var saved []string
	for i, img := range images {
		if img == "" {
			continue
		}
		loc, err := s.Save(ctx, sessionID, i, img)
		if err != nil {
			log.Printf("save sketch %d for session %s: %v", i, sessionID, err)
			continue
		}
		saved = append(saved, loc)
	}
	return saved
}

// Save decodes one base64 sketch, downscales it if wider than the configured
// bound, and writes it as PNG. It returns the stored location.
func (s *Store) Save(ctx context.Context, sessionID string, n int, encoded string) (string, error) {
	// Tolerate data URLs from canvas exports.
	if i := strings.Index(encoded, ","); i >= 0 && strings.HasPrefix(encoded, "data:") {
		encoded = encoded[i+1:]
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode sketch: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", fmt.Errorf("sketch too large (%d bytes)", len(data))
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode sketch image: %w", err)
	}
	if img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		return "", errors.New("invalid sketch dimensions")
	}

	if img.Bounds().Dx() > s.maxWidth {
		img = imaging.Resize(img, s.maxWidth, 0, imaging.Lanczos)
	}

	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("encode sketch: %w", err)
	}

	if sessionID == "" {
		sessionID = "user"
	}
	key := fmt.Sprintf("%s_%s_%d.png", sessionID, time.Now().Format("20060102-150405"), n)

	up := s.local
	if s.s3 != nil {
		up = s.s3
	}
	loc, err := up.Upload(ctx, key, buf.Bytes(), "image/png")
	if err != nil {
		return "", fmt.Errorf("upload sketch: %w", err)
	}
	return loc, nil
}

type localUploader struct {
	baseDir string
}

func (l *localUploader) Upload(_ context.Context, key string, body []byte, _ string) (string, error) {
	path := filepath.Join(l.baseDir, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create dirs: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

type s3Uploader struct {
	client *s3.Client
	bucket string
}

func (s *s3Uploader) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
