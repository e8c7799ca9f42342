// Package s3store persists progress as one object in an S3-compatible bucket
// (AWS S3 or MinIO).
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/roach88/sortie/internal/ir"
	"github.com/roach88/sortie/internal/store"
)

var _ store.ProgressStore = (*Store)(nil)

// API is the subset of *s3.Client the store uses.
type API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config holds construction parameters.
type Config struct {
	Bucket          string
	Region          string // default us-east-1
	Endpoint        string // optional; custom endpoint such as MinIO
	PathStyle       bool
	Prefix          string // object key prefix, e.g. "saves/"
	Profile         string
	AccessKeyID     string // optional; falls back to the default credentials chain
	SecretAccessKey string
}

// Store reads and writes a single object at <prefix><profile>.json.
type Store struct {
	client API
	bucket string
	key    string
}

// New builds an S3 client from cfg and returns a Store on top of it.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, store.Unavailable("load aws config", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewWithClient(client, cfg.Bucket, cfg.Prefix, cfg.Profile), nil
}

// NewWithClient returns a Store over an existing client.
func NewWithClient(client API, bucket, prefix, profile string) *Store {
	if profile == "" {
		profile = store.DefaultProfile
	}
	return &Store{client: client, bucket: bucket, key: ObjectKey(prefix, profile)}
}

// ObjectKey returns the object key for a profile.
func ObjectKey(prefix, profile string) string {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + profile + ".json"
}

// Key returns the object key this store addresses.
func (s *Store) Key() string {
	return s.key
}

// Load fetches and decodes the record.
func (s *Store) Load(ctx context.Context) (ir.PersistedProgress, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &s.key})
	if err != nil {
		return ir.PersistedProgress{}, classify("load progress", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return ir.PersistedProgress{}, classify("read progress", err)
	}
	p, err := store.DecodeProgress(data)
	if err != nil {
		return ir.PersistedProgress{}, fmt.Errorf("load progress s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return p, nil
}

// Save overwrites the record object. S3 PUT replaces the whole object, so
// readers see either the old or the new record.
func (s *Store) Save(ctx context.Context, record ir.PersistedProgress) error {
	body, err := store.EncodeProgress(record)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &s.key,
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return classify("save progress", err)
	}
	return nil
}

// Clear deletes the record object. Deleting a missing object succeeds.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &s.key})
	if err != nil {
		err = classify("clear progress", err)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%s: %w", op, store.ErrNotFound)
		case "EntityTooLarge", "QuotaExceeded", "ServiceQuotaExceeded":
			return store.QuotaExceeded(op, err)
		}
	}
	return store.Unavailable(op, err)
}
