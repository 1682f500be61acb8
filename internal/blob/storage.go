// Package blob wraps the S3-compatible object store behind the three
// capabilities this service needs: put, head, get.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sethvargo/go-retry"

	conf "github.com/trunov/converthub/internal/config"
)

type Storage struct {
	Bucket         string
	MaxRetries     uint64
	RetryBaseDelay time.Duration

	S3Client *s3.Client
	Uploader *manager.Uploader
}

func NewStorage(cfg *conf.S3Config) (*Storage, error) {
	awsCfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretKey, "",
		)),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return &Storage{
		Bucket:         cfg.BucketName,
		MaxRetries:     3,
		RetryBaseDelay: 300 * time.Millisecond,
		S3Client:       client,
		Uploader:       manager.NewUploader(client),
	}, nil
}

func (s *Storage) backoff() retry.Backoff {
	return retry.WithMaxRetries(s.MaxRetries, retry.NewExponential(s.RetryBaseDelay))
}

// EnsureBucket creates the configured bucket, ignoring the error when it
// already exists. Dev-time convenience for MinIO setups.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	_, err := s.S3Client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.Bucket),
	})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		var exists *types.BucketAlreadyExists
		if errors.As(err, &owned) || errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("failed to ensure bucket %q: %w", s.Bucket, err)
	}
	log.Printf("blob: created bucket %q", s.Bucket)
	return nil
}

// Put writes payload at key, retrying transient failures with bounded
// exponential backoff before giving up.
func (s *Storage) Put(ctx context.Context, key string, payload []byte, contentType string) error {
	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		_, err := s.Uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.Bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(payload),
			ContentType: aws.String(contentType),
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to put %q: %w", key, err)
	}
	return nil
}

// Head reports whether an object exists at key. A missing object is not
// an error; anything else is retried and then surfaced.
func (s *Storage) Head(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		_, err := s.S3Client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			var notFound *types.NotFound
			if errors.As(err, &notFound) {
				exists = false
				return nil
			}
			return retry.RetryableError(err)
		}
		exists = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to head %q: %w", key, err)
	}
	return exists, nil
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, string, error) {
	out, err := s.S3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to download %q: %w", key, err)
	}
	defer out.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return nil, "", fmt.Errorf("failed to read body for %q: %w", key, err)
	}

	contentType := ""
	if out.ContentType != nil {
		contentType = *out.ContentType
	}
	return buf.Bytes(), contentType, nil
}
