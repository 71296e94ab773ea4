package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/mamadbah2/haccp/internal/domain/models"
)

// S3Store keeps archived reports in an S3 (or S3-compatible) bucket. A PutObject
// call is all-or-nothing, so Put is atomic.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// S3Options configure the S3 backend. Endpoint is set for S3-compatible services
// and switches to path-style addressing.
type S3Options struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string
}

// NewS3Client builds an S3 client from the default AWS credential chain.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewS3Store wraps client for the configured bucket.
func NewS3Store(client *s3.Client, opts S3Options, logger *zap.Logger) (*S3Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Bucket == "" {
		return nil, errors.New("s3 bucket must not be empty")
	}
	return &S3Store{client: client, bucket: opts.Bucket, prefix: normalizePrefix(opts.Prefix), logger: logger}, nil
}

func (s *S3Store) objectKey(key models.ArchiveKey) (string, error) {
	name, err := ObjectName(key)
	if err != nil {
		return "", err
	}
	return s.prefix + name, nil
}

// Put uploads data as a single object.
func (s *S3Store) Put(ctx context.Context, key models.ArchiveKey, data []byte) error {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("put s3 object %s: %w", objectKey, err)
	}
	return nil
}

// Get downloads an archived report.
func (s *S3Store) Get(ctx context.Context, key models.ArchiveKey) ([]byte, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("get s3 object %s: %w", objectKey, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3 object %s: %w", objectKey, err)
	}
	return data, nil
}

// Delete removes an archived report. S3 deletes are already idempotent.
func (s *S3Store) Delete(ctx context.Context, key models.ArchiveKey) error {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("delete s3 object %s: %w", objectKey, err)
	}
	return nil
}

// List pages through the bucket prefix with ListObjectsV2.
func (s *S3Store) List(ctx context.Context) iter.Seq2[models.ArchiveEntry, error] {
	return func(yield func(models.ArchiveEntry, error) bool) {
		paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
			Bucket: aws.String(s.bucket),
			Prefix: aws.String(s.prefix),
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield(models.ArchiveEntry{}, fmt.Errorf("list s3 bucket %s: %w", s.bucket, err))
				return
			}
			for _, obj := range page.Contents {
				name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
				key, ok := ParseName(name)
				if !ok {
					s.logger.Warn("skipping unrecognized archive object", zap.String("name", aws.ToString(obj.Key)))
					continue
				}
				entry := models.ArchiveEntry{
					Key:       key,
					CreatedAt: aws.ToTime(obj.LastModified),
					Size:      aws.ToInt64(obj.Size),
				}
				if !yield(entry, nil) {
					return
				}
			}
		}
	}
}
