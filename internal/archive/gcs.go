package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/mamadbah2/haccp/internal/domain/models"
)

// GCSStore keeps archived reports in a Google Cloud Storage bucket. Object writes
// become visible only when the writer is closed, so Put is atomic.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// NewGCSClient prefers explicit JSON credentials and falls back to application
// default credentials.
func NewGCSClient(ctx context.Context, credentialsJSON string) (*storage.Client, error) {
	var opts []option.ClientOption
	if strings.TrimSpace(credentialsJSON) != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return client, nil
}

// NewGCSStore verifies the bucket is reachable.
func NewGCSStore(ctx context.Context, client *storage.Client, bucket, prefix string, logger *zap.Logger) (*GCSStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bucket == "" {
		return nil, errors.New("gcs bucket must not be empty")
	}
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		return nil, fmt.Errorf("gcs bucket %q not accessible: %w", bucket, err)
	}
	return &GCSStore{client: client, bucket: bucket, prefix: normalizePrefix(prefix), logger: logger}, nil
}

func (s *GCSStore) object(key models.ArchiveKey) (*storage.ObjectHandle, error) {
	name, err := ObjectName(key)
	if err != nil {
		return nil, err
	}
	return s.client.Bucket(s.bucket).Object(s.prefix + name), nil
}

// Put uploads data as a single object.
func (s *GCSStore) Put(ctx context.Context, key models.ArchiveKey, data []byte) error {
	obj, err := s.object(key)
	if err != nil {
		return err
	}
	w := obj.NewWriter(ctx)
	w.ContentType = "text/plain; charset=utf-8"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gcs object %s: %w", obj.ObjectName(), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("commit gcs object %s: %w", obj.ObjectName(), err)
	}
	return nil
}

// Get downloads an archived report.
func (s *GCSStore) Get(ctx context.Context, key models.ArchiveKey) ([]byte, error) {
	obj, err := s.object(key)
	if err != nil {
		return nil, err
	}
	r, err := obj.NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open gcs object %s: %w", obj.ObjectName(), err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read gcs object %s: %w", obj.ObjectName(), err)
	}
	return data, nil
}

// Delete removes an archived report.
func (s *GCSStore) Delete(ctx context.Context, key models.ArchiveKey) error {
	obj, err := s.object(key)
	if err != nil {
		return err
	}
	if err := obj.Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete gcs object %s: %w", obj.ObjectName(), err)
	}
	return nil
}

// List pages through the bucket prefix.
func (s *GCSStore) List(ctx context.Context) iter.Seq2[models.ArchiveEntry, error] {
	return func(yield func(models.ArchiveEntry, error) bool) {
		it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: s.prefix})
		for {
			attrs, err := it.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				yield(models.ArchiveEntry{}, fmt.Errorf("list gcs bucket %s: %w", s.bucket, err))
				return
			}
			name := strings.TrimPrefix(attrs.Name, s.prefix)
			key, ok := ParseName(name)
			if !ok {
				s.logger.Warn("skipping unrecognized archive object", zap.String("name", attrs.Name))
				continue
			}
			if !yield(models.ArchiveEntry{Key: key, CreatedAt: attrs.Created, Size: attrs.Size}, nil) {
				return
			}
		}
	}
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}
