package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/haccp/internal/domain/models"
)

const tempPrefix = ".tmp-"

// FileStore keeps archived reports in a local directory tree.
type FileStore struct {
	root   string
	logger *zap.Logger
}

// NewFileStore creates the root directory if needed.
func NewFileStore(root string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if root == "" {
		return nil, errors.New("archive root must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create archive root %s: %w", root, err)
	}
	return &FileStore{root: root, logger: logger}, nil
}

func (s *FileStore) path(key models.ArchiveKey) (string, error) {
	name, err := ObjectName(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(name)), nil
}

// Put writes data to a temporary file next to the target and renames it into place.
func (s *FileStore) Put(ctx context.Context, key models.ArchiveKey, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.path(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create tenant directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("create staging file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write staging file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync staging file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close staging file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod staging file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("publish %s: %w", target, err)
	}
	committed = true

	s.logger.Debug("archive entry published", zap.String("path", target), zap.Int("bytes", len(data)))
	return nil
}

// Get reads an archived report.
func (s *FileStore) Get(ctx context.Context, key models.ArchiveKey) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	return data, nil
}

// Delete removes an archived report.
func (s *FileStore) Delete(ctx context.Context, key models.ArchiveKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", target, err)
	}
	return nil
}

// List walks <root>/<tenant>/ one directory at a time.
func (s *FileStore) List(ctx context.Context) iter.Seq2[models.ArchiveEntry, error] {
	return func(yield func(models.ArchiveEntry, error) bool) {
		tenants, err := os.ReadDir(s.root)
		if err != nil {
			yield(models.ArchiveEntry{}, fmt.Errorf("read archive root: %w", err))
			return
		}

		for _, tenant := range tenants {
			if !tenant.IsDir() {
				s.logger.Warn("skipping unexpected archive file", zap.String("name", tenant.Name()))
				continue
			}
			if err := ctx.Err(); err != nil {
				yield(models.ArchiveEntry{}, err)
				return
			}

			files, err := os.ReadDir(filepath.Join(s.root, tenant.Name()))
			if err != nil {
				if !yield(models.ArchiveEntry{}, fmt.Errorf("read tenant directory %s: %w", tenant.Name(), err)) {
					return
				}
				continue
			}

			for _, file := range files {
				name := tenant.Name() + "/" + file.Name()
				if strings.HasPrefix(file.Name(), tempPrefix) {
					continue
				}
				key, ok := ParseName(name)
				if !ok || file.IsDir() {
					s.logger.Warn("skipping unrecognized archive entry", zap.String("name", name))
					continue
				}
				info, err := file.Info()
				if errors.Is(err, fs.ErrNotExist) {
					// removed since ReadDir
					continue
				}
				if err != nil {
					if !yield(models.ArchiveEntry{}, fmt.Errorf("stat %s: %w", name, err)) {
						return
					}
					continue
				}
				if !yield(models.ArchiveEntry{Key: key, CreatedAt: info.ModTime(), Size: info.Size()}, nil) {
					return
				}
			}
		}
	}
}
