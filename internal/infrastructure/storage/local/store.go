// Package local implements artifact storage on a plain directory, for runs
// without an object store.
package local

import (
	"context"
	"os"
	"path/filepath"

	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/monitoring/logging"
	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

// Store writes artifacts into a single output directory.
type Store struct {
	dir    string
	logger logging.Logger
}

// NewStore creates the output directory if needed.
func NewStore(dir string, log logging.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageError, "failed to create output directory")
	}
	return &Store{dir: dir, logger: log}, nil
}

// Put writes an artifact file.  Names are flattened onto the output
// directory; path separators in a name are rejected to keep writes inside it.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	if filepath.Base(name) != name {
		return errors.New(errors.CodeInvalidParam, "artifact name must not contain path separators")
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, errors.CodeStorageError, "failed to write artifact "+name)
	}
	s.logger.Debug("wrote artifact", logging.String("path", path), logging.Int("bytes", len(data)))
	return nil
}

// Get reads an artifact file.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	if filepath.Base(name) != name {
		return nil, errors.New(errors.CodeInvalidParam, "artifact name must not contain path separators")
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageError, "failed to read artifact "+name)
	}
	return data, nil
}
