// Package minio implements artifact storage on MinIO / S3-compatible object
// stores.  Artifacts are small JSON and SD files, so everything goes through
// simple single-part puts.
package minio

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kate-fie/fragment-network-merges/internal/config"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/monitoring/logging"
	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

// objectAPI is the slice of the MinIO client the store uses; tests substitute
// an in-memory fake.
type objectAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (io.ReadCloser, error)
}

// minioAPI adapts *minio.Client to objectAPI.
type minioAPI struct {
	client *minio.Client
}

func (a *minioAPI) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return a.client.BucketExists(ctx, bucket)
}

func (a *minioAPI) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	return a.client.MakeBucket(ctx, bucket, opts)
}

func (a *minioAPI) PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return a.client.PutObject(ctx, bucket, object, reader, size, opts)
}

func (a *minioAPI) GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return a.client.GetObject(ctx, bucket, object, opts)
}

// Store is an artifact store backed by one bucket.
type Store struct {
	api    objectAPI
	bucket string
	logger logging.Logger

	ensureOnce sync.Once
	ensureErr  error
}

// NewStore connects to the object store and verifies the endpoint is
// reachable.  The bucket is created lazily on first write.
func NewStore(cfg config.MinIOConfig, log logging.Logger) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageError, "failed to create object store client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := client.BucketExists(ctx, cfg.Bucket); err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageError, "failed to reach object store")
	}

	log.Info("Connected to object store",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
	)
	return &Store{api: &minioAPI{client: client}, bucket: cfg.Bucket, logger: log}, nil
}

func newStoreWithAPI(api objectAPI, bucket string, log logging.Logger) *Store {
	return &Store{api: api, bucket: bucket, logger: log}
}

func (s *Store) ensureBucket(ctx context.Context) error {
	s.ensureOnce.Do(func() {
		exists, err := s.api.BucketExists(ctx, s.bucket)
		if err != nil {
			s.ensureErr = err
			return
		}
		if !exists {
			s.ensureErr = s.api.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		}
	})
	return s.ensureErr
}

// Put stores an artifact under its name.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	if err := s.ensureBucket(ctx); err != nil {
		return errors.Wrap(err, errors.CodeStorageError, "failed to ensure artifact bucket")
	}

	opts := minio.PutObjectOptions{ContentType: contentTypeFor(name)}
	_, err := s.api.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return errors.Wrap(err, errors.CodeStorageError, "failed to store artifact "+name)
	}

	s.logger.Debug("stored artifact",
		logging.String("name", name),
		logging.Int("bytes", len(data)),
	)
	return nil
}

// Get retrieves an artifact by name.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	obj, err := s.api.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageError, "failed to open artifact "+name)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageError, "failed to read artifact "+name)
	}
	return data, nil
}

func contentTypeFor(name string) string {
	switch {
	case strings.HasSuffix(name, ".json"):
		return "application/json"
	case strings.HasSuffix(name, ".sdf"), strings.HasSuffix(name, ".mol"):
		return "chemical/x-mdl-sdfile"
	default:
		return "application/octet-stream"
	}
}
