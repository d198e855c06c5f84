package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSStorage serves base images from a bucket prefix and uploads finished
// videos to the same bucket.
type GCSStorage struct {
	client        *storage.Client
	bucket        string
	imagePrefix   string
	videoPrefix   string
	localCacheDir string
}

func NewGCSStorage(ctx context.Context, bucket, imagePrefix, videoPrefix, localCacheDir string) (*GCSStorage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSStorage{
		client:        client,
		bucket:        bucket,
		imagePrefix:   imagePrefix,
		videoPrefix:   videoPrefix,
		localCacheDir: localCacheDir,
	}, nil
}

func (s *GCSStorage) Close() error {
	return s.client.Close()
}

func (s *GCSStorage) Name() string { return "gcs" }

func (s *GCSStorage) BaseImage(ctx context.Context) (string, error) {
	images, err := s.listImages(ctx)
	if err != nil {
		return "", err
	}

	if len(images) == 0 {
		return "", fmt.Errorf("no images found in gs://%s/%s", s.bucket, s.imagePrefix)
	}

	remotePath := images[rand.Intn(len(images))]
	localPath := filepath.Join(s.localCacheDir, filepath.Base(remotePath))

	if _, err := os.Stat(localPath); err == nil {
		return localPath, nil
	}

	if err := s.downloadFile(ctx, remotePath, localPath); err != nil {
		return "", fmt.Errorf("failed to download image: %w", err)
	}

	return localPath, nil
}

func (s *GCSStorage) listImages(ctx context.Context) ([]string, error) {
	bkt := s.client.Bucket(s.bucket)
	query := &storage.Query{Prefix: s.imagePrefix}

	var images []string
	it := bkt.Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		if isImage(attrs.Name) {
			images = append(images, attrs.Name)
		}
	}

	return images, nil
}

func (s *GCSStorage) downloadFile(ctx context.Context, remotePath, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	obj := s.client.Bucket(s.bucket).Object(remotePath)
	r, err := obj.NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to create reader: %w", err)
	}
	defer func() { _ = r.Close() }()

	tmpPath := localPath + ".part"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to download file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close local file: %w", err)
	}

	return os.Rename(tmpPath, localPath)
}

// Upload copies a finished video into the bucket and returns its gs:// URI.
func (s *GCSStorage) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open video: %w", err)
	}
	defer func() { _ = f.Close() }()

	name := path.Join(s.videoPrefix, filepath.Base(localPath))
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "video/mp4"

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload video: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", s.bucket, name), nil
}

func (s *GCSStorage) EnsureCacheDir() error {
	return os.MkdirAll(s.localCacheDir, 0755)
}
