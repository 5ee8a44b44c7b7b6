// Package archive stores raw uploaded workbooks in S3-compatible object storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/adfharrison1/sheetstore/pkg/config"
)

const keyPrefix = "uploads"

// MinioArchiver writes uploads to a MinIO (or any S3-compatible) bucket
type MinioArchiver struct {
	client *minio.Client
	bucket string
}

// NormaliseEndpoint accepts "host:port" or "http(s)://host:port" and reports
// whether TLS should be used
func NormaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}

	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		return u.Host, u.Scheme == "https", nil
	}

	// No scheme provided, treat as host:port (insecure by default for local MinIO).
	return raw, false, nil
}

// NewMinio creates the client and checks that the bucket exists
func NewMinio(ctx context.Context, cfg config.ArchiveConfig) (*MinioArchiver, error) {
	endpoint, secure, err := NormaliseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("archive bucket does not exist: %s", cfg.Bucket)
	}

	return &MinioArchiver{client: client, bucket: cfg.Bucket}, nil
}

// Archive uploads data under a fresh key and returns the key
func (a *MinioArchiver) Archive(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	key := ObjectKey(uuid.NewString(), filename)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to archive %s: %w", key, err)
	}
	return key, nil
}

// ObjectKey builds uploads/<id>/<base name of filename>
func ObjectKey(id, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	return path.Join(keyPrefix, id, name)
}
