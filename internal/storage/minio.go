package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/filedesk/backend/internal/config"
	"github.com/filedesk/backend/pkg/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrUpload marks a failed remote upload. Callers must not create a file
// record when they see it.
var ErrUpload = errors.New("remote upload failed")

type MinIOClient struct {
	client         *minio.Client
	bucket         string
	publicEndpoint string
	useSSL         bool
}

// UploadResult carries the durable retrieval URL and the namespaced object
// key of a stored blob.
type UploadResult struct {
	PublicURL string
	Path      string
}

type ObjectDescriptor struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

func NewMinIOClient(cfg config.MinIOConfig) (*MinIOClient, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	return &MinIOClient{
		client:         client,
		bucket:         cfg.Bucket,
		publicEndpoint: cfg.PublicEndpoint,
		useSSL:         cfg.UseSSL,
	}, nil
}

// Upload stores a blob under {userID}/{filename}. A repeated upload of the
// same name in the same namespace overwrites; the client does not version
// or de-duplicate names itself.
func (m *MinIOClient) Upload(ctx context.Context, userID, filename string, reader io.Reader, size int64, contentType string) (*UploadResult, error) {
	objectName := fmt.Sprintf("%s/%s", userID, filename)

	_, err := m.client.PutObject(ctx, m.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		logger.Error("storage_upload_failed", err, map[string]interface{}{
			"object_name":  objectName,
			"size":         size,
			"content_type": contentType,
			"bucket":       m.bucket,
		})
		return nil, fmt.Errorf("%w: %s: %v", ErrUpload, objectName, err)
	}

	logger.Info("storage_upload_success", map[string]interface{}{
		"object_name":  objectName,
		"size":         size,
		"content_type": contentType,
		"bucket":       m.bucket,
	})

	return &UploadResult{
		PublicURL: m.PublicURL(objectName),
		Path:      objectName,
	}, nil
}

// PublicURL builds the durable retrieval URL for an object. The bucket is
// assumed publicly readable; the URL is never cached or revoked.
func (m *MinIOClient) PublicURL(objectName string) string {
	scheme := "http"
	if m.useSSL {
		scheme = "https"
	}
	escaped := url.PathEscape(objectName)
	return fmt.Sprintf("%s://%s/%s/%s", scheme, m.publicEndpoint, m.bucket, escaped)
}

func (m *MinIOClient) List(ctx context.Context, prefix string) ([]ObjectDescriptor, error) {
	objects := []ObjectDescriptor{}
	for object := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			logger.Error("storage_list_failed", object.Err, map[string]interface{}{
				"prefix": prefix,
				"bucket": m.bucket,
			})
			return nil, object.Err
		}
		objects = append(objects, ObjectDescriptor{
			Path:         object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
		})
	}
	return objects, nil
}

func (m *MinIOClient) Delete(ctx context.Context, objectName string) error {
	err := m.client.RemoveObject(ctx, m.bucket, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		logger.Error("storage_delete_failed", err, map[string]interface{}{
			"object_name": objectName,
			"bucket":      m.bucket,
		})
	} else {
		logger.Info("storage_delete_success", map[string]interface{}{
			"object_name": objectName,
			"bucket":      m.bucket,
		})
	}
	return err
}

func (m *MinIOClient) PresignedGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	urlValue, err := m.client.PresignedGetObject(ctx, m.bucket, objectName, expiry, nil)
	if err != nil {
		return "", err
	}
	return urlValue.String(), nil
}

func (m *MinIOClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed creating bucket %s: %w", m.bucket, err)
	}
	return nil
}
