package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/canvasboard/backend/internal/config"
	"github.com/canvasboard/backend/pkg/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIOClient struct {
	client *minio.Client
	// publicClient signs URLs against the endpoint browsers can reach.
	publicClient *minio.Client
	bucket       string
}

func NewMinIOClient(cfg config.MinIOConfig) (*MinIOClient, error) {
	creds := credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	m := &MinIOClient{client: client, publicClient: client, bucket: cfg.Bucket}
	if cfg.PublicEndpoint != "" && cfg.PublicEndpoint != cfg.Endpoint {
		public, err := minio.New(cfg.PublicEndpoint, &minio.Options{
			Creds:  creds,
			Secure: cfg.UseSSL,
			Region: "us-east-1",
		})
		if err != nil {
			return nil, fmt.Errorf("public endpoint: %w", err)
		}
		m.publicClient = public
	}
	return m, nil
}

func (m *MinIOClient) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		logger.Error("minio_upload_failed", err, map[string]interface{}{
			"object_name":  objectName,
			"size":         size,
			"content_type": contentType,
			"bucket":       m.bucket,
		})
	} else {
		logger.Info("minio_upload_success", map[string]interface{}{
			"object_name": objectName,
			"size":        size,
			"bucket":      m.bucket,
		})
	}
	return err
}

func (m *MinIOClient) Exists(ctx context.Context, objectName string) (bool, error) {
	_, err := m.client.StatObject(ctx, m.bucket, objectName, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, err
}

func (m *MinIOClient) PresignedGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	urlValue, err := m.publicClient.PresignedGetObject(ctx, m.bucket, objectName, expiry, nil)
	if err != nil {
		return "", err
	}
	return urlValue.String(), nil
}

// DeletePrefix removes every object under prefix and reports how many were
// removed.
func (m *MinIOClient) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	var objects []minio.ObjectInfo
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			logger.Error("minio_list_prefix_failed", obj.Err, map[string]interface{}{
				"prefix": prefix,
				"bucket": m.bucket,
			})
			return 0, obj.Err
		}
		objects = append(objects, obj)
	}
	if len(objects) == 0 {
		return 0, nil
	}

	queue := make(chan minio.ObjectInfo, len(objects))
	for _, obj := range objects {
		queue <- obj
	}
	close(queue)

	failed := 0
	var firstErr error
	for rerr := range m.client.RemoveObjects(ctx, m.bucket, queue, minio.RemoveObjectsOptions{}) {
		failed++
		if firstErr == nil {
			firstErr = rerr.Err
		}
	}

	removed := len(objects) - failed
	if firstErr != nil {
		logger.Error("minio_delete_prefix_failed", firstErr, map[string]interface{}{
			"prefix": prefix,
			"failed": failed,
			"bucket": m.bucket,
		})
		return removed, firstErr
	}
	logger.Info("minio_delete_prefix_success", map[string]interface{}{
		"prefix":  prefix,
		"removed": removed,
		"bucket":  m.bucket,
	})
	return removed, nil
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

var _ ObjectStore = (*MinIOClient)(nil)
