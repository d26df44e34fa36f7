package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"foundly/internal/domain/service"
	"foundly/pkg/logger"
)

type CloudStorageClient struct {
	client     *storage.Client
	bucketName string
}

func NewCloudStorageClient(ctx context.Context, bucketName, credentialsPath string) (*CloudStorageClient, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %v", err)
	}

	return &CloudStorageClient{
		client:     client,
		bucketName: bucketName,
	}, nil
}

func (c *CloudStorageClient) UploadFile(ctx context.Context, file io.Reader, fileType, folder string) (string, error) {
	filename := fmt.Sprintf("%s/%s-%s", folder, uuid.New().String(), time.Now().Format("20060102150405"))

	switch fileType {
	case "image/jpeg", "image/jpg":
		filename += ".jpg"
	case "image/png":
		filename += ".png"
	case "image/webp":
		filename += ".webp"
	default:
		filename += ".bin"
	}

	obj := c.client.Bucket(c.bucketName).Object(filename)
	wc := obj.NewWriter(ctx)
	wc.ContentType = fileType
	wc.CacheControl = "public, max-age=86400"

	if _, err := io.Copy(wc, file); err != nil {
		return "", fmt.Errorf("failed to copy file to GCS: %v", err)
	}

	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %v", err)
	}

	if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		return "", fmt.Errorf("failed to set ACL: %v", err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", c.bucketName, filename), nil
}

func (c *CloudStorageClient) DeleteFile(ctx context.Context, fileURL string) error {
	objectName, err := c.objectNameFromURL(fileURL)
	if err != nil {
		return err
	}

	obj := c.client.Bucket(c.bucketName).Object(objectName)
	if err := obj.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete file: %v", err)
	}

	return nil
}

// DeleteFiles removes every listed object and reports the per-URL
// outcome. A failed URL never aborts the rest of the batch.
func (c *CloudStorageClient) DeleteFiles(ctx context.Context, fileURLs []string) service.MediaDeleteResult {
	var result service.MediaDeleteResult

	for _, fileURL := range fileURLs {
		if err := c.DeleteFile(ctx, fileURL); err != nil {
			logger.Warn("Media delete failed for %s: %v", fileURL, err)
			result.Failed = append(result.Failed, fileURL)
			continue
		}
		result.Deleted = append(result.Deleted, fileURL)
	}

	return result
}

func (c *CloudStorageClient) objectNameFromURL(fileURL string) (string, error) {
	// Expected URL format: https://storage.googleapis.com/bucket-name/file-path
	const prefix = "https://storage.googleapis.com/"
	if !strings.HasPrefix(fileURL, prefix) {
		return "", fmt.Errorf("invalid GCS URL format")
	}

	path := fileURL[len(prefix):]
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] != c.bucketName {
		return "", fmt.Errorf("invalid GCS URL format or bucket mismatch")
	}

	return parts[1], nil
}

func (c *CloudStorageClient) Close() error {
	return c.client.Close()
}
