// Package gcs implements port.ObjectStorage on Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"avplan/internal/config"
	"avplan/internal/port"
)

type gcsClient struct {
	client *storage.Client
}

// NewGCSClient connects with the configured service account file, or with
// application default credentials when none is set.
func NewGCSClient(ctx context.Context, cfg *config.GCSConfig) (port.ObjectStorage, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return &gcsClient{client: client}, nil
}

func (c *gcsClient) Upload(ctx context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	obj := c.client.Bucket(input.Bucket).Object(input.Key)
	w := obj.NewWriter(ctx)
	w.ContentType = input.ContentType
	w.Metadata = input.Metadata

	if _, err := io.Copy(w, input.Body); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("gcs upload %s: %w", input.Key, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gcs finalize %s: %w", input.Key, err)
	}

	out := &port.UploadOutput{Location: fmt.Sprintf("gs://%s/%s", input.Bucket, input.Key)}
	if attrs := w.Attrs(); attrs != nil {
		out.ETag = attrs.Etag
	}
	return out, nil
}

// Delete treats an already missing object as deleted.
func (c *gcsClient) Delete(ctx context.Context, bucket, key string) error {
	err := c.client.Bucket(bucket).Object(key).Delete(ctx)
	if err == nil || errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return nil
	}
	return fmt.Errorf("gcs delete %s: %w", key, err)
}

// GetPresignedURL returns a V4 signed GET URL using the client's credentials.
func (c *gcsClient) GetPresignedURL(ctx context.Context, bucket, key string, expirySeconds int64) (string, error) {
	url, err := c.client.Bucket(bucket).SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(time.Duration(expirySeconds) * time.Second),
		QueryParameters: map[string][]string{
			"response-content-disposition": {fmt.Sprintf("attachment; filename=%q", path.Base(key))},
		},
	})
	if err != nil {
		return "", fmt.Errorf("gcs sign url: %w", err)
	}
	return url, nil
}
