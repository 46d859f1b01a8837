package client

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
)

// StorageClient archives recordings in a Google Cloud Storage bucket.
type StorageClient struct {
	client     *storage.Client
	bucketName string
}

// NewStorageClient creates a new storage client using application default
// credentials.
func NewStorageClient(ctx context.Context, bucketName string) (*StorageClient, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &StorageClient{
		client:     client,
		bucketName: bucketName,
	}, nil
}

// Close closes the client.
func (c *StorageClient) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Upload stores data under key and returns its gs:// URL.
func (c *StorageClient) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	w := c.client.Bucket(c.bucketName).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return c.ObjectURL(key), nil
}

// ObjectURL returns the gs:// URL for key.
func (c *StorageClient) ObjectURL(key string) string {
	return "gs://" + c.bucketName + "/" + key
}
