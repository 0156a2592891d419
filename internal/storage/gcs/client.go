package gcs

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
)

// Client uploads byte payloads to a Google Cloud Storage bucket and hands
// back publicly addressable URLs.
type Client struct {
	bucket     *storage.BucketHandle
	bucketName string
}

// New creates a new object storage client for the given bucket.
func New(ctx context.Context, bucketName string) (*Client, error) {
	gcsClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Client{
		bucket:     gcsClient.Bucket(bucketName),
		bucketName: bucketName,
	}, nil
}

// Upload writes data to the given object path with the given content type
// and returns the object's public URL.
func (c *Client) Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	w := c.bucket.Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close object writer: %w", err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", c.bucketName, objectPath), nil
}
