// Package objstore wraps the Supabase Storage client used for the external
// persistence tier.
package objstore

import (
	"bytes"
	"fmt"
	"strings"

	storage "github.com/supabase-community/storage-go"
)

type Client struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewClient(supabaseURL, serviceKey, bucket string) (*Client, error) {
	baseURL := strings.TrimSuffix(supabaseURL, "/")
	client := storage.NewClient(baseURL+"/storage/v1", serviceKey, nil)

	return &Client{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
	}, nil
}

// Upload stores data under path and returns the public URL consumers can
// fetch it from.
func (c *Client) Upload(path, contentType string, data []byte) (string, error) {
	upsert := true
	_, err := c.client.UploadFile(c.bucket, path, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	return c.PublicURL(path), nil
}

func (c *Client) PublicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, c.bucket, path)
}

// Delete removes an object by its public URL. Unknown URLs are reported as
// errors so callers can log the failed release.
func (c *Client) Delete(publicURL string) error {
	prefix := fmt.Sprintf("%s/storage/v1/object/public/%s/", c.baseURL, c.bucket)
	path := strings.TrimPrefix(publicURL, prefix)
	if path == publicURL {
		return fmt.Errorf("url %q does not belong to bucket %q", publicURL, c.bucket)
	}
	if _, err := c.client.RemoveFile(c.bucket, []string{path}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
