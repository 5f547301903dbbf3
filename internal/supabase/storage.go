package supabase

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	storage "github.com/supabase-community/storage-go"
)

// StorageClient stores normalised inputs in a public Supabase bucket.
type StorageClient struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

// NewStorageClient reuses the storage client that comes with the Supabase client.
func NewStorageClient(c *Client, bucket string) *StorageClient {
	return &StorageClient{
		client:  c.Supabase.Storage,
		bucket:  bucket,
		baseURL: strings.TrimSuffix(c.Config.URL, "/"),
	}
}

func (s *StorageClient) Upload(_ context.Context, key string, data []byte, contentType string) (string, error) {
	upsert := true
	_, err := s.client.UploadFile(s.bucket, key, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	return s.GetPublicURL(key), nil
}

func (s *StorageClient) GetPublicURL(key string) string {
	return PublicObjectURL(s.baseURL, s.bucket, key)
}

func (s *StorageClient) Delete(_ context.Context, key string) error {
	if _, err := s.client.RemoveFile(s.bucket, []string{key}); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// PublicObjectURL builds the public URL of an object in a public bucket.
func PublicObjectURL(baseURL, bucket, key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", strings.TrimSuffix(baseURL, "/"), bucket, key)
}
