package storage

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	storage_go "github.com/supabase-community/storage-go"
	supa "github.com/supabase-community/supabase-go"
)

// Client stages uploaded media in a Supabase storage bucket. The pipeline
// only relies on put-by-key plus the ability to hand out a signed upload URL
// and a fetchable public URL; nothing else about the storage backend leaks
// out of this package.
type Client struct {
	supabase *supa.Client
	baseURL  string
	bucket   string
}

// NewClient wraps an initialized Supabase client for the given bucket.
func NewClient(supabase *supa.Client, baseURL, bucket string) *Client {
	return &Client{
		supabase: supabase,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		bucket:   bucket,
	}
}

// CreateUploadURL reserves a destination and returns a signed URL the caller
// PUTs the file to, plus the upload token embedded in it.
func (c *Client) CreateUploadURL(path string) (string, string, error) {
	resp, err := c.supabase.Storage.CreateSignedUploadUrl(c.bucket, path)
	if err != nil {
		return "", "", fmt.Errorf("create signed upload url for %q: %w", path, err)
	}
	uploadURL := c.absoluteURL(resp.Url)
	token := ""
	if parsed, err := url.Parse(uploadURL); err == nil {
		token = parsed.Query().Get("token")
	}
	return uploadURL, token, nil
}

// Upload writes media bytes directly to the reserved destination. Used by
// the direct-receipt staging strategy; the signed-URL strategy bypasses the
// backend entirely.
func (c *Client) Upload(path string, media io.Reader, contentType string) error {
	options := storage_go.FileOptions{}
	if contentType != "" {
		options.ContentType = &contentType
	}
	if _, err := c.supabase.Storage.UploadFile(c.bucket, path, media, options); err != nil {
		return fmt.Errorf("upload %q: %w", path, err)
	}
	return nil
}

// PublicURL returns the fetchable URL the transcription service downloads
// the staged file from.
func (c *Client) PublicURL(path string) string {
	resp := c.supabase.Storage.GetPublicUrl(c.bucket, path)
	return c.absoluteURL(resp.SignedURL)
}

// Supabase sometimes returns bucket-relative URLs; make them absolute so
// external services can fetch them.
func (c *Client) absoluteURL(raw string) string {
	if raw == "" || strings.HasPrefix(raw, "http") {
		return raw
	}
	if strings.HasPrefix(raw, "/") {
		return c.baseURL + raw
	}
	return c.baseURL + "/" + raw
}
