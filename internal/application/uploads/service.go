package uploads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"
)

// StorageClient is the slice of Supabase Storage the service needs.
type StorageClient interface {
	PutObject(ctx context.Context, bucket, objectPath, contentType string, data []byte) error
}

// HTTPClient is a StorageClient backed by the Supabase Storage REST API.
type HTTPClient struct {
	BaseURL   string
	SecretKey string
	Client    *http.Client
}

func (c *HTTPClient) PutObject(ctx context.Context, bucket, objectPath, contentType string, data []byte) error {
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 20 * time.Second}
	}
	if c.BaseURL == "" {
		return fmt.Errorf("supabase: SUPABASE_URL is not set")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("supabase: SUPABASE_SECRET_KEY is not set")
	}
	base := strings.TrimRight(c.BaseURL, "/")
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", base, url.PathEscape(bucket), objectPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	// Storage wants both apikey and Bearer with the service_role key.
	req.Header.Set("apikey", c.SecretKey)
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("supabase request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		bodyStr := string(body)
		if resp.StatusCode == 400 || resp.StatusCode == 403 {
			if strings.Contains(bodyStr, "Invalid Compact JWS") || strings.Contains(bodyStr, "Unauthorized") {
				return fmt.Errorf("supabase storage requires the service_role key, not the anon key (raw body: %s)", bodyStr)
			}
		}
		return fmt.Errorf("supabase error: status %d body: %s", resp.StatusCode, bodyStr)
	}
	return nil
}

// Service archives uploaded files.
type Service struct {
	Client      StorageClient
	SupabaseURL string
	Bucket      string
	now         func() time.Time
}

// UploadResult locates an archived object.
type UploadResult struct {
	PublicURL string `json:"publicUrl"`
	Path      string `json:"path"`
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeName reduces a client-supplied file name to a storage-safe base name.
func SafeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Trim(unsafeName.ReplaceAllString(name, "_"), "._")
	if name == "" {
		return "upload"
	}
	return name
}

// ArchiveCV stores a careers CV under cvs/ with a timestamp prefix.
func (s *Service) ArchiveCV(ctx context.Context, fileName, contentType string, data []byte) (*UploadResult, error) {
	if s.Client == nil || s.Bucket == "" {
		return nil, fmt.Errorf("cv archive is not configured")
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	objectPath := fmt.Sprintf("cvs/%d-%s", now().UnixMilli(), SafeName(fileName))
	if err := s.Client.PutObject(ctx, s.Bucket, objectPath, contentType, data); err != nil {
		return nil, err
	}
	publicBase := strings.TrimRight(s.SupabaseURL, "/")
	return &UploadResult{
		PublicURL: fmt.Sprintf("%s/storage/v1/object/public/%s/%s", publicBase, s.Bucket, objectPath),
		Path:      objectPath,
	}, nil
}
