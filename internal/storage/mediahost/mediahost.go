// Package mediahost implements Storage against a third-party media host
// with a simple HTTP upload API: multipart POST to upload, DELETE by key.
package mediahost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/avelkov/account-service/internal/storage"
)

const defaultTimeout = 30 * time.Second

// Client talks to the media host over HTTP.
type Client struct {
	uploadURL string
	baseURL   string
	apiKey    string
	http      *http.Client
}

var _ storage.Storage = (*Client)(nil)

// New creates a media host client. uploadURL receives multipart uploads;
// baseURL is where stored files are served from. apiKey may be empty when
// the host does not require one.
func New(uploadURL, baseURL, apiKey string) *Client {
	return &Client{
		uploadURL: strings.TrimSuffix(uploadURL, "/"),
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		apiKey:    apiKey,
		http:      &http.Client{Timeout: defaultTimeout},
	}
}

type uploadResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func (c *Client) Upload(ctx context.Context, f storage.File) (*storage.UploadResult, error) {
	body, contentType, err := multipartBody(f)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, body)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload to media host: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("media host upload failed: status %d", resp.StatusCode)
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode media host response: %w", err)
	}
	if out.URL == "" {
		return nil, fmt.Errorf("media host response missing url")
	}
	if out.Key == "" {
		out.Key = out.URL[strings.LastIndex(out.URL, "/")+1:]
	}

	return &storage.UploadResult{Key: out.Key, URL: out.URL}, nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.uploadURL+"/"+key, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("delete from media host: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("media host delete failed: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) URL(key string) string {
	return c.baseURL + "/" + key
}

// multipartBody buffers the file into a multipart form with a single
// "file" field. Avatar and cover images are small, so buffering is fine.
func multipartBody(f storage.File) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", f.Name)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f.Content); err != nil {
		return nil, "", fmt.Errorf("copy upload body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}
