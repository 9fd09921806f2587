// Package blobstore uploads binary attachments (images, video, PDF) to the
// external media host. Unlike the content-addressed store, a failure here is
// surfaced to the caller: the attachment is the content the user meant to
// share, so the publish aborts rather than degrading.
package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/notemoire/sociva/src/webclient"
)

const defaultTimeout = 60 * time.Second

// Config describes the media host account.
type Config struct {
	Endpoint     string // e.g. https://api.cloudinary.com/v1_1/<cloud>
	UploadPreset string
}

// UploadError wraps any failure of the media host.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string { return "attachment upload: " + e.Err.Error() }
func (e *UploadError) Unwrap() error { return e.Err }

type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg, httpClient: webclient.NewDefault(defaultTimeout)}
}

// Upload stores the attachment and returns its dereferenceable URL. PDFs go
// to the raw endpoint so the host preserves the bytes instead of running its
// image pipeline on them.
func (c *Client) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	endpoint := c.cfg.Endpoint + "/upload"
	if mimeType == "application/pdf" {
		endpoint = c.cfg.Endpoint + "/raw/upload"
	}

	body, contentType, err := c.form(data)
	if err != nil {
		return "", &UploadError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", &UploadError{Err: err}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &UploadError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &UploadError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &UploadError{Err: fmt.Errorf("host returned status %d", resp.StatusCode)}
	}

	var out struct {
		SecureURL string `json:"secure_url"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &UploadError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.SecureURL == "" {
		return "", &UploadError{Err: fmt.Errorf("host returned no url")}
	}
	return out.SecureURL, nil
}

func (c *Client) form(data []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", "attachment")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("upload_preset", c.cfg.UploadPreset); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
