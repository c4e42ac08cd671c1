package images

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"autopost/internal/httpkit"
)

// Upload service endpoints.
const (
	imgbbUploadURL = "https://api.imgbb.com/1/upload"
	imgurUploadURL = "https://api.imgur.com/3/image"
)

// Uploader pushes local image files to a public hosting service and
// returns the resulting URL. Threads requires images to be reachable
// by URL; it cannot accept a direct file upload.
type Uploader struct {
	logger  *slog.Logger
	service string // "imgbb" or "imgur"
	apiKey  string
	client  *http.Client

	// baseURL overrides the service endpoint in tests.
	baseURL string
}

// NewUploader creates an uploader for the given service. A missing API
// key is not fatal here, since the caller falls back to text posts, but
// it is worth a loud warning at startup.
func NewUploader(logger *slog.Logger, service, apiKey string) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	if service == "" {
		service = "imgbb"
	}
	if apiKey == "" {
		logger.Warn("image upload API key not set; image posts will fall back to text", "service", service)
	}
	return &Uploader{
		logger:  logger,
		service: service,
		apiKey:  apiKey,
		client:  httpkit.NewClient(),
	}
}

// Upload sends the file at path to the hosting service and returns its
// public URL. An empty string with a nil error never happens; failures
// are errors and the caller decides how to degrade.
func (u *Uploader) Upload(ctx context.Context, path string) (string, error) {
	if u.apiKey == "" {
		return "", fmt.Errorf("%s API key not configured", u.service)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image %s: %w", path, err)
	}

	switch u.service {
	case "imgur":
		return u.uploadImgur(ctx, filepath.Base(path), data)
	case "imgbb":
		return u.uploadImgbb(ctx, filepath.Base(path), data)
	default:
		return "", fmt.Errorf("unsupported upload service %q", u.service)
	}
}

func (u *Uploader) endpoint(def string) string {
	if u.baseURL != "" {
		return u.baseURL
	}
	return def
}

// multipartBody builds a multipart form with one file field plus any
// extra string fields.
func multipartBody(fileField, filename string, data []byte, fields map[string]string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	fw, err := w.CreateFormFile(fileField, filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func (u *Uploader) uploadImgbb(ctx context.Context, filename string, data []byte) (string, error) {
	body, contentType, err := multipartBody("image", filename, data, map[string]string{"key": u.apiKey})
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint(imgbbUploadURL), body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("imgbb upload: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("imgbb upload: status %d: %s", resp.StatusCode, httpkit.ReadErrorBody(resp.Body, 512))
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			URL   string `json:"url"`
			Image struct {
				URL string `json:"url"`
			} `json:"image"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("imgbb upload: decode response: %w", err)
	}

	url := result.Data.URL
	if url == "" {
		url = result.Data.Image.URL
	}
	if !result.Success || url == "" {
		return "", fmt.Errorf("imgbb upload: no URL in response")
	}

	u.logger.Info("image uploaded", "service", "imgbb", "url", url)
	return url, nil
}

func (u *Uploader) uploadImgur(ctx context.Context, filename string, data []byte) (string, error) {
	body, contentType, err := multipartBody("image", filename, data, nil)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint(imgurUploadURL), body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Client-ID "+u.apiKey)

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("imgur upload: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("imgur upload: status %d: %s", resp.StatusCode, httpkit.ReadErrorBody(resp.Body, 512))
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Link string `json:"link"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("imgur upload: decode response: %w", err)
	}
	if !result.Success || result.Data.Link == "" {
		return "", fmt.Errorf("imgur upload: no URL in response")
	}

	u.logger.Info("image uploaded", "service", "imgur", "url", result.Data.Link)
	return result.Data.Link, nil
}
