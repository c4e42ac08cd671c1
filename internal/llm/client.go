// Package llm provides LLM client implementations and the content
// generation pipeline built on top of them.
package llm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Client is the interface that all LLM providers must implement.
type Client interface {
	// Complete sends a single-turn completion request and returns the
	// generated text.
	Complete(ctx context.Context, req Request) (string, error)

	// Verify checks that the provider is reachable and the API key works.
	Verify(ctx context.Context) error
}

// Request describes one completion request. Image is nil for text-only
// requests.
type Request struct {
	System      string
	User        string
	Image       *ImageAttachment
	MaxTokens   int
	Temperature float64
}

// ImageAttachment carries raw image bytes plus their MIME type for
// vision-capable requests.
type ImageAttachment struct {
	Data []byte
	MIME string
}

// LoadImage reads an image file into an attachment, deriving the MIME type
// from the file extension.
func LoadImage(path string) (*ImageAttachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return &ImageAttachment{Data: data, MIME: mimeForExt(filepath.Ext(path))}, nil
}

func mimeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
