// Package platform defines the contract social platform clients implement.
package platform

import "context"

// Post is one piece of content to publish. ImageURL is a publicly
// accessible URL for platforms that ingest media by URL; ImagePath is a
// local file for platforms that upload media directly. Both empty means a
// text-only post.
type Post struct {
	Text      string
	ImageURL  string
	ImagePath string
}

// Publisher is implemented by each platform client.
type Publisher interface {
	// Name identifies the platform in logs and history records.
	Name() string

	// Publish posts the content and returns the platform's post ID.
	Publish(ctx context.Context, post Post) (string, error)

	// Verify checks that the configured credentials work.
	Verify(ctx context.Context) error
}
