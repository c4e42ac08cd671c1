// Package twitter is a client for the Twitter/X API. Tweets go through the
// v2 endpoint; media upload still requires the v1.1 endpoint.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"autopost/internal/httpkit"
	"autopost/internal/platform"
)

const (
	defaultAPIBaseURL    = "https://api.twitter.com"
	defaultUploadBaseURL = "https://upload.twitter.com"

	// maxTweetLength is the standard tweet character limit.
	maxTweetLength = 280
)

// Client talks to the Twitter API for one account.
type Client struct {
	logger     *slog.Logger
	signer     *oauth1Signer
	httpClient *http.Client

	apiBaseURL    string
	uploadBaseURL string
}

var _ platform.Publisher = (*Client)(nil)

// New creates a Twitter client with OAuth 1.0a user credentials.
func New(logger *slog.Logger, apiKey, apiSecret, accessToken, accessTokenSecret string) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		logger:        logger.With("platform", "twitter"),
		signer:        newSigner(apiKey, apiSecret, accessToken, accessTokenSecret),
		httpClient:    httpkit.NewClient(),
		apiBaseURL:    defaultAPIBaseURL,
		uploadBaseURL: defaultUploadBaseURL,
	}
}

// Name implements platform.Publisher.
func (c *Client) Name() string { return "twitter" }

type tweetRequest struct {
	Text  string `json:"text"`
	Media *struct {
		MediaIDs []string `json:"media_ids"`
	} `json:"media,omitempty"`
	Reply *struct {
		InReplyToTweetID string `json:"in_reply_to_tweet_id"`
	} `json:"reply,omitempty"`
}

type tweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// Publish posts a single tweet, uploading the local image first when one is
// set. A failed image upload degrades to a text-only tweet.
func (c *Client) Publish(ctx context.Context, post platform.Post) (string, error) {
	var mediaID string
	if post.ImagePath != "" {
		id, err := c.UploadMedia(ctx, post.ImagePath)
		if err != nil {
			c.logger.Warn("media upload failed, posting without image", "error", err)
		} else {
			mediaID = id
		}
	}
	return c.createTweet(ctx, clampTweet(post.Text), mediaID, "")
}

// PublishThread posts a chain of tweets, each replying to the previous one.
// The image, if any, attaches to the first tweet. Returns the ID of the
// first tweet.
func (c *Client) PublishThread(ctx context.Context, texts []string, imagePath string) (string, error) {
	if len(texts) == 0 {
		return "", fmt.Errorf("no tweets to post")
	}

	var mediaID string
	if imagePath != "" {
		id, err := c.UploadMedia(ctx, imagePath)
		if err != nil {
			c.logger.Warn("media upload failed, posting without image", "error", err)
		} else {
			mediaID = id
		}
	}

	firstID, err := c.createTweet(ctx, clampTweet(texts[0]), mediaID, "")
	if err != nil {
		return "", err
	}

	previousID := firstID
	for i, text := range texts[1:] {
		id, err := c.createTweet(ctx, clampTweet(text), "", previousID)
		if err != nil {
			return "", fmt.Errorf("post tweet %d of %d: %w", i+2, len(texts), err)
		}
		previousID = id
	}

	c.logger.Info("thread posted", "tweets", len(texts), "first_id", firstID)
	return firstID, nil
}

func (c *Client) createTweet(ctx context.Context, text, mediaID, inReplyTo string) (string, error) {
	body := tweetRequest{Text: text}
	if mediaID != "" {
		body.Media = &struct {
			MediaIDs []string `json:"media_ids"`
		}{MediaIDs: []string{mediaID}}
	}
	if inReplyTo != "" {
		body.Reply = &struct {
			InReplyToTweetID string `json:"in_reply_to_tweet_id"`
		}{InReplyToTweetID: inReplyTo}
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal tweet: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBaseURL+"/2/tweets", bytes.NewReader(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	c.signer.sign(req, nil)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create tweet: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("create tweet: status %d: %s", resp.StatusCode, httpkit.ReadErrorBody(resp.Body, 512))
	}

	var result tweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("create tweet: decode response: %w", err)
	}
	if result.Data.ID == "" {
		return "", fmt.Errorf("create tweet: no ID in response")
	}

	c.logger.Info("tweet posted", "tweet_id", result.Data.ID)
	return result.Data.ID, nil
}

// UploadMedia uploads an image via the v1.1 media endpoint and returns its
// media ID for attachment to a tweet.
func (c *Client) UploadMedia(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image %s: %w", path, err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("media", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(data); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadBaseURL+"/1.1/media/upload.json", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	c.signer.sign(req, nil)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload media: status %d: %s", resp.StatusCode, httpkit.ReadErrorBody(resp.Body, 512))
	}

	var result struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("upload media: decode response: %w", err)
	}
	if result.MediaIDString == "" {
		return "", fmt.Errorf("upload media: no media ID in response")
	}

	c.logger.Debug("media uploaded", "media_id", result.MediaIDString)
	return result.MediaIDString, nil
}

// Verify checks the credentials by fetching the authenticated user.
func (c *Client) Verify(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+"/2/users/me", nil)
	if err != nil {
		return err
	}
	c.signer.sign(req, nil)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("verify credentials: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("verify credentials: status %d: %s", resp.StatusCode, httpkit.ReadErrorBody(resp.Body, 512))
	}

	var result struct {
		Data struct {
			Username string `json:"username"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("verify credentials: decode response: %w", err)
	}
	if result.Data.Username == "" {
		return fmt.Errorf("verify credentials: no user in response")
	}

	c.logger.Info("authenticated", "username", result.Data.Username)
	return nil
}

// clampTweet enforces the tweet character limit.
func clampTweet(text string) string {
	r := []rune(text)
	if len(r) <= maxTweetLength {
		return text
	}
	return string(r[:maxTweetLength-3]) + "..."
}
