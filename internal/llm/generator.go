package llm

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"autopost/internal/prompts"
)

// Published length limits.
const (
	MaxPostLength    = 500
	MaxCaptionLength = 150
	MaxReplyLength   = 160

	// Captions and replies cap tokens hard to keep output short.
	shortMaxTokens = 100

	maxRetries = 1
)

// Generator produces posts, image captions, and comment replies using a
// Client, applying prompt seeding, length clamping, and safety filters.
type Generator struct {
	logger      *slog.Logger
	client      Client
	persona     prompts.Persona
	seeds       Seeds
	maxTokens   int
	temperature float64
	rng         *rand.Rand
}

// NewGenerator creates a content generator on top of the given provider
// client.
func NewGenerator(logger *slog.Logger, client Client, persona prompts.Persona, seeds Seeds, maxTokens int, temperature float64) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	if maxTokens <= 0 {
		maxTokens = 500
	}
	return &Generator{
		logger:      logger,
		client:      client,
		persona:     persona,
		seeds:       seeds,
		maxTokens:   maxTokens,
		temperature: temperature,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GeneratePost produces a single text post seeded from the story library.
func (g *Generator) GeneratePost(ctx context.Context) (string, error) {
	category, seed := g.seeds.RandomStory(g.rng)
	g.logger.Debug("generating post", "category", category, "seed", truncate(seed, 80))

	return g.generate(ctx, Request{
		System:      g.persona.System,
		User:        prompts.PostUser(seed),
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	}, MaxPostLength, false)
}

// GenerateCaption produces a short caption for the image at path using a
// vision request.
func (g *Generator) GenerateCaption(ctx context.Context, imagePath string) (string, error) {
	img, err := LoadImage(imagePath)
	if err != nil {
		return "", err
	}

	style := g.seeds.RandomPrompt(g.rng)
	g.logger.Debug("generating caption", "image", imagePath, "style", truncate(style, 80))

	return g.generate(ctx, Request{
		System:      g.persona.System,
		User:        prompts.CaptionUser(style),
		Image:       img,
		MaxTokens:   shortMaxTokens,
		Temperature: g.temperature,
	}, MaxCaptionLength, false)
}

// GenerateReply produces a short reply to a comment under one of our posts.
// Generic throwaway outputs are rejected and retried once.
func (g *Generator) GenerateReply(ctx context.Context, postText, commentText, username string) (string, error) {
	return g.generate(ctx, Request{
		System:      g.persona.System,
		User:        prompts.ReplyUser(postText, commentText, username),
		MaxTokens:   shortMaxTokens,
		Temperature: g.temperature,
	}, MaxReplyLength, true)
}

// generate runs the request with cleanup, clamping, and safety filtering,
// retrying once when the output fails a filter.
func (g *Generator) generate(ctx context.Context, req Request, maxLen int, rejectGeneric bool) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		raw, err := g.client.Complete(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}

		text := ClampLength(CleanResponse(raw), maxLen)

		if IsUnsafeContent(text) {
			g.logger.Warn("generated text failed safety filter, retrying")
			lastErr = fmt.Errorf("generated text failed safety filter")
			continue
		}
		if rejectGeneric && IsTooGeneric(text) {
			g.logger.Warn("generated text too generic, retrying")
			lastErr = fmt.Errorf("generated text too generic")
			continue
		}
		if strings.TrimSpace(text) == "" {
			lastErr = fmt.Errorf("generated text is empty")
			continue
		}

		return text, nil
	}
	return "", fmt.Errorf("generate content: %w", lastErr)
}

// Verify checks the underlying provider.
func (g *Generator) Verify(ctx context.Context) error {
	return g.client.Verify(ctx)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
