// Package app wires the posting pipeline together and runs the daily
// schedule and reply loop.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"autopost/internal/config"
	"autopost/internal/history"
	"autopost/internal/images"
	"autopost/internal/llm"
	"autopost/internal/platform"
	"autopost/internal/platform/threads"
	"autopost/internal/platform/twitter"
	"autopost/internal/prompts"
	"autopost/internal/replygate"
	"autopost/internal/schedule"
)

// fallbackCaption is used when caption generation fails but the image is
// already uploaded.
const fallbackCaption = "What do you think?"

// fallbackThreadText stands in for the original post text when it cannot
// be fetched for reply context.
const fallbackThreadText = "Check out my latest post!"

// defaultReplyInterval is how often the reply loop checks for new
// comments.
const defaultReplyInterval = 15 * time.Minute

// engagementQuestions are appended to image captions that do not already
// end with a question, to invite comments.
var engagementQuestions = []string{
	"Honest thoughts?",
	"What would you do here?",
	"Should I post more like this or no?",
	"Is this too much or just right?",
	"Be real, what do you think?",
	"Anyone else into this?",
}

// AutoPoster is the top-level application: it generates content, posts it
// to the enabled platforms on a daily schedule, and replies to comments.
type AutoPoster struct {
	logger *slog.Logger
	cfg    *config.Config

	generator  *llm.Generator
	publishers []platform.Publisher
	threads    *threads.Client

	fetcher  *images.Fetcher
	uploader *images.Uploader
	ledger   *images.UsedLedger

	store   *history.Store
	counter *history.DailyCounter

	gate          *replygate.Gate
	replyInterval time.Duration

	rng *rand.Rand
}

// New builds the full pipeline from configuration. Platforms without
// credentials are skipped with a warning rather than failing startup.
func New(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*AutoPoster, error) {
	if logger == nil {
		logger = slog.Default()
	}

	a := &AutoPoster{
		logger:        logger,
		cfg:           cfg,
		replyInterval: defaultReplyInterval,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if cfg.Replies.CheckIntervalMin > 0 {
		a.replyInterval = time.Duration(cfg.Replies.CheckIntervalMin) * time.Minute
	}

	if err := a.initLLM(ctx); err != nil {
		return nil, err
	}
	if err := a.initImages(); err != nil {
		return nil, err
	}
	if err := a.initPlatforms(); err != nil {
		return nil, err
	}
	if err := a.initHistory(); err != nil {
		return nil, err
	}
	if err := a.initReplies(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *AutoPoster) initLLM(ctx context.Context) error {
	persona, err := prompts.LoadPersona(a.cfg.LLM.PersonaFile)
	if err != nil {
		return err
	}
	seeds := llm.LoadSeeds(a.logger, a.cfg.LLM.PromptsFile, a.cfg.LLM.StoriesFile)

	var client llm.Client
	switch a.cfg.LLM.Provider {
	case "gemini":
		client, err = llm.NewGeminiClient(ctx, a.cfg.LLM.APIKey, a.cfg.LLM.Model, a.logger)
		if err != nil {
			return err
		}
	default:
		client = llm.NewOpenAIClient(a.cfg.LLM.APIKey, a.cfg.LLM.Model, a.logger)
	}

	a.generator = llm.NewGenerator(a.logger, client, persona, seeds, a.cfg.LLM.MaxTokens, a.cfg.LLM.Temperature)
	return nil
}

func (a *AutoPoster) initImages() error {
	fetcher, err := images.NewFetcher(a.logger, a.cfg.Images.Folder, a.cfg.Images.FileExtensions)
	if err != nil {
		return fmt.Errorf("init image library: %w", err)
	}
	a.fetcher = fetcher
	a.uploader = images.NewUploader(a.logger, a.cfg.Images.UploadService, a.cfg.Images.UploadAPIKey)
	a.ledger = images.OpenLedger(a.logger, "used_images.json")
	return nil
}

func (a *AutoPoster) initPlatforms() error {
	if a.cfg.Platforms.Threads {
		if !a.cfg.Threads.Configured() {
			a.logger.Warn("threads enabled but credentials not provided, skipping")
		} else {
			a.threads = threads.New(a.logger, a.cfg.Threads.AccessToken, a.cfg.Threads.UserID, "")
			a.publishers = append(a.publishers, a.threads)
		}
	}
	if a.cfg.Platforms.Twitter {
		if !a.cfg.Twitter.Configured() {
			a.logger.Warn("twitter enabled but credentials not provided, skipping")
		} else {
			a.publishers = append(a.publishers, twitter.New(a.logger,
				a.cfg.Twitter.APIKey, a.cfg.Twitter.APISecret,
				a.cfg.Twitter.AccessToken, a.cfg.Twitter.AccessTokenSecret))
		}
	}
	if len(a.publishers) == 0 {
		return fmt.Errorf("no platform has credentials configured")
	}
	return nil
}

func (a *AutoPoster) initHistory() error {
	store, err := history.NewStore(filepath.Join(a.cfg.DataDir, "history.db"), a.logger)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	a.store = store
	a.counter = history.NewDailyCounter(a.logger, store)
	return nil
}

func (a *AutoPoster) initReplies() error {
	if a.threads == nil || !a.cfg.Threads.EnableAutoReplies {
		return nil
	}

	now := time.Now()
	counters, err := replygate.OpenCounterStore(filepath.Join(a.cfg.DataDir, "reply_stats.json"), now)
	if err != nil {
		return fmt.Errorf("open reply counters: %w", err)
	}
	dedup, err := replygate.OpenDedupStore(filepath.Join(a.cfg.DataDir, "replied_comments.json"))
	if err != nil {
		return fmt.Errorf("open replied comments: %w", err)
	}

	limits := replygate.Limits{
		MaxPerDay:    a.cfg.Replies.MaxPerDay,
		MaxPerThread: a.cfg.Replies.MaxPerThread,
		MaxPerUser:   a.cfg.Replies.MaxPerUser,
		MinDelay:     time.Duration(a.cfg.Replies.MinDelaySec) * time.Second,
		MaxDelay:     time.Duration(a.cfg.Replies.MaxDelaySec) * time.Second,
	}

	a.gate = replygate.New(a.logger, counters, dedup, a.threads, limits, "", a.cfg.Threads.UserID)
	a.logger.Info("auto-reply system initialized")
	return nil
}

// Close releases held resources.
func (a *AutoPoster) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// RepliesEnabled reports whether the auto-reply system is active.
func (a *AutoPoster) RepliesEnabled() bool { return a.gate != nil }

// Verify checks credentials for every configured platform and the LLM
// provider.
func (a *AutoPoster) Verify(ctx context.Context) error {
	for _, p := range a.publishers {
		if err := p.Verify(ctx); err != nil {
			return fmt.Errorf("%s: %w", p.Name(), err)
		}
	}
	if err := a.generator.Verify(ctx); err != nil {
		return fmt.Errorf("llm provider: %w", err)
	}
	return nil
}

// PostCycle generates one post of the given kind and publishes it to
// every configured platform. KindAuto defers the choice to the daily
// counter. Returns true when every platform accepted the post.
func (a *AutoPoster) PostCycle(ctx context.Context, kind schedule.PostKind) bool {
	cycleID := uuid.Must(uuid.NewV7()).String()
	logger := a.logger.With("cycle_id", cycleID)

	if kind == schedule.KindAuto {
		chosen, ok := a.counter.ChooseKind(a.cfg.Schedule.TextPostsPerDay, a.cfg.Schedule.ImagePostsPerDay)
		if !ok {
			logger.Info("daily post limits reached")
			return false
		}
		kind = schedule.PostKind(chosen)
	}

	switch kind {
	case schedule.KindImage:
		return a.postImage(ctx, logger, cycleID)
	default:
		return a.postText(ctx, logger, cycleID)
	}
}

// postText generates and publishes a text-only post.
func (a *AutoPoster) postText(ctx context.Context, logger *slog.Logger, cycleID string) bool {
	logger.Info("generating text post")
	text, err := a.generator.GeneratePost(ctx)
	if err != nil {
		logger.Error("content generation failed", "error", err)
		return false
	}

	ok, published := a.publishAll(ctx, logger, platform.Post{Text: text})
	if ok {
		a.counter.RecordSuccess(string(schedule.KindText))
		a.recordHistory(logger, cycleID, schedule.KindText, text, "", published)
	}
	return ok
}

// postImage selects an unused image, uploads it, generates a caption, and
// publishes. Missing images, upload failures, and an exhausted library all
// degrade to a text post.
func (a *AutoPoster) postImage(ctx context.Context, logger *slog.Logger, cycleID string) bool {
	img, ok := a.fetcher.RandomUnused(a.ledger.Exclude())
	if !ok {
		logger.Warn("no images available, falling back to text post")
		return a.postText(ctx, logger, cycleID)
	}
	logger.Info("selected image", "image", img.Name)

	imageURL, err := a.uploader.Upload(ctx, img.FullPath)
	if err != nil {
		logger.Warn("image upload failed, falling back to text post", "error", err)
		return a.postText(ctx, logger, cycleID)
	}

	caption, err := a.generator.GenerateCaption(ctx, img.FullPath)
	if err != nil {
		logger.Warn("caption generation failed, using fallback", "error", err)
		caption = fallbackCaption
	}
	caption = a.withEngagementQuestion(caption)

	post := platform.Post{Text: caption, ImageURL: imageURL, ImagePath: img.FullPath}
	ok, published := a.publishAll(ctx, logger, post)

	// The ledger only advances when Threads took the image, so a failed
	// cycle can retry the same file.
	for _, name := range published {
		if name == "threads" {
			if err := a.ledger.Record(img.RelPath); err != nil {
				logger.Warn("failed to record used image", "error", err)
			}
			break
		}
	}

	if ok {
		a.counter.RecordSuccess(string(schedule.KindImage))
		a.recordHistory(logger, cycleID, schedule.KindImage, caption, img.RelPath, published)
	}
	return ok
}

// publishAll posts to every configured platform, returning overall success
// and the names of platforms that accepted the post.
func (a *AutoPoster) publishAll(ctx context.Context, logger *slog.Logger, post platform.Post) (bool, []string) {
	allOK := true
	var published []string
	for _, p := range a.publishers {
		logger.Info("posting", "platform", p.Name())
		if _, err := p.Publish(ctx, post); err != nil {
			logger.Error("post failed", "platform", p.Name(), "error", err)
			allOK = false
			continue
		}
		published = append(published, p.Name())
	}
	if allOK {
		logger.Info("post published", "platforms", strings.Join(published, ","))
	}
	return allOK, published
}

func (a *AutoPoster) recordHistory(logger *slog.Logger, cycleID string, kind schedule.PostKind, caption, imagePath string, platforms []string) {
	err := a.store.Record(history.Post{
		CycleID:   cycleID,
		Kind:      string(kind),
		Caption:   caption,
		ImagePath: imagePath,
		Platforms: strings.Join(platforms, ","),
		PostedAt:  time.Now(),
	})
	if err != nil {
		logger.Warn("failed to record post history", "error", err)
	}
}

// withEngagementQuestion appends a question to captions that do not
// already contain one.
func (a *AutoPoster) withEngagementQuestion(caption string) string {
	if strings.Contains(caption, "?") {
		return caption
	}
	q := engagementQuestions[a.rng.Intn(len(engagementQuestions))]
	return caption + " " + q
}

// ProcessReplies runs one reply cycle: pick the first eligible comment on
// a recent thread, generate a reply, post it, and record it.
func (a *AutoPoster) ProcessReplies(ctx context.Context) {
	if a.gate == nil {
		return
	}
	a.logger.Info("checking for replies to process")

	if !a.gate.CanReplyNow() {
		return
	}

	candidates, err := a.gate.SelectCandidates(ctx, 10, 10)
	if err != nil {
		a.logger.Error("failed to fetch reply candidates", "error", err)
		return
	}
	if len(candidates) == 0 {
		a.logger.Info("no unreplied comments found")
		return
	}
	a.logger.Info("found unreplied comments", "count", len(candidates))

	c := candidates[0]
	a.logger.Info("processing comment", "author", c.AuthorUsername, "comment_id", c.ReplyID)

	postText, err := a.threads.ThreadText(ctx, c.ThreadID)
	if err != nil || postText == "" {
		postText = fallbackThreadText
	}

	replyText, err := a.generator.GenerateReply(ctx, postText, c.ReplyText, c.AuthorUsername)
	if err != nil {
		a.logger.Warn("reply generation failed or was filtered", "error", err)
		return
	}

	replyID, err := a.threads.PostReply(ctx, c.ReplyID, replyText)
	if err != nil {
		a.logger.Error("failed to post reply", "error", err)
		return
	}

	if err := a.gate.MarkReplied(c.ReplyID, c.ThreadID, c.AuthorID); err != nil {
		a.logger.Warn("failed to record reply", "error", err)
	}
	a.logger.Info("reply posted", "reply_id", replyID)
}

// buildPlan creates the daily posting plan from configuration.
func (a *AutoPoster) buildPlan() []schedule.Slot {
	sc := a.cfg.Schedule
	if !sc.RandomTimesEnabled() {
		return schedule.FixedPlan(sc.PostTime)
	}
	return schedule.BuildDailyPlan(a.rng, sc.TextPostsPerDay, sc.ImagePostsPerDay, sc.WeightedRandomEnabled())
}

// Run posts once immediately, then serves the daily schedule and the reply
// loop until the context is cancelled.
func (a *AutoPoster) Run(ctx context.Context) error {
	plan := a.buildPlan()
	for _, slot := range plan {
		a.logger.Info("scheduled post", "kind", slot.Kind, "time", slot.TimeOfDay)
	}
	dispatcher := schedule.NewDispatcher(a.logger, plan, time.Minute)

	a.logger.Info("posting initial content")
	a.PostCycle(ctx, schedule.KindAuto)

	if a.gate != nil {
		go a.replyLoop(ctx)
	}

	a.logger.Info("autopost is running")
	dispatcher.Run(ctx, func(ctx context.Context, kind schedule.PostKind) bool {
		return a.PostCycle(ctx, kind)
	})
	return ctx.Err()
}

func (a *AutoPoster) replyLoop(ctx context.Context) {
	ticker := time.NewTicker(a.replyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.ProcessReplies(ctx)
		}
	}
}
