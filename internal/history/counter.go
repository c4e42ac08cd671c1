package history

import (
	"log/slog"
	"sync"
	"time"
)

// DailyCounter tracks how many text and image posts have been made
// today and picks the next post kind for auto-mode slots. Counters
// reset whenever the local date rolls over, checked lazily on each
// call. On construction the counters are seeded from the post history
// store, so a restart mid-day does not reopen exhausted quotas.
type DailyCounter struct {
	logger *slog.Logger

	mu         sync.Mutex
	textToday  int
	imageToday int
	resetDay   string

	now func() time.Time // replaced in tests
}

// NewDailyCounter creates a counter seeded from the store's counts for
// today. A nil store starts from zero (used by one-shot test modes).
func NewDailyCounter(logger *slog.Logger, store *Store) *DailyCounter {
	if logger == nil {
		logger = slog.Default()
	}
	c := &DailyCounter{
		logger: logger,
		now:    time.Now,
	}
	c.resetDay = c.now().Format("2006-01-02")

	if store != nil {
		text, image, err := store.CountsForDay(c.resetDay)
		if err != nil {
			// Start from zero rather than refuse to start; worst case we
			// post a few extra times today.
			logger.Warn("seeding daily counter from history failed", "error", err)
		} else {
			c.textToday = text
			c.imageToday = image
			if text > 0 || image > 0 {
				logger.Info("daily counter seeded from history", "text", text, "image", image)
			}
		}
	}
	return c
}

// resetIfNewDayLocked zeroes the counters when the date has changed.
// Callers must hold c.mu.
func (c *DailyCounter) resetIfNewDayLocked() {
	day := c.now().Format("2006-01-02")
	if day != c.resetDay {
		c.textToday = 0
		c.imageToday = 0
		c.resetDay = day
	}
}

// ChooseKind picks the next post kind for an auto-mode slot: "text"
// while the text quota has room, then "image" while the image quota
// has room. ok is false when both quotas are exhausted for the day;
// the caller should skip the cycle, not treat it as an error.
// The date-rollover reset is applied before the quota check.
func (c *DailyCounter) ChooseKind(textQuota, imageQuota int) (kind string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetIfNewDayLocked()

	switch {
	case c.textToday < textQuota:
		return "text", true
	case c.imageToday < imageQuota:
		return "image", true
	default:
		return "", false
	}
}

// RecordSuccess advances the counter for one aggregate-successful post.
func (c *DailyCounter) RecordSuccess(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetIfNewDayLocked()

	switch kind {
	case "text":
		c.textToday++
	case "image":
		c.imageToday++
	}
}

// Counts returns today's totals, applying the rollover reset first.
func (c *DailyCounter) Counts() (textPosts, imagePosts int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetIfNewDayLocked()
	return c.textToday, c.imageToday
}
