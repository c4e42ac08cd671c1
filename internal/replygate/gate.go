package replygate

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode"
)

// Gate enforces the reply rate limits and filters. It owns the counter
// and dedup stores; all methods are safe for concurrent use.
type Gate struct {
	logger *slog.Logger
	limits Limits
	source CommentSource

	// ownUsername and ownUserID identify the bot itself so its own
	// comments are never answered.
	ownUsername string
	ownUserID   string

	mu       sync.Mutex
	counters *CounterStore
	dedup    *DedupStore

	now func() time.Time // replaced in tests
}

// New creates a reply gate over the given stores and comment source.
func New(logger *slog.Logger, counters *CounterStore, dedup *DedupStore, source CommentSource, limits Limits, ownUsername, ownUserID string) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		logger:      logger,
		limits:      limits.withDefaults(),
		source:      source,
		ownUsername: ownUsername,
		ownUserID:   ownUserID,
		counters:    counters,
		dedup:       dedup,
		now:         time.Now,
	}
}

// CanReplyNow reports whether the daily cap and the minimum inter-reply
// spacing both permit a reply at this moment. It never mutates state.
func (g *Gate) CanReplyNow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.canReplyLocked()
}

func (g *Gate) canReplyLocked() bool {
	now := g.now()

	if count := g.counters.TodayCount(now); count >= g.limits.MaxPerDay {
		g.logger.Debug("daily reply limit reached", "count", count, "max", g.limits.MaxPerDay)
		return false
	}

	if last := g.counters.LastReplyTime(); !last.IsZero() {
		if elapsed := now.Sub(last); elapsed < g.limits.MinDelay {
			g.logger.Debug("too soon since last reply",
				"elapsed", elapsed.Truncate(time.Second),
				"min_delay", g.limits.MinDelay,
			)
			return false
		}
	}

	return true
}

// SelectCandidates collects up to maxResults answerable comments from
// the bot's most recent threads. It returns an empty slice, not an
// error, when rate limits forbid replying or nothing actionable is
// found. Thread and comment order from the source is preserved.
func (g *Gate) SelectCandidates(ctx context.Context, maxThreads, maxResults int) ([]Context, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	g.mu.Lock()
	ok := g.canReplyLocked()
	g.mu.Unlock()
	if !ok {
		return nil, nil
	}

	threadIDs, err := g.source.OwnThreads(ctx, maxThreads)
	if err != nil {
		return nil, err
	}
	if len(threadIDs) == 0 {
		g.logger.Debug("no recent threads found")
		return nil, nil
	}

	var candidates []Context
	for _, threadID := range threadIDs {
		if len(candidates) >= maxResults {
			break
		}

		g.mu.Lock()
		threadFull := g.counters.ThreadCount(threadID) >= g.limits.MaxPerThread
		g.mu.Unlock()
		if threadFull {
			continue
		}

		comments, err := g.source.ThreadReplies(ctx, threadID, 25)
		if err != nil {
			// One thread failing to fetch should not sink the cycle.
			g.logger.Warn("fetching thread comments failed", "thread_id", threadID, "error", err)
			continue
		}

		for _, c := range comments {
			if len(candidates) >= maxResults {
				break
			}
			if g.eligible(threadID, c) {
				candidates = append(candidates, Context{
					ThreadID:       threadID,
					ReplyID:        c.ID,
					ReplyText:      c.Text,
					AuthorUsername: c.AuthorUsername,
					AuthorID:       c.AuthorID,
					ParentID:       c.ParentID,
				})
			}
		}
	}

	return candidates, nil
}

// eligible applies the per-comment exclusion rules.
func (g *Gate) eligible(threadID string, c Comment) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.dedup.Contains(c.ID) {
		return false
	}
	if (g.ownUsername != "" && c.AuthorUsername == g.ownUsername) ||
		(g.ownUserID != "" && c.AuthorID == g.ownUserID) {
		return false
	}
	if IsLowValue(c.Text) {
		return false
	}
	if c.AuthorID != "" && g.counters.UserCount(threadID, c.AuthorID) >= g.limits.MaxPerUser {
		return false
	}
	return true
}

// MarkReplied records one successful reply: the comment joins the dedup
// set, the daily, thread, and user counters advance, and the last-reply
// timestamp moves to now. The mutations are applied under one lock and
// persisted before returning. Persistence failure is logged and
// reported but the in-memory state is already updated, so the current
// process keeps behaving correctly.
func (g *Gate) MarkReplied(replyID, threadID, authorID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.dedup.Add(replyID)
	g.counters.Record(threadID, authorID, g.now())

	var firstErr error
	if err := g.dedup.Save(); err != nil {
		g.logger.Error("persisting replied comments failed", "error", err)
		firstErr = err
	}
	if err := g.counters.Save(); err != nil {
		g.logger.Error("persisting reply stats failed", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	g.logger.Info("marked comment replied",
		"reply_id", replyID,
		"thread_id", threadID,
		"today", g.counters.TodayCount(g.now()),
	)
	return firstErr
}

// NextReplyDelay suggests a randomized pause before the next reply,
// drawn uniformly from [MinDelay, MaxDelay]. Callers that want to space
// replies out beyond the hard minimum can sleep this long; the gate
// itself only enforces MinDelay.
func (g *Gate) NextReplyDelay() time.Duration {
	span := g.limits.MaxDelay - g.limits.MinDelay
	if span <= 0 {
		return g.limits.MinDelay
	}
	return g.limits.MinDelay + time.Duration(rand.Int63n(int64(span)+1))
}

// lowValuePhrases are throwaway comments that never earn a reply,
// compared case-insensitively after trimming.
var lowValuePhrases = map[string]struct{}{
	"lol":   {},
	"🔥":     {},
	"❤️":    {},
	"👍":     {},
	"😍":     {},
	"💯":     {},
	"yesss": {},
	"yes":   {},
	"no":    {},
	"ok":    {},
	"okay":  {},
}

// IsLowValue reports whether a comment is too short or too generic to
// be worth answering: empty or whitespace, under 3 characters, a short
// run (≤5 chars) with no letter or digit (pure emoji or punctuation),
// or one of a fixed set of throwaway phrases.
func IsLowValue(text string) bool {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	if len(runes) < 3 {
		return true
	}

	if len(runes) <= 5 {
		hasAlnum := false
		for _, r := range trimmed {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				hasAlnum = true
				break
			}
		}
		if !hasAlnum {
			return true
		}
	}

	_, generic := lowValuePhrases[strings.ToLower(trimmed)]
	return generic
}
