// Package replygate decides whether the bot may answer a given comment.
// It combines persistent rate-limit counters, a replied-comment
// deduplication set, and content-quality filters behind a single gate.
// All mutation goes through [Gate.MarkReplied] so that the counters,
// the dedup set, and the last-reply timestamp always move together.
package replygate

import (
	"context"
	"time"
)

// Default rate limits, overridable via [Limits].
const (
	DefaultMaxRepliesPerDay    = 20
	DefaultMaxRepliesPerThread = 3
	DefaultMaxRepliesPerUser   = 3
	DefaultMinReplyDelay       = 2 * time.Minute
	DefaultMaxReplyDelay       = 15 * time.Minute
)

// Limits holds the reply rate limits. Zero fields fall back to the
// package defaults.
type Limits struct {
	MaxPerDay    int
	MaxPerThread int
	MaxPerUser   int
	MinDelay     time.Duration
	MaxDelay     time.Duration
}

func (l Limits) withDefaults() Limits {
	if l.MaxPerDay == 0 {
		l.MaxPerDay = DefaultMaxRepliesPerDay
	}
	if l.MaxPerThread == 0 {
		l.MaxPerThread = DefaultMaxRepliesPerThread
	}
	if l.MaxPerUser == 0 {
		l.MaxPerUser = DefaultMaxRepliesPerUser
	}
	if l.MinDelay == 0 {
		l.MinDelay = DefaultMinReplyDelay
	}
	if l.MaxDelay == 0 {
		l.MaxDelay = DefaultMaxReplyDelay
	}
	return l
}

// Comment is a platform comment as fetched, unmodified. The gate never
// owns these; they are snapshots from the comment source.
type Comment struct {
	ID             string
	Text           string
	AuthorID       string
	AuthorUsername string
	ParentID       string
}

// Context is the subset of a comment selected for answering. Created
// per reply cycle and discarded after use.
type Context struct {
	ThreadID       string
	ReplyID        string
	ReplyText      string
	AuthorUsername string
	AuthorID       string
	ParentID       string
}

// CommentSource supplies the gate with the bot's own recent threads and
// their comments. Implemented by the Threads API client.
type CommentSource interface {
	// OwnThreads returns IDs of the bot's most recent threads, newest first.
	OwnThreads(ctx context.Context, limit int) ([]string, error)
	// ThreadReplies returns the comments on a thread, in fetch order.
	ThreadReplies(ctx context.Context, threadID string, limit int) ([]Comment, error)
}
