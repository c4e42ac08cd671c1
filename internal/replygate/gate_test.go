package replygate

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

// fakeSource is an in-memory CommentSource.
type fakeSource struct {
	threads  []string
	comments map[string][]Comment
	failing  map[string]bool
}

func (f *fakeSource) OwnThreads(ctx context.Context, limit int) ([]string, error) {
	if len(f.threads) > limit {
		return f.threads[:limit], nil
	}
	return f.threads, nil
}

func (f *fakeSource) ThreadReplies(ctx context.Context, threadID string, limit int) ([]Comment, error) {
	if f.failing[threadID] {
		return nil, fmt.Errorf("fetch failed")
	}
	return f.comments[threadID], nil
}

func newTestGate(t *testing.T, source CommentSource, limits Limits) *Gate {
	t.Helper()
	dir := t.TempDir()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.Local)

	counters, err := OpenCounterStore(filepath.Join(dir, "reply_stats.json"), now)
	if err != nil {
		t.Fatalf("OpenCounterStore: %v", err)
	}
	dedup, err := OpenDedupStore(filepath.Join(dir, "replied_comments.json"))
	if err != nil {
		t.Fatalf("OpenDedupStore: %v", err)
	}

	g := New(nil, counters, dedup, source, limits, "mybot", "me123")
	g.now = func() time.Time { return now }
	return g
}

func TestIsLowValue(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"", true},
		{"hi", true},
		{"🔥", true},
		{"❤️", true},
		{"...", true},
		{"!!!!!", true},
		{"lol", true},
		{"LOL", true},
		{"ok", true},
		{"yesss", true},
		{"  yes  ", true},
		{"abc", false},
		{"great post, love the colors", false},
		{"why?", false},
	}
	for _, tt := range tests {
		if got := IsLowValue(tt.text); got != tt.want {
			t.Errorf("IsLowValue(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestSelectCandidatesFilters(t *testing.T) {
	source := &fakeSource{
		threads: []string{"t1"},
		comments: map[string][]Comment{
			"t1": {
				{ID: "c1", Text: "already answered, sadly", AuthorID: "u1", AuthorUsername: "alice"},
				{ID: "c2", Text: "from the bot itself", AuthorID: "me123", AuthorUsername: "mybot"},
				{ID: "c3", Text: "🔥", AuthorID: "u2", AuthorUsername: "bob"},
				{ID: "c4", Text: "this one should make it", AuthorID: "u3", AuthorUsername: "carol"},
				{ID: "c5", Text: "capped user comment here", AuthorID: "u4", AuthorUsername: "dave"},
			},
		},
	}

	g := newTestGate(t, source, Limits{})
	g.dedup.Add("c1")
	for i := 0; i < DefaultMaxRepliesPerUser; i++ {
		g.counters.state.UserReplies["t1:u4"]++
	}

	got, err := g.SelectCandidates(context.Background(), 10, 10)
	if err != nil {
		t.Fatalf("SelectCandidates: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1: %+v", len(got), got)
	}
	if got[0].ReplyID != "c4" {
		t.Errorf("candidate = %q, want c4", got[0].ReplyID)
	}
	if got[0].ThreadID != "t1" || got[0].AuthorUsername != "carol" {
		t.Errorf("candidate context = %+v", got[0])
	}
}

func TestSelectCandidatesSkipsFullThreads(t *testing.T) {
	source := &fakeSource{
		threads: []string{"full", "open"},
		comments: map[string][]Comment{
			"full": {{ID: "c1", Text: "never seen because thread is capped", AuthorID: "u1"}},
			"open": {{ID: "c2", Text: "open thread comment text", AuthorID: "u2"}},
		},
	}

	g := newTestGate(t, source, Limits{MaxPerThread: 2})
	g.counters.state.ThreadReplies["full"] = threadEntry{Count: 2, Date: "2026-03-14"}

	got, err := g.SelectCandidates(context.Background(), 10, 10)
	if err != nil {
		t.Fatalf("SelectCandidates: %v", err)
	}
	if len(got) != 1 || got[0].ReplyID != "c2" {
		t.Fatalf("got %+v, want single candidate c2", got)
	}
}

func TestSelectCandidatesSurvivesFetchErrors(t *testing.T) {
	source := &fakeSource{
		threads: []string{"broken", "good"},
		comments: map[string][]Comment{
			"good": {{ID: "c1", Text: "comment on the healthy thread", AuthorID: "u1"}},
		},
		failing: map[string]bool{"broken": true},
	}

	g := newTestGate(t, source, Limits{})
	got, err := g.SelectCandidates(context.Background(), 10, 10)
	if err != nil {
		t.Fatalf("SelectCandidates: %v", err)
	}
	if len(got) != 1 || got[0].ReplyID != "c1" {
		t.Fatalf("got %+v, want single candidate c1", got)
	}
}

func TestDailyCapBlocksReplies(t *testing.T) {
	g := newTestGate(t, &fakeSource{}, Limits{MaxPerDay: 2, MinDelay: time.Nanosecond})

	if !g.CanReplyNow() {
		t.Fatal("fresh gate should allow replies")
	}

	base := g.now()
	for i := 0; i < 2; i++ {
		// Space the replies out so MinDelay is not the blocker.
		g.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		if err := g.MarkReplied(fmt.Sprintf("c%d", i), "t1", "u1"); err != nil {
			t.Fatalf("MarkReplied: %v", err)
		}
	}

	g.now = func() time.Time { return base.Add(3 * time.Hour) }
	if g.CanReplyNow() {
		t.Error("gate should block after daily cap of 2")
	}
}

func TestMinDelayBlocksReplies(t *testing.T) {
	g := newTestGate(t, &fakeSource{}, Limits{MinDelay: 2 * time.Minute})

	base := g.now()
	if err := g.MarkReplied("c1", "t1", "u1"); err != nil {
		t.Fatalf("MarkReplied: %v", err)
	}

	g.now = func() time.Time { return base.Add(30 * time.Second) }
	if g.CanReplyNow() {
		t.Error("gate should block 30s after a reply with a 2m minimum delay")
	}

	g.now = func() time.Time { return base.Add(3 * time.Minute) }
	if !g.CanReplyNow() {
		t.Error("gate should allow a reply after the minimum delay")
	}
}

func TestMarkRepliedAdvancesAllCounters(t *testing.T) {
	g := newTestGate(t, &fakeSource{}, Limits{})
	now := g.now()

	if err := g.MarkReplied("c1", "t1", "u1"); err != nil {
		t.Fatalf("MarkReplied: %v", err)
	}

	if !g.dedup.Contains("c1") {
		t.Error("dedup should contain c1")
	}
	if got := g.counters.TodayCount(now); got != 1 {
		t.Errorf("TodayCount = %d, want 1", got)
	}
	if got := g.counters.ThreadCount("t1"); got != 1 {
		t.Errorf("ThreadCount = %d, want 1", got)
	}
	if got := g.counters.UserCount("t1", "u1"); got != 1 {
		t.Errorf("UserCount = %d, want 1", got)
	}
	if g.counters.LastReplyTime().IsZero() {
		t.Error("LastReplyTime should be set")
	}
}

func TestNextReplyDelayWithinBounds(t *testing.T) {
	g := newTestGate(t, &fakeSource{}, Limits{})
	for i := 0; i < 100; i++ {
		d := g.NextReplyDelay()
		if d < DefaultMinReplyDelay || d > DefaultMaxReplyDelay {
			t.Fatalf("delay %v outside [%v, %v]", d, DefaultMinReplyDelay, DefaultMaxReplyDelay)
		}
	}
}
