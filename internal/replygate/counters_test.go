package replygate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCounterStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reply_stats.json")
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	s, err := OpenCounterStore(path, now)
	if err != nil {
		t.Fatalf("OpenCounterStore: %v", err)
	}

	s.Record("t1", "u1", now)
	s.Record("t1", "u1", now)
	s.Record("t2", "", now)
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := OpenCounterStore(path, now)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	if got := reloaded.TodayCount(now); got != 3 {
		t.Errorf("TodayCount = %d, want 3", got)
	}
	if got := reloaded.ThreadCount("t1"); got != 2 {
		t.Errorf("ThreadCount(t1) = %d, want 2", got)
	}
	if got := reloaded.UserCount("t1", "u1"); got != 2 {
		t.Errorf("UserCount(t1, u1) = %d, want 2", got)
	}
	if got := reloaded.UserCount("t2", ""); got != 0 {
		t.Errorf("UserCount(t2, \"\") = %d, want 0 (empty author not tracked)", got)
	}
	if reloaded.LastReplyTime().IsZero() {
		t.Error("LastReplyTime should survive a reload")
	}
}

func TestCounterStorePrunesOnLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reply_stats.json")
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	state := map[string]any{
		"daily_replies": map[string]int{
			"2026-03-14": 4,
			"2026-03-13": 9,
		},
		"thread_replies": map[string]any{
			"recent": map[string]any{"count": 2, "date": "2026-03-10"},
			"stale":  map[string]any{"count": 3, "date": "2026-03-01"},
		},
		"user_replies": map[string]int{"recent:u1": 2},
	}
	data, err := json.Marshal(state)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	s, err := OpenCounterStore(path, now)
	if err != nil {
		t.Fatalf("OpenCounterStore: %v", err)
	}

	if got := s.TodayCount(now); got != 4 {
		t.Errorf("TodayCount = %d, want 4 (yesterday pruned)", got)
	}
	if got := s.ThreadCount("recent"); got != 2 {
		t.Errorf("ThreadCount(recent) = %d, want 2", got)
	}
	if got := s.ThreadCount("stale"); got != 0 {
		t.Errorf("ThreadCount(stale) = %d, want 0 (older than 7 days)", got)
	}

	// Pruning is written back immediately.
	written, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var onDisk counterState
	if err := json.Unmarshal(written, &onDisk); err != nil {
		t.Fatalf("parse written state: %v", err)
	}
	if _, ok := onDisk.DailyReplies["2026-03-13"]; ok {
		t.Error("pruned daily entry still on disk")
	}
	if _, ok := onDisk.ThreadReplies["stale"]; ok {
		t.Error("pruned thread entry still on disk")
	}
}

func TestCounterStoreMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")
	now := time.Now()

	s, err := OpenCounterStore(path, now)
	if err != nil {
		t.Fatalf("OpenCounterStore: %v", err)
	}
	if got := s.TodayCount(now); got != 0 {
		t.Errorf("TodayCount = %d, want 0", got)
	}
	if !s.LastReplyTime().IsZero() {
		t.Error("LastReplyTime should be zero for a fresh store")
	}
}

func TestDedupStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replied_comments.json")

	s, err := OpenDedupStore(path)
	if err != nil {
		t.Fatalf("OpenDedupStore: %v", err)
	}
	s.Add("c1")
	s.Add("c2")
	s.Add("c1") // idempotent
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := OpenDedupStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reloaded.Len(); got != 2 {
		t.Errorf("Len = %d, want 2", got)
	}
	if !reloaded.Contains("c1") || !reloaded.Contains("c2") {
		t.Error("reloaded store missing recorded IDs")
	}
	if reloaded.Contains("c3") {
		t.Error("Contains(c3) = true, want false")
	}
}
