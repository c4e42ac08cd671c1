package replygate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// dateLayout is the key format for daily and per-thread counters.
// Lexicographic order on these keys matches chronological order.
const dateLayout = "2006-01-02"

// threadEntry tracks replies sent to one thread and when the thread
// was first answered, for 7-day pruning.
type threadEntry struct {
	Count int    `json:"count"`
	Date  string `json:"date"`
}

// counterState is the wire format of reply_stats.json.
type counterState struct {
	DailyReplies  map[string]int         `json:"daily_replies"`
	ThreadReplies map[string]threadEntry `json:"thread_replies"`
	UserReplies   map[string]int         `json:"user_replies"`
	LastReplyTime *time.Time             `json:"last_reply_time"`
}

// CounterStore is the durable mapping of date/thread/user keys to reply
// counts plus the last-reply timestamp. It backs every rate-limit
// decision the gate makes. The store itself is not goroutine-safe; the
// owning [Gate] serializes access.
type CounterStore struct {
	path  string
	state counterState
}

// OpenCounterStore loads reply statistics from path, creating empty
// state when the file does not exist. Entries outside the retention
// windows (1 day for daily counts, 7 days for thread counts) are pruned
// on load and the pruned state is written back.
func OpenCounterStore(path string, now time.Time) (*CounterStore, error) {
	s := &CounterStore{
		path: path,
		state: counterState{
			DailyReplies:  make(map[string]int),
			ThreadReplies: make(map[string]threadEntry),
			UserReplies:   make(map[string]int),
		},
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read reply stats %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("parse reply stats %s: %w", path, err)
	}
	if s.state.DailyReplies == nil {
		s.state.DailyReplies = make(map[string]int)
	}
	if s.state.ThreadReplies == nil {
		s.state.ThreadReplies = make(map[string]threadEntry)
	}
	if s.state.UserReplies == nil {
		s.state.UserReplies = make(map[string]int)
	}

	s.prune(now)
	if err := s.Save(); err != nil {
		return nil, err
	}
	return s, nil
}

// prune drops daily entries older than today and thread entries older
// than 7 days. User counters follow their thread's lifetime implicitly
// and are kept; they are keyed per thread, so stale ones stop mattering
// once the thread leaves the recent set.
func (s *CounterStore) prune(now time.Time) {
	today := now.Format(dateLayout)
	for k := range s.state.DailyReplies {
		if k < today {
			delete(s.state.DailyReplies, k)
		}
	}

	cutoff := now.AddDate(0, 0, -7).Format(dateLayout)
	for id, e := range s.state.ThreadReplies {
		if e.Date < cutoff {
			delete(s.state.ThreadReplies, id)
		}
	}
}

// TodayCount returns the number of replies recorded for the given day.
func (s *CounterStore) TodayCount(now time.Time) int {
	return s.state.DailyReplies[now.Format(dateLayout)]
}

// ThreadCount returns the number of replies recorded for a thread.
func (s *CounterStore) ThreadCount(threadID string) int {
	return s.state.ThreadReplies[threadID].Count
}

// UserCount returns the number of replies sent to a user within a thread.
func (s *CounterStore) UserCount(threadID, userID string) int {
	return s.state.UserReplies[threadID+":"+userID]
}

// LastReplyTime returns the timestamp of the most recent recorded
// reply, or the zero time when none has been recorded.
func (s *CounterStore) LastReplyTime() time.Time {
	if s.state.LastReplyTime == nil {
		return time.Time{}
	}
	return *s.state.LastReplyTime
}

// Record applies all counter mutations for one successful reply: the
// daily count, the thread count, the per-user count (when authorID is
// non-empty), and the last-reply timestamp. It does not persist; call
// [CounterStore.Save] afterwards.
func (s *CounterStore) Record(threadID, authorID string, now time.Time) {
	day := now.Format(dateLayout)
	s.state.DailyReplies[day]++

	e, ok := s.state.ThreadReplies[threadID]
	if !ok {
		e = threadEntry{Date: day}
	}
	e.Count++
	s.state.ThreadReplies[threadID] = e

	if authorID != "" {
		s.state.UserReplies[threadID+":"+authorID]++
	}

	t := now
	s.state.LastReplyTime = &t
}

// Save writes the current state to disk via an atomic rename, so a
// crash mid-write never leaves a truncated stats file behind.
func (s *CounterStore) Save() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode reply stats: %w", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("write reply stats %s: %w", s.path, err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the target directory
// and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
