package replygate

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

// dedupState is the wire format of replied_comments.json.
type dedupState struct {
	RepliedIDs  []string  `json:"replied_ids"`
	LastUpdated time.Time `json:"last_updated"`
}

// DedupStore is the durable set of comment IDs that have already been
// answered. Entries are never evicted; the set only grows. Not
// goroutine-safe on its own; the owning [Gate] serializes access.
type DedupStore struct {
	path string
	ids  map[string]struct{}
}

// OpenDedupStore loads the replied-comment set from path, starting
// empty when the file does not exist.
func OpenDedupStore(path string) (*DedupStore, error) {
	s := &DedupStore{
		path: path,
		ids:  make(map[string]struct{}),
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read replied comments %s: %w", path, err)
	}

	var state dedupState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse replied comments %s: %w", path, err)
	}
	for _, id := range state.RepliedIDs {
		s.ids[id] = struct{}{}
	}
	return s, nil
}

// Contains reports whether a comment ID has already been answered.
func (s *DedupStore) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Add records a comment ID as answered. It does not persist; call
// [DedupStore.Save] afterwards.
func (s *DedupStore) Add(id string) {
	s.ids[id] = struct{}{}
}

// Len returns the number of recorded IDs.
func (s *DedupStore) Len() int {
	return len(s.ids)
}

// Save writes the set to disk via an atomic rename. IDs are sorted so
// the file diffs cleanly between runs.
func (s *DedupStore) Save() error {
	state := dedupState{
		RepliedIDs:  make([]string, 0, len(s.ids)),
		LastUpdated: time.Now(),
	}
	for id := range s.ids {
		state.RepliedIDs = append(state.RepliedIDs, id)
	}
	sort.Strings(state.RepliedIDs)

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode replied comments: %w", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("write replied comments %s: %w", s.path, err)
	}
	return nil
}
