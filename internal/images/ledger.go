package images

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// ledgerCap is how many recently used image paths are remembered.
// The oldest entry drops off once the ledger is full, which re-opens
// the image for selection.
const ledgerCap = 100

// UsedLedger remembers the most recently posted image paths so the
// same image is not picked again until the rest of the library has
// cycled. The ledger is an ordered JSON array on disk, oldest first.
type UsedLedger struct {
	logger *slog.Logger
	path   string
	used   []string
}

// OpenLedger loads the used-image ledger from path, starting empty
// when the file is missing or unreadable. A corrupt ledger is worth a
// warning, not a refusal to start.
func OpenLedger(logger *slog.Logger, path string) *UsedLedger {
	if logger == nil {
		logger = slog.Default()
	}
	l := &UsedLedger{logger: logger, path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("loading used images failed", "path", path, "error", err)
		}
		return l
	}
	if err := json.Unmarshal(data, &l.used); err != nil {
		logger.Warn("parsing used images failed", "path", path, "error", err)
		l.used = nil
	}
	return l
}

// Exclude returns the ledger contents as a set for [Fetcher.RandomUnused].
func (l *UsedLedger) Exclude() map[string]struct{} {
	set := make(map[string]struct{}, len(l.used))
	for _, p := range l.used {
		set[p] = struct{}{}
	}
	return set
}

// Len returns the number of remembered paths.
func (l *UsedLedger) Len() int {
	return len(l.used)
}

// Record appends a used image path, dropping the oldest entry past the
// cap, and persists the ledger. A write failure is logged and returned
// but the in-memory ledger stays updated.
func (l *UsedLedger) Record(relPath string) error {
	l.used = append(l.used, relPath)
	if len(l.used) > ledgerCap {
		l.used = l.used[len(l.used)-ledgerCap:]
	}

	data, err := json.Marshal(l.used)
	if err != nil {
		return fmt.Errorf("encode used images: %w", err)
	}
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("write used images %s: %w", l.path, err)
		}
	}
	if err := os.WriteFile(l.path, data, 0644); err != nil {
		l.logger.Error("saving used images failed", "path", l.path, "error", err)
		return fmt.Errorf("write used images %s: %w", l.path, err)
	}
	return nil
}
