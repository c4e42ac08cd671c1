// Package history records every successfully published post in SQLite
// and derives the daily posting counters from it. Persisting the log
// means a restart mid-day resumes with accurate text/image counts
// instead of silently resetting the quotas.
package history

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Post is one published post.
type Post struct {
	ID        string
	CycleID   string // ties the row to the posting cycle in the logs
	Kind      string // "text" or "image"
	Caption   string
	ImagePath string // empty for text posts
	Platforms string // comma-joined platform names that accepted the post
	PostedAt  time.Time
}

// Store persists the post log. All public methods are safe for
// concurrent use (SQLite serializes writes).
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore opens the post history database at dbPath, creating the
// schema on first use.
func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open post history: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate post history: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			id         TEXT PRIMARY KEY,
			cycle_id   TEXT NOT NULL,
			kind       TEXT NOT NULL,
			caption    TEXT NOT NULL,
			image_path TEXT NOT NULL DEFAULT '',
			platforms  TEXT NOT NULL,
			posted_day TEXT NOT NULL,
			posted_at  TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_posts_day_kind ON posts (posted_day, kind);
	`)
	return err
}

// Record inserts a published post. A missing ID is filled with a new
// UUIDv7 so rows sort by insertion time.
func (s *Store) Record(p Post) error {
	if p.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate post id: %w", err)
		}
		p.ID = id.String()
	}
	if p.PostedAt.IsZero() {
		p.PostedAt = time.Now()
	}

	_, err := s.db.Exec(
		`INSERT INTO posts (id, cycle_id, kind, caption, image_path, platforms, posted_day, posted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.CycleID, p.Kind, p.Caption, p.ImagePath, p.Platforms,
		p.PostedAt.Format("2006-01-02"), p.PostedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record post: %w", err)
	}
	return nil
}

// CountsForDay returns how many text and image posts were recorded on
// the given local date ("2006-01-02").
func (s *Store) CountsForDay(day string) (textPosts, imagePosts int, err error) {
	rows, err := s.db.Query(
		`SELECT kind, COUNT(*) FROM posts WHERE posted_day = ? GROUP BY kind`,
		day,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("count posts for %s: %w", day, err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return 0, 0, fmt.Errorf("scan post counts: %w", err)
		}
		switch kind {
		case "text":
			textPosts = n
		case "image":
			imagePosts = n
		}
	}
	return textPosts, imagePosts, rows.Err()
}

// Recent returns the most recent posts, newest first.
func (s *Store) Recent(limit int) ([]Post, error) {
	rows, err := s.db.Query(
		`SELECT id, cycle_id, kind, caption, image_path, platforms, posted_at
		 FROM posts ORDER BY posted_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list recent posts: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		var postedAt string
		if err := rows.Scan(&p.ID, &p.CycleID, &p.Kind, &p.Caption, &p.ImagePath, &p.Platforms, &postedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.PostedAt, _ = time.Parse(time.RFC3339, postedAt)
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
