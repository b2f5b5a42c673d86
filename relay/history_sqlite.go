package relay

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteHistory implements HistoryStore on a local SQLite file. The
// connection is established lazily on first use; concurrent first callers are
// coalesced onto a single open.
type SQLiteHistory struct {
	path   string
	events EventHandler
	tasks  *TaskGroup

	openOnce sync.Once
	openErr  error
	db       *sql.DB

	closeMu sync.Mutex
	closed  bool
}

// SQLiteHistoryConfig configures a SQLiteHistory.
type SQLiteHistoryConfig struct {
	// Path is the database file location. Parent directories are created.
	Path string
	// Events receives prune failures. Defaults to a stderr logger.
	Events EventHandler
	// Tasks runs background pruning. Tests inject a group and Wait on it.
	Tasks *TaskGroup
}

// NewSQLiteHistory creates the store without touching the filesystem yet.
func NewSQLiteHistory(cfg SQLiteHistoryConfig) *SQLiteHistory {
	events := cfg.Events
	if events == nil {
		events = defaultEvents()
	}
	tasks := cfg.Tasks
	if tasks == nil {
		tasks = NewTaskGroup()
	}
	return &SQLiteHistory{path: cfg.Path, events: events, tasks: tasks}
}

const historySchema = `
CREATE TABLE IF NOT EXISTS turns (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	scope TEXT NOT NULL,
	chat_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_key ON turns(scope, chat_id, id);
`

// conn opens the database exactly once, regardless of how many callers race
// the first use.
func (s *SQLiteHistory) conn() (*sql.DB, error) {
	s.openOnce.Do(func() {
		if s.path == "" {
			s.openErr = &ConfigError{Reason: "history store path is required"}
			return
		}
		if dir := filepath.Dir(s.path); dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				s.openErr = fmt.Errorf("relay: create history directory: %w", err)
				return
			}
		}
		db, err := sql.Open("sqlite3", s.path+"?_journal_mode=WAL&_busy_timeout=5000")
		if err != nil {
			s.openErr = fmt.Errorf("relay: open history store: %w", err)
			return
		}
		if _, err := db.Exec(historySchema); err != nil {
			db.Close()
			s.openErr = fmt.Errorf("relay: migrate history store: %w", err)
			return
		}
		s.db = db
	})
	return s.db, s.openErr
}

func (s *SQLiteHistory) ReadRecent(ctx context.Context, scope, chatID string, limit int) ([]Turn, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	rows, err := db.QueryContext(ctx,
		`SELECT role, content, created_at FROM turns
		 WHERE scope = ? AND chat_id = ?
		 ORDER BY id DESC LIMIT ?`,
		scope, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("relay: read history: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var role, content string
		var createdAt int64
		if err := rows.Scan(&role, &content, &createdAt); err != nil {
			return nil, fmt.Errorf("relay: scan history row: %w", err)
		}
		turns = append(turns, Turn{
			Role:    Role(role),
			Content: unmarshalContent(content),
			At:      time.UnixMilli(createdAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("relay: read history: %w", err)
	}

	// Newest-N came back newest first; replay order is oldest first.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (s *SQLiteHistory) AppendAndPrune(ctx context.Context, scope, chatID string, turns []Turn) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	turns = sanitizeTurns(turns)
	if len(turns) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("relay: append history: %w", err)
	}
	for _, t := range turns {
		content, err := marshalContent(t.Content)
		if err != nil {
			tx.Rollback()
			return err
		}
		at := t.At
		if at.IsZero() {
			at = time.Now()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO turns (scope, chat_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
			scope, chatID, string(t.Role), content, at.UnixMilli()); err != nil {
			tx.Rollback()
			return fmt.Errorf("relay: append history: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("relay: append history: %w", err)
	}

	s.tasks.Go(func() {
		if err := s.prune(scope, chatID); err != nil {
			s.events(Event{Kind: EventPruneFailed, ChatID: chatID, Err: err})
		}
	})
	return nil
}

// prune trims a partition to the RetentionLimit newest turns.
func (s *SQLiteHistory) prune(scope, chatID string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	_, err = db.Exec(
		`DELETE FROM turns
		 WHERE scope = ? AND chat_id = ? AND id NOT IN (
			SELECT id FROM turns WHERE scope = ? AND chat_id = ?
			ORDER BY id DESC LIMIT ?
		 )`,
		scope, chatID, scope, chatID, RetentionLimit)
	if err != nil {
		return fmt.Errorf("relay: prune history: %w", err)
	}
	return nil
}

func (s *SQLiteHistory) Clear(ctx context.Context, scope, chatID string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx,
		`DELETE FROM turns WHERE scope = ? AND chat_id = ?`, scope, chatID); err != nil {
		return fmt.Errorf("relay: clear history: %w", err)
	}
	return nil
}

// Close drains background pruning and releases the connection. Idempotent.
func (s *SQLiteHistory) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.tasks.Wait()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
