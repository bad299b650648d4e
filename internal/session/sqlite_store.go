package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteStore keeps states in a local SQLite file so sessions survive a
// restart of a single instance.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	nextPurge time.Time
}

// OpenSQLiteStore opens (and creates) the session database at path.
func OpenSQLiteStore(path string, ttl time.Duration) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Immediate transactions take the write lock up front so concurrent
	// updates of one session serialize instead of failing on upgrade.
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, ttl: ttl, now: time.Now}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	s.purgeIfDue(context.Background())

	zap.L().Info("Session database initialized successfully", zap.String("path", path))
	return s, nil
}

func (s *SQLiteStore) createTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)`,
	}

	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to execute SQL: %s, error: %w", table, err)
		}
	}
	return nil
}

// withTx executes a function within a transaction
func (s *SQLiteStore) withTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	err = fn(tx)
	return err
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) read(ctx context.Context, q queryer, id string) ([]byte, error) {
	var raw string
	var expires int64
	err := q.QueryRowContext(ctx, `SELECT state, expires_at FROM sessions WHERE id = ?`, id).Scan(&raw, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if s.ttl > 0 && s.now().Unix() > expires {
		return nil, nil
	}
	return []byte(raw), nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (*State, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	raw, err := s.read(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return decodeState(raw)
}

func (s *SQLiteStore) Update(ctx context.Context, id string, fn func(*State) error) error {
	if id == "" {
		return ErrEmptyID
	}
	if err := s.write(ctx, id, fn); err != nil {
		return err
	}
	s.purgeIfDue(ctx)
	return nil
}

func (s *SQLiteStore) write(ctx context.Context, id string, fn func(*State) error) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		raw, err := s.read(ctx, tx, id)
		if err != nil {
			return err
		}
		st, err := decodeState(raw)
		if err != nil {
			return err
		}
		if err := fn(st); err != nil {
			return err
		}
		next, err := encodeState(st)
		if err != nil {
			return err
		}

		now := s.now()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO sessions (id, state, expires_at, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET state = excluded.state, expires_at = excluded.expires_at, updated_at = excluded.updated_at`,
			id, string(next), now.Add(s.ttl).Unix(), now.Format(time.RFC3339))
		return err
	})
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// Purge removes expired sessions and returns how many were removed.
func (s *SQLiteStore) Purge(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, s.now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// purgeIfDue runs Purge at most once per sweep interval. A failed purge is
// logged; the write that triggered it has already succeeded.
func (s *SQLiteStore) purgeIfDue(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}
	now := s.now()
	s.mu.Lock()
	if now.Before(s.nextPurge) {
		s.mu.Unlock()
		return
	}
	s.nextPurge = nextSweep(now, s.ttl)
	s.mu.Unlock()

	n, err := s.Purge(ctx)
	if err != nil {
		zap.L().Warn("Failed to purge expired sessions", zap.Error(err))
		return
	}
	if n > 0 {
		zap.L().Info("Purged expired sessions", zap.Int64("count", n))
	}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
