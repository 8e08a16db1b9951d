// Package indexdb keeps a queryable SQLite index of sessions and chat
// history. It is a secondary read model: writes are enqueued without
// blocking and dropped if the indexer falls behind; the compressed event
// log remains the source of truth.
package indexdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Int64
}

type reqKind int

const (
	reqJoin reqKind = iota + 1
	reqLeave
	reqName
	reqChat
)

type req struct {
	kind    reqKind
	id      string
	name    string
	message string
	ts      int64
}

func Open(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 16384),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			joined_at INTEGER NOT NULL,
			left_at INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_joined ON sessions(joined_at);`,
		`CREATE TABLE IF NOT EXISTS chat (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			player_id TEXT NOT NULL,
			message TEXT NOT NULL,
			ts INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_player_ts ON chat(player_id, ts);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Dropped reports how many writes were discarded because the queue was full.
func (s *SQLiteIndex) Dropped() int64 { return s.dropped.Load() }

func (s *SQLiteIndex) enqueue(r req) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		s.dropped.Add(1)
	}
}

// The Record methods implement world.Recorder; all are non-blocking.

func (s *SQLiteIndex) RecordJoin(id, name string, ts int64) {
	s.enqueue(req{kind: reqJoin, id: id, name: name, ts: ts})
}

func (s *SQLiteIndex) RecordLeave(id string, ts int64) {
	s.enqueue(req{kind: reqLeave, id: id, ts: ts})
}

func (s *SQLiteIndex) RecordName(id, name string, ts int64) {
	s.enqueue(req{kind: reqName, id: id, name: name, ts: ts})
}

func (s *SQLiteIndex) RecordChat(id, message string, ts int64) {
	s.enqueue(req{kind: reqChat, id: id, message: message, ts: ts})
}

func (s *SQLiteIndex) loop() {
	for r := range s.ch {
		var err error
		switch r.kind {
		case reqJoin:
			_, err = s.db.Exec(
				`INSERT INTO sessions (id, name, joined_at) VALUES (?, ?, ?)
				 ON CONFLICT(id) DO UPDATE SET name=excluded.name, joined_at=excluded.joined_at, left_at=NULL`,
				r.id, r.name, r.ts)
		case reqLeave:
			_, err = s.db.Exec(`UPDATE sessions SET left_at=? WHERE id=?`, r.ts, r.id)
		case reqName:
			_, err = s.db.Exec(`UPDATE sessions SET name=? WHERE id=?`, r.name, r.id)
		case reqChat:
			_, err = s.db.Exec(`INSERT INTO chat (player_id, message, ts) VALUES (?, ?, ?)`,
				r.id, r.message, r.ts)
		}
		if err != nil {
			// Index-only data; drop and keep draining.
			s.dropped.Add(1)
		}
	}
}

// SessionRow is one row of the sessions table; LeftAt is zero while online.
type SessionRow struct {
	ID       string
	Name     string
	JoinedAt int64
	LeftAt   int64
}

// Sessions returns the most recently joined sessions, newest first.
func (s *SQLiteIndex) Sessions(limit int) ([]SessionRow, error) {
	rows, err := s.db.Query(
		`SELECT id, name, joined_at, COALESCE(left_at, 0) FROM sessions ORDER BY joined_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var r SessionRow
		if err := rows.Scan(&r.ID, &r.Name, &r.JoinedAt, &r.LeftAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ChatRow is one chat line.
type ChatRow struct {
	PlayerID string
	Message  string
	TS       int64
}

// ChatHistory returns the latest chat lines, oldest first.
func (s *SQLiteIndex) ChatHistory(limit int) ([]ChatRow, error) {
	rows, err := s.db.Query(
		`SELECT player_id, message, ts FROM (
			SELECT player_id, message, ts, seq FROM chat ORDER BY seq DESC LIMIT ?
		 ) ORDER BY seq ASC`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChatRow
	for rows.Next() {
		var r ChatRow
		if err := rows.Scan(&r.PlayerID, &r.Message, &r.TS); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
