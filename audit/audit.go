// Package audit persists evaluation verdicts in a SQLite database so policy
// decisions can be reviewed after the fact.
package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one logged evaluation.
type Record struct {
	Timestamp time.Time
	Command   string
	Decision  string
	Reason    string
	Section   string
}

// Store is an append-mostly verdict log. Writes are serialized; the
// evaluator itself never blocks on auditing (callers log failures and move
// on).
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates (or opens) the verdict database at path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create audit directory %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit database %s: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize audit database %s: %w", path, err)
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS verdicts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		command TEXT NOT NULL,
		decision TEXT NOT NULL,
		reason TEXT,
		section TEXT
	);`)
	return err
}

// Save appends one record.
func (s *Store) Save(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.Exec(`INSERT INTO verdicts (timestamp, command, decision, reason, section)
		VALUES (?, ?, ?, ?, ?)`,
		ts.Format(time.RFC3339),
		rec.Command,
		rec.Decision,
		rec.Reason,
		rec.Section,
	)
	return err
}

// Records returns logged verdicts, newest first. limit <= 0 means no limit;
// search filters on command or reason substring.
func (s *Store) Records(limit int, search string) ([]Record, error) {
	var b strings.Builder
	b.WriteString("SELECT timestamp, command, decision, reason, section FROM verdicts")
	var args []any
	if search != "" {
		b.WriteString(" WHERE command LIKE ? OR reason LIKE ?")
		args = append(args, "%"+search+"%", "%"+search+"%")
	}
	b.WriteString(" ORDER BY id DESC")
	if limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	rows, err := s.db.Query(b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var ts string
		if err := rows.Scan(&ts, &rec.Command, &rec.Decision, &rec.Reason, &rec.Section); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			rec.Timestamp = t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
