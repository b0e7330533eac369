// Package memstore persists long-term memories with keyword recall.
package memstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Store is a sqlite-backed memory store. Recall is keyword matching over the
// stored text, scoped to the owning session.
type Store struct {
	db *sql.DB
}

const memSchema = `
CREATE TABLE IF NOT EXISTS memories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_memories_session ON memories(session_id);
`

// NewStore opens (or creates) the memory store at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}
	if _, err := db.Exec(memSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply memory schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Remember saves one fact for a session.
func (s *Store) Remember(ctx context.Context, sessionID, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (session_id, content) VALUES (?, ?)`, sessionID, content)
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

// Recall returns up to limit memories whose content matches every keyword in
// the query, newest first.
func (s *Store) Recall(ctx context.Context, sessionID, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}

	words := strings.Fields(query)
	clauses := []string{"session_id = ?"}
	args := []any{sessionID}
	for _, word := range words {
		clauses = append(clauses, "content LIKE ?")
		args = append(args, "%"+word+"%")
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT content FROM memories WHERE `+strings.Join(clauses, " AND ")+
			` ORDER BY created_at DESC, id DESC LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		result = append(result, content)
	}
	return result, rows.Err()
}
