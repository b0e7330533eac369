// Package perm implements directory-scoped tool permissions: the persistent
// grant store and the guard that decides whether a tool call may proceed.
package perm

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// PermissionRecord is one persisted grant or denial for a (tool, directory)
// pair. TargetDir is always stored normalized with a trailing separator so
// prefix matching cannot confuse sibling directories.
type PermissionRecord struct {
	Tool      string    `json:"tool"`
	TargetDir string    `json:"target_dir"`
	Allowed   bool      `json:"allowed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CheckState classifies the outcome of a permission lookup.
type CheckState int

const (
	// StateAbsent means no record covers the directory; authorization is
	// needed before the call can run.
	StateAbsent CheckState = iota
	// StateAllowed means a grant covers the directory.
	StateAllowed
	// StateDenied means an explicit denial covers the directory.
	StateDenied
)

// CheckResult is the outcome of a permission lookup.
type CheckResult struct {
	State CheckState
	// ViaAncestor is true when the deciding record belongs to an ancestor
	// directory rather than the exact target.
	ViaAncestor bool
	// MatchedDir is the directory of the deciding record, empty when absent.
	MatchedDir string
}

// Store persists permission records and pending authorization rows in sqlite.
type Store struct {
	db *sql.DB
}

const permSchema = `
CREATE TABLE IF NOT EXISTS permissions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	tool TEXT NOT NULL,
	target_dir TEXT NOT NULL,
	allowed BOOLEAN NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(tool, target_dir)
);
CREATE INDEX IF NOT EXISTS idx_permissions_tool ON permissions(tool);

CREATE TABLE IF NOT EXISTS pending_authorizations (
	request_id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	tool TEXT NOT NULL,
	target_dir TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	resolved_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_pending_auth_session ON pending_authorizations(session_id);
`

// NewStore opens (or creates) the permission store at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open permission db: %w", err)
	}
	if _, err := db.Exec(permSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply permission schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// NormalizeDir cleans a directory path and guarantees a trailing separator.
func NormalizeDir(dir string) string {
	cleaned := filepath.Clean(dir)
	if cleaned == string(filepath.Separator) {
		return cleaned
	}
	return cleaned + string(filepath.Separator)
}

// CheckPermission looks up the decision for a (tool, directory) pair. The
// exact directory wins; otherwise ancestors are consulted deepest first, and
// the first record found decides. Absence of any record means authorization
// is required.
func (s *Store) CheckPermission(tool, targetDir string) (CheckResult, error) {
	dir := NormalizeDir(targetDir)

	allowed, found, err := s.lookup(tool, dir)
	if err != nil {
		return CheckResult{}, err
	}
	if found {
		return CheckResult{State: stateOf(allowed), MatchedDir: dir}, nil
	}

	for _, ancestor := range ancestorDirs(dir) {
		allowed, found, err = s.lookup(tool, ancestor)
		if err != nil {
			return CheckResult{}, err
		}
		if found {
			return CheckResult{State: stateOf(allowed), ViaAncestor: true, MatchedDir: ancestor}, nil
		}
	}
	return CheckResult{State: StateAbsent}, nil
}

func stateOf(allowed bool) CheckState {
	if allowed {
		return StateAllowed
	}
	return StateDenied
}

func (s *Store) lookup(tool, dir string) (allowed, found bool, err error) {
	row := s.db.QueryRow(`SELECT allowed FROM permissions WHERE tool = ? AND target_dir = ?`, tool, dir)
	if err := row.Scan(&allowed); err != nil {
		if err == sql.ErrNoRows {
			return false, false, nil
		}
		return false, false, fmt.Errorf("lookup permission: %w", err)
	}
	return allowed, true, nil
}

// ancestorDirs returns the normalized ancestors of dir ordered deepest first,
// ending at the filesystem root.
func ancestorDirs(dir string) []string {
	var result []string
	current := filepath.Clean(strings.TrimSuffix(dir, string(filepath.Separator)))
	for {
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		result = append(result, NormalizeDir(parent))
		current = parent
	}
	return result
}

// SetPermission records a grant or denial, replacing any previous decision
// for the same pair.
func (s *Store) SetPermission(tool, targetDir string, allowed bool) error {
	dir := NormalizeDir(targetDir)
	_, err := s.db.Exec(`
		INSERT INTO permissions (tool, target_dir, allowed) VALUES (?, ?, ?)
		ON CONFLICT(tool, target_dir) DO UPDATE SET allowed = excluded.allowed, updated_at = CURRENT_TIMESTAMP`,
		tool, dir, allowed)
	if err != nil {
		return fmt.Errorf("set permission: %w", err)
	}
	return nil
}

// ListPermissions returns all records ordered by tool then directory.
func (s *Store) ListPermissions() ([]PermissionRecord, error) {
	rows, err := s.db.Query(`SELECT tool, target_dir, allowed, created_at, updated_at FROM permissions ORDER BY tool, target_dir`)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	defer rows.Close()

	var result []PermissionRecord
	for rows.Next() {
		var rec PermissionRecord
		if err := rows.Scan(&rec.Tool, &rec.TargetDir, &rec.Allowed, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// RemovePermission deletes the record for a (tool, directory) pair.
func (s *Store) RemovePermission(tool, targetDir string) error {
	res, err := s.db.Exec(`DELETE FROM permissions WHERE tool = ? AND target_dir = ?`, tool, NormalizeDir(targetDir))
	if err != nil {
		return fmt.Errorf("remove permission: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("no permission record for %s on %s", tool, targetDir)
	}
	return nil
}

// RecordPendingAuthorization persists a pending authorization request so
// unresolved requests are visible across restarts.
func (s *Store) RecordPendingAuthorization(requestID, sessionID, tool, targetDir string) error {
	_, err := s.db.Exec(`
		INSERT INTO pending_authorizations (request_id, session_id, tool, target_dir) VALUES (?, ?, ?, ?)
		ON CONFLICT(request_id) DO NOTHING`,
		requestID, sessionID, tool, NormalizeDir(targetDir))
	if err != nil {
		return fmt.Errorf("record pending authorization: %w", err)
	}
	return nil
}

// ResolvePendingAuthorization marks a pending row with its final status.
func (s *Store) ResolvePendingAuthorization(requestID, status string) error {
	_, err := s.db.Exec(`
		UPDATE pending_authorizations SET status = ?, resolved_at = CURRENT_TIMESTAMP
		WHERE request_id = ? AND status = 'pending'`,
		status, requestID)
	if err != nil {
		return fmt.Errorf("resolve pending authorization: %w", err)
	}
	return nil
}

// MarkStalePending marks all still-pending rows as timed out. Called on
// startup: waiters are in-process only, so rows left pending by a previous
// run can never be resolved.
func (s *Store) MarkStalePending() error {
	_, err := s.db.Exec(`
		UPDATE pending_authorizations SET status = 'timed_out', resolved_at = CURRENT_TIMESTAMP
		WHERE status = 'pending'`)
	if err != nil {
		return fmt.Errorf("mark stale pending: %w", err)
	}
	return nil
}
