// Package session provides conversation session management.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/wardenhq/warden/internal/provider"
)

// Session holds one conversation's message history, including tool calls and
// tool results, so a turn can resume with full context.
type Session struct {
	Key       string             `json:"key"`
	Messages  []provider.Message `json:"messages"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	mu        sync.RWMutex
}

// NewSession creates a new session with the given key.
func NewSession(key string) *Session {
	now := time.Now()
	return &Session{
		Key:       key,
		Messages:  []provider.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// History returns a copy of the full message history.
func (s *Session) History() []provider.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]provider.Message, len(s.Messages))
	copy(result, s.Messages)
	return result
}

// SetHistory replaces the message history with the result of a completed
// turn.
func (s *Session) SetHistory(messages []provider.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = messages
	s.UpdatedAt = time.Now()
}

// Append adds one message to the history.
func (s *Session) Append(msg provider.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = time.Now()
}

// Clear removes all messages from the session.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = []provider.Message{}
	s.UpdatedAt = time.Now()
}

// Manager manages session persistence under a sessions directory, one JSON
// file per session key.
type Manager struct {
	sessionsDir string
	cache       map[string]*Session
	mu          sync.RWMutex
}

// NewManager creates a session manager rooted at dataDir/sessions.
func NewManager(dataDir string) (*Manager, error) {
	sessionsDir := filepath.Join(dataDir, "sessions")
	if err := os.MkdirAll(sessionsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	return &Manager{
		sessionsDir: sessionsDir,
		cache:       make(map[string]*Session),
	}, nil
}

// Get returns the session for a key, loading it from disk or creating it as
// needed.
func (m *Manager) Get(key string) *Session {
	m.mu.RLock()
	sess, ok := m.cache[key]
	m.mu.RUnlock()
	if ok {
		return sess
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.cache[key]; ok {
		return sess
	}

	sess = m.load(key)
	if sess == nil {
		sess = NewSession(key)
	}
	m.cache[key] = sess
	return sess
}

// Save persists a session to disk.
func (m *Manager) Save(sess *Session) error {
	sess.mu.RLock()
	data, err := json.MarshalIndent(sess, "", "  ")
	sess.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	path := m.pathFor(sess.Key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// List returns the keys of all persisted sessions.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}
	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".json") {
			keys = append(keys, strings.TrimSuffix(name, ".json"))
		}
	}
	return keys, nil
}

func (m *Manager) load(key string) *Session {
	data, err := os.ReadFile(m.pathFor(key))
	if err != nil {
		return nil
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil
	}
	return &sess
}

func (m *Manager) pathFor(key string) string {
	// Session keys come from clients; strip path separators before they
	// reach the filesystem.
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(key)
	return filepath.Join(m.sessionsDir, safe+".json")
}
