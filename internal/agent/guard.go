package agent

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// toolGuard tracks identical tool invocations within a single loop run and
// trips when a (tool, arguments) pair repeats past the limit. A zero limit
// disables the guard.
type toolGuard struct {
	limit  int
	counts map[string]int
}

func newToolGuard(limit int) *toolGuard {
	return &toolGuard{
		limit:  limit,
		counts: make(map[string]int),
	}
}

// Check records one invocation and reports whether it may proceed. The guard
// is scoped to a single run; a fresh turn starts with clean counts.
func (g *toolGuard) Check(tool string, params map[string]any) error {
	if g.limit <= 0 {
		return nil
	}
	key := invocationKey(tool, params)
	g.counts[key]++
	if g.counts[key] > g.limit {
		return fmt.Errorf("tool %s called %d times with identical arguments (limit %d)", tool, g.counts[key], g.limit)
	}
	return nil
}

// invocationKey hashes the canonical tool name together with its marshalled
// arguments. Map key order in Go's JSON encoder is deterministic, so equal
// argument maps hash equal.
func invocationKey(tool string, params map[string]any) string {
	data, err := json.Marshal(params)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", params))
	}
	sum := sha1.Sum(append([]byte(tool+"\x00"), data...))
	return hex.EncodeToString(sum[:])
}
