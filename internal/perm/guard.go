package perm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Decision is the guard's verdict for one tool call.
type Decision struct {
	// Allowed means the call may run now.
	Allowed bool
	// NeedsAuthorization means no decision exists and a human must be asked.
	NeedsAuthorization bool
	// Reason explains a denial in user-facing terms.
	Reason string
	// Tool and TargetDir identify the pair the decision applies to.
	Tool      string
	TargetDir string
}

// PendingOperation is a tool call parked while its authorization request is
// outstanding. On grant, the runtime resubmits the session turn; on denial
// or timeout the operation is discarded.
type PendingOperation struct {
	RequestID string
	SessionID string
	Tool      string
	TargetDir string
	Params    map[string]any
}

// Guard confines filesystem tool calls to the configured home root and
// answers whether a call is covered by a stored grant. Pending operations
// live in process only; the store keeps an audit row for each.
type Guard struct {
	store    *Store
	homeRoot string

	mu      sync.Mutex
	pending map[string]*PendingOperation
}

// NewGuard creates a guard rooted at homeRoot. Targets outside homeRoot are
// denied outright with no authorization path.
func NewGuard(store *Store, homeRoot string) *Guard {
	return &Guard{
		store:    store,
		homeRoot: NormalizeDir(homeRoot),
		pending:  make(map[string]*PendingOperation),
	}
}

// Check decides whether a tool call targeting path may run. The unit of
// authorization is the target itself when it denotes a directory, otherwise
// its enclosing directory.
func (g *Guard) Check(tool, targetPath string) (Decision, error) {
	cleaned := filepath.Clean(targetPath)
	unit := filepath.Dir(cleaned)
	if info, err := os.Stat(cleaned); err == nil && info.IsDir() {
		unit = cleaned
	}
	targetDir := NormalizeDir(unit)

	if !strings.HasPrefix(targetDir, g.homeRoot) {
		return Decision{
			Allowed:   false,
			Reason:    fmt.Sprintf("target %s is outside the allowed root %s", targetDir, g.homeRoot),
			Tool:      tool,
			TargetDir: targetDir,
		}, nil
	}

	result, err := g.store.CheckPermission(tool, targetDir)
	if err != nil {
		return Decision{}, err
	}
	switch result.State {
	case StateAllowed:
		return Decision{Allowed: true, Tool: tool, TargetDir: targetDir}, nil
	case StateDenied:
		reason := fmt.Sprintf("access to %s was previously denied for %s", targetDir, tool)
		if result.ViaAncestor {
			reason = fmt.Sprintf("access to %s is covered by a denial on %s for %s", targetDir, result.MatchedDir, tool)
		}
		return Decision{Allowed: false, Reason: reason, Tool: tool, TargetDir: targetDir}, nil
	default:
		return Decision{NeedsAuthorization: true, Tool: tool, TargetDir: targetDir}, nil
	}
}

// StorePendingOperation parks a tool call under its authorization request ID.
func (g *Guard) StorePendingOperation(op *PendingOperation) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending[op.RequestID] = op
}

// PendingOperationFor returns the parked call for a request ID, if any.
func (g *Guard) PendingOperationFor(requestID string) (*PendingOperation, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	op, ok := g.pending[requestID]
	return op, ok
}

// ClearPendingOperation removes a parked call once its request is resolved.
func (g *Guard) ClearPendingOperation(requestID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.pending, requestID)
}

// HomeRoot returns the normalized confinement root.
func (g *Guard) HomeRoot() string { return g.homeRoot }

// Store exposes the backing permission store.
func (g *Guard) Store() *Store { return g.store }
