package agent

import (
	"encoding/json"
	"fmt"
)

// Error codes carried by failure envelopes.
const (
	CodeToolNotFound         = "tool_not_found"
	CodeInvalidArguments     = "invalid_arguments"
	CodeExecutionError       = "execution_error"
	CodeRepeatLimit          = "repeat_limit_exceeded"
	CodePermissionDenied     = "permission_denied"
	CodeAuthorizationDenied  = "authorization_denied"
	CodeAuthorizationTimeout = "authorization_timeout"
	CodeAuthorizationGranted = "authorization_granted"
)

// ToolResult is the uniform envelope every tool outcome is folded into
// before it re-enters the conversation. The model only ever sees this shape,
// whatever the tool actually returned.
type ToolResult struct {
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Success wraps a raw tool outcome in a success envelope.
func Success(result any) *ToolResult {
	return &ToolResult{Success: true, Result: result}
}

// Failure builds a failure envelope with a taxonomy code.
func Failure(code, message string) *ToolResult {
	return &ToolResult{Success: false, Error: message, Code: code}
}

// Normalize folds a raw tool outcome into an envelope. A Go error always
// means failure. Structured results that self-report failure, via an error
// field, success=false, or a non-zero exit_code, are classified as failures
// while keeping the full payload available to the model.
func Normalize(raw any, err error) *ToolResult {
	if err != nil {
		return Failure(CodeExecutionError, err.Error())
	}

	if m, ok := raw.(map[string]any); ok {
		if msg, ok := m["error"].(string); ok && msg != "" {
			return &ToolResult{Success: false, Result: m, Error: msg, Code: CodeExecutionError}
		}
		if success, ok := m["success"].(bool); ok && !success {
			return &ToolResult{Success: false, Result: m, Error: "tool reported failure", Code: CodeExecutionError}
		}
		if code, ok := exitCode(m); ok && code != 0 {
			msg := fmt.Sprintf("command exited with code %d", code)
			if stderr, ok := m["stderr"].(string); ok && stderr != "" {
				msg = fmt.Sprintf("%s: %s", msg, stderr)
			}
			return &ToolResult{Success: false, Result: m, Error: msg, Code: CodeExecutionError}
		}
	}
	return Success(raw)
}

func exitCode(m map[string]any) (int, bool) {
	switch v := m["exit_code"].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// JSON renders the envelope for a tool role message. Marshal failures fall
// back to a plain failure envelope, which always serializes.
func (r *ToolResult) JSON() string {
	data, err := json.Marshal(r)
	if err != nil {
		fallback, _ := json.Marshal(Failure(CodeExecutionError, "unserializable tool result"))
		return string(fallback)
	}
	return string(data)
}
