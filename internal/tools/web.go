package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// WebFetchTool fetches a URL and returns the response body, truncated to a
// configured byte limit.
type WebFetchTool struct {
	client       *resty.Client
	maxBodyBytes int
}

// NewWebFetchTool creates a web fetch tool with the given request timeout and
// response size cap.
func NewWebFetchTool(timeout time.Duration, maxBodyBytes int) *WebFetchTool {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = 512 * 1024
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetHeader("User-Agent", "warden/1.0")
	return &WebFetchTool{client: client, maxBodyBytes: maxBodyBytes}
}

func (t *WebFetchTool) Name() string { return "web_fetch" }

func (t *WebFetchTool) Description() string {
	return "Fetch a URL over HTTP(S) and return the response body as text."
}

func (t *WebFetchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "The URL to fetch (http or https)",
			},
		},
		"required": []string{"url"},
	}
}

func (t *WebFetchTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	url := GetString(params, "url", "")
	if url == "" {
		return nil, fmt.Errorf("url is required")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("unsupported URL scheme: %s", url)
	}

	resp, err := t.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.StatusCode() >= 400 {
		return nil, fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode())
	}

	body := resp.Body()
	truncated := false
	if len(body) > t.maxBodyBytes {
		body = body[:t.maxBodyBytes]
		truncated = true
	}
	return map[string]any{
		"status":    resp.StatusCode(),
		"body":      string(body),
		"truncated": truncated,
	}, nil
}
