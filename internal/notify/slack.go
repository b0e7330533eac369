// Package notify pushes authorization requests to external channels so a
// human sees them even when no client is watching the session.
package notify

import (
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"

	"github.com/wardenhq/warden/internal/authz"
)

// SlackNotifier posts each authorization request to a Slack channel.
type SlackNotifier struct {
	client  *slack.Client
	channel string
	logger  *slog.Logger
}

// NewSlackNotifier creates a notifier posting to the given channel.
func NewSlackNotifier(botToken, channel string, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		client:  slack.New(botToken),
		channel: channel,
		logger:  logger,
	}
}

// NotifyAuthRequest posts the request asynchronously. The broker must never
// block on Slack.
func (n *SlackNotifier) NotifyAuthRequest(req *authz.Request) {
	go func() {
		text := fmt.Sprintf(
			":closed_lock_with_key: Authorization needed\n*Tool:* `%s`\n*Directory:* `%s`\n*Session:* `%s`\n*Request:* `%s`\nRespond within 30 seconds via a connected client.",
			req.Tool, req.TargetDir, req.SessionID, req.RequestID)
		_, _, err := n.client.PostMessage(n.channel, slack.MsgOptionText(text, false))
		if err != nil {
			n.logger.Warn("slack notification failed", "request_id", req.RequestID, "error", err)
		}
	}()
}
