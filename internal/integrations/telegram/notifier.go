// Package telegram forwards rule execution reports to a Telegram chat.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/remoteflow/remoteflow/internal/actions"
)

const queueSize = 32

// Notifier is an actions.Sink. Publish queues the report; Run delivers the
// queue through the bot API until ctx is cancelled.
type Notifier struct {
	token        string
	chatID       int64
	onlyFailures bool
	endpoint     string
	queue        chan actions.Report
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithEndpoint overrides the bot API endpoint, a format string taking the
// token and the method name.
func WithEndpoint(endpoint string) Option { return func(n *Notifier) { n.endpoint = endpoint } }

// NewNotifier creates a Notifier for chatID. With onlyFailures set, reports
// without a failed action are dropped.
func NewNotifier(token string, chatID int64, onlyFailures bool, opts ...Option) *Notifier {
	n := &Notifier{
		token:        token,
		chatID:       chatID,
		onlyFailures: onlyFailures,
		endpoint:     tgbotapi.APIEndpoint,
		queue:        make(chan actions.Report, queueSize),
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Publish queues report for delivery. It never blocks; when the queue is
// full the report is dropped.
func (n *Notifier) Publish(report actions.Report) {
	if n.onlyFailures && report.Failed() == 0 {
		return
	}
	select {
	case n.queue <- report:
	default:
		slog.Warn("telegram: queue full, dropping report", "rule", report.RuleID)
	}
}

// Run connects the bot and sends queued reports until ctx is done.
func (n *Notifier) Run(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(n.token, n.endpoint)
	if err != nil {
		return fmt.Errorf("telegram: create bot: %w", err)
	}
	slog.Info("telegram: connected", "username", bot.Self.UserName, "chat", n.chatID)

	for {
		select {
		case report := <-n.queue:
			msg := tgbotapi.NewMessage(n.chatID, FormatReport(report))
			if _, err := bot.Send(msg); err != nil {
				slog.Warn("telegram: send failed", "rule", report.RuleID, "err", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// FormatReport renders a report as plain text.
func FormatReport(r actions.Report) string {
	var sb strings.Builder
	if failed := r.Failed(); failed > 0 {
		fmt.Fprintf(&sb, "⚠️ %s: %d of %d actions failed\n", r.RuleName, failed, len(r.Results))
	} else {
		fmt.Fprintf(&sb, "✅ %s ran %d actions\n", r.RuleName, len(r.Results))
	}
	for _, res := range r.Results {
		switch res.Outcome {
		case actions.OutcomeFailed:
			fmt.Fprintf(&sb, "✗ %s: %s\n", res.Type, res.Error)
		case actions.OutcomeSkipped:
			fmt.Fprintf(&sb, "- %s (%s)\n", res.Type, res.Reason)
		default:
			fmt.Fprintf(&sb, "✓ %s\n", res.Type)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
