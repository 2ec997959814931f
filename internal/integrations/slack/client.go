// Package slack implements the chat status collaborator on the Slack Web API.
//
// Status changes use the user token (users.profile.set requires a user
// scope); messages are posted with the bot token when one is configured.
package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	slackgo "github.com/slack-go/slack"
)

// ErrNoToken is returned when no token is configured for an operation.
var ErrNoToken = errors.New("slack: token not configured")

// Client is a schema.StatusUpdater.
type Client struct {
	user *slackgo.Client // status updates
	bot  *slackgo.Client // messages
}

// NewClient builds a client. Messages fall back to the user token when
// botToken is empty. opts are passed to both underlying clients.
func NewClient(userToken, botToken string, opts ...slackgo.Option) *Client {
	c := &Client{}
	if userToken != "" {
		c.user = slackgo.New(userToken, opts...)
	}
	switch {
	case botToken != "":
		c.bot = slackgo.New(botToken, opts...)
	case c.user != nil:
		c.bot = c.user
	}
	return c
}

// UpdateStatus sets the custom status. A nil expiration never expires.
func (c *Client) UpdateStatus(ctx context.Context, text, emoji string, expiration *time.Time) error {
	if c.user == nil {
		return ErrNoToken
	}
	var exp int64
	if expiration != nil {
		exp = expiration.Unix()
	}
	if err := c.user.SetUserCustomStatusContext(ctx, text, emoji, exp); err != nil {
		return fmt.Errorf("slack: set status: %w", err)
	}
	slog.Info("slack: status updated", "emoji", emoji, "text", text)
	return nil
}

// ClearStatus removes the custom status.
func (c *Client) ClearStatus(ctx context.Context) error {
	if c.user == nil {
		return ErrNoToken
	}
	if err := c.user.UnsetUserCustomStatusContext(ctx); err != nil {
		return fmt.Errorf("slack: clear status: %w", err)
	}
	slog.Info("slack: status cleared")
	return nil
}

// PostMessage posts text to a channel id or name.
func (c *Client) PostMessage(ctx context.Context, channel, text string) error {
	if c.bot == nil {
		return ErrNoToken
	}
	_, _, err := c.bot.PostMessageContext(ctx, channel, slackgo.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack: post to %s: %w", channel, err)
	}
	slog.Info("slack: message posted", "channel", channel)
	return nil
}

// Profile returns the user's current status text and emoji.
func (c *Client) Profile(ctx context.Context) (text, emoji string, err error) {
	if c.user == nil {
		return "", "", ErrNoToken
	}
	p, err := c.user.GetUserProfileContext(ctx, &slackgo.GetUserProfileParameters{})
	if err != nil {
		return "", "", fmt.Errorf("slack: get profile: %w", err)
	}
	return p.StatusText, p.StatusEmoji, nil
}
