// Package slack exposes Slack actions as tool descriptors.
package slack

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cscx-ai/toolgate/internal/tool"
)

var ErrNotConfigured = errors.New("slack: client not configured")

// Channel is a single channel listing entry.
type Channel struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsPrivate  bool   `json:"is_private"`
	MemberCount int   `json:"member_count"`
}

// Client is the narrow surface the descriptors need.
type Client interface {
	SendMessage(ctx context.Context, channel, text string) (timestamp string, err error)
	ListChannels(ctx context.Context) ([]Channel, error)
}

type unconfigured struct{}

func (unconfigured) SendMessage(context.Context, string, string) (string, error) {
	return "", ErrNotConfigured
}

func (unconfigured) ListChannels(context.Context) ([]Channel, error) {
	return nil, ErrNotConfigured
}

// Unconfigured returns a client whose calls fail with ErrNotConfigured.
func Unconfigured() Client { return unconfigured{} }

// Descriptors returns the Slack tool set bound to the given client.
func Descriptors(c Client) []*tool.Descriptor {
	return []*tool.Descriptor{
		{
			Name:     "slack.send_message",
			Category: "messaging",
			Provider: "slack",
			InputSchema: map[string]any{
				"type":     "object",
				"required": []any{"channel", "text"},
				"properties": map[string]any{
					"channel": map[string]any{"type": "string", "minLength": 1},
					"text":    map[string]any{"type": "string", "minLength": 1, "maxLength": 4000},
				},
				"additionalProperties": false,
			},
			RequiresAuth:   true,
			ApprovalPolicy: tool.AutoApprove,
			Enabled:        true,
			HighRisk: func(input map[string]any) bool {
				// Broadcast channels reach the whole workspace.
				ch, _ := input["channel"].(string)
				return ch == "#general" || ch == "#announcements"
			},
			Describe: func(input map[string]any) string {
				return fmt.Sprintf("Send Slack message to %v", input["channel"])
			},
			Execute: func(ctx context.Context, input map[string]any, _ tool.Context) (any, error) {
				channel, _ := input["channel"].(string)
				text, _ := input["text"].(string)
				ts, err := c.SendMessage(ctx, channel, text)
				if err != nil {
					return nil, fmt.Errorf("slack.send_message: %w", err)
				}
				return map[string]any{"channel": channel, "timestamp": ts}, nil
			},
		},
		{
			Name:     "slack.list_channels",
			Category: "messaging",
			Provider: "slack",
			InputSchema: map[string]any{
				"type":                 "object",
				"additionalProperties": false,
			},
			RequiresAuth:   true,
			ApprovalPolicy: tool.AutoApprove,
			// Slack's conversations.list is tier-2 rate limited upstream.
			RateLimit: &tool.RateLimit{MaxRequests: 1, Window: time.Second},
			Enabled:   true,
			Execute: func(ctx context.Context, _ map[string]any, _ tool.Context) (any, error) {
				channels, err := c.ListChannels(ctx)
				if err != nil {
					return nil, fmt.Errorf("slack.list_channels: %w", err)
				}
				return map[string]any{"channels": channels}, nil
			},
		},
	}
}
