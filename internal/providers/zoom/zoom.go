// Package zoom exposes Zoom actions as tool descriptors.
package zoom

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cscx-ai/toolgate/internal/tool"
)

var ErrNotConfigured = errors.New("zoom: client not configured")

// Meeting is a created meeting.
type Meeting struct {
	ID       string    `json:"id"`
	Topic    string    `json:"topic"`
	StartsAt time.Time `json:"starts_at"`
	JoinURL  string    `json:"join_url"`
}

// Client is the narrow surface the descriptors need.
type Client interface {
	CreateMeeting(ctx context.Context, topic string, startsAt time.Time, durationMin int) (*Meeting, error)
}

type unconfigured struct{}

func (unconfigured) CreateMeeting(context.Context, string, time.Time, int) (*Meeting, error) {
	return nil, ErrNotConfigured
}

// Unconfigured returns a client whose calls fail with ErrNotConfigured.
func Unconfigured() Client { return unconfigured{} }

// Descriptors returns the Zoom tool set bound to the given client.
func Descriptors(c Client) []*tool.Descriptor {
	return []*tool.Descriptor{
		{
			Name:     "zoom.create_meeting",
			Category: "meetings",
			Provider: "zoom",
			InputSchema: map[string]any{
				"type":     "object",
				"required": []any{"topic", "starts_at"},
				"properties": map[string]any{
					"topic":        map[string]any{"type": "string", "minLength": 1},
					"starts_at":    map[string]any{"type": "string", "format": "date-time"},
					"duration_min": map[string]any{"type": "integer", "minimum": 5, "maximum": 480},
				},
				"additionalProperties": false,
			},
			RequiresAuth:   true,
			ApprovalPolicy: tool.AutoApprove,
			Enabled:        true,
			Describe: func(input map[string]any) string {
				return fmt.Sprintf("Create Zoom meeting %q at %v", input["topic"], input["starts_at"])
			},
			Execute: func(ctx context.Context, input map[string]any, _ tool.Context) (any, error) {
				topic, _ := input["topic"].(string)
				raw, _ := input["starts_at"].(string)
				startsAt, err := time.Parse(time.RFC3339, raw)
				if err != nil {
					return nil, fmt.Errorf("zoom.create_meeting: bad starts_at %q: %w", raw, err)
				}
				duration := 30
				if v, ok := input["duration_min"].(float64); ok {
					duration = int(v)
				}
				m, err := c.CreateMeeting(ctx, topic, startsAt, duration)
				if err != nil {
					return nil, fmt.Errorf("zoom.create_meeting: %w", err)
				}
				return m, nil
			},
		},
	}
}
