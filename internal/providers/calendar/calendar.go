// Package calendar exposes Google Calendar actions as tool descriptors.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cscx-ai/toolgate/internal/tool"
)

var ErrNotConfigured = errors.New("calendar: client not configured")

// Event is a created calendar event.
type Event struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Attendees []string  `json:"attendees"`
	HTMLLink  string    `json:"html_link"`
}

// Client is the narrow surface the descriptors need.
type Client interface {
	CreateEvent(ctx context.Context, title string, startsAt, endsAt time.Time, attendees []string) (*Event, error)
}

type unconfigured struct{}

func (unconfigured) CreateEvent(context.Context, string, time.Time, time.Time, []string) (*Event, error) {
	return nil, ErrNotConfigured
}

// Unconfigured returns a client whose calls fail with ErrNotConfigured.
func Unconfigured() Client { return unconfigured{} }

// Descriptors returns the Calendar tool set bound to the given client.
func Descriptors(c Client) []*tool.Descriptor {
	return []*tool.Descriptor{
		{
			Name:     "calendar.create_event",
			Category: "scheduling",
			Provider: "calendar",
			InputSchema: map[string]any{
				"type":     "object",
				"required": []any{"title", "starts_at", "ends_at"},
				"properties": map[string]any{
					"title":     map[string]any{"type": "string", "minLength": 1},
					"starts_at": map[string]any{"type": "string", "format": "date-time"},
					"ends_at":   map[string]any{"type": "string", "format": "date-time"},
					"attendees": map[string]any{
						"type":     "array",
						"items":    map[string]any{"type": "string"},
						"maxItems": 50,
					},
				},
				"additionalProperties": false,
			},
			RequiresAuth:   true,
			ApprovalPolicy: tool.AutoApprove,
			Enabled:        true,
			HighRisk: func(input map[string]any) bool {
				// Inviting a crowd is harder to undo than a solo block.
				attendees, _ := input["attendees"].([]any)
				return len(attendees) > 10
			},
			Describe: func(input map[string]any) string {
				return fmt.Sprintf("Create calendar event %q at %v", input["title"], input["starts_at"])
			},
			Execute: func(ctx context.Context, input map[string]any, _ tool.Context) (any, error) {
				title, _ := input["title"].(string)
				startsAt, err := parseStamp(input, "starts_at")
				if err != nil {
					return nil, err
				}
				endsAt, err := parseStamp(input, "ends_at")
				if err != nil {
					return nil, err
				}
				if !endsAt.After(startsAt) {
					return nil, fmt.Errorf("calendar.create_event: ends_at must be after starts_at")
				}
				var attendees []string
				if raw, ok := input["attendees"].([]any); ok {
					for _, a := range raw {
						if s, ok := a.(string); ok {
							attendees = append(attendees, s)
						}
					}
				}
				ev, err := c.CreateEvent(ctx, title, startsAt, endsAt, attendees)
				if err != nil {
					return nil, fmt.Errorf("calendar.create_event: %w", err)
				}
				return ev, nil
			},
		},
	}
}

func parseStamp(input map[string]any, key string) (time.Time, error) {
	raw, _ := input[key].(string)
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("calendar.create_event: bad %s %q: %w", key, raw, err)
	}
	return t, nil
}
