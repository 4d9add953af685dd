// Package drive exposes Google Drive actions as tool descriptors. The
// Client interface is the integration seam: production wires an HTTP
// client, tests wire a fake.
package drive

import (
	"context"
	"errors"
	"fmt"

	"github.com/cscx-ai/toolgate/internal/tool"
)

// ErrNotConfigured is returned by the unconfigured client.
var ErrNotConfigured = errors.New("drive: client not configured")

// File is a single Drive file listing entry.
type File struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	WebLink  string `json:"web_link"`
}

// ShareResult reports a completed share.
type ShareResult struct {
	FileID string `json:"file_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Client is the narrow surface the descriptors need.
type Client interface {
	ShareFile(ctx context.Context, fileID, email, role string) (*ShareResult, error)
	ListFiles(ctx context.Context, query string, limit int) ([]File, error)
}

// unconfigured fails every call. Lets the registry advertise the tools
// before Drive credentials are wired.
type unconfigured struct{}

func (unconfigured) ShareFile(context.Context, string, string, string) (*ShareResult, error) {
	return nil, ErrNotConfigured
}

func (unconfigured) ListFiles(context.Context, string, int) ([]File, error) {
	return nil, ErrNotConfigured
}

// Unconfigured returns a client whose calls fail with ErrNotConfigured.
func Unconfigured() Client { return unconfigured{} }

// Descriptors returns the Drive tool set bound to the given client.
func Descriptors(c Client) []*tool.Descriptor {
	return []*tool.Descriptor{
		{
			Name:     "drive.share_file",
			Category: "files",
			Provider: "drive",
			InputSchema: map[string]any{
				"type":     "object",
				"required": []any{"file_id", "email", "role"},
				"properties": map[string]any{
					"file_id": map[string]any{"type": "string", "minLength": 1},
					"email":   map[string]any{"type": "string", "minLength": 3},
					"role":    map[string]any{"type": "string", "enum": []any{"reader", "commenter", "writer"}},
				},
				"additionalProperties": false,
			},
			RequiresAuth:   true,
			ApprovalPolicy: tool.RequireApproval,
			Enabled:        true,
			HighRisk: func(input map[string]any) bool {
				// Write access is a bigger blast radius than read access.
				return input["role"] == "writer"
			},
			Describe: func(input map[string]any) string {
				return fmt.Sprintf("Share Drive file %v with %v as %v",
					input["file_id"], input["email"], input["role"])
			},
			Execute: func(ctx context.Context, input map[string]any, _ tool.Context) (any, error) {
				fileID, _ := input["file_id"].(string)
				email, _ := input["email"].(string)
				role, _ := input["role"].(string)
				res, err := c.ShareFile(ctx, fileID, email, role)
				if err != nil {
					return nil, fmt.Errorf("drive.share_file: %w", err)
				}
				return res, nil
			},
		},
		{
			Name:     "drive.list_files",
			Category: "files",
			Provider: "drive",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string"},
					"limit": map[string]any{"type": "integer", "minimum": 1, "maximum": 100},
				},
				"additionalProperties": false,
			},
			RequiresAuth:   true,
			ApprovalPolicy: tool.AutoApprove,
			Enabled:        true,
			Execute: func(ctx context.Context, input map[string]any, _ tool.Context) (any, error) {
				query, _ := input["query"].(string)
				limit := 20
				if v, ok := input["limit"].(float64); ok {
					limit = int(v)
				}
				files, err := c.ListFiles(ctx, query, limit)
				if err != nil {
					return nil, fmt.Errorf("drive.list_files: %w", err)
				}
				return map[string]any{"files": files}, nil
			},
		},
	}
}
