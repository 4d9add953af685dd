package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func noopExecute(_ context.Context, _ map[string]any, _ Context) (any, error) {
	return nil, nil
}

func validDescriptor(name string) *Descriptor {
	return &Descriptor{
		Name:           name,
		Category:       "files",
		Provider:       "drive",
		ApprovalPolicy: AutoApprove,
		Enabled:        true,
		Execute:        noopExecute,
	}
}

func TestRegister_Duplicate(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(validDescriptor("drive.list_files")); err != nil {
		t.Fatal(err)
	}
	err := reg.Register(validDescriptor("drive.list_files"))
	if !errors.Is(err, ErrDuplicateTool) {
		t.Fatalf("expected ErrDuplicateTool, got %v", err)
	}
}

func TestRegister_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Descriptor)
	}{
		{"missing name", func(d *Descriptor) { d.Name = "" }},
		{"missing category", func(d *Descriptor) { d.Category = "" }},
		{"missing provider", func(d *Descriptor) { d.Provider = "" }},
		{"bad approval policy", func(d *Descriptor) { d.ApprovalPolicy = "sometimes" }},
		{"nil execute", func(d *Descriptor) { d.Execute = nil }},
		{"zero rate limit", func(d *Descriptor) { d.RateLimit = &RateLimit{MaxRequests: 0, Window: time.Second} }},
		{"zero window", func(d *Descriptor) { d.RateLimit = &RateLimit{MaxRequests: 5} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDescriptor("slack.send_message")
			tt.mutate(d)
			if err := NewRegistry().Register(d); err == nil {
				t.Fatal("expected registration to fail")
			}
		})
	}
}

func TestRegister_BadSchemaFailsFast(t *testing.T) {
	d := validDescriptor("drive.share_file")
	d.InputSchema = map[string]any{"type": 42} // not a valid JSON Schema
	if err := NewRegistry().Register(d); err == nil {
		t.Fatal("expected schema compile failure at registration")
	}
}

func TestLookup_NotFound(t *testing.T) {
	_, err := NewRegistry().Lookup("zoom.create_meeting")
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
}

func TestDiscover_FilterAndOrder(t *testing.T) {
	reg := NewRegistry()
	a := validDescriptor("slack.send_message")
	a.Provider = "slack"
	a.Category = "messaging"
	a.ApprovalPolicy = RequireApproval
	b := validDescriptor("drive.share_file")
	b.ApprovalPolicy = RequireApproval
	c := validDescriptor("drive.list_files")
	c.Enabled = false
	for _, d := range []*Descriptor{a, b, c} {
		if err := reg.Register(d); err != nil {
			t.Fatal(err)
		}
	}

	all := reg.Discover(Filter{})
	if len(all) != 3 {
		t.Fatalf("expected 3 tools, got %d", len(all))
	}
	// Sorted by name for determinism.
	if all[0].Name != "drive.list_files" || all[2].Name != "slack.send_message" {
		t.Fatalf("unexpected order: %s, %s, %s", all[0].Name, all[1].Name, all[2].Name)
	}

	needsApproval := true
	got := reg.Discover(Filter{Provider: "drive", RequiresApproval: &needsApproval})
	if len(got) != 1 || got[0].Name != "drive.share_file" {
		t.Fatalf("unexpected filter result: %+v", got)
	}

	enabled := true
	got = reg.Discover(Filter{Provider: "drive", Enabled: &enabled})
	if len(got) != 1 || got[0].Name != "drive.share_file" {
		t.Fatalf("expected only enabled drive tool, got %d", len(got))
	}
}

func TestParseInput_SchemaValidation(t *testing.T) {
	d := validDescriptor("drive.share_file")
	d.InputSchema = map[string]any{
		"type":     "object",
		"required": []any{"file_id", "email"},
		"properties": map[string]any{
			"file_id": map[string]any{"type": "string"},
			"email":   map[string]any{"type": "string"},
			"role":    map[string]any{"type": "string", "enum": []any{"reader", "writer"}},
		},
	}
	reg := NewRegistry()
	if err := reg.Register(d); err != nil {
		t.Fatal(err)
	}
	r, err := reg.Lookup("drive.share_file")
	if err != nil {
		t.Fatal(err)
	}

	input, err := r.ParseInput(json.RawMessage(`{"file_id":"f1","email":"a@b.com","role":"reader"}`))
	if err != nil {
		t.Fatal(err)
	}
	if input["file_id"] != "f1" {
		t.Fatalf("expected parsed input, got %v", input)
	}

	if _, err := r.ParseInput(json.RawMessage(`{"file_id":"f1"}`)); err == nil {
		t.Fatal("expected missing required field to fail validation")
	}
	if _, err := r.ParseInput(json.RawMessage(`not json`)); err == nil {
		t.Fatal("expected invalid JSON to fail")
	}
	if _, err := r.ParseInput(json.RawMessage(`{"file_id":"f1","email":"a@b.com","role":"owner"}`)); err == nil {
		t.Fatal("expected enum violation to fail validation")
	}
}
