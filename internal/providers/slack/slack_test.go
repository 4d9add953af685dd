package slack

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cscx-ai/toolgate/internal/tool"
)

type fakeClient struct {
	sent []string
}

func (f *fakeClient) SendMessage(_ context.Context, channel, _ string) (string, error) {
	f.sent = append(f.sent, channel)
	return "1724900000.000100", nil
}

func (f *fakeClient) ListChannels(_ context.Context) ([]Channel, error) {
	return []Channel{{ID: "C1", Name: "general", MemberCount: 240}}, nil
}

func registered(t *testing.T, c Client, name string) *tool.Registered {
	t.Helper()
	r := tool.NewRegistry()
	if err := r.RegisterAll(Descriptors(c)); err != nil {
		t.Fatal(err)
	}
	reg, err := r.Lookup(name)
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestSendMessage(t *testing.T) {
	fake := &fakeClient{}
	reg := registered(t, fake, "slack.send_message")

	input, err := reg.ParseInput(json.RawMessage(`{"channel":"#support","text":"renewal reminder sent"}`))
	if err != nil {
		t.Fatal(err)
	}
	out, err := reg.Execute(context.Background(), input, tool.Context{})
	if err != nil {
		t.Fatal(err)
	}
	if m := out.(map[string]any); m["timestamp"] == "" {
		t.Fatalf("expected timestamp, got %+v", m)
	}
	if len(fake.sent) != 1 || fake.sent[0] != "#support" {
		t.Fatalf("unexpected sends: %v", fake.sent)
	}
}

func TestSendMessage_SchemaRejectsEmptyText(t *testing.T) {
	reg := registered(t, &fakeClient{}, "slack.send_message")
	if _, err := reg.ParseInput(json.RawMessage(`{"channel":"#support","text":""}`)); err == nil {
		t.Fatal("expected schema rejection")
	}
}

func TestSendMessage_BroadcastIsHighRisk(t *testing.T) {
	reg := registered(t, &fakeClient{}, "slack.send_message")
	if !reg.IsHighRisk(map[string]any{"channel": "#general"}) {
		t.Fatal("#general should be high risk")
	}
	if reg.IsHighRisk(map[string]any{"channel": "#team-cs"}) {
		t.Fatal("team channel should not be high risk")
	}
}

func TestListChannels_RateLimitDeclared(t *testing.T) {
	reg := registered(t, &fakeClient{}, "slack.list_channels")
	rl := reg.RateLimit
	if rl == nil || rl.MaxRequests != 1 || rl.Window != time.Second {
		t.Fatalf("expected 1-per-second limit, got %+v", rl)
	}

	out, err := reg.Execute(context.Background(), map[string]any{}, tool.Context{})
	if err != nil {
		t.Fatal(err)
	}
	channels := out.(map[string]any)["channels"].([]Channel)
	if len(channels) != 1 || channels[0].Name != "general" {
		t.Fatalf("unexpected channels: %+v", channels)
	}
}
