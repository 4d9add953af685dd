package zoom

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cscx-ai/toolgate/internal/tool"
)

type fakeClient struct {
	lastDuration int
}

func (f *fakeClient) CreateMeeting(_ context.Context, topic string, startsAt time.Time, durationMin int) (*Meeting, error) {
	f.lastDuration = durationMin
	return &Meeting{ID: "m1", Topic: topic, StartsAt: startsAt, JoinURL: "https://zoom.us/j/m1"}, nil
}

func registered(t *testing.T, c Client) *tool.Registered {
	t.Helper()
	r := tool.NewRegistry()
	if err := r.RegisterAll(Descriptors(c)); err != nil {
		t.Fatal(err)
	}
	reg, err := r.Lookup("zoom.create_meeting")
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestCreateMeeting(t *testing.T) {
	fake := &fakeClient{}
	reg := registered(t, fake)

	input, err := reg.ParseInput(json.RawMessage(
		`{"topic":"QBR prep","starts_at":"2026-09-01T15:00:00Z","duration_min":45}`))
	if err != nil {
		t.Fatal(err)
	}
	out, err := reg.Execute(context.Background(), input, tool.Context{})
	if err != nil {
		t.Fatal(err)
	}
	m := out.(*Meeting)
	if m.Topic != "QBR prep" || !m.StartsAt.Equal(time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected meeting: %+v", m)
	}
	if fake.lastDuration != 45 {
		t.Fatalf("expected duration 45, got %d", fake.lastDuration)
	}
}

func TestCreateMeeting_DefaultDuration(t *testing.T) {
	fake := &fakeClient{}
	reg := registered(t, fake)

	input, err := reg.ParseInput(json.RawMessage(`{"topic":"sync","starts_at":"2026-09-01T15:00:00Z"}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Execute(context.Background(), input, tool.Context{}); err != nil {
		t.Fatal(err)
	}
	if fake.lastDuration != 30 {
		t.Fatalf("expected default duration 30, got %d", fake.lastDuration)
	}
}

func TestCreateMeeting_BadTimestamp(t *testing.T) {
	reg := registered(t, &fakeClient{})
	if _, err := reg.Execute(context.Background(),
		map[string]any{"topic": "sync", "starts_at": "tomorrow"}, tool.Context{}); err == nil {
		t.Fatal("expected error for unparseable starts_at")
	}
}
