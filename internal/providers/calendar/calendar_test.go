package calendar

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cscx-ai/toolgate/internal/tool"
)

type fakeClient struct {
	created []*Event
}

func (f *fakeClient) CreateEvent(_ context.Context, title string, startsAt, endsAt time.Time, attendees []string) (*Event, error) {
	ev := &Event{ID: "e1", Title: title, StartsAt: startsAt, EndsAt: endsAt, Attendees: attendees}
	f.created = append(f.created, ev)
	return ev, nil
}

func registered(t *testing.T, c Client) *tool.Registered {
	t.Helper()
	r := tool.NewRegistry()
	if err := r.RegisterAll(Descriptors(c)); err != nil {
		t.Fatal(err)
	}
	reg, err := r.Lookup("calendar.create_event")
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestCreateEvent(t *testing.T) {
	fake := &fakeClient{}
	reg := registered(t, fake)

	input, err := reg.ParseInput(json.RawMessage(`{
		"title": "Renewal call",
		"starts_at": "2026-09-02T10:00:00Z",
		"ends_at": "2026-09-02T10:30:00Z",
		"attendees": ["a@b.com"]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	out, err := reg.Execute(context.Background(), input, tool.Context{})
	if err != nil {
		t.Fatal(err)
	}
	ev := out.(*Event)
	if ev.Title != "Renewal call" || len(ev.Attendees) != 1 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestCreateEvent_EndBeforeStart(t *testing.T) {
	reg := registered(t, &fakeClient{})
	_, err := reg.Execute(context.Background(), map[string]any{
		"title":     "Renewal call",
		"starts_at": "2026-09-02T10:00:00Z",
		"ends_at":   "2026-09-02T09:00:00Z",
	}, tool.Context{})
	if err == nil {
		t.Fatal("expected error when ends_at precedes starts_at")
	}
}

func TestCreateEvent_MassInviteIsHighRisk(t *testing.T) {
	reg := registered(t, &fakeClient{})

	few := make([]any, 2)
	many := make([]any, 11)
	if reg.IsHighRisk(map[string]any{"attendees": few}) {
		t.Fatal("small invite should not be high risk")
	}
	if !reg.IsHighRisk(map[string]any{"attendees": many}) {
		t.Fatal("mass invite should be high risk")
	}
}
