package notify

import (
	"context"
	"testing"
	"time"

	"github.com/pulseline/notifyd/internal/hub"
)

// recordingConn collects hub events for one fake client.
type recordingConn struct {
	events []hub.Event
}

func (c *recordingConn) WriteJSON(v interface{}) error {
	c.events = append(c.events, v.(hub.Event))
	return nil
}

func (c *recordingConn) Close() error { return nil }

func TestInAppDeliversToJoinedConnection(t *testing.T) {
	h := hub.New(testLogger())
	conn := &recordingConn{}
	h.Join("42", conn)

	a := NewInAppAdapter(h, testLogger())
	a.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	res := a.Send(context.Background(), "42", "T", "C")
	if !res.OK {
		t.Fatalf("expected success, got %+v", res)
	}

	if len(conn.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(conn.events))
	}
	event := conn.events[0]
	if event.Event != "notification" {
		t.Errorf("unexpected event name %q", event.Event)
	}
	payload, ok := event.Data.(NotificationEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", event.Data)
	}
	want := NotificationEvent{
		UserID:    42,
		Title:     "T",
		Content:   "C",
		Timestamp: "2024-05-01T12:00:00Z",
	}
	if payload != want {
		t.Errorf("expected payload %+v, got %+v", want, payload)
	}
}

func TestInAppEmptyRoomSucceeds(t *testing.T) {
	a := NewInAppAdapter(hub.New(testLogger()), testLogger())

	res := a.Send(context.Background(), "42", "T", "C")
	if !res.OK {
		t.Fatalf("publish to empty room should succeed, got %+v", res)
	}
}

func TestInAppWithoutHubFails(t *testing.T) {
	a := NewInAppAdapter(nil, testLogger())

	res := a.Send(context.Background(), "42", "T", "C")
	if res.OK {
		t.Fatal("expected failure without a hub")
	}
	if res.Detail != "realtime hub not initialized" {
		t.Errorf("unexpected detail %q", res.Detail)
	}
}

func TestInAppRejectsNonNumericTarget(t *testing.T) {
	a := NewInAppAdapter(hub.New(testLogger()), testLogger())

	res := a.Send(context.Background(), "not-a-user", "T", "C")
	if res.OK {
		t.Fatal("expected failure for non-numeric user id")
	}
}
