package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func logJSON(t *testing.T, level slog.Level, event Event) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level})
	NewSlogAdapter(slog.New(handler)).Log(event)

	if buf.Len() == 0 {
		return nil
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output %q: %v", buf.String(), err)
	}
	return entry
}

func group(t *testing.T, entry map[string]any, name string) map[string]any {
	t.Helper()
	g, ok := entry[name].(map[string]any)
	if !ok {
		t.Fatalf("group %q missing in %v", name, entry)
	}
	return g
}

func TestSlogAdapterLogsExchange(t *testing.T) {
	d := 20 * time.Millisecond
	entry := logJSON(t, slog.LevelDebug, Event{
		Timestamp: time.Now(),
		SessionID: "abc12345-6789-0123-4567-890abcdef012",
		Direction: DirectionIn,
		Layer:     LayerTransport,
		Category:  CategoryExchange,
		Server:    "http://mp.local",
		User:      "operator",
		Exchange: &ExchangeEvent{
			Type:     ExchangeResponse,
			Endpoint: "/api/events",
			Size:     512,
			Status:   intPtr(200),
			Duration: &d,
		},
	})

	want := map[string]any{
		"level":   "DEBUG",
		"msg":     "mp EXCHANGE",
		"session": "abc12345",
		"dir":     "IN",
		"layer":   "TRANSPORT",
		"server":  "http://mp.local",
		"user":    "operator",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s: got %v, want %v", k, entry[k], v)
		}
	}

	x := group(t, entry, "exchange")
	wantX := map[string]any{
		"type":     "RESPONSE",
		"endpoint": "/api/events",
		"bytes":    float64(512),
		"http":     float64(200),
		"took":     float64(d),
	}
	for k, v := range wantX {
		if x[k] != v {
			t.Errorf("exchange.%s: got %v, want %v", k, x[k], v)
		}
	}
	if _, ok := x["code"]; ok {
		t.Error("code should be omitted when nil")
	}
}

func TestSlogAdapterLogsErrorAtWarn(t *testing.T) {
	entry := logJSON(t, slog.LevelWarn, Event{
		Category: CategoryError,
		Error:    &ErrorEventData{Layer: LayerEnvelope, Message: "denied", Code: intPtr(403), Context: "/api/stream"},
	})
	if entry == nil {
		t.Fatal("error event filtered at warn level")
	}
	if entry["level"] != "WARN" || entry["msg"] != "mp ERROR" {
		t.Errorf("level/msg: got %v / %v", entry["level"], entry["msg"])
	}

	e := group(t, entry, "error")
	if e["message"] != "denied" || e["code"] != float64(403) || e["layer"] != "ENVELOPE" || e["context"] != "/api/stream" {
		t.Errorf("error group: got %v", e)
	}
}

func TestSlogAdapterLogsStateChange(t *testing.T) {
	event := Event{
		Category:    CategoryState,
		StateChange: &StateChangeEvent{Entity: StateEntitySession, NewState: "LOGGED_IN"},
	}
	if entry := logJSON(t, slog.LevelInfo, event); entry != nil {
		t.Errorf("state change logged above debug: %v", entry)
	}

	s := group(t, logJSON(t, slog.LevelDebug, event), "state")
	if s["entity"] != "SESSION" || s["to"] != "LOGGED_IN" {
		t.Errorf("state group: got %v", s)
	}
	if _, ok := s["reason"]; ok {
		t.Error("reason should be omitted when empty")
	}
}
