package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sd400mp/mp-go/pkg/log"
)

var testTime = time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.mplog")

	logger, err := log.NewFileLogger(path, log.WithTool("mp-client"), log.WithServer("http://mp.local:8080"))
	require.NoError(t, err)
	for _, e := range events {
		logger.Log(e)
	}
	require.NoError(t, logger.Close())
	return path
}

func intPtr(v int) *int { return &v }

func durationPtr(d time.Duration) *time.Duration { return &d }

// sampleSession is a login followed by a failed stat call from one session
// and a state change from a second one.
func sampleSession() []log.Event {
	return []log.Event{
		{
			Timestamp: testTime,
			SessionID: "abc12345-6789-0123-4567-890abcdef012",
			Direction: log.DirectionOut,
			Layer:     log.LayerTransport,
			Category:  log.CategoryExchange,
			Server:    "http://mp.local:8080",
			Exchange: &log.ExchangeEvent{
				Type:     log.ExchangeRequest,
				Endpoint: "/api/auth",
				Size:     64,
			},
		},
		{
			Timestamp: testTime.Add(20 * time.Millisecond),
			SessionID: "abc12345-6789-0123-4567-890abcdef012",
			Direction: log.DirectionIn,
			Layer:     log.LayerEnvelope,
			Category:  log.CategoryExchange,
			Server:    "http://mp.local:8080",
			User:      "operator",
			Exchange: &log.ExchangeEvent{
				Type:     log.ExchangeResponse,
				Endpoint: "/api/auth",
				Size:     120,
				Body:     []byte(`{"code":200,"token":"t"}`),
				Status:   intPtr(200),
				Code:     intPtr(200),
				Duration: durationPtr(20 * time.Millisecond),
			},
		},
		{
			Timestamp: testTime.Add(time.Second),
			SessionID: "abc12345-6789-0123-4567-890abcdef012",
			Direction: log.DirectionIn,
			Layer:     log.LayerEnvelope,
			Category:  log.CategoryExchange,
			Server:    "http://mp.local:8080",
			User:      "operator",
			Exchange: &log.ExchangeEvent{
				Type:     log.ExchangeResponse,
				Endpoint: "/api/stat",
				Size:     40,
				Status:   intPtr(200),
				Code:     intPtr(500),
				Duration: durationPtr(40 * time.Millisecond),
			},
		},
		{
			Timestamp: testTime.Add(time.Second),
			SessionID: "abc12345-6789-0123-4567-890abcdef012",
			Direction: log.DirectionIn,
			Layer:     log.LayerClient,
			Category:  log.CategoryError,
			Error: &log.ErrorEventData{
				Layer:   log.LayerEnvelope,
				Message: "stat failed",
				Code:    intPtr(500),
				Context: "/api/stat",
			},
		},
		{
			Timestamp: testTime.Add(2 * time.Second),
			SessionID: "ffff0000-1111-2222-3333-444455556666",
			Direction: log.DirectionOut,
			Layer:     log.LayerClient,
			Category:  log.CategoryState,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntitySubscription,
				OldState: "DISABLED",
				NewState: "ENABLED",
				Reason:   "tp-1",
			},
		},
	}
}
