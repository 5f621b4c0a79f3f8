package commands

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sd400mp/mp-go/pkg/log"
)

func TestStatsAdd(t *testing.T) {
	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Sessions:          make(map[string]*SessionStats),
		Endpoints:         make(map[string]*EndpointStats),
	}
	for _, e := range sampleSession() {
		stats.add(e)
	}

	assert.Equal(t, 5, stats.TotalEvents)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 3, stats.EventsByCategory[log.CategoryExchange])
	assert.Equal(t, testTime, stats.TimeRange.Start)
	assert.Equal(t, testTime.Add(2*time.Second), stats.TimeRange.End)

	require.Len(t, stats.Sessions, 2)
	sess := stats.Sessions["abc12345-6789-0123-4567-890abcdef012"]
	assert.Equal(t, 4, sess.Events)
	assert.Equal(t, "http://mp.local:8080", sess.Server)
	assert.Equal(t, "operator", sess.User)

	require.Len(t, stats.Endpoints, 2)
	assert.Equal(t, 1, stats.Endpoints["/api/auth"].Responses)
	assert.Equal(t, 0, stats.Endpoints["/api/auth"].Failures)
	assert.Equal(t, 1, stats.Endpoints["/api/stat"].Failures)
	assert.Equal(t, 40*time.Millisecond, stats.Endpoints["/api/stat"].MaxTime)
}

func TestRunStats(t *testing.T) {
	path := createTestLogFile(t, sampleSession())

	var buf bytes.Buffer
	require.NoError(t, RunStats(path, &buf))
	output := buf.String()

	assert.Contains(t, output, "Total Events: 5")
	assert.Contains(t, output, "Segments:     1")
	assert.Contains(t, output, "Sessions: 2")
	assert.Contains(t, output, "[abc12345] 4 events")
	assert.Contains(t, output, "User: operator")
	assert.Contains(t, output, "/api/stat")
	assert.Contains(t, output, "1 failed")
	assert.Contains(t, output, "Errors: 1")
}

func TestRunStatsEmpty(t *testing.T) {
	path := createTestLogFile(t, nil)

	var buf bytes.Buffer
	require.NoError(t, RunStats(path, &buf))
	assert.Contains(t, buf.String(), "Total Events: 0")
	assert.NotContains(t, buf.String(), "Time Range")
}
