package interactive

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sd400mp/mp-go/internal/mpsim"
	"github.com/sd400mp/mp-go/pkg/client"
	"github.com/sd400mp/mp-go/pkg/connection"
)

var demoNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// lockedBuffer is a bytes.Buffer safe for the poller goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// Take returns and clears the buffered output.
func (b *lockedBuffer) Take() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.buf.String()
	b.buf.Reset()
	return s
}

type fixture struct {
	srv     *mpsim.Server
	client  *client.Client
	session *connection.Manager
	console *Console
	out     *lockedBuffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := mpsim.Demo(demoNow)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	cfg := client.DefaultConfig()
	cfg.BaseURL = ts.URL
	cfg.User = mpsim.DemoUser
	cfg.Password = mpsim.DemoPassword
	cfg.Registerer = prometheus.NewRegistry()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := client.New(cfg)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	session := connection.NewManager(c.Login)
	t.Cleanup(session.Close)

	out := &lockedBuffer{}
	con := NewWithWriter(c, session, 10*time.Millisecond, out)
	con.now = func() time.Time { return demoNow }

	return &fixture{srv: srv, client: c, session: session, console: con, out: out}
}

// run executes a command line and returns its output.
func (f *fixture) run(t *testing.T, line string) string {
	t.Helper()
	quit := f.console.Exec(context.Background(), line)
	require.False(t, quit)
	return f.out.Take()
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	out := f.run(t, "login")
	require.Contains(t, out, "Logged in as operator")
}

func TestLoginAndStatus(t *testing.T) {
	f := newFixture(t)

	out := f.run(t, "status")
	assert.Contains(t, out, "Logged in:     false")

	f.login(t)
	assert.Equal(t, connection.StateLoggedIn, f.session.State())

	out = f.run(t, "status")
	assert.Contains(t, out, "LOGGED_IN")
	assert.Contains(t, out, "User:          operator")
	assert.Contains(t, out, "API version:   3")
	assert.Contains(t, out, "Subscriptions: 0")
	assert.Contains(t, out, "Poller:        stopped")

	// A second login refreshes the token instead of failing.
	out = f.run(t, "login")
	assert.Contains(t, out, "Logged in as operator")
}

func TestLoginFailure(t *testing.T) {
	f := newFixture(t)
	f.srv.Fail("/api/auth", 500)

	out := f.run(t, "login")
	assert.Contains(t, out, "Login failed")
	assert.Equal(t, connection.StateLoggedOut, f.session.State())
}

func TestCatalogueCommands(t *testing.T) {
	f := newFixture(t)

	assert.Contains(t, f.run(t, "plugins"), "not logged in")
	f.login(t)

	out := f.run(t, "plugins")
	assert.Contains(t, out, "Plugins (2)")
	assert.Contains(t, out, "sd400  [prps]")

	out = f.run(t, "tags")
	assert.Contains(t, out, "Previewable tags")
}

func TestEventsCommand(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	out := f.run(t, "events eq-1")
	assert.Contains(t, out, "Switchgear A/Cable 1/1")
	assert.Contains(t, out, "Internal")
	assert.Contains(t, out, "active")

	out = f.run(t, "events eq-1 24h tp-2")
	assert.NotContains(t, out, "Cable 1/")
	assert.Contains(t, out, "Switchgear A/Cable 2/")

	assert.Contains(t, f.run(t, "events"), "Usage")
}

func TestStatCommand(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	out := f.run(t, "stat")
	assert.Contains(t, out, "Server uptime: 96h0m0s")
	assert.Contains(t, out, "eq-1: 2 test points")
	assert.Contains(t, out, "ok 1, warning 1, alarm 0")
	assert.Contains(t, out, "connected 1, disconnected 1")
	assert.NotContains(t, out, "total")
}

func TestDatasetCommands(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	assert.Contains(t, f.run(t, "index tp-1"), "4 datasets")
	assert.Contains(t, f.run(t, "compare tp-1 tp-2"), "8 datasets")
	assert.Contains(t, f.run(t, "compare 24h tp-1"), "4 datasets")
	assert.Contains(t, f.run(t, "archive tp-1 6h"), "6 samples")
	assert.Contains(t, f.run(t, "archive tp-1 6h x"), "Invalid type")
}

func TestValueCommands(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	out := f.run(t, "values tp-1 tp-2")
	assert.Contains(t, out, "7 values")
	assert.Contains(t, out, "tp-1  Average amplitude: 12.5  (2024-05-01 12:00:00)")
	assert.Contains(t, out, "tp-1  vendor/fw: 4.2.1")

	assert.Contains(t, f.run(t, "single tp-1 6h"), "Average amplitude: 3  (2024-05-01 11:00:00)")
	assert.Contains(t, f.run(t, "single tp-2"), "No value")

	out = f.run(t, "accum tp-1 24h mont/pd/magAv")
	assert.Contains(t, out, "PD: Internal, 82% (state 1)")
	assert.Contains(t, out, "Corona")
	assert.Contains(t, out, "Average amplitude: 11.75")
	assert.Contains(t, f.run(t, "accum tp-2"), "No result")

	assert.Contains(t, f.run(t, "values"), "Usage")
	assert.Contains(t, f.run(t, "single"), "Usage")
	assert.Contains(t, f.run(t, "accum"), "Usage")
}

func TestSubscribeAndPoll(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	out := f.run(t, "subscribe eq-1 ds-2 tp-2")
	assert.Contains(t, out, "No test point could be subscribed")

	out = f.run(t, "subscribe eq-1 ds-1 tp-1")
	assert.Contains(t, out, "Streaming 1 test point(s): tp-1")
	assert.Equal(t, []string{"tp-1"}, f.srv.Streaming())

	f.srv.QueueFrames("tp-1", json.RawMessage(`[1,2]`))
	out = f.run(t, "poll")
	assert.Contains(t, out, "[FRAMES] tp-1: 5 bytes")
	assert.Contains(t, out, "Delivered 1, dropped 0")

	out = f.run(t, "unsubscribe")
	assert.Contains(t, out, "All streams stopped")
	assert.Empty(t, f.srv.Streaming())
}

func TestSessionLost(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.srv.ExpireSessions()

	out := f.run(t, "poll")
	assert.Contains(t, out, "Poll failed")
	assert.Contains(t, out, "logging in again")
	assert.Equal(t, connection.StateRelogin, f.session.State())
}

func TestResubscribe(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.run(t, "subscribe eq-1 ds-1 tp-1")

	f.srv.ExpireSessions()
	require.NoError(t, f.client.Login(context.Background()))
	f.console.Resubscribe(context.Background())

	assert.Contains(t, f.out.Take(), "Resubscribed (1 active, ok=true)")
	assert.Equal(t, []string{"tp-1"}, f.client.Subscriptions().IDs())
}

func TestRunAndStop(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.run(t, "subscribe eq-1 ds-1 tp-1")

	assert.Contains(t, f.run(t, "run x"), "Invalid interval")
	assert.Contains(t, f.run(t, "run"), "Poller started")
	assert.Contains(t, f.run(t, "run"), "already running")

	f.srv.QueueFrames("tp-1", json.RawMessage(`[3]`))
	require.Eventually(t, func() bool {
		return len(f.srv.Requests("/api/prps")) > 0
	}, time.Second, 5*time.Millisecond)

	out := f.run(t, "stop")
	assert.Contains(t, out, "Poller stopped")
	assert.Contains(t, f.run(t, "stop"), "not running")
}

func TestExecMisc(t *testing.T) {
	f := newFixture(t)

	assert.Contains(t, f.run(t, "bogus"), "Unknown command: bogus")
	assert.Empty(t, f.run(t, "   "))
	assert.Contains(t, f.run(t, "help"), "MP Client Commands")
	assert.True(t, f.console.Exec(context.Background(), "quit"))
}

func TestMergeCandidates(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.run(t, "subscribe eq-1 ds-1 tp-1")
	f.run(t, "subscribe eq-1 ds-1 tp-1 tp-2")

	f.console.mu.Lock()
	defer f.console.mu.Unlock()
	ids := make([]string, 0, len(f.console.candidates))
	for _, c := range f.console.candidates {
		ids = append(ids, c.TestPoint.ID)
	}
	assert.Equal(t, "tp-1,tp-2", strings.Join(ids, ","))
}
