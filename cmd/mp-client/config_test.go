package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sd400mp/mp-go/pkg/connection"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseConfigFlags(t *testing.T) {
	cfg, err := parseConfig([]string{
		"-url", "http://mp.local:8080",
		"-user", "operator",
		"-password", "secret",
		"-interactive=false",
		"-eq", "eq-1", "-ds", "ds-1", "-tp", "tp-1, tp-2,",
		"-poll-interval", "250ms",
	}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "http://mp.local:8080", cfg.URL)
	assert.Equal(t, "secret", cfg.Password)
	assert.False(t, cfg.Interactive)
	assert.Equal(t, []string{"tp-1", "tp-2"}, cfg.TestPoints)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "en", cfg.Culture)
}

func TestParseConfigFileWithOverrides(t *testing.T) {
	path := writeConfig(t, `
url: http://from-file:8080
user: file-user
password: file-pass
culture: de
timeout: 5s
poll_interval: 2s
test_points: [tp-9]
metrics_addr: ":9102"
decode_offset: 2h
max_failures: 4
`)

	cfg, err := parseConfig([]string{"-config", path, "-user", "flag-user"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, "http://from-file:8080", cfg.URL)
	assert.Equal(t, "flag-user", cfg.User)
	assert.Equal(t, "file-pass", cfg.Password)
	assert.Equal(t, "de", cfg.Culture)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, []string{"tp-9"}, cfg.TestPoints)
	assert.Equal(t, ":9102", cfg.MetricsAddr)
	assert.True(t, cfg.Interactive)

	cc := cfg.clientConfig(cfg.URL)
	assert.Equal(t, "flag-user", cc.User)
	assert.Equal(t, "de", cc.Culture)
	assert.Equal(t, 5*time.Second, cc.Timeout)
	assert.Equal(t, 2*time.Hour, cc.DecodeOffset)
	require.NoError(t, cc.Validate())

	assert.Equal(t, 4, cfg.MaxFailures)
	b := cfg.backoff(connection.PollBackoffConfig())
	for range 3 {
		b.Next()
	}
	assert.False(t, b.Exhausted())
	b.Next()
	assert.True(t, b.Exhausted())
}

func TestParseConfigPasswordFromEnv(t *testing.T) {
	t.Setenv("MP_PASSWORD", "from-env")

	cfg, err := parseConfig([]string{"-url", "http://mp"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Password)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no server", nil},
		{"bad poll interval", []string{"-url", "http://mp", "-poll-interval", "0s"}},
		{"negative max failures", []string{"-url", "http://mp", "-max-failures", "-1"}},
		{"test points without source", []string{"-url", "http://mp", "-interactive=false", "-tp", "tp-1"}},
		{"unknown flag", []string{"-bogus"}},
		{"missing file", []string{"-config", filepath.Join(t.TempDir(), "none.yaml")}},
		{"bad yaml", []string{"-config", writeConfig(t, "url: [unterminated")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseConfig(tt.args, io.Discard)
			assert.Error(t, err)
		})
	}
}

func TestDiscoverRequiresNoURL(t *testing.T) {
	cfg, err := parseConfig([]string{"-discover", "-instance", "MP Lab"}, io.Discard)
	require.NoError(t, err)
	assert.Empty(t, cfg.URL)
	assert.Equal(t, "MP Lab", cfg.Instance)
}

func TestSwitchWriter(t *testing.T) {
	a, b := &lineCollector{}, &lineCollector{}
	w := &switchWriter{w: a}
	_, _ = w.Write([]byte("one"))
	w.Set(b)
	_, _ = w.Write([]byte("two"))

	assert.Equal(t, "one", a.String())
	assert.Equal(t, "two", b.String())
}

type lineCollector struct{ data []byte }

func (l *lineCollector) Write(p []byte) (int, error) {
	l.data = append(l.data, p...)
	return len(p), nil
}

func (l *lineCollector) String() string { return string(l.data) }
