// Command mp-client is a command-line client for MP monitoring servers.
//
// It logs in, keeps the session alive and either runs an interactive console
// or streams PRPS frames of selected test points until interrupted.
//
// Usage:
//
//	mp-client [flags]
//
// Examples:
//
//	# Interactive console against a local simulator
//	mp-client -url http://localhost:8080 -user operator -password operator
//
//	# Find the server via mDNS and stream two test points with metrics
//	mp-client -discover -interactive=false -eq eq-1 -ds ds-1 -tp tp-1,tp-2 \
//	    -metrics-addr :9102 -protocol-log session.mplog
//
//	# Read settings from a file, overriding the log level
//	mp-client -config /etc/mp/client.yaml -log-level debug
//
// Interactive Commands:
//
//	login, status, tags, plugins
//	events <eq-id> [window] [tp-id...]
//	stat [eq-id...]
//	index <tp-id> [window], compare <tp-id>..., archive <data-id> [window] [type]
//	subscribe <eq-id> <ds-id> <tp-id>..., unsubscribe, poll, run [interval], stop
//	quit
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sd400mp/mp-go/cmd/mp-client/interactive"
	"github.com/sd400mp/mp-go/pkg/client"
	"github.com/sd400mp/mp-go/pkg/connection"
	"github.com/sd400mp/mp-go/pkg/discovery"
	"github.com/sd400mp/mp-go/pkg/log"
	"github.com/sd400mp/mp-go/pkg/subscription"
)

// discoverTimeout bounds the mDNS lookup at startup.
const discoverTimeout = 10 * time.Second

func main() {
	config, err := parseConfig(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if err := run(config); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(config Config) error {
	level := parseLevel(config.LogLevel)
	logOut := &switchWriter{w: os.Stderr}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	url := config.URL
	if url == "" {
		srv, err := discover(ctx, config)
		if err != nil {
			return fmt.Errorf("discover server: %w", err)
		}
		url = srv.URL()
		logger.Info("server discovered", "instance", srv.InstanceName, "url", url, "api", srv.APIVersion)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	cc := config.clientConfig(url)
	cc.Logger = logger
	cc.Registerer = reg

	protocol := log.NewMultiLogger()
	defer protocol.Close()
	if config.ProtocolLog != "" {
		fl, err := log.NewFileLogger(config.ProtocolLog, log.WithTool("mp-client"), log.WithServer(url))
		if err != nil {
			return fmt.Errorf("open protocol log: %w", err)
		}
		protocol.Add(fl)
	}
	if level <= slog.LevelDebug {
		protocol.Add(log.NewSlogAdapter(logger))
	}
	if protocol.Len() > 0 {
		cc.ProtocolLogger = protocol
	}

	c, err := client.New(cc)
	if err != nil {
		return err
	}
	defer c.Close()

	session := connection.NewManager(c.Login)
	session.OnStateChange(func(oldState, newState connection.State) {
		logger.Debug("session state", "from", oldState, "to", newState)
	})
	session.OnRetrying(func(attempt int, delay time.Duration) {
		logger.Info("logging in again", "attempt", attempt, "delay", delay)
	})
	session.Start()
	defer session.Close()

	if config.MetricsAddr != "" {
		stop := serveMetrics(config.MetricsAddr, reg, session, logger)
		defer stop()
	}

	if err := session.Login(ctx); err != nil {
		if !config.Interactive {
			return fmt.Errorf("login: %w", err)
		}
		logger.Warn("login failed, use 'login' to retry", "error", err)
	}

	if config.Interactive {
		return runInteractive(ctx, cancel, c, session, config, logOut)
	}
	return runStream(ctx, c, session, config, logger)
}

func runInteractive(ctx context.Context, cancel context.CancelFunc, c *client.Client, session *connection.Manager, config Config, logOut *switchWriter) error {
	con, err := interactive.New(c, session, config.PollInterval)
	if err != nil {
		return err
	}
	// Route log output through readline so it does not garble the prompt.
	logOut.Set(con.Stdout())
	defer logOut.Set(os.Stderr)

	session.OnLoggedIn(func() { go con.Resubscribe(ctx) })
	con.Run(ctx, cancel)
	return nil
}

// runStream subscribes the configured test points and polls until ctx is
// done. A rejected session is handed to the session manager; polling resumes
// after the re-login.
func runStream(ctx context.Context, c *client.Client, session *connection.Manager, config Config, logger *slog.Logger) error {
	if len(config.TestPoints) == 0 {
		logger.Info("no test points selected, keeping the session alive")
		<-ctx.Done()
		return nil
	}

	candidates := subscription.Candidates(config.TestPoints,
		func(tp string) subscription.Descriptor {
			return subscription.Descriptor{ID: tp, EquipmentID: config.Equipment, DataSourceID: config.DataSource, Enabled: true}
		},
		func(string) subscription.Handler {
			return subscription.HandlerFunc(func(id string, frames json.RawMessage) {
				logger.Info("frames", "test_point", id, "bytes", len(frames))
			})
		},
	)

	loggedIn := make(chan struct{}, 1)
	session.OnLoggedIn(func() {
		select {
		case loggedIn <- struct{}{}:
		default:
		}
	})

	retry := config.backoff(connection.DefaultBackoffConfig())
	for {
		ok, err := c.Subscribe(ctx, candidates, true)
		switch {
		case err != nil:
			logger.Warn("subscribe failed", "error", err)
		case !ok:
			return errors.New("none of the selected test points can stream")
		default:
			retry.Reset()
			logger.Info("streaming", "test_points", c.Subscriptions().IDs())
			err = c.RunPoller(ctx, config.PollInterval, config.backoff(connection.PollBackoffConfig()))
		}

		if ctx.Err() != nil {
			shutdown, done := context.WithTimeout(context.Background(), 5*time.Second)
			if err := c.UnsubscribeAll(shutdown); err != nil {
				logger.Warn("unsubscribe failed", "error", err)
			}
			done()
			return nil
		}

		if !errors.Is(err, client.ErrUnauthorized) {
			if werr := retry.Wait(ctx); errors.Is(werr, connection.ErrExhausted) {
				return fmt.Errorf("giving up after %d failures: %w", retry.Attempts(), err)
			} else if werr != nil {
				return nil
			}
			continue
		}

		session.NotifySessionLost()
		select {
		case <-ctx.Done():
			return nil
		case <-loggedIn:
		}
	}
}

func discover(ctx context.Context, config Config) (*discovery.Server, error) {
	ctx, cancel := context.WithTimeout(ctx, discoverTimeout)
	defer cancel()

	browser := discovery.NewMDNSBrowser(discovery.BrowserConfig{Interface: config.Iface})
	defer browser.Stop()
	return browser.FindFirst(ctx, config.Instance)
}

// serveMetrics serves /metrics and /healthz on addr and returns a stop function.
func serveMetrics(addr string, reg *prometheus.Registry, session *connection.Manager, logger *slog.Logger) func() {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		state := session.State()
		if state != connection.StateLoggedIn {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		fmt.Fprintln(w, state)
	}).Methods(http.MethodGet)

	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// switchWriter forwards writes to a replaceable writer.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Set replaces the destination.
func (s *switchWriter) Set(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = w
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
