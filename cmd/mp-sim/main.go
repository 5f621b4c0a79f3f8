// Command mp-sim serves a simulated MP server with a demo dataset.
//
// It is the counterpart of mp-client for local development: one switchgear
// with two cable test points, a day of events around the start time, and a
// frame generator for streamed test points.
//
// Usage:
//
//	mp-sim [flags]
//
// Flags:
//
//	-addr            Listen address (default ":8080")
//	-advertise       Advertise the server via mDNS under this instance name
//	-frames          Interval between generated PRPS frames (0 disables)
//	-log-level       Log level: debug, info, warn, error
//
// Examples:
//
//	# Serve on the default port and advertise on the local network
//	mp-sim -advertise "MP Lab"
//
//	# Log in with the demo account
//	mp-client -url http://localhost:8080 -user operator -password operator
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/handlers"

	"github.com/sd400mp/mp-go/internal/mpsim"
	"github.com/sd400mp/mp-go/pkg/discovery"
)

// Config holds the simulator configuration.
type Config struct {
	Addr           string
	Advertise      string
	Interface      string
	FrameInterval  time.Duration
	LogLevel       string
	ShutdownPeriod time.Duration
}

var config Config

func init() {
	flag.StringVar(&config.Addr, "addr", ":8080", "Listen address")
	flag.StringVar(&config.Advertise, "advertise", "", "mDNS instance name to advertise (empty disables)")
	flag.StringVar(&config.Interface, "iface", "", "Network interface for mDNS")
	flag.DurationVar(&config.FrameInterval, "frames", time.Second, "Interval between generated PRPS frames (0 disables)")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.DurationVar(&config.ShutdownPeriod, "shutdown-timeout", 5*time.Second, "Graceful shutdown timeout")
}

func main() {
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(config.LogLevel)}))
	slog.SetDefault(logger)

	sim := mpsim.Demo(time.Now().UTC())
	sim.Logger = logger

	listener, err := net.Listen("tcp", config.Addr)
	if err != nil {
		logger.Error("listen failed", "addr", config.Addr, "error", err)
		os.Exit(1)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	handler := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(sim.Handler())
	handler = handlers.LoggingHandler(os.Stdout, handler)
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if config.Advertise != "" {
		adv := discovery.NewMDNSAdvertiser(discovery.AdvertiserConfig{Interface: config.Interface})
		info := discovery.Info{
			Name:       config.Advertise,
			APIVersion: strconv.Itoa(mpsim.APIVersion),
			Scheme:     "http",
		}
		if err := adv.Advertise(config.Advertise, port, info); err != nil {
			logger.Warn("mDNS advertising failed", "error", err)
		} else {
			logger.Info("advertising", "instance", config.Advertise, "service", discovery.ServiceType)
			defer adv.Stop()
		}
	}

	if config.FrameInterval > 0 {
		go generateFrames(ctx, sim, config.FrameInterval)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), config.ShutdownPeriod)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", "error", err)
		}
	}()

	logger.Info("MP simulator listening", "addr", listener.Addr().String(), "user", mpsim.DemoUser)
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Goodbye!")
}

// generateFrames queues one synthetic frame per streamed test point on every tick.
func generateFrames(ctx context.Context, sim *mpsim.Server, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var seq int
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			seq++
			for _, id := range sim.Streaming() {
				frame, err := json.Marshal(map[string]any{
					"seq":  seq,
					"time": now.UTC().Format(time.RFC3339Nano),
					"prps": syntheticPRPS(seq),
				})
				if err != nil {
					continue
				}
				sim.QueueFrames(id, frame)
			}
		}
	}
}

// syntheticPRPS returns a coarse 8-bin phase histogram with a moving peak.
func syntheticPRPS(seq int) []int {
	bins := make([]int, 8)
	peak := seq % len(bins)
	for i := range bins {
		d := (i - peak + len(bins)) % len(bins)
		bins[i] = max(0, 40-10*d)
	}
	return bins
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		fmt.Fprintf(os.Stderr, "unknown log level %q, using info\n", s)
		return slog.LevelInfo
	}
	return level
}
