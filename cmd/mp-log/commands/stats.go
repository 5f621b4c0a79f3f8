package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/sd400mp/mp-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	Segments          int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Sessions          map[string]*SessionStats
	Endpoints         map[string]*EndpointStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// SessionStats holds statistics for a single client session.
type SessionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Server    string
	User      string
}

// EndpointStats holds response statistics for one endpoint.
type EndpointStats struct {
	Responses  int
	Failures   int
	TotalTime  time.Duration
	MaxTime    time.Duration
	TotalBytes int
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Sessions:          make(map[string]*SessionStats),
		Endpoints:         make(map[string]*EndpointStats),
	}

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}
	stats.Segments = reader.Segments()

	printStats(w, stats)
	return nil
}

func (stats *Stats) add(event log.Event) {
	stats.TotalEvents++
	stats.EventsByLayer[event.Layer]++
	stats.EventsByCategory[event.Category]++
	stats.EventsByDirection[event.Direction]++

	if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
		stats.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(stats.TimeRange.End) {
		stats.TimeRange.End = event.Timestamp
	}

	sess, ok := stats.Sessions[event.SessionID]
	if !ok {
		sess = &SessionStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
		stats.Sessions[event.SessionID] = sess
	}
	sess.Events++
	if event.Timestamp.After(sess.LastSeen) {
		sess.LastSeen = event.Timestamp
	}
	if sess.Server == "" {
		sess.Server = event.Server
	}
	if sess.User == "" {
		sess.User = event.User
	}

	if x := event.Exchange; x != nil && x.Type == log.ExchangeResponse {
		ep, ok := stats.Endpoints[x.Endpoint]
		if !ok {
			ep = &EndpointStats{}
			stats.Endpoints[x.Endpoint] = ep
		}
		ep.Responses++
		ep.TotalBytes += x.Size
		if x.Duration != nil {
			ep.TotalTime += *x.Duration
			ep.MaxTime = max(ep.MaxTime, *x.Duration)
		}
		if x.Code != nil && *x.Code != 200 {
			ep.Failures++
		}
	}

	if event.Error != nil {
		stats.Errors++
	}
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== MP Protocol Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintf(w, "Segments:     %d\n", stats.Segments)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerEnvelope, log.LayerClient} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryExchange, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.Endpoints) > 0 {
		fmt.Fprintln(w, "Endpoints:")
		names := make([]string, 0, len(stats.Endpoints))
		for name := range stats.Endpoints {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			ep := stats.Endpoints[name]
			avg := ep.TotalTime / time.Duration(ep.Responses)
			fmt.Fprintf(w, "  %-16s %d responses, %d failed, avg %s, max %s, %d bytes\n",
				name, ep.Responses, ep.Failures, formatDuration(avg), formatDuration(ep.MaxTime), ep.TotalBytes)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))
	if len(stats.Sessions) > 0 {
		type sessionInfo struct {
			id    string
			stats *SessionStats
		}
		sessions := make([]sessionInfo, 0, len(stats.Sessions))
		for id, ss := range stats.Sessions {
			sessions = append(sessions, sessionInfo{id, ss})
		}
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].stats.FirstSeen.Before(sessions[j].stats.FirstSeen)
		})

		fmt.Fprintln(w, "")
		for _, s := range sessions {
			duration := s.stats.LastSeen.Sub(s.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenID(s.id), s.stats.Events, duration)
			if s.stats.Server != "" {
				fmt.Fprintf(w, "           Server: %s\n", s.stats.Server)
			}
			if s.stats.User != "" {
				fmt.Fprintf(w, "           User: %s\n", s.stats.User)
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
