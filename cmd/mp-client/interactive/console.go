// Package interactive provides the interactive command-line interface
// for mp-client.
package interactive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/sd400mp/mp-go/pkg/client"
	"github.com/sd400mp/mp-go/pkg/connection"
	"github.com/sd400mp/mp-go/pkg/subscription"
)

// DefaultWindow is the query window used when a command omits one.
const DefaultWindow = 24 * time.Hour

// Console handles interactive mode for mp-client.
type Console struct {
	client  *client.Client
	session *connection.Manager
	rl      *readline.Instance
	out     io.Writer
	now     func() time.Time

	pollInterval time.Duration

	mu         sync.Mutex
	candidates []subscription.Candidate
	pollCancel context.CancelFunc
	pollDone   chan struct{}
}

// New creates a console reading commands from the terminal.
func New(c *client.Client, session *connection.Manager, pollInterval time.Duration) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "mp> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		HistoryLimit:    200,
		AutoComplete:    completer(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	con := NewWithWriter(c, session, pollInterval, rl.Stdout())
	con.rl = rl
	return con, nil
}

// NewWithWriter creates a console without a terminal. Commands are fed
// through Exec and output goes to w.
func NewWithWriter(c *client.Client, session *connection.Manager, pollInterval time.Duration, w io.Writer) *Console {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Console{
		client:       c,
		session:      session,
		out:          w,
		now:          time.Now,
		pollInterval: pollInterval,
	}
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("login"),
		readline.PcItem("status"),
		readline.PcItem("tags"),
		readline.PcItem("plugins"),
		readline.PcItem("events"),
		readline.PcItem("stat"),
		readline.PcItem("index"),
		readline.PcItem("compare"),
		readline.PcItem("archive"),
		readline.PcItem("values"),
		readline.PcItem("single"),
		readline.PcItem("accum"),
		readline.PcItem("subscribe"),
		readline.PcItem("unsubscribe"),
		readline.PcItem("poll"),
		readline.PcItem("run"),
		readline.PcItem("stop"),
		readline.PcItem("quit"),
	)
}

// Stdout returns a writer that coordinates with the readline input.
// Use this for log output to avoid interfering with the prompt.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()
	defer c.stopPoller()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if quit := c.Exec(ctx, line); quit {
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Exec runs one command line and reports whether the console should exit.
func (c *Console) Exec(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "login":
		c.cmdLogin(ctx)
	case "status", "st":
		c.cmdStatus()
	case "tags":
		c.cmdTags()
	case "plugins":
		c.cmdPlugins()
	case "events", "ev":
		c.cmdEvents(ctx, args)
	case "stat":
		c.cmdStat(ctx, args)
	case "index":
		c.cmdIndex(ctx, args)
	case "compare":
		c.cmdCompare(ctx, args)
	case "archive":
		c.cmdArchive(ctx, args)
	case "values", "val":
		c.cmdValues(ctx, args)
	case "single":
		c.cmdSingle(ctx, args)
	case "accum":
		c.cmdAccumulated(ctx, args)
	case "subscribe", "sub":
		c.cmdSubscribe(ctx, args)
	case "unsubscribe", "unsub":
		c.cmdUnsubscribe(ctx)
	case "poll":
		c.cmdPoll(ctx)
	case "run":
		c.cmdRun(ctx, args)
	case "stop":
		c.cmdStop()
	case "quit", "exit", "q":
		c.stopPoller()
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
MP Client Commands:
  Session:
    login                          - Log in (again)
    status                         - Show session and subscription status
    tags                           - List previewable tags
    plugins                        - List data-source plugins

  History:
    events <eq-id> [window] [tp-id...] - Show state intervals (window e.g. 24h)
    stat [eq-id...]                - Show statistics summaries
    index <tp-id> [window]         - List dataset dates of a test point
    compare <tp-id>...             - List dataset dates shared by test points
    archive <data-id> [window] [type] - Show archived samples

  Values:
    values <tp-id>...              - Show current values
    single <tp-id> [window] [tag]  - Show the latest value in a window
    accum <tp-id> [window] [tag]   - Show the accumulated PD result

  Streaming:
    subscribe <eq-id> <ds-id> <tp-id>... - Stream PRPS frames of test points
    unsubscribe                    - Stop all streams
    poll                           - Poll frames once
    run [interval]                 - Start the background poller
    stop                           - Stop the background poller

  quit                             - Exit`)
}

// window parses an optional duration argument at args[i].
func window(args []string, i int) (time.Duration, bool) {
	if len(args) <= i {
		return DefaultWindow, false
	}
	d, err := time.ParseDuration(args[i])
	if err != nil || d <= 0 {
		return DefaultWindow, false
	}
	return d, true
}

// report prints err and flags a lost session to the session manager.
func (c *Console) report(what string, err error) {
	fmt.Fprintf(c.out, "%s failed: %v\n", what, err)
	if errors.Is(err, client.ErrUnauthorized) && c.session != nil {
		fmt.Fprintln(c.out, "Session rejected by the server, logging in again...")
		c.session.NotifySessionLost()
	}
}

// frameHandler prints a line per delivered frame batch.
func (c *Console) frameHandler() subscription.Handler {
	return subscription.HandlerFunc(func(testPointID string, frames json.RawMessage) {
		fmt.Fprintf(c.out, "[FRAMES] %s: %d bytes\n", testPointID, len(frames))
	})
}

// Resubscribe replays the last subscribe command. It is called after a
// re-login since the server forgets streams with the session.
func (c *Console) Resubscribe(ctx context.Context) {
	c.mu.Lock()
	candidates := c.candidates
	c.mu.Unlock()
	if len(candidates) == 0 {
		return
	}
	ok, err := c.client.Subscribe(ctx, candidates, true)
	if err != nil {
		fmt.Fprintf(c.out, "Resubscribe failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Resubscribed (%d active, ok=%t)\n", c.client.Subscriptions().Count(), ok)
}
