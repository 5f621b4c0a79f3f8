package interactive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sd400mp/mp-go/pkg/subscription"
)

func (c *Console) cmdSubscribe(ctx context.Context, args []string) {
	if len(args) < 3 {
		fmt.Fprintln(c.out, "Usage: subscribe <eq-id> <ds-id> <tp-id>...")
		return
	}
	eq, ds := args[0], args[1]
	candidates := subscription.Candidates(args[2:],
		func(tp string) subscription.Descriptor {
			return subscription.Descriptor{ID: tp, EquipmentID: eq, DataSourceID: ds, Enabled: true}
		},
		func(string) subscription.Handler { return c.frameHandler() },
	)

	ok, err := c.client.Subscribe(ctx, candidates, false)
	if err != nil {
		c.report("Subscribe", err)
		return
	}

	c.mu.Lock()
	c.candidates = mergeCandidates(c.candidates, candidates)
	c.mu.Unlock()

	ids := c.client.Subscriptions().IDs()
	if !ok {
		fmt.Fprintln(c.out, "No test point could be subscribed (data source cannot stream?)")
		return
	}
	fmt.Fprintf(c.out, "Streaming %d test point(s): %s\n", len(ids), strings.Join(ids, ", "))
}

// mergeCandidates appends added to cur, replacing entries with the same id.
func mergeCandidates(cur, added []subscription.Candidate) []subscription.Candidate {
	out := make([]subscription.Candidate, 0, len(cur)+len(added))
	replaced := make(map[string]bool, len(added))
	for _, a := range added {
		replaced[a.TestPoint.ID] = true
	}
	for _, c := range cur {
		if !replaced[c.TestPoint.ID] {
			out = append(out, c)
		}
	}
	return append(out, added...)
}

func (c *Console) cmdUnsubscribe(ctx context.Context) {
	c.mu.Lock()
	c.candidates = nil
	c.mu.Unlock()

	if err := c.client.UnsubscribeAll(ctx); err != nil {
		c.report("Unsubscribe", err)
		return
	}
	fmt.Fprintln(c.out, "All streams stopped")
}

func (c *Console) cmdPoll(ctx context.Context) {
	res, err := c.client.Poll(ctx)
	if err != nil {
		c.report("Poll", err)
		return
	}
	fmt.Fprintf(c.out, "Delivered %d, dropped %d\n", res.Delivered, res.Dropped)
}

func (c *Console) cmdRun(ctx context.Context, args []string) {
	interval := c.pollInterval
	if len(args) > 0 {
		d, err := time.ParseDuration(args[0])
		if err != nil || d <= 0 {
			fmt.Fprintf(c.out, "Invalid interval: %s\n", args[0])
			return
		}
		interval = d
	}

	c.mu.Lock()
	if c.pollCancel != nil {
		c.mu.Unlock()
		fmt.Fprintln(c.out, "Poller already running")
		return
	}
	pctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.pollCancel = cancel
	c.pollDone = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		err := c.client.RunPoller(pctx, interval, nil)
		if err != nil && !errors.Is(err, context.Canceled) {
			c.report("Poller", err)
		}
		c.mu.Lock()
		if c.pollDone == done {
			c.pollCancel = nil
			c.pollDone = nil
		}
		c.mu.Unlock()
	}()
	fmt.Fprintf(c.out, "Poller started (every %s)\n", interval)
}

func (c *Console) cmdStop() {
	if !c.stopPoller() {
		fmt.Fprintln(c.out, "Poller not running")
		return
	}
	fmt.Fprintln(c.out, "Poller stopped")
}

// stopPoller cancels the background poller and waits for it. It reports
// whether a poller was running.
func (c *Console) stopPoller() bool {
	c.mu.Lock()
	cancel, done := c.pollCancel, c.pollDone
	c.pollCancel = nil
	c.pollDone = nil
	c.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	<-done
	return true
}

func (c *Console) pollerState() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pollCancel != nil {
		return "running"
	}
	return "stopped"
}
