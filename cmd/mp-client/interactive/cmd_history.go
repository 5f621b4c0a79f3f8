package interactive

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sd400mp/mp-go/pkg/client"
	"github.com/sd400mp/mp-go/pkg/stats"
)

const timeFormat = "2006-01-02 15:04:05"

func (c *Console) cmdEvents(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: events <eq-id> [window] [tp-id...]")
		return
	}
	d, ok := window(args, 1)
	tps := args[1:]
	if ok {
		tps = args[2:]
	}

	now := c.now()
	list, err := c.client.Events(ctx, client.EventQuery{
		EquipmentID:         args[0],
		From:                now.Add(-d),
		To:                  now,
		TestPointIDs:        tps,
		WithConnectionState: true,
	})
	if err != nil {
		c.report("Events", err)
		return
	}

	if list.Len() == 0 {
		fmt.Fprintln(c.out, "No events in window")
		return
	}
	for _, g := range list.Groups() {
		title := g.Tag.Title
		if title == "" {
			title = g.Tag.Key
		}
		fmt.Fprintf(c.out, "%s (%s): %d intervals\n", title, g.Tag.Key, len(g.Intervals))
		for _, iv := range g.Intervals {
			end := "active"
			if !iv.Open() {
				end = iv.End.Format(timeFormat)
			}
			fmt.Fprintf(c.out, "  %-28s %s -> %-19s %10s", list.Label(iv), iv.Start.Format(timeFormat), end, iv.Duration(now).Round(time.Second))
			if text := list.SatelliteText(iv); text != "" {
				fmt.Fprintf(c.out, "  %s", text)
			}
			fmt.Fprintln(c.out)
		}
	}
}

func (c *Console) cmdStat(ctx context.Context, args []string) {
	list, err := c.client.Statistics(ctx, args, false)
	if err != nil {
		c.report("Statistics", err)
		return
	}
	if up := list.Uptime(c.now()); up > 0 {
		fmt.Fprintf(c.out, "Server uptime: %s\n", up.Round(time.Second))
	}

	summaries := list.Summaries()
	if len(summaries) == 0 {
		fmt.Fprintln(c.out, "No statistics")
		return
	}
	for _, s := range summaries {
		c.printSummary(s.EquipmentID, s)
	}
	if len(summaries) > 1 {
		c.printSummary("total", stats.Totals(summaries))
	}
}

func (c *Console) printSummary(label string, s stats.Summary) {
	fmt.Fprintf(c.out, "%s: %g test points\n", label, s.TestPointCount)
	fmt.Fprintf(c.out, "  State:        ok %g, warning %g, alarm %g, undefined %g\n",
		s.State.Ok, s.State.Warning, s.State.Alarm, s.State.Undefined)
	fmt.Fprintf(c.out, "  Connectivity: connected %g, disconnected %g, disabled %g\n",
		s.Connectivity.Connected, s.Connectivity.Disconnected, s.Connectivity.Disabled)
	if s.MaxDatasetTime != nil {
		fmt.Fprintf(c.out, "  Last dataset: %s\n", s.MaxDatasetTime.Format(timeFormat))
	}
	if s.MaxUpdateTime != nil {
		fmt.Fprintf(c.out, "  Last update:  %s\n", s.MaxUpdateTime.Format(timeFormat))
	}
}

func (c *Console) cmdIndex(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: index <tp-id> [window]")
		return
	}
	d, _ := window(args, 1)
	now := c.now()
	dates, err := c.client.DatasetIndex(ctx, args[0], now.Add(-d), now)
	if err != nil {
		c.report("Index", err)
		return
	}
	c.printDates(dates)
}

func (c *Console) cmdCompare(ctx context.Context, args []string) {
	d, ok := window(args, 0)
	if ok {
		args = args[1:]
	}
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: compare [window] <tp-id>...")
		return
	}
	now := c.now()
	dates, err := c.client.ComparableDatasetDates(ctx, args, now.Add(-d), now)
	if err != nil {
		c.report("Compare", err)
		return
	}
	c.printDates(dates)
}

func (c *Console) printDates(dates []time.Time) {
	fmt.Fprintf(c.out, "%d datasets\n", len(dates))
	for _, t := range dates {
		fmt.Fprintf(c.out, "  %s\n", t.Format(timeFormat))
	}
}

func (c *Console) cmdArchive(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: archive <data-id> [window] [type]")
		return
	}
	d, _ := window(args, 1)
	typ := 0
	if len(args) > 2 {
		v, err := strconv.Atoi(args[2])
		if err != nil {
			fmt.Fprintf(c.out, "Invalid type: %s\n", args[2])
			return
		}
		typ = v
	}

	now := c.now()
	samples, err := c.client.Archive(ctx, args[0], now.Add(-d), now, typ)
	if err != nil {
		c.report("Archive", err)
		return
	}
	fmt.Fprintf(c.out, "%d samples\n", len(samples))
	for _, s := range samples {
		fmt.Fprintf(c.out, "  %s  %g\n", s.Timestamp.Format(timeFormat), s.Value)
	}
}
