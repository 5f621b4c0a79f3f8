package interactive

import (
	"context"
	"fmt"

	"github.com/sd400mp/mp-go/pkg/client"
)

func (c *Console) cmdValues(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: values <tp-id>...")
		return
	}
	values, err := c.client.Values(ctx, args, nil, nil)
	if err != nil {
		c.report("Values", err)
		return
	}
	fmt.Fprintf(c.out, "%d values\n", len(values))
	for _, v := range values {
		fmt.Fprintf(c.out, "  %s  %s\n", v.TestPointID, formatValue(v))
	}
}

func (c *Console) cmdSingle(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: single <tp-id> [window] [tag]")
		return
	}
	d, _ := window(args, 1)
	now := c.now()
	q := client.SingleQuery{TestPointID: args[0], From: now.Add(-d), To: now, Left: true}
	if len(args) > 2 {
		q.Tag = args[2]
	}
	v, err := c.client.Single(ctx, q)
	if err != nil {
		c.report("Single", err)
		return
	}
	if v == nil {
		fmt.Fprintln(c.out, "No value")
		return
	}
	fmt.Fprintf(c.out, "%s\n", formatValue(*v))
}

func (c *Console) cmdAccumulated(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: accum <tp-id> [window] [tag]")
		return
	}
	d, _ := window(args, 1)
	tag := ""
	if len(args) > 2 {
		tag = args[2]
	}
	now := c.now()
	acc, err := c.client.Accumulated(ctx, args[0], now.Add(-d), now, tag)
	if err != nil {
		c.report("Accumulate", err)
		return
	}
	if acc == nil {
		fmt.Fprintln(c.out, "No result")
		return
	}
	if acc.Pd != nil {
		fmt.Fprintf(c.out, "PD: %s, %.0f%% (state %d)\n", pdName(acc.Pd.PdClassScore), acc.Pd.Value*100, acc.Pd.StateTestPoint)
		for _, p := range acc.Pd.Probability {
			fmt.Fprintf(c.out, "  %-12s %3.0f%%\n", pdName(p), p.Value*100)
		}
	}
	if acc.Value != nil {
		fmt.Fprintf(c.out, "%s\n", formatValue(*acc.Value))
	}
}

func formatValue(v client.Value) string {
	name := v.Key
	units := ""
	if v.Tag != nil {
		if v.Tag.Title != "" {
			name = v.Tag.Title
		}
		units = v.Tag.Units
	}
	text := v.Text
	if v.Null {
		text = "-"
	}
	if units != "" {
		text += " " + units
	}
	if v.Time.IsZero() {
		return fmt.Sprintf("%s: %s", name, text)
	}
	return fmt.Sprintf("%s: %s  (%s)", name, text, v.Time.Format(timeFormat))
}

func pdName(s client.PdClassScore) string {
	if s.Name != "" {
		return s.Name
	}
	return s.NativeName
}
