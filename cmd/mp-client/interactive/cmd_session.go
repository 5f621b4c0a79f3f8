package interactive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sd400mp/mp-go/pkg/client"
	"github.com/sd400mp/mp-go/pkg/connection"
)

func (c *Console) cmdLogin(ctx context.Context) {
	var err error
	if c.session != nil {
		err = c.session.Login(ctx)
	}
	if c.session == nil || errors.Is(err, connection.ErrAlreadyLoggedIn) {
		err = c.client.Login(ctx)
	}
	if err != nil {
		fmt.Fprintf(c.out, "Login failed: %v\n", err)
		return
	}
	name, _ := c.client.Claim(client.ClaimName)
	fmt.Fprintf(c.out, "Logged in as %s (API version %d)\n", name, c.client.APIVersion())
}

func (c *Console) cmdStatus() {
	fmt.Fprintln(c.out, "Status:")
	fmt.Fprintf(c.out, "  Session:       %s\n", c.client.SessionID())
	if c.session != nil {
		fmt.Fprintf(c.out, "  State:         %s\n", c.session.State())
	}
	fmt.Fprintf(c.out, "  Logged in:     %t\n", c.client.LoggedIn())
	if name, ok := c.client.Claim(client.ClaimName); ok {
		fmt.Fprintf(c.out, "  User:          %s\n", name)
	}
	if role, ok := c.client.Claim(client.ClaimRole); ok {
		fmt.Fprintf(c.out, "  Role:          %s\n", role)
	}
	fmt.Fprintf(c.out, "  API version:   %d\n", c.client.APIVersion())

	ids := c.client.Subscriptions().IDs()
	fmt.Fprintf(c.out, "  Subscriptions: %d", len(ids))
	if len(ids) > 0 {
		fmt.Fprintf(c.out, " (%s)", strings.Join(ids, ", "))
	}
	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "  Poller:        %s\n", c.pollerState())
}

func (c *Console) cmdTags() {
	tags := c.client.PreviewTags()
	if len(tags) == 0 {
		fmt.Fprintln(c.out, "No previewable tags (not logged in?)")
		return
	}
	catalog := c.client.Tags()
	fmt.Fprintf(c.out, "Previewable tags (%d of %d):\n", len(tags), len(catalog))
	for _, key := range tags {
		t, _ := catalog.Lookup(key)
		fmt.Fprintf(c.out, "  %-16s %s\n", key, t.Title)
	}
}

func (c *Console) cmdPlugins() {
	plugins := c.client.Plugins()
	if len(plugins) == 0 {
		fmt.Fprintln(c.out, "No plugins (not logged in?)")
		return
	}
	fmt.Fprintf(c.out, "Plugins (%d):\n", len(plugins))
	for _, p := range plugins {
		stream := ""
		if p.Options.Prps {
			stream = "  [prps]"
		}
		fmt.Fprintf(c.out, "  %s%s\n", p.Key, stream)
	}
}
