package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sd400mp/mp-go/pkg/connection"
	"github.com/sd400mp/mp-go/pkg/log"
	"github.com/sd400mp/mp-go/pkg/subscription"
)

// DataSources returns the data sources with the given ids under an
// equipment. A nil ids slice asks for all of them.
func (c *Client) DataSources(ctx context.Context, equipmentID string, ids []string) ([]subscription.DataSource, error) {
	req := DataSourceRequest{ID: ID(equipmentID), NeedChildren: true}
	if ids != nil {
		req.Children = refs(ids)
	}
	env, err := c.postChecked(ctx, "/api/datasource", c.request(req))
	if err != nil {
		return nil, err
	}
	records, err := decodeData[[]DataSource]("/api/datasource", env)
	if err != nil {
		return nil, err
	}

	out := make([]subscription.DataSource, 0, len(records))
	for _, r := range records {
		out = append(out, subscription.DataSource{
			ID:      string(r.ID),
			Name:    r.Name,
			Plugin:  r.Plugin,
			Enabled: r.Enabled,
		})
	}
	return out, nil
}

// Plugin returns the capabilities of the plugin registered under key.
func (c *Client) Plugin(key string) (subscription.PluginInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.plugins[key]
	if !ok {
		return subscription.PluginInfo{}, false
	}
	return subscription.PluginInfo{Key: p.Key, PushStream: p.Options.Prps}, true
}

// SetStream enables or disables streaming for ids and returns the ids the
// server reports as enabled.
func (c *Client) SetStream(ctx context.Context, ids []string, enable bool) ([]string, error) {
	req := StreamRequest{Items: refs(ids), Enable: enable}
	env, err := c.postChecked(ctx, "/api/stream", c.request(req))
	if err != nil {
		return nil, err
	}
	data, err := decodeData[StreamData]("/api/stream", env)
	if err != nil {
		return nil, err
	}

	accepted := make([]string, 0, len(data.Enabled))
	for _, r := range data.Enabled {
		accepted = append(accepted, string(r.ID))
	}
	return accepted, nil
}

// PollFrames fetches the queued frames on the unchecked path. A non-200
// envelope yields an empty batch, except for an expired session which is
// returned as a *ProtocolError.
func (c *Client) PollFrames(ctx context.Context) ([]subscription.FrameBatch, error) {
	const endpoint = "/api/prps"

	env, err := c.post(ctx, endpoint, c.request(nil))
	if err != nil {
		return nil, err
	}
	if !env.OK() {
		perr := &ProtocolError{Endpoint: endpoint, Code: env.Code, Message: env.Error}
		if errors.Is(perr, ErrUnauthorized) {
			return nil, perr
		}
		c.logger.Debug("poll returned no frames", "code", env.Code, "error", env.Error)
		return nil, nil
	}

	entries, err := decodeData[[]FrameEntry](endpoint, env)
	if err != nil {
		return nil, err
	}
	batches := make([]subscription.FrameBatch, 0, len(entries))
	for _, e := range entries {
		batches = append(batches, subscription.FrameBatch{ID: string(e.ID), Frames: e.Frames})
	}
	return batches, nil
}

// Subscribe enables streaming for the candidates whose data source can
// stream. See subscription.Manager.Subscribe.
func (c *Client) Subscribe(ctx context.Context, candidates []subscription.Candidate, resetFirst bool) (bool, error) {
	if err := c.requireLogin(); err != nil {
		return false, err
	}
	ok, err := c.subs.Subscribe(ctx, candidates, resetFirst)
	c.metrics.Subscriptions.Set(float64(c.subs.Count()))
	return ok, err
}

// UnsubscribeAll disables every active stream.
func (c *Client) UnsubscribeAll(ctx context.Context) error {
	err := c.subs.UnsubscribeAll(ctx)
	c.metrics.Subscriptions.Set(float64(c.subs.Count()))
	return err
}

// Poll fetches one batch of frames and dispatches it to the subscriptions.
// A missing response counts as an empty batch.
func (c *Client) Poll(ctx context.Context) (subscription.PollResult, error) {
	res, err := c.poll(ctx)
	if isNoResponse(err) {
		return res, nil
	}
	return res, err
}

func (c *Client) poll(ctx context.Context) (subscription.PollResult, error) {
	res, err := c.subs.Poll(ctx)
	c.metrics.FramesDelivered.Add(float64(res.Delivered))
	c.metrics.FramesDropped.Add(float64(res.Dropped))
	return res, err
}

// RunPoller polls every interval until ctx is done or the session expires.
// Failed polls back off with b; a nil b uses connection.PollBackoffConfig.
// It returns ctx.Err() on cancellation, an error matching ErrUnauthorized
// when the server rejects the session, and one matching
// connection.ErrExhausted when b gives up.
func (c *Client) RunPoller(ctx context.Context, interval time.Duration, b *connection.Backoff) error {
	if b == nil {
		b = connection.NewBackoffWithConfig(connection.PollBackoffConfig())
	}
	c.captureState(log.StateEntityPoller, "", "RUNNING", interval.String())
	defer c.captureState(log.StateEntityPoller, "RUNNING", "STOPPED", "")

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		_, err := c.poll(ctx)
		switch {
		case err == nil:
			b.Reset()
			timer.Reset(interval)
		case errors.Is(err, ErrUnauthorized):
			c.logger.Warn("poller stopped: session rejected", "error", err)
			return err
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			delay := b.Next()
			if b.Exhausted() {
				c.logger.Warn("poller stopped: too many failures", "error", err, "attempts", b.Attempts())
				return fmt.Errorf("poll: %w: %w", connection.ErrExhausted, err)
			}
			c.logger.Warn("poll failed", "error", err, "attempt", b.Attempts(), "retry_in", delay)
			timer.Reset(delay)
		}
	}
}
