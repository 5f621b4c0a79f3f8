package client

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sd400mp/mp-go/pkg/series"
	"github.com/sd400mp/mp-go/pkg/stats"
	"github.com/sd400mp/mp-go/pkg/subscription"
)

// Statistics fetches the raw counters of the given equipment ids.
func (c *Client) Statistics(ctx context.Context, equipmentIDs []string, dataSourceInfo bool) (*stats.List, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	req := StatRequest{Items: refs(equipmentIDs), DataSourceInfo: dataSourceInfo}
	env, err := c.postChecked(ctx, "/api/stat", c.request(req))
	if err != nil {
		return nil, err
	}
	list, err := decodeData[stats.List]("/api/stat", env)
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// Summaries fetches statistics and aggregates them per equipment.
func (c *Client) Summaries(ctx context.Context, equipmentIDs []string) ([]stats.Summary, error) {
	list, err := c.Statistics(ctx, equipmentIDs, false)
	if err != nil {
		return nil, err
	}
	return list.Summaries(), nil
}

// DatasetIndex returns the dataset times of a test point within [from, to].
// A missing response yields no times.
func (c *Client) DatasetIndex(ctx context.Context, testPointID string, from, to time.Time) ([]time.Time, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	req := IndexRequest{
		UniqueID: "null",
		ID:       &IDRef{ID: ID(testPointID)},
		From:     from.UTC(),
		To:       to.UTC(),
	}
	env, err := c.postChecked(ctx, "/api/index", c.request(req))
	if isNoResponse(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	data, err := decodeData[IndexData]("/api/index", env)
	if err != nil {
		return nil, err
	}
	return data.Time, nil
}

// ComparableDatasetDates returns the union of the dataset times of several
// test points, sorted and without duplicates.
func (c *Client) ComparableDatasetDates(ctx context.Context, testPointIDs []string, from, to time.Time) ([]time.Time, error) {
	var (
		mu  sync.Mutex
		all []time.Time
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.lookupLimit())
	for _, id := range testPointIDs {
		g.Go(func() error {
			times, err := c.DatasetIndex(gctx, id, from, to)
			if err != nil {
				return err
			}
			mu.Lock()
			all = append(all, times...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(all, func(a, b time.Time) int { return a.Compare(b) })
	return slices.CompactFunc(all, func(a, b time.Time) bool { return a.Equal(b) }), nil
}

// Archive returns the archived samples of a data id within [from, to].
// A missing response yields no samples.
func (c *Client) Archive(ctx context.Context, dataID string, from, to time.Time, typ int) ([]series.Sample, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	req := ArchiveRequest{ID: ID(dataID), From: from.UTC(), To: to.UTC(), Type: typ}
	env, err := c.postChecked(ctx, "/api/archive", c.request(req))
	if isNoResponse(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	data, err := decodeData[ArchiveData]("/api/archive", env)
	if err != nil {
		return nil, err
	}

	s, err := c.decoder.Decode(data.Payload)
	if err != nil {
		return nil, err
	}
	for _, w := range s.Warnings() {
		c.metrics.DecodeWarnings.Inc()
		c.logger.Warn("corrupt payload", "channel", "archive", "id", dataID, "error", w)
	}
	return s.Samples(), nil
}

func (c *Client) lookupLimit() int {
	if c.config.MaxConcurrentLookups > 0 {
		return c.config.MaxConcurrentLookups
	}
	return subscription.DefaultMaxConcurrentLookups
}
