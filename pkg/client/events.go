package client

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sd400mp/mp-go/pkg/display"
	"github.com/sd400mp/mp-go/pkg/events"
)

// EventQuery selects the events of one equipment.
type EventQuery struct {
	EquipmentID string
	From        time.Time
	To          time.Time

	// TestPointIDs restricts the query. Empty means all test points.
	TestPointIDs []string

	// WithConnectionState includes the connection state tag.
	WithConnectionState bool
}

// Events fetches the state events of an equipment and reconstructs them
// into intervals grouped by tag. PD class names and equipment/test point
// names are resolved along the way.
func (c *Client) Events(ctx context.Context, q EventQuery) (*events.List, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}

	req := EventRequest{
		ID:                  ID(q.EquipmentID),
		From:                q.From.UTC(),
		To:                  q.To.UTC(),
		WithConnectionState: q.WithConnectionState,
		TestPoints:          NewIDList(q.TestPointIDs),
	}
	env, err := c.postChecked(ctx, "/api/events", c.request(req))
	if err != nil {
		return nil, err
	}
	data, err := decodeData[EventsData]("/api/events", env)
	if err != nil {
		return nil, err
	}

	list := events.NewList()
	if err := c.resolveNames(ctx, list, data); err != nil {
		return nil, err
	}

	b := events.Builder{
		Reconstructor: c.reconstructor,
		Catalog:       c.Tags(),
		Display:       c.display,
	}
	for _, eq := range data.Equipment {
		for _, tp := range eq.TestPoints {
			for _, t := range tp.Tags {
				if err := b.Add(list, string(eq.ID), string(tp.ID), tagPayload(t)); err != nil {
					return nil, fmt.Errorf("events of %s/%s/%s: %w", eq.ID, tp.ID, t.Tag, err)
				}
			}
		}
	}

	c.logger.Debug("events loaded", "equipment", q.EquipmentID, "groups", len(list.Groups()), "intervals", list.Len())
	return list, nil
}

func tagPayload(t EventTag) events.TagPayload {
	p := events.TagPayload{Tag: t.Tag}
	if t.Events != nil {
		p.Events = t.Events.Payload
	}
	if s := t.Satellite; s != nil && s.Events != nil {
		p.Satellite = &events.SatellitePayload{
			Tag:    s.Tag,
			Sensor: display.SensorType(s.Sensor),
			Unit:   display.Unit(s.Unit),
			Events: s.Events.Payload,
		}
	}
	return p
}

// resolveNames loads PD classes and, when the response names any test
// point, equipment and test point names. The test point name lookup is best
// effort.
func (c *Client) resolveNames(ctx context.Context, list *events.List, data EventsData) error {
	var eqIDs, tpIDs []string
	for _, eq := range data.Equipment {
		eqIDs = append(eqIDs, string(eq.ID))
		for _, tp := range eq.TestPoints {
			tpIDs = append(tpIDs, string(tp.ID))
		}
	}

	var (
		classes []PdClassInfo
		eqNames []Name
		tpNames []Name
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		env, err := c.postChecked(gctx, "/api/pdeClasses", c.requestCulture(nil))
		if err != nil {
			return err
		}
		classes, err = decodeData[[]PdClassInfo]("/api/pdeClasses", env)
		return err
	})
	if len(eqIDs) > 0 && len(tpIDs) > 0 {
		g.Go(func() error {
			env, err := c.postChecked(gctx, "/api/nameseq", c.request(NewIDList(eqIDs)))
			if err != nil {
				return err
			}
			eqNames, err = decodeData[[]Name]("/api/nameseq", env)
			return err
		})
		g.Go(func() error {
			env, err := c.post(gctx, "/api/namestp", c.request(NewIDList(tpIDs)))
			if err != nil || !env.OK() {
				c.logger.Warn("test point names unavailable", "error", err)
				return nil
			}
			names, err := decodeData[[]Name]("/api/namestp", env)
			if err != nil {
				c.logger.Warn("test point names unreadable", "error", err)
				return nil
			}
			tpNames = names
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, pc := range classes {
		idx := events.PdClassIndex(pc.NativeName)
		list.PdClasses[idx] = events.PdClass{
			Index:       idx,
			NativeName:  pc.NativeName,
			Name:        pc.Name,
			Description: pc.Desc,
		}
	}
	for _, n := range eqNames {
		list.EquipmentNames[string(n.ID)] = n.Name
	}
	for _, n := range tpNames {
		list.TestPointNames[string(n.ID)] = n.Name
	}
	return nil
}
