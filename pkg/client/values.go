package client

import (
	"context"
	"strconv"
	"time"

	"github.com/sd400mp/mp-go/pkg/events"
)

// ValueType is the server's type code of a value.
type ValueType int

// Value types.
const (
	ValueBinary ValueType = iota
	ValueFloat
	ValueInt32
	ValueString
	ValueBoolean
	ValueByte
	ValueSByte
	ValueInt64
	ValuePassword
	ValueStream
)

// Value is a tagged value of a test point.
type Value struct {
	TestPointID string
	ID          string
	Key         string
	Type        ValueType

	// Time is zero when the server sent no timestamp.
	Time time.Time

	// Text is the value as sent; Null marks an absent value.
	Text string
	Null bool

	// Tag is nil when the key is not in the catalogue.
	Tag *events.Tag
}

// IsNumber reports whether the value has a numeric type.
func (v Value) IsNumber() bool {
	switch v.Type {
	case ValueFloat, ValueInt32, ValueBoolean, ValueByte, ValueSByte, ValueInt64:
		return true
	}
	return false
}

// Float returns the numeric value. It fails for non-numeric types and
// empty or unparsable text.
func (v Value) Float() (float64, bool) {
	if v.Null || v.Text == "" || !v.IsNumber() {
		return 0, false
	}
	if v.Type == ValueBoolean {
		if b, err := strconv.ParseBool(v.Text); err == nil {
			if b {
				return 1, true
			}
			return 0, true
		}
	}
	f, err := strconv.ParseFloat(v.Text, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Bool returns a boolean value. Numeric text is true when not zero.
func (v Value) Bool() (bool, bool) {
	if v.Type != ValueBoolean {
		return false, false
	}
	f, ok := v.Float()
	return f != 0, ok
}

// ValueQuery selects live values.
type ValueQuery struct {
	TestPointIDs []string

	// Include and Ignore filter by tag key. An empty Include means all.
	Include []string
	Ignore  []string

	// NoValue asks for keys and timestamps only.
	NoValue bool

	// At asks for the values valid at a point in time instead of now.
	At *time.Time
}

// Values returns the current values of the given test points with their
// tags resolved.
func (c *Client) Values(ctx context.Context, testPointIDs, include, ignore []string) ([]Value, error) {
	return c.QueryValues(ctx, ValueQuery{TestPointIDs: testPointIDs, Include: include, Ignore: ignore})
}

// QueryValues runs a value query. A missing response yields no values.
func (c *Client) QueryValues(ctx context.Context, q ValueQuery) ([]Value, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	req := DataRequest{
		TestPoints: refs(q.TestPointIDs),
		Include:    orEmpty(q.Include),
		Ignore:     orEmpty(q.Ignore),
		NoValue:    q.NoValue,
	}
	if q.At != nil {
		at := q.At.UTC()
		req.Timestamp = &at
	}
	env, err := c.postChecked(ctx, "/api/data", c.request(req))
	if isNoResponse(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	data, err := decodeData[ValuesData]("/api/data", env)
	if err != nil {
		return nil, err
	}

	tags := c.Tags()
	var out []Value
	for _, g := range data.Groups {
		for _, e := range g.Online {
			out = append(out, toValue(string(g.ID), e, tags))
		}
	}
	return out, nil
}

// SingleQuery selects one value of a test point within a time range.
type SingleQuery struct {
	TestPointID string
	From, To    time.Time

	// At picks the value nearest to a time inside the range.
	At *time.Time

	// Left and Right extend the search beyond the range edges.
	Left, Right bool

	Tag         string
	Ignore      []string
	PostProcess bool
}

func (q SingleQuery) request() SingleRequest {
	req := SingleRequest{
		ID:          ID(q.TestPointID),
		From:        q.From.UTC(),
		To:          q.To.UTC(),
		Left:        q.Left,
		Right:       q.Right,
		Ignore:      q.Ignore,
		PostProcess: q.PostProcess,
	}
	if q.At != nil {
		at := q.At.UTC()
		req.Time = &at
	}
	if q.Tag != "" {
		req.Tag = &q.Tag
	}
	return req
}

// Single returns one value, or nil when the server has none.
func (c *Client) Single(ctx context.Context, q SingleQuery) (*Value, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	env, err := c.postChecked(ctx, "/api/single", c.request(q.request()))
	if err != nil {
		return nil, err
	}
	data, err := decodeData[*ValueEntry]("/api/single", env)
	if err != nil || data == nil {
		return nil, err
	}
	v := toValue(q.TestPointID, *data, c.Tags())
	return &v, nil
}

// Accumulation is the PD result accumulated over a time range.
type Accumulation struct {
	TestPointID string

	// Pd is nil when no PD expert result exists.
	Pd *PdResult

	// Value is the accumulated value of the requested tag, if any.
	Value *Value
}

// Accumulated returns the accumulated PD result of a test point within
// [from, to], or nil when the server has none.
func (c *Client) Accumulated(ctx context.Context, testPointID string, from, to time.Time, tag string) (*Accumulation, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	q := SingleQuery{TestPointID: testPointID, From: from, To: to, Tag: tag}
	env, err := c.postChecked(ctx, "/api/pdAccumulate", c.request(q.request()))
	if err != nil {
		return nil, err
	}
	data, err := decodeData[*AccumulateData]("/api/pdAccumulate", env)
	if err != nil || data == nil {
		return nil, err
	}
	acc := &Accumulation{TestPointID: testPointID, Pd: data.Pde}
	if data.Value != nil {
		v := toValue(testPointID, *data.Value, c.Tags())
		acc.Value = &v
	}
	return acc, nil
}

func toValue(testPointID string, e ValueEntry, tags events.Catalog) Value {
	v := Value{
		TestPointID: testPointID,
		ID:          string(e.ID),
		Key:         e.Key,
		Type:        ValueType(e.Type),
		Null:        e.Val == nil,
	}
	if e.Val != nil {
		v.Text = string(*e.Val)
	}
	if e.Time != nil {
		v.Time = e.Time.Time
	}
	if t, ok := tags.Lookup(e.Key); ok {
		v.Tag = &t
	}
	return v
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
