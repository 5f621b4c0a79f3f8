package client_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sd400mp/mp-go/pkg/client"
	"github.com/sd400mp/mp-go/pkg/events"
)

func TestValues(t *testing.T) {
	srv, _, c := loggedIn(t)
	ctx := context.Background()

	values, err := c.Values(ctx, []string{"tp-1", "tp-2"}, nil, []string{events.TagSensorType})
	require.NoError(t, err)
	require.Len(t, values, 6)

	byKey := make(map[string]client.Value)
	for _, v := range values {
		if v.TestPointID == "tp-1" {
			byKey[v.Key] = v
		}
	}
	amp := byKey[events.TagAverageAmplitude]
	require.NotNil(t, amp.Tag)
	assert.Equal(t, "Average amplitude", amp.Tag.Title)
	assert.True(t, amp.Time.Equal(demoNow))
	f, ok := amp.Float()
	require.True(t, ok)
	assert.Equal(t, 12.5, f)

	fw := byKey["vendor/fw"]
	assert.Nil(t, fw.Tag)
	assert.Equal(t, "4.2.1", fw.Text)
	_, ok = fw.Float()
	assert.False(t, ok)
	assert.NotContains(t, byKey, events.TagSensorType)

	reqs := srv.Requests("/api/data")
	require.Len(t, reqs, 1)
	var req client.DataRequest
	require.NoError(t, json.Unmarshal(reqs[0], &req))
	assert.Equal(t, []client.IDRef{{ID: "tp-1"}, {ID: "tp-2"}}, req.TestPoints)
	assert.Equal(t, []string{}, req.Include)
	assert.Nil(t, req.Timestamp)
}

func TestQueryValuesNoValue(t *testing.T) {
	_, _, c := loggedIn(t)
	at := hour(3)

	values, err := c.QueryValues(context.Background(), client.ValueQuery{
		TestPointIDs: []string{"tp-2"},
		Include:      []string{events.TagConnectionState},
		NoValue:      true,
		At:           &at,
	})
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.True(t, values[0].Null)
	_, ok := values[0].Bool()
	assert.False(t, ok)
}

func TestValuesNoResponse(t *testing.T) {
	_, ts, c := loggedIn(t)
	ts.Close()

	values, err := c.Values(context.Background(), []string{"tp-1"}, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestValueConversions(t *testing.T) {
	tests := []struct {
		name  string
		value client.Value
		num   float64
		ok    bool
	}{
		{"float", client.Value{Type: client.ValueFloat, Text: "1.5"}, 1.5, true},
		{"int", client.Value{Type: client.ValueInt64, Text: "-7"}, -7, true},
		{"bool word", client.Value{Type: client.ValueBoolean, Text: "true"}, 1, true},
		{"bool digit", client.Value{Type: client.ValueBoolean, Text: "0"}, 0, true},
		{"empty", client.Value{Type: client.ValueFloat}, 0, false},
		{"null", client.Value{Type: client.ValueFloat, Text: "1", Null: true}, 0, false},
		{"string", client.Value{Type: client.ValueString, Text: "1"}, 0, false},
		{"garbage", client.Value{Type: client.ValueInt32, Text: "x"}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.value.Float()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.num, got)
		})
	}

	b, ok := client.Value{Type: client.ValueBoolean, Text: "1"}.Bool()
	assert.True(t, ok)
	assert.True(t, b)
	_, ok = client.Value{Type: client.ValueFloat, Text: "1"}.Bool()
	assert.False(t, ok)
}

func TestSingle(t *testing.T) {
	srv, _, c := loggedIn(t)
	ctx := context.Background()

	v, err := c.Single(ctx, client.SingleQuery{TestPointID: "tp-1", From: hour(2), To: hour(4)})
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "tp-1", v.TestPointID)
	assert.True(t, v.Time.Equal(hour(4)))
	assert.Equal(t, "4", v.Text)
	require.NotNil(t, v.Tag)
	assert.Equal(t, events.TagAverageAmplitude, v.Tag.Key)

	v, err = c.Single(ctx, client.SingleQuery{TestPointID: "tp-2", From: hour(2), To: hour(4)})
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = c.Single(ctx, client.SingleQuery{TestPointID: "tp-1", From: demoNow, To: demoNow, Left: true})
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.True(t, v.Time.Equal(hour(23)))

	reqs := srv.Requests("/api/single")
	require.Len(t, reqs, 3)
	var req client.SingleRequest
	require.NoError(t, json.Unmarshal(reqs[2], &req))
	assert.True(t, req.Left)
	assert.Nil(t, req.Tag)
}

func TestSingleProtocolError(t *testing.T) {
	srv, _, c := loggedIn(t)
	srv.Fail("/api/single", 500)

	_, err := c.Single(context.Background(), client.SingleQuery{TestPointID: "tp-1", From: hour(0), To: hour(1)})
	assert.ErrorIs(t, err, client.ErrProtocol)
}

func TestAccumulated(t *testing.T) {
	_, _, c := loggedIn(t)
	ctx := context.Background()

	acc, err := c.Accumulated(ctx, "tp-1", demoStart(), demoNow, events.TagAverageAmplitude)
	require.NoError(t, err)
	require.NotNil(t, acc)
	require.NotNil(t, acc.Pd)
	assert.Equal(t, "Internal", acc.Pd.Name)
	assert.Equal(t, 1, acc.Pd.StateTestPoint)
	require.Len(t, acc.Pd.Probability, 3)
	require.NotNil(t, acc.Value)
	assert.Equal(t, "tp-1", acc.Value.TestPointID)
	f, ok := acc.Value.Float()
	require.True(t, ok)
	assert.Equal(t, 11.75, f)

	acc, err = c.Accumulated(ctx, "tp-1", demoStart(), demoNow, events.TagPdClassEnum)
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Nil(t, acc.Value)

	acc, err = c.Accumulated(ctx, "tp-2", demoStart(), demoNow, "")
	require.NoError(t, err)
	assert.Nil(t, acc)
}

func TestValuesNotLoggedIn(t *testing.T) {
	_, ts := startServer(t)
	c := newClient(t, ts.URL)
	ctx := context.Background()

	_, err := c.Values(ctx, []string{"tp-1"}, nil, nil)
	assert.ErrorIs(t, err, client.ErrNotLoggedIn)
	_, err = c.Single(ctx, client.SingleQuery{TestPointID: "tp-1"})
	assert.ErrorIs(t, err, client.ErrNotLoggedIn)
	_, err = c.Accumulated(ctx, "tp-1", hour(0), hour(1), "")
	assert.ErrorIs(t, err, client.ErrNotLoggedIn)
}
