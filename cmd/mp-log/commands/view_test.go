package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sd400mp/mp-go/pkg/log"
)

func TestFormatExchangeEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleSession()[1])
	output := buf.String()

	assert.Contains(t, output, "2026-01-28T10:15:32.143456Z")
	assert.Contains(t, output, "[session:abc12345]")
	assert.Contains(t, output, "IN")
	assert.Contains(t, output, "ENVELOPE")
	assert.Contains(t, output, "RESPONSE /api/auth")
	assert.Contains(t, output, "Size: 120 bytes")
	assert.Contains(t, output, "HTTP: 200")
	assert.Contains(t, output, "Code: 200")
	assert.Contains(t, output, "Duration: 20.000ms")
	assert.Contains(t, output, `Body: {"code":200,"token":"t"}`)
}

func TestFormatBinaryBody(t *testing.T) {
	event := sampleSession()[0]
	event.Exchange.Body = []byte{0xff, 0xfe, 0x00}
	event.Exchange.Truncated = true

	var buf bytes.Buffer
	formatEvent(&buf, event)

	assert.Contains(t, buf.String(), "Body: <3 bytes binary> (truncated)")
}

func TestFormatStateChangeEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleSession()[4])
	output := buf.String()

	assert.Contains(t, output, "[session:ffff0000]")
	assert.Contains(t, output, "CLIENT State")
	assert.Contains(t, output, "Entity: SUBSCRIPTION")
	assert.Contains(t, output, "DISABLED -> ENABLED")
	assert.Contains(t, output, "Reason: tp-1")
}

func TestFormatErrorEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleSession()[3])
	output := buf.String()

	assert.Contains(t, output, "CLIENT Error")
	assert.Contains(t, output, "Layer: ENVELOPE")
	assert.Contains(t, output, "Message: stat failed")
	assert.Contains(t, output, "Code: 500")
	assert.Contains(t, output, "Context: /api/stat")
}

func TestShortenID(t *testing.T) {
	assert.Equal(t, "abc12345", shortenID("abc12345-6789"))
	assert.Equal(t, "abc", shortenID("abc"))
	assert.Equal(t, "", shortenID(""))
}

func TestParseFlags(t *testing.T) {
	l, err := ParseLayerFlag("Envelope")
	require.NoError(t, err)
	assert.Equal(t, log.LayerEnvelope, l)
	_, err = ParseLayerFlag("wire")
	assert.Error(t, err)

	d, err := ParseDirectionFlag("OUT")
	require.NoError(t, err)
	assert.Equal(t, log.DirectionOut, d)
	_, err = ParseDirectionFlag("sideways")
	assert.Error(t, err)

	c, err := ParseCategoryFlag("state")
	require.NoError(t, err)
	assert.Equal(t, log.CategoryState, c)
	_, err = ParseCategoryFlag("message")
	assert.Error(t, err)
}

func TestRunView(t *testing.T) {
	path := createTestLogFile(t, sampleSession())

	t.Run("all", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, RunView(path, ViewFilter{}, &buf))
		assert.Equal(t, 5, bytes.Count(buf.Bytes(), []byte("[session:")))
	})

	t.Run("by endpoint", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, RunView(path, ViewFilter{Endpoint: "/api/stat"}, &buf))
		assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("[session:")))
		assert.Contains(t, buf.String(), "RESPONSE /api/stat")
	})

	t.Run("by category", func(t *testing.T) {
		cat := log.CategoryError
		var buf bytes.Buffer
		require.NoError(t, RunView(path, ViewFilter{Category: &cat}, &buf))
		assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("[session:")))
	})

	t.Run("missing file", func(t *testing.T) {
		err := RunView(path+".missing", ViewFilter{}, &bytes.Buffer{})
		assert.Error(t, err)
	})
}
