package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sd400mp/mp-go/pkg/log"
)

const endpointAuth = "/api/auth"

// request wraps data in an envelope carrying the session token.
func (c *Client) request(data any) Request {
	var token *string
	if t := c.Token(); t != "" {
		token = &t
	}
	return Request{Token: token, Data: data}
}

// requestCulture is request with the configured culture.
func (c *Client) requestCulture(data any) Request {
	r := c.request(data)
	r.Culture = c.config.Culture
	return r
}

// post sends req on the unchecked path and returns the response envelope.
func (c *Client) post(ctx context.Context, endpoint string, req any) (*Envelope, error) {
	env, _, err := c.call(ctx, endpoint, req)
	return env, err
}

// postChecked is post that turns a non-200 envelope into a *ProtocolError.
func (c *Client) postChecked(ctx context.Context, endpoint string, req any) (*Envelope, error) {
	env, err := c.post(ctx, endpoint, req)
	if err != nil {
		return nil, err
	}
	if !env.OK() {
		perr := &ProtocolError{Endpoint: endpoint, Code: env.Code, Message: env.Error}
		c.captureError(log.LayerEnvelope, endpoint, perr, &env.Code)
		return nil, perr
	}
	return env, nil
}

// call posts req and parses the envelope. The raw body is returned for
// endpoints that carry fields outside the envelope.
func (c *Client) call(ctx context.Context, endpoint string, req any) (*Envelope, []byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: encode request: %w", endpoint, err)
	}

	raw, status, d, err := c.send(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, nil, err
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.captureResponse(endpoint, raw, status, nil, d)
		return nil, nil, c.badBody(endpoint, status, d, err)
	}

	c.captureResponse(endpoint, raw, status, &env.Code, d)
	outcome := outcomeOK
	if !env.OK() {
		outcome = outcomeProtocol
	}
	c.metrics.observe(endpoint, outcome, d)
	return &env, raw, nil
}

// get fetches an endpoint whose response is not enveloped.
func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	raw, status, d, err := c.send(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	c.captureResponse(endpoint, raw, status, nil, d)

	if status != http.StatusOK {
		c.metrics.observe(endpoint, outcomeProtocol, d)
		return &ProtocolError{Endpoint: endpoint, Code: status, Message: http.StatusText(status)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return c.badBody(endpoint, status, d, err)
	}
	c.metrics.observe(endpoint, outcomeOK, d)
	return nil
}

// badBody classifies a body that is not valid JSON.
func (c *Client) badBody(endpoint string, status int, d time.Duration, err error) error {
	if status < 200 || status >= 300 {
		c.metrics.observe(endpoint, outcomeProtocol, d)
		return &ProtocolError{Endpoint: endpoint, Code: status, Message: http.StatusText(status)}
	}
	c.metrics.observe(endpoint, outcomeNoResponse, d)
	c.logger.Warn("malformed response", "endpoint", endpoint, "status", status, "error", err)
	c.captureError(log.LayerTransport, endpoint, err, nil)
	return fmt.Errorf("%s: %w: %w", endpoint, ErrNoResponse, err)
}

// send performs one HTTP exchange.
func (c *Client) send(ctx context.Context, method, endpoint string, body []byte) ([]byte, int, time.Duration, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+endpoint, rd)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%s: %w", endpoint, err)
	}
	if t := c.Token(); t != "" {
		req.Header.Set("Authorization", SchemeToken+" "+t)
	}
	if method == http.MethodPost {
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")
	}

	c.captureRequest(endpoint, body)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		d := time.Since(start)
		return nil, 0, d, c.noResponse(endpoint, d, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	d := time.Since(start)
	if err != nil {
		return nil, resp.StatusCode, d, c.noResponse(endpoint, d, err)
	}
	return raw, resp.StatusCode, d, nil
}

func (c *Client) noResponse(endpoint string, d time.Duration, err error) error {
	c.metrics.observe(endpoint, outcomeNoResponse, d)
	c.logger.Warn("no response", "endpoint", endpoint, "error", err)
	c.captureError(log.LayerTransport, endpoint, err, nil)
	return fmt.Errorf("%s: %w: %w", endpoint, ErrNoResponse, err)
}

// decodeData unmarshals the envelope data. Absent or null data yields the
// zero value.
func decodeData[T any](endpoint string, env *Envelope) (T, error) {
	var v T
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%s: decode data: %w", endpoint, err)
	}
	return v, nil
}

// captureRequest logs an outgoing body. Login bodies carry credentials and
// are logged by size only.
func (c *Client) captureRequest(endpoint string, body []byte) {
	x := &log.ExchangeEvent{
		Type:     log.ExchangeRequest,
		Endpoint: endpoint,
		Size:     len(body),
	}
	if endpoint != endpointAuth {
		x.Body, x.Truncated = log.TruncateBody(body)
	}
	c.capture(log.Event{
		Direction: log.DirectionOut,
		Layer:     log.LayerTransport,
		Category:  log.CategoryExchange,
		Exchange:  x,
	})
}

func (c *Client) captureResponse(endpoint string, body []byte, status int, code *int, d time.Duration) {
	x := &log.ExchangeEvent{
		Type:     log.ExchangeResponse,
		Endpoint: endpoint,
		Size:     len(body),
		Status:   &status,
		Code:     code,
		Duration: &d,
	}
	if endpoint != endpointAuth {
		x.Body, x.Truncated = log.TruncateBody(body)
	}
	layer := log.LayerTransport
	if code != nil {
		layer = log.LayerEnvelope
	}
	c.capture(log.Event{
		Direction: log.DirectionIn,
		Layer:     layer,
		Category:  log.CategoryExchange,
		Exchange:  x,
	})
}

func (c *Client) captureError(layer log.Layer, endpoint string, err error, code *int) {
	c.capture(log.Event{
		Direction: log.DirectionIn,
		Layer:     layer,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Code:    code,
			Context: endpoint,
		},
	})
}

func (c *Client) captureState(entity log.StateEntity, oldState, newState, reason string) {
	c.capture(log.Event{
		Direction: log.DirectionOut,
		Layer:     log.LayerClient,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   entity,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func (c *Client) capture(ev log.Event) {
	ev.Timestamp = time.Now()
	ev.SessionID = c.sessionID
	ev.Server = c.base
	ev.User = c.config.User
	c.protocol.Log(ev)
}
