package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sd400mp/mp-go/pkg/display"
	"github.com/sd400mp/mp-go/pkg/events"
	"github.com/sd400mp/mp-go/pkg/log"
	"github.com/sd400mp/mp-go/pkg/series"
	"github.com/sd400mp/mp-go/pkg/subscription"
)

// Client is a session with one MP server.
type Client struct {
	config    Config
	base      string
	http      *http.Client
	logger    *slog.Logger
	protocol  log.Logger
	metrics   *Metrics
	sessionID string

	decoder       series.Decoder
	reconstructor *events.Reconstructor
	display       *display.Cache
	subs          *subscription.Manager

	mu         sync.RWMutex
	token      string
	claims     map[string]string
	apiVersion int
	tags       events.Catalog
	plugins    map[string]Plugin
}

// Compile-time interface satisfaction checks.
var (
	_ subscription.CapabilityProvider = (*Client)(nil)
	_ subscription.StreamProtocol     = (*Client)(nil)
)

// New creates a client. It does not contact the server.
func New(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(config.Registerer)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	c := &Client{
		config:     config,
		base:       strings.TrimRight(strings.TrimSpace(config.BaseURL), "/"),
		http:       config.HTTPClient,
		logger:     config.Logger,
		protocol:   config.ProtocolLogger,
		metrics:    metrics,
		sessionID:  uuid.NewString(),
		display:    &display.Cache{},
		apiVersion: -1,
		tags:       events.Catalog{},
		plugins:    make(map[string]Plugin),
	}
	if c.http == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("session", c.sessionID)
	if c.protocol == nil {
		c.protocol = log.NoopLogger{}
	}

	c.decoder = series.Decoder{Offset: config.DecodeOffset, Strict: config.StrictDecode}
	if config.DecodeLocal {
		c.decoder.Offset = series.LocalOffset(time.Now())
	}
	c.reconstructor = &events.Reconstructor{
		Decoder: c.decoder,
		Logger:  c.logger,
		OnWarning: func(events.GroupKey, error) {
			c.metrics.DecodeWarnings.Inc()
		},
	}

	subConfig := subscription.DefaultConfig()
	if config.MaxConcurrentLookups > 0 {
		subConfig.MaxConcurrentLookups = config.MaxConcurrentLookups
	}
	c.subs = subscription.NewManagerWithConfig(c, c, subConfig)
	c.subs.SetLogger(c.logger)
	c.subs.OnChange(func(ch subscription.Change) {
		state := "DISABLED"
		if ch.Enabled {
			state = "ENABLED"
		}
		c.captureState(log.StateEntitySubscription, "", state, strings.Join(ch.IDs, ","))
	})

	return c, nil
}

// SessionID returns the id under which exchanges are captured.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Metrics returns the client metrics.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// Display returns the display settings cache.
func (c *Client) Display() *display.Cache {
	return c.display
}

// Subscriptions returns the stream subscription registry.
func (c *Client) Subscriptions() *subscription.Manager {
	return c.subs
}

// Decoder returns the decoder applied to binary payloads.
func (c *Client) Decoder() series.Decoder {
	return c.decoder
}

// Token returns the session token, or "" before login.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// LoggedIn reports whether a token is held.
func (c *Client) LoggedIn() bool {
	return c.Token() != ""
}

// Claim returns a login claim.
func (c *Client) Claim(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.claims[key]
	return v, ok
}

// APIVersion returns the server API version, or -1 if unknown.
func (c *Client) APIVersion() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiVersion
}

// Tags returns the tag catalogue loaded on login.
func (c *Client) Tags() events.Catalog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tags
}

// PreviewTags returns the keys of tags worth showing in a preview, sorted.
func (c *Client) PreviewTags() []string {
	var keys []string
	for key, t := range c.Tags() {
		if t.CanPreview() {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

// Plugins returns the plugin catalogue loaded on login, sorted by key.
func (c *Client) Plugins() []Plugin {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.SortedFunc(maps.Values(c.plugins), func(a, b Plugin) int {
		return strings.Compare(a.Key, b.Key)
	})
}

// Login authenticates and loads the version, tag and plugin catalogues.
// Any previous session state is discarded first.
func (c *Client) Login(ctx context.Context) error {
	c.mu.Lock()
	c.token = ""
	c.claims = nil
	c.mu.Unlock()

	req := LoginRequest{Request: c.request(nil)}
	if c.config.User != "" {
		req.User = &c.config.User
	}
	if c.config.Password != "" {
		req.Password = &c.config.Password
	}
	if c.config.JWT != "" {
		scheme, jwt := SchemeTokenJWT, c.config.JWT
		req.Scheme = &scheme
		req.Token = &jwt
	}

	env, raw, err := c.call(ctx, endpointAuth, req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	if !env.OK() {
		perr := &ProtocolError{Endpoint: endpointAuth, Code: env.Code, Message: env.Error}
		c.captureError(log.LayerEnvelope, endpointAuth, perr, &env.Code)
		return fmt.Errorf("%w: %w", ErrLoginFailed, perr)
	}
	resp, err := decodeLogin(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	if resp.Token == "" {
		return fmt.Errorf("%w: no token issued", ErrLoginFailed)
	}

	claims := make(map[string]string, len(resp.Params))
	for _, p := range resp.Params {
		claims[p.Key] = p.Value
	}
	c.mu.Lock()
	c.token = resp.Token
	c.claims = claims
	c.mu.Unlock()

	if err := c.loadCatalogues(ctx); err != nil {
		return err
	}

	c.logger.Info("logged in", "server", c.base, "user", c.config.User, "api", c.APIVersion(), "tags", len(c.Tags()))
	c.captureState(log.StateEntitySession, "LOGGED_OUT", "LOGGED_IN", "")
	return nil
}

// loadCatalogues fetches version, tags and plugins concurrently. Version and
// tags are best effort; the plugin catalogue is required.
func (c *Client) loadCatalogues(ctx context.Context) error {
	var (
		version VersionInfo
		tags    TagsData
		plugins PluginsData
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		version.API = -1
		if err := c.get(gctx, "/api/version", &version); err != nil {
			c.logger.Warn("server version unavailable", "error", err)
			version.API = -1
		}
		return nil
	})
	g.Go(func() error {
		env, err := c.post(gctx, "/api/tagsJson", c.requestCulture(nil))
		if err != nil {
			c.logger.Warn("tag catalogue unavailable", "error", err)
			return nil
		}
		if !env.OK() {
			c.logger.Warn("tag catalogue unavailable", "code", env.Code, "error", env.Error)
			return nil
		}
		tags, err = decodeData[TagsData]("/api/tagsJson", env)
		if err != nil {
			c.logger.Warn("tag catalogue unreadable", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		env, err := c.postChecked(gctx, "/api/plugins", c.request(map[string]bool{"needChildren": true}))
		if err != nil {
			return err
		}
		plugins, err = decodeData[PluginsData]("/api/plugins", env)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	pm := make(map[string]Plugin, len(plugins.DataSources))
	for _, p := range plugins.DataSources {
		pm[p.Key] = p
	}
	c.mu.Lock()
	c.apiVersion = version.API
	c.tags = events.NewCatalog(tags.Items)
	c.plugins = pm
	c.mu.Unlock()
	return nil
}

// Close releases idle connections. Stream subscriptions are left to expire
// on the server; call UnsubscribeAll first to end them explicitly.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// requireLogin returns ErrNotLoggedIn before a successful Login.
func (c *Client) requireLogin() error {
	if !c.LoggedIn() {
		return ErrNotLoggedIn
	}
	return nil
}

// isNoResponse reports whether err is an absent result.
func isNoResponse(err error) bool {
	return errors.Is(err, ErrNoResponse)
}
