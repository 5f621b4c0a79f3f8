package connection

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Session errors.
var (
	ErrSessionClosed   = errors.New("session closed")
	ErrAlreadyLoggedIn = errors.New("already logged in")
)

// DefaultLoginTimeout bounds a single background login attempt.
const DefaultLoginTimeout = 30 * time.Second

// State represents the session state.
type State uint8

const (
	// StateLoggedOut indicates no valid token.
	StateLoggedOut State = iota

	// StateLoggingIn indicates a login is in progress.
	StateLoggingIn

	// StateLoggedIn indicates a valid session.
	StateLoggedIn

	// StateRelogin indicates automatic re-login is in progress.
	StateRelogin

	// StateClosed indicates the manager has been closed.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateLoggedOut:
		return "LOGGED_OUT"
	case StateLoggingIn:
		return "LOGGING_IN"
	case StateLoggedIn:
		return "LOGGED_IN"
	case StateRelogin:
		return "RELOGIN"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// LoginFunc establishes a session. It returns nil on success.
type LoginFunc func(ctx context.Context) error

// Manager tracks a login session and logs in again when it is lost.
type Manager struct {
	mu sync.RWMutex

	state   State
	backoff *Backoff
	loginFn LoginFunc

	autoRelogin  bool
	loginTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Signals that re-login should start
	reloginCh chan struct{}

	onStateChange func(oldState, newState State)
	onLoggedIn    func()
	onLost        func()
	onRetrying    func(attempt int, delay time.Duration)
}

// NewManager creates a session manager with default backoff.
func NewManager(loginFn LoginFunc) *Manager {
	return NewManagerWithBackoff(loginFn, NewBackoff())
}

// NewManagerWithBackoff creates a session manager using b for re-login delays.
func NewManagerWithBackoff(loginFn LoginFunc, b *Backoff) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		state:        StateLoggedOut,
		backoff:      b,
		loginFn:      loginFn,
		autoRelogin:  true,
		loginTimeout: DefaultLoginTimeout,
		ctx:          ctx,
		cancel:       cancel,
		reloginCh:    make(chan struct{}, 1),
	}
}

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsLoggedIn returns true if the session is valid.
func (m *Manager) IsLoggedIn() bool {
	return m.State() == StateLoggedIn
}

// SetAutoRelogin enables or disables automatic re-login.
func (m *Manager) SetAutoRelogin(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoRelogin = enabled
}

// Login performs the initial login.
func (m *Manager) Login(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateLoggedIn:
		m.mu.Unlock()
		return ErrAlreadyLoggedIn
	case StateClosed:
		m.mu.Unlock()
		return ErrSessionClosed
	}
	oldState := m.state
	m.state = StateLoggingIn
	m.mu.Unlock()

	m.notifyState(oldState, StateLoggingIn)

	if err := m.loginFn(ctx); err != nil {
		m.setState(StateLoggingIn, StateLoggedOut)
		return err
	}

	m.backoff.Reset()
	if !m.setState(StateLoggingIn, StateLoggedIn) {
		return ErrSessionClosed
	}
	m.fireLoggedIn()
	return nil
}

// NotifySessionLost reports that the server no longer accepts the session.
// It starts re-login if enabled.
func (m *Manager) NotifySessionLost() {
	m.mu.Lock()
	if m.state != StateLoggedIn {
		m.mu.Unlock()
		return
	}
	next := StateLoggedOut
	if m.autoRelogin {
		next = StateRelogin
	}
	m.state = next
	onLost := m.onLost
	m.mu.Unlock()

	m.notifyState(StateLoggedIn, next)
	if onLost != nil {
		onLost()
	}

	if next == StateRelogin {
		select {
		case m.reloginCh <- struct{}{}:
		default:
		}
	}
}

// Start starts the background re-login loop.
// Must be called once before re-login will work.
func (m *Manager) Start() {
	m.wg.Add(1)
	go m.reloginLoop()
}

// Close stops the manager and waits for the re-login loop to exit.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	oldState := m.state
	m.state = StateClosed
	m.mu.Unlock()

	m.notifyState(oldState, StateClosed)
	m.cancel()
	m.wg.Wait()
}

func (m *Manager) reloginLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.reloginCh:
			m.relogin()
		}
	}
}

func (m *Manager) relogin() {
	for {
		if m.State() != StateRelogin {
			return
		}

		attempt := m.backoff.Attempts() + 1
		delay := m.backoff.Current()

		m.mu.RLock()
		onRetrying := m.onRetrying
		timeout := m.loginTimeout
		m.mu.RUnlock()
		if onRetrying != nil {
			onRetrying(attempt, delay)
		}

		if err := m.backoff.Wait(m.ctx); err != nil {
			if errors.Is(err, ErrExhausted) {
				m.backoff.Reset()
				m.setState(StateRelogin, StateLoggedOut)
			}
			return
		}
		if m.State() != StateRelogin {
			return
		}

		ctx, cancel := context.WithTimeout(m.ctx, timeout)
		err := m.loginFn(ctx)
		cancel()
		if err != nil {
			continue
		}

		m.backoff.Reset()
		if m.setState(StateRelogin, StateLoggedIn) {
			m.fireLoggedIn()
		}
		return
	}
}

// setState moves from old to next if the state is still old.
func (m *Manager) setState(old, next State) bool {
	m.mu.Lock()
	if m.state != old {
		m.mu.Unlock()
		return false
	}
	m.state = next
	m.mu.Unlock()

	m.notifyState(old, next)
	return true
}

func (m *Manager) notifyState(old, next State) {
	m.mu.RLock()
	fn := m.onStateChange
	m.mu.RUnlock()
	if fn != nil {
		fn(old, next)
	}
}

func (m *Manager) fireLoggedIn() {
	m.mu.RLock()
	fn := m.onLoggedIn
	m.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// OnStateChange sets a callback for state changes.
func (m *Manager) OnStateChange(fn func(oldState, newState State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = fn
}

// OnLoggedIn sets a callback for successful logins, including re-logins.
func (m *Manager) OnLoggedIn(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLoggedIn = fn
}

// OnLost sets a callback for session loss.
func (m *Manager) OnLost(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLost = fn
}

// OnRetrying sets a callback for re-login attempts.
func (m *Manager) OnRetrying(fn func(attempt int, delay time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRetrying = fn
}

// Attempts returns the current number of re-login attempts.
func (m *Manager) Attempts() int {
	return m.backoff.Attempts()
}
