package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/spigell/recruiter/internal/api"
)

const (
	RouteLogin     = "login"
	RouteDashboard = "dashboard"

	DefaultRefreshLead = 5 * time.Minute
	// minRefreshDelay bounds how often a short-lived token is refreshed.
	minRefreshDelay = 10 * time.Second

	fallbackLoginMessage    = "Invalid credentials. Please try again."
	fallbackRegisterMessage = "Registration failed. Please try again."
	unusableTokenMessage    = "The server issued a token this client cannot read."
)

var (
	// ErrStaleResponse is returned when a response arrives after the session it belongs to was closed.
	ErrStaleResponse = errors.New("session changed while the request was in flight")
	// ErrNoRefreshToken is returned when a refresh is needed but none is stored.
	ErrNoRefreshToken = errors.New("no refresh token stored")
	// ErrUnusableToken is returned when the backend issues a token that is already expired or undecodable.
	ErrUnusableToken = errors.New("backend issued an unusable token")
	// ErrNotAuthenticated is returned by callers that require a signed-in session.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Authenticator is the part of the backend the manager talks to.
type Authenticator interface {
	Login(ctx context.Context, creds api.Credentials) (*api.LoginResponse, error)
	Register(ctx context.Context, data api.Registration) (*api.RegisterResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*api.RefreshResponse, error)
}

// Navigator redirects the user to a named route.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }

// AuthError is a login or registration failure with a message fit for the user.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Unwrap() error { return e.Err }

// Session is a point-in-time view of the manager state.
type Session struct {
	Token           string
	RefreshToken    string
	ExpiresAt       time.Time
	UserName        string
	IsAuthenticated bool
}

type Config struct {
	// RefreshLead is how long before expiry the token is refreshed.
	RefreshLead time.Duration
}

type Deps struct {
	Auth      Authenticator
	Storage   Storage
	Navigator Navigator
	Logger    *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type timer interface {
	Stop() bool
}

type subscriber struct {
	id int
	fn func(bool)
}

// Manager owns the authentication token, its refresh timer and the
// authenticated state derived from them.
//
// Subscribers are called synchronously, in registration order, by the goroutine
// performing the transition. They may read the manager but must not call
// Login, Logout or Refresh from inside the callback.
type Manager struct {
	auth      Authenticator
	storage   Storage
	navigator Navigator
	logger    *zap.Logger
	validate  *validator.Validate
	lead      time.Duration

	now       func() time.Time
	afterFunc func(d time.Duration, f func()) timer

	// transition serializes state changes together with their emission.
	transition sync.Mutex

	mu            sync.Mutex
	timer         timer
	generation    uint64
	authenticated bool
	subscribers   []subscriber
	nextID        int
}

func New(cfg *Config, deps *Deps) *Manager {
	lead := DefaultRefreshLead
	if cfg != nil && cfg.RefreshLead > 0 {
		lead = cfg.RefreshLead
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	navigator := deps.Navigator
	if navigator == nil {
		navigator = NavigatorFunc(func(string) {})
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	m := &Manager{
		auth:      deps.Auth,
		storage:   deps.Storage,
		navigator: navigator,
		logger:    logger,
		validate:  validator.New(),
		lead:      lead,
		now:       now,
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
	}

	m.authenticated = m.IsAuthenticated()

	return m
}

// Restore brings a persisted session back to life: an expired token gets one
// refresh attempt, a valid one gets its refresh scheduled.
func (m *Manager) Restore(ctx context.Context) error {
	token := m.Token()
	if token == "" {
		m.logger.Debug("no persisted session")
		return nil
	}

	if Expired(token, m.now()) {
		m.logger.Info("persisted token expired, refreshing")
		return m.Refresh(ctx)
	}

	m.mu.Lock()
	m.scheduleLocked(token)
	m.mu.Unlock()

	m.logger.Info("session restored", zap.String("user", m.UserName()))
	return nil
}

func (m *Manager) Login(ctx context.Context, creds api.Credentials) error {
	if err := m.validate.Struct(creds); err != nil {
		return &AuthError{Message: "Please enter a valid e-mail and password.", Err: err}
	}

	gen := m.currentGeneration()

	resp, err := m.auth.Login(ctx, creds)
	if err != nil {
		m.logger.Warn("login failed", zap.Error(err))
		return &AuthError{Message: api.Message(err, fallbackLoginMessage), Err: err}
	}

	if Expired(resp.Token, m.now()) {
		return &AuthError{Message: unusableTokenMessage, Err: ErrUnusableToken}
	}

	m.transition.Lock()
	defer m.transition.Unlock()

	if gen != m.currentGeneration() {
		m.logger.Warn("discarding login response", zap.Error(ErrStaleResponse))
		return ErrStaleResponse
	}

	if err := m.persistLogin(resp); err != nil {
		return fmt.Errorf("persisting session: %w", err)
	}

	m.mu.Lock()
	// Responses still in flight for the previous session must not touch this one.
	m.generation++
	m.scheduleLocked(resp.Token)
	m.mu.Unlock()

	m.logger.Info("logged in", zap.String("user", m.UserName()))
	m.emit(m.IsAuthenticated())

	return nil
}

func (m *Manager) persistLogin(resp *api.LoginResponse) error {
	if !m.storageReady() {
		return nil
	}

	if err := m.storage.Set(KeyToken, resp.Token); err != nil {
		return err
	}

	if resp.RefreshToken != "" {
		if err := m.storage.Set(KeyRefreshToken, resp.RefreshToken); err != nil {
			return err
		}
	} else if err := m.storage.Delete(KeyRefreshToken); err != nil {
		return err
	}

	if resp.User != nil && resp.User.Name != "" {
		return m.storage.Set(KeyUserName, resp.User.Name)
	}

	return m.storage.Delete(KeyUserName)
}

// Register creates an account. It never changes the session.
func (m *Manager) Register(ctx context.Context, data api.Registration) (*api.RegisterResponse, error) {
	if err := m.validate.Struct(data); err != nil {
		return nil, &AuthError{Message: "Please fill in name, a valid e-mail and a password of at least 6 characters.", Err: err}
	}

	resp, err := m.auth.Register(ctx, data)
	if err != nil {
		m.logger.Warn("registration failed", zap.Error(err))
		return nil, &AuthError{Message: api.Message(err, fallbackRegisterMessage), Err: err}
	}

	return resp, nil
}

// Refresh exchanges the stored refresh token for a new token. Any failure that
// belongs to the current session forces a logout.
func (m *Manager) Refresh(ctx context.Context) error {
	gen := m.currentGeneration()

	refreshToken := m.get(KeyRefreshToken)
	if refreshToken == "" {
		m.forceLogout(gen, ErrNoRefreshToken)
		return ErrNoRefreshToken
	}

	resp, err := m.auth.RefreshToken(ctx, refreshToken)
	if err == nil && Expired(resp.Token, m.now()) {
		err = ErrUnusableToken
	}
	if err != nil {
		if !m.forceLogout(gen, err) {
			return ErrStaleResponse
		}
		return fmt.Errorf("refreshing token: %w", err)
	}

	m.transition.Lock()
	defer m.transition.Unlock()

	if gen != m.currentGeneration() {
		m.logger.Debug("discarding refresh response", zap.Error(ErrStaleResponse))
		return ErrStaleResponse
	}

	if m.storageReady() {
		if err := m.storage.Set(KeyToken, resp.Token); err != nil {
			return fmt.Errorf("persisting token: %w", err)
		}
		if resp.RefreshToken != "" {
			if err := m.storage.Set(KeyRefreshToken, resp.RefreshToken); err != nil {
				return fmt.Errorf("persisting refresh token: %w", err)
			}
		}
	}

	m.mu.Lock()
	m.scheduleLocked(resp.Token)
	m.mu.Unlock()

	m.logger.Debug("token refreshed")
	m.emit(m.IsAuthenticated())

	return nil
}

// forceLogout logs out after a failed silent refresh unless the session has
// already moved on. It reports whether the logout happened.
func (m *Manager) forceLogout(gen uint64, cause error) bool {
	m.transition.Lock()
	defer m.transition.Unlock()

	if gen != m.currentGeneration() {
		return false
	}

	m.logger.Warn("session refresh failed, logging out", zap.Error(cause))
	m.logoutLocked()
	return true
}

// Logout clears everything the session persisted and sends the user to the login route.
func (m *Manager) Logout() {
	m.transition.Lock()
	defer m.transition.Unlock()

	m.logoutLocked()
}

func (m *Manager) logoutLocked() {
	m.mu.Lock()
	m.stopTimerLocked()
	m.generation++
	m.mu.Unlock()

	if m.storageReady() {
		if err := m.storage.Delete(sessionKeys...); err != nil {
			m.logger.Error("clearing persisted session", zap.Error(err))
		}
	}

	m.logger.Info("logged out")
	m.emit(false)
	m.navigator.Navigate(RouteLogin)
}

// Close stops the refresh timer without touching the persisted session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopTimerLocked()
}

// Token returns the stored token, or an empty string when there is none or no storage is available.
func (m *Manager) Token() string {
	return m.get(KeyToken)
}

func (m *Manager) UserName() string {
	return m.get(KeyUserName)
}

// IsAuthenticated reports whether a token is stored and its exp claim is in the future.
func (m *Manager) IsAuthenticated() bool {
	token := m.Token()
	if token == "" {
		return false
	}
	return !Expired(token, m.now())
}

// Guard lets the caller through when authenticated and otherwise redirects to the login route.
func (m *Manager) Guard() bool {
	if m.IsAuthenticated() {
		return true
	}

	m.navigator.Navigate(RouteLogin)
	return false
}

func (m *Manager) Snapshot() Session {
	token := m.Token()
	exp, _ := Expiry(token)

	return Session{
		Token:           token,
		RefreshToken:    m.get(KeyRefreshToken),
		ExpiresAt:       exp,
		UserName:        m.UserName(),
		IsAuthenticated: m.IsAuthenticated(),
	}
}

// Subscribe registers fn for authenticated-state changes. fn receives the
// current state immediately. The returned function unsubscribes.
func (m *Manager) Subscribe(fn func(bool)) func() {
	m.transition.Lock()
	defer m.transition.Unlock()

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subscribers = append(m.subscribers, subscriber{id: id, fn: fn})
	current := m.authenticated
	m.mu.Unlock()

	fn(current)

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		for idx, sub := range m.subscribers {
			if sub.id == id {
				m.subscribers = append(m.subscribers[:idx], m.subscribers[idx+1:]...)
				return
			}
		}
	}
}

// emit must be called with transition held.
func (m *Manager) emit(authenticated bool) {
	m.mu.Lock()
	m.authenticated = authenticated
	subs := make([]subscriber, len(m.subscribers))
	copy(subs, m.subscribers)
	m.mu.Unlock()

	for _, sub := range subs {
		sub.fn(authenticated)
	}
}

// scheduleLocked arms the single refresh timer for token. Must be called with mu held.
func (m *Manager) scheduleLocked(token string) {
	m.stopTimerLocked()

	exp, ok := Expiry(token)
	if !ok {
		return
	}

	now := m.now()
	delay := exp.Add(-m.lead).Sub(now)
	if delay <= 0 {
		// Tokens living shorter than the lead are refreshed halfway through.
		delay = exp.Sub(now) / 2
	}
	if delay < minRefreshDelay {
		delay = minRefreshDelay
	}

	gen := m.generation
	m.timer = m.afterFunc(delay, func() {
		m.mu.Lock()
		current := m.generation
		m.mu.Unlock()
		if current != gen {
			return
		}

		if err := m.Refresh(context.Background()); err != nil {
			m.logger.Debug("scheduled refresh", zap.Error(err))
		}
	})

	m.logger.Debug("token refresh scheduled", zap.Duration("in", delay))
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) currentGeneration() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.generation
}

func (m *Manager) storageReady() bool {
	return m.storage != nil && m.storage.Available()
}

func (m *Manager) get(key string) string {
	if !m.storageReady() {
		return ""
	}

	v, _ := m.storage.Get(key)
	return v
}
