package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
	"todoclient/internal/apiclient"
	"todoclient/internal/logging"
	"todoclient/internal/models"
)

// DefaultSkew is how close to expiry a token may get before it is renewed ahead of use
const DefaultSkew = 30 * time.Second

// State is the session lifecycle
type State int

const (
	StateInitializing State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// AuthAPI is the slice of the backend the manager needs
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*models.AuthPayload, error)
	Register(ctx context.Context, username, email, password string) (*models.AuthPayload, error)
	RefreshToken(ctx context.Context) (string, error)
	CurrentUser(ctx context.Context) (*models.UserProfile, error)
	Logout(ctx context.Context) error
}

// Listener observes credential and state changes
type Listener func(models.Credential, State)

// Manager owns the credential. It is the TokenSource the API client signs with.
type Manager struct {
	api AuthAPI

	mu    sync.RWMutex
	cred  models.Credential
	state State

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int

	refreshGroup singleflight.Group

	skew time.Duration
	now  func() time.Time
}

var _ apiclient.TokenSource = (*Manager)(nil)

// Option configures a Manager
type Option func(*Manager)

// WithSkew sets the proactive refresh window. Zero disables proactive refresh.
func WithSkew(d time.Duration) Option {
	return func(m *Manager) { m.skew = d }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager in StateInitializing with no credential
func NewManager(api AuthAPI, opts ...Option) *Manager {
	m := &Manager{
		api:       api,
		state:     StateInitializing,
		listeners: make(map[int]Listener),
		skew:      DefaultSkew,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Credential returns a copy of the current credential
func (m *Manager) Credential() models.Credential {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyCredential(m.cred)
}

// State returns the lifecycle state
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Subscribe registers fn for every change; the returned func unregisters it
func (m *Manager) Subscribe(fn Listener) func() {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.listenersMu.Lock()
		defer m.listenersMu.Unlock()
		delete(m.listeners, id)
	}
}

// Token returns the current token, renewing it first when it is about to expire
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.RLock()
	token := m.cred.Token
	m.mu.RUnlock()

	if token == "" || !m.expiring(token) {
		return token, nil
	}
	logging.Component("session").Debug("Token close to expiry, renewing")
	return m.RefreshRejected(ctx, token)
}

// Refresh renews the token. Concurrent callers share one network call and its result.
// Any failure clears the credential.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	ch := m.refreshGroup.DoChan("refresh", func() (any, error) {
		return m.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// RefreshRejected renews after the server rejected `rejected`. When the held token has
// already moved on, it is returned without another network call.
func (m *Manager) RefreshRejected(ctx context.Context, rejected string) (string, error) {
	m.mu.RLock()
	current := m.cred.Token
	m.mu.RUnlock()

	switch {
	case current != "" && current != rejected:
		return current, nil
	case current == "" && rejected != "":
		// cleared since the request was signed
		return "", apiclient.ErrUnauthenticated
	}
	return m.Refresh(ctx)
}

func (m *Manager) refresh(ctx context.Context) (string, error) {
	log := logging.Component("session")

	token, err := m.api.RefreshToken(ctx)
	if err != nil {
		log.WithError(err).Info("Token refresh failed, clearing session")
		m.Clear()
		return "", fmt.Errorf("failed to refresh token: %w", errors.Join(apiclient.ErrUnauthenticated, err))
	}

	m.mu.Lock()
	m.cred.Token = token
	m.cred.IsAuthenticated = true
	m.state = StateAuthenticated
	m.mu.Unlock()
	m.notify()

	log.Debug("Token refreshed")
	return token, nil
}

// SetToken installs a token obtained elsewhere (saved session, OAuth redirect)
func (m *Manager) SetToken(token string) {
	m.mu.Lock()
	m.cred.Token = token
	m.cred.IsAuthenticated = token != ""
	if token == "" {
		m.cred.User = nil
		m.state = StateUnauthenticated
	} else {
		m.state = StateAuthenticated
	}
	m.mu.Unlock()
	m.notify()
}

// Clear drops the credential and moves to StateUnauthenticated
func (m *Manager) Clear() {
	m.mu.Lock()
	m.cred = models.Credential{}
	m.state = StateUnauthenticated
	m.mu.Unlock()
	m.notify()
}

// Login authenticates with email and password
func (m *Manager) Login(ctx context.Context, email, password string) (*models.UserProfile, error) {
	payload, err := m.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	m.install(payload)
	logging.Component("session").WithField("user_id", payload.User.ID).Info("Logged in")
	return &payload.User, nil
}

// Register creates an account and signs it in
func (m *Manager) Register(ctx context.Context, username, email, password string) (*models.UserProfile, error) {
	payload, err := m.api.Register(ctx, username, email, password)
	if err != nil {
		return nil, err
	}
	m.install(payload)
	logging.Component("session").WithField("user_id", payload.User.ID).Info("Registered")
	return &payload.User, nil
}

// Logout tells the backend when a token is held, then always clears
func (m *Manager) Logout(ctx context.Context) {
	m.mu.RLock()
	hasToken := m.cred.Token != ""
	m.mu.RUnlock()

	if hasToken {
		if err := m.api.Logout(ctx); err != nil {
			logging.Component("session").WithError(err).Warn("Logout request failed")
		}
	}
	m.Clear()
}

// LoadUserFromToken completes an external sign-in hand-off: install the token, then fetch its user.
// On failure the credential is cleared.
func (m *Manager) LoadUserFromToken(ctx context.Context, token string) (*models.UserProfile, error) {
	if token == "" {
		m.Clear()
		return nil, apiclient.ErrUnauthenticated
	}
	m.SetToken(token)

	user, err := m.api.CurrentUser(ctx)
	if err != nil {
		m.Clear()
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	m.setUser(user)
	return user, nil
}

// Verify reloads the current user with the held token
func (m *Manager) Verify(ctx context.Context) (*models.UserProfile, error) {
	user, err := m.api.CurrentUser(ctx)
	if err != nil {
		if apiclient.IsUnauthenticated(err) {
			m.Clear()
		}
		return nil, err
	}
	m.setUser(user)
	return user, nil
}

// Bootstrap restores a session at startup: silently refresh when no token is held, then load the user.
// It always leaves StateInitializing.
func (m *Manager) Bootstrap(ctx context.Context) State {
	log := logging.Component("session")

	m.mu.RLock()
	token := m.cred.Token
	m.mu.RUnlock()

	if token == "" {
		if _, err := m.Refresh(ctx); err != nil {
			log.WithError(err).Debug("No session to restore")
			m.Clear()
			return StateUnauthenticated
		}
	}

	if _, err := m.Verify(ctx); err != nil {
		log.WithError(err).Info("Session could not be verified")
		m.Clear()
		return StateUnauthenticated
	}
	return m.State()
}

func (m *Manager) install(payload *models.AuthPayload) {
	user := payload.User
	m.mu.Lock()
	m.cred = models.Credential{Token: payload.Token, IsAuthenticated: true, User: &user}
	m.state = StateAuthenticated
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) setUser(user *models.UserProfile) {
	u := *user
	m.mu.Lock()
	m.cred.User = &u
	m.cred.IsAuthenticated = m.cred.Token != ""
	if m.cred.IsAuthenticated {
		m.state = StateAuthenticated
	}
	m.mu.Unlock()
	m.notify()
}

// expiring reports whether a JWT's exp falls within the skew window. Opaque tokens never expire here.
func (m *Manager) expiring(token string) bool {
	if m.skew <= 0 {
		return false
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.Time.After(m.now().Add(m.skew))
}

func (m *Manager) notify() {
	m.mu.RLock()
	cred := copyCredential(m.cred)
	state := m.state
	m.mu.RUnlock()

	m.listenersMu.Lock()
	fns := make([]Listener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.listenersMu.Unlock()

	for _, fn := range fns {
		fn(cred, state)
	}
}

func copyCredential(c models.Credential) models.Credential {
	if c.User != nil {
		u := *c.User
		c.User = &u
	}
	return c
}
