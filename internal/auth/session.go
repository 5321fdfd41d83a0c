// Package auth keeps the signed-in user and bearer token, persisted between
// runs in a small credential file.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"

	"github.com/lowaak/workout-session/workout-session-app/internal/api"
	"github.com/lowaak/workout-session/workout-session-app/internal/events"
	"github.com/lowaak/workout-session/workout-session-app/internal/models"
)

var (
	// ErrNotAuthenticated is returned by operations that need a stored token.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrMissingCredentials is returned when email or password is blank.
	ErrMissingCredentials = errors.New("email and password are required")
)

// Authenticator is the part of the API client used to obtain tokens.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*models.AuthResult, error)
	Register(ctx context.Context, email, password, name string) (*models.AuthResult, error)
	Me(ctx context.Context) (*models.User, error)
}

// State is what listeners see when the session changes.
type State struct {
	Authenticated bool
	User          *models.User
	// Expired is set when the session ended because the server or the token's
	// own expiry rejected it, rather than by an explicit logout.
	Expired bool
}

// Session is the authenticated session. Safe for concurrent use; the API
// client calls Token and Invalidate from request goroutines.
type Session struct {
	logger logrus.FieldLogger
	store  *credentialStore
	now    func() time.Time

	mu    sync.RWMutex
	token string
	user  *models.User

	stateEvent *events.ChannelEvent[State]
}

// NewSessionArg holds the arguments for creating a Session.
type NewSessionArg struct {
	Logger logrus.FieldLogger
	Path   string           // credential file
	Now    func() time.Time // defaults to time.Now
}

// NewSession creates a signed-out session. Call Hydrate to restore stored
// credentials.
func NewSession(args NewSessionArg) *Session {
	if args.Logger == nil {
		panic("AuthSession: logger cannot be nil")
	}
	if args.Path == "" {
		panic("AuthSession: path cannot be empty")
	}
	if args.Now == nil {
		args.Now = time.Now
	}
	return &Session{
		logger:     args.Logger,
		store:      newCredentialStore(args.Path, args.Logger),
		now:        args.Now,
		stateEvent: events.NewChannelEvent[State](true),
	}
}

// ListenToState registers a channel for session changes. The latest state is
// delivered right away once any change happened.
func (s *Session) ListenToState(ch chan State) func() {
	return s.stateEvent.Listen(ch)
}

// Hydrate restores credentials from disk. A token whose exp claim is in the
// past is discarded. A missing file is not an error.
func (s *Session) Hydrate() error {
	creds, err := s.store.load()
	if err != nil {
		return fmt.Errorf("hydrate session: %w", err)
	}
	if creds == nil || creds.Token == "" {
		s.logger.Infof("AuthSession: no stored credentials")
		s.stateEvent.Notify(State{})
		return nil
	}
	if s.expired(creds.Token) {
		s.logger.Infof("AuthSession: stored token expired, discarding")
		if err := s.store.remove(); err != nil {
			s.logger.Warnf("AuthSession: %v", err)
		}
		s.stateEvent.Notify(State{Expired: true})
		return nil
	}

	s.mu.Lock()
	s.token = creds.Token
	s.user = creds.User
	s.stateEvent.Notify(s.stateLocked())
	s.mu.Unlock()

	s.logger.Infof("AuthSession: restored session for %s", userEmail(creds.User))
	return nil
}

// Login exchanges email and password for a token and stores it.
func (s *Session) Login(ctx context.Context, authn Authenticator, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return ErrMissingCredentials
	}
	res, err := authn.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return s.establish(res)
}

// Register creates an account and signs in with it.
func (s *Session) Register(ctx context.Context, authn Authenticator, email, password, name string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return ErrMissingCredentials
	}
	res, err := authn.Register(ctx, email, password, strings.TrimSpace(name))
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return s.establish(res)
}

// Refresh reloads the user from the server. Only a rejected token signs the
// user out; any other failure keeps the session as it is.
func (s *Session) Refresh(ctx context.Context, authn Authenticator) error {
	if s.Token() == "" {
		return ErrNotAuthenticated
	}
	user, err := authn.Me(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			s.Invalidate()
		} else {
			s.logger.Warnf("AuthSession: could not refresh user, keeping session: %v", err)
		}
		return fmt.Errorf("refresh session: %w", err)
	}

	s.mu.Lock()
	if s.token == "" {
		// invalidated while the request was in flight
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	s.user = user
	creds := credentials{Token: s.token, User: user, SavedAt: s.now()}
	s.stateEvent.Notify(s.stateLocked())
	s.mu.Unlock()

	if err := s.store.save(creds); err != nil {
		s.logger.Warnf("AuthSession: %v", err)
	}
	return nil
}

// Logout forgets the credentials.
func (s *Session) Logout() {
	s.logger.Infof("AuthSession: logout")
	s.end(false)
}

// Invalidate drops credentials the server rejected.
func (s *Session) Invalidate() {
	if s.Token() == "" {
		return
	}
	s.logger.Warnf("AuthSession: credentials rejected by server")
	s.end(true)
}

// Token returns the bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyUser(s.user)
}

// Authenticated reports whether a token is held.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// --- Private methods ---

func (s *Session) establish(res *models.AuthResult) error {
	if res == nil || res.Token == "" {
		return fmt.Errorf("%w: empty token in response", ErrNotAuthenticated)
	}
	user := res.User

	s.mu.Lock()
	s.token = res.Token
	s.user = &user
	s.stateEvent.Notify(s.stateLocked())
	s.mu.Unlock()

	if err := s.store.save(credentials{Token: res.Token, User: &user, SavedAt: s.now()}); err != nil {
		// The session still works for this run.
		s.logger.Warnf("AuthSession: %v", err)
	}
	s.logger.Infof("AuthSession: signed in as %s", userEmail(&user))
	return nil
}

func (s *Session) end(expired bool) {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.stateEvent.Notify(State{Expired: expired})
	s.mu.Unlock()

	if err := s.store.remove(); err != nil {
		s.logger.Warnf("AuthSession: %v", err)
	}
}

// stateLocked MUST be called with mu held.
func (s *Session) stateLocked() State {
	return State{Authenticated: s.token != "", User: copyUser(s.user)}
}

// expired reads the exp claim without verifying the signature; the server is
// the one that verifies. Tokens that are not JWTs are kept.
func (s *Session) expired(token string) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		s.logger.Debugf("AuthSession: token is not a parseable JWT: %v", err)
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(s.now())
}

func copyUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	out := *u
	return &out
}

func userEmail(u *models.User) string {
	if u == nil || u.Email == "" {
		return "unknown user"
	}
	return u.Email
}
