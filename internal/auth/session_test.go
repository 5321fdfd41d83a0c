package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/workout-session/workout-session-app/internal/api"
	"github.com/lowaak/workout-session/workout-session-app/internal/models"
)

var fixedNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestSession(t *testing.T) (*Session, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.json")
	return NewSession(NewSessionArg{
		Logger: newTestLogger(),
		Path:   path,
		Now:    func() time.Time { return fixedNow },
	}), path
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

type fakeAuthenticator struct {
	result   *models.AuthResult
	user     *models.User
	err      error
	gotEmail string
	gotName  string
}

func (f *fakeAuthenticator) Login(_ context.Context, email, _ string) (*models.AuthResult, error) {
	f.gotEmail = email
	return f.result, f.err
}

func (f *fakeAuthenticator) Register(_ context.Context, email, _, name string) (*models.AuthResult, error) {
	f.gotEmail = email
	f.gotName = name
	return f.result, f.err
}

func (f *fakeAuthenticator) Me(context.Context) (*models.User, error) {
	return f.user, f.err
}

func writeCredentials(t *testing.T, path string, creds credentials) {
	t.Helper()
	raw, err := json.Marshal(creds)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))
}

func TestNewSession_PanicsOnMissingArgs(t *testing.T) {
	assert.Panics(t, func() { NewSession(NewSessionArg{Path: "x"}) })
	assert.Panics(t, func() { NewSession(NewSessionArg{Logger: newTestLogger()}) })
}

func TestSession_HydrateWithoutFile(t *testing.T) {
	s, _ := newTestSession(t)

	require.NoError(t, s.Hydrate())

	assert.False(t, s.Authenticated())
	assert.Nil(t, s.User())
}

func TestSession_LoginPersistsAndHydrateRestores(t *testing.T) {
	s, path := newTestSession(t)
	token := signedToken(t, fixedNow.Add(24*time.Hour))
	authn := &fakeAuthenticator{result: &models.AuthResult{
		User:  models.User{ID: 7, Email: "ana@example.com", Name: "Ana"},
		Token: token,
	}}

	require.NoError(t, s.Login(context.Background(), authn, "  ana@example.com ", "secret"))

	assert.Equal(t, "ana@example.com", authn.gotEmail)
	assert.True(t, s.Authenticated())
	assert.Equal(t, token, s.Token())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	restored := NewSession(NewSessionArg{
		Logger: newTestLogger(),
		Path:   path,
		Now:    func() time.Time { return fixedNow },
	})
	require.NoError(t, restored.Hydrate())
	assert.Equal(t, token, restored.Token())
	require.NotNil(t, restored.User())
	assert.Equal(t, "Ana", restored.User().Name)
}

func TestSession_HydrateDropsExpiredToken(t *testing.T) {
	s, path := newTestSession(t)
	writeCredentials(t, path, credentials{
		Token: signedToken(t, fixedNow.Add(-time.Minute)),
		User:  &models.User{ID: 7},
	})
	states := make(chan State, 4)
	defer s.ListenToState(states)()

	require.NoError(t, s.Hydrate())

	assert.False(t, s.Authenticated())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "expired credentials should be removed")

	select {
	case st := <-states:
		assert.False(t, st.Authenticated)
		assert.True(t, st.Expired)
	case <-time.After(time.Second):
		t.Fatal("no state published")
	}
}

func TestSession_HydrateKeepsOpaqueToken(t *testing.T) {
	s, path := newTestSession(t)
	writeCredentials(t, path, credentials{Token: "opaque-token"})

	require.NoError(t, s.Hydrate())

	assert.Equal(t, "opaque-token", s.Token())
}

func TestSession_HydrateIgnoresCorruptFile(t *testing.T) {
	s, path := newTestSession(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	require.NoError(t, s.Hydrate())

	assert.False(t, s.Authenticated())
}

func TestSession_LoginValidation(t *testing.T) {
	s, _ := newTestSession(t)
	authn := &fakeAuthenticator{}

	err := s.Login(context.Background(), authn, " ", "pw")
	assert.ErrorIs(t, err, ErrMissingCredentials)

	err = s.Register(context.Background(), authn, "a@b.c", "", "A")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestSession_LoginFailureLeavesSignedOut(t *testing.T) {
	s, path := newTestSession(t)
	authn := &fakeAuthenticator{err: errors.New("bad credentials")}

	err := s.Login(context.Background(), authn, "a@b.c", "pw")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad credentials")
	assert.False(t, s.Authenticated())
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSession_LoginRejectsEmptyToken(t *testing.T) {
	s, _ := newTestSession(t)
	authn := &fakeAuthenticator{result: &models.AuthResult{User: models.User{ID: 1}}}

	err := s.Login(context.Background(), authn, "a@b.c", "pw")

	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.False(t, s.Authenticated())
}

func TestSession_RegisterTrimsName(t *testing.T) {
	s, _ := newTestSession(t)
	authn := &fakeAuthenticator{result: &models.AuthResult{
		User:  models.User{ID: 3, Email: "b@c.d", Name: "Bea"},
		Token: "tok",
	}}

	require.NoError(t, s.Register(context.Background(), authn, "b@c.d", "pw", "  Bea "))

	assert.Equal(t, "Bea", authn.gotName)
	assert.True(t, s.Authenticated())
}

func TestSession_RefreshUpdatesUser(t *testing.T) {
	s, _ := newTestSession(t)
	authn := &fakeAuthenticator{result: &models.AuthResult{User: models.User{ID: 1, WorkoutsCompleted: 2}, Token: "tok"}}
	require.NoError(t, s.Login(context.Background(), authn, "a@b.c", "pw"))

	authn.user = &models.User{ID: 1, WorkoutsCompleted: 3, CurrentLevel: models.LevelIntermediate}
	require.NoError(t, s.Refresh(context.Background(), authn))

	require.NotNil(t, s.User())
	assert.Equal(t, 3, s.User().WorkoutsCompleted)
	assert.Equal(t, models.LevelIntermediate, s.User().CurrentLevel)
}

func TestSession_RefreshRejectedSignsOut(t *testing.T) {
	s, path := newTestSession(t)
	authn := &fakeAuthenticator{result: &models.AuthResult{User: models.User{ID: 1}, Token: "tok"}}
	require.NoError(t, s.Login(context.Background(), authn, "a@b.c", "pw"))

	authn.err = &api.Error{Method: http.MethodGet, Path: "/auth/me", StatusCode: http.StatusUnauthorized}
	err := s.Refresh(context.Background(), authn)

	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.False(t, s.Authenticated())
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSession_RefreshTransientFailureKeepsSession(t *testing.T) {
	for name, cause := range map[string]error{
		"network":  errors.New("dial tcp: connection refused"),
		"canceled": context.Canceled,
		"server":   &api.Error{Method: http.MethodGet, Path: "/auth/me", StatusCode: http.StatusBadGateway},
	} {
		t.Run(name, func(t *testing.T) {
			s, path := newTestSession(t)
			authn := &fakeAuthenticator{result: &models.AuthResult{User: models.User{ID: 1, Name: "Ana"}, Token: "tok"}}
			require.NoError(t, s.Login(context.Background(), authn, "a@b.c", "pw"))

			authn.err = cause
			err := s.Refresh(context.Background(), authn)

			assert.ErrorIs(t, err, cause)
			assert.True(t, s.Authenticated())
			assert.Equal(t, "tok", s.Token())
			require.NotNil(t, s.User())
			assert.Equal(t, "Ana", s.User().Name)
			_, statErr := os.Stat(path)
			assert.NoError(t, statErr)
		})
	}
}

func TestSession_RefreshRequiresToken(t *testing.T) {
	s, _ := newTestSession(t)

	err := s.Refresh(context.Background(), &fakeAuthenticator{})

	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestSession_InvalidateAndLogout(t *testing.T) {
	s, _ := newTestSession(t)
	authn := &fakeAuthenticator{result: &models.AuthResult{User: models.User{ID: 1}, Token: "tok"}}
	states := make(chan State, 8)
	defer s.ListenToState(states)()

	require.NoError(t, s.Login(context.Background(), authn, "a@b.c", "pw"))
	s.Invalidate()
	s.Invalidate() // no-op when already signed out

	assert.False(t, s.Authenticated())

	var got []State
	for len(states) > 0 {
		got = append(got, <-states)
	}
	require.Len(t, got, 2)
	assert.True(t, got[0].Authenticated)
	assert.False(t, got[1].Authenticated)
	assert.True(t, got[1].Expired)

	require.NoError(t, s.Login(context.Background(), authn, "a@b.c", "pw"))
	s.Logout()
	assert.False(t, s.Authenticated())
}

func TestSession_UserIsCopy(t *testing.T) {
	s, _ := newTestSession(t)
	authn := &fakeAuthenticator{result: &models.AuthResult{User: models.User{ID: 1, Name: "Ana"}, Token: "tok"}}
	require.NoError(t, s.Login(context.Background(), authn, "a@b.c", "pw"))

	u := s.User()
	u.Name = "changed"

	assert.Equal(t, "Ana", s.User().Name)
}
