package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/recruiter/internal/api"
	"github.com/spigell/recruiter/internal/hiring"
	"github.com/spigell/recruiter/internal/session"
)

type stubAuth struct {
	token string
}

func (s *stubAuth) Login(context.Context, api.Credentials) (*api.LoginResponse, error) {
	return &api.LoginResponse{Token: s.token, User: &api.User{Name: "Ana"}}, nil
}

func (s *stubAuth) Register(context.Context, api.Registration) (*api.RegisterResponse, error) {
	return &api.RegisterResponse{}, nil
}

func (s *stubAuth) RefreshToken(context.Context, string) (*api.RefreshResponse, error) {
	return nil, &api.Error{StatusCode: 401}
}

func testToken(t *testing.T, exp time.Time) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

// newTestApp builds an App over an in-memory session. Navigations are
// collected into routes when it is not nil.
func newTestApp(t *testing.T, routes *[]string) *App {
	t.Helper()

	return newTestAppWithStore(t, session.NewMemoryStore(), routes)
}

func newTestAppWithStore(t *testing.T, store session.Storage, routes *[]string) *App {
	t.Helper()

	client := api.New(zap.NewNop(), "", 0)
	manager := session.New(nil, &session.Deps{
		Auth:    &stubAuth{token: testToken(t, time.Now().Add(time.Hour))},
		Storage: store,
		Navigator: session.NavigatorFunc(func(route string) {
			if routes != nil {
				*routes = append(*routes, route)
			}
		}),
		Logger: zap.NewNop(),
	})
	t.Cleanup(manager.Close)

	return &App{
		Config:  &Config{Log: &LogConfig{}},
		Logger:  zap.NewNop(),
		Client:  client,
		Session: manager,
	}
}

func TestRequireSessionWithoutSessionNavigatesOnce(t *testing.T) {
	var routes []string
	a := newTestApp(t, &routes)

	require.ErrorIs(t, a.requireSession(context.Background()), session.ErrNotAuthenticated)
	assert.Equal(t, []string{session.RouteLogin}, routes)
}

func TestRequireSessionAfterFailedRestoreNavigatesOnce(t *testing.T) {
	store := session.NewMemoryStore()
	require.NoError(t, store.Set(session.KeyToken, testToken(t, time.Now().Add(-time.Hour))))

	var routes []string
	a := newTestAppWithStore(t, store, &routes)

	require.ErrorIs(t, a.requireSession(context.Background()), session.ErrNotAuthenticated)
	assert.Equal(t, []string{session.RouteLogin}, routes)
}

func TestRequireSessionWithValidSession(t *testing.T) {
	var routes []string
	a := newTestApp(t, &routes)
	require.NoError(t, a.Session.Login(context.Background(), api.Credentials{Email: "a@b.com", Password: "x"}))

	require.NoError(t, a.requireSession(context.Background()))
	assert.Empty(t, routes)
}

func TestSessionRejected(t *testing.T) {
	var routes []string
	a := newTestApp(t, &routes)
	require.NoError(t, a.Session.Login(context.Background(), api.Credentials{Email: "a@b.com", Password: "x"}))

	assert.False(t, a.sessionRejected(nil))
	assert.False(t, a.sessionRejected(&api.Error{StatusCode: 502}))
	assert.True(t, a.Session.IsAuthenticated())

	assert.True(t, a.sessionRejected(&api.Error{StatusCode: 403}))
	assert.False(t, a.Session.IsAuthenticated())
	assert.Equal(t, []string{session.RouteLogin}, routes)
}

func TestPreselectJob(t *testing.T) {
	funnel := hiring.New(context.Background(), &hiring.Deps{})
	funnel.Start()

	require.Error(t, preselectJob(funnel, hiring.DefaultCatalog(), "missing"))
	assert.Equal(t, hiring.StepSelectJob, funnel.State().Step)

	require.NoError(t, preselectJob(funnel, hiring.DefaultCatalog(), "job2"))
	state := funnel.State()
	assert.Equal(t, hiring.StepSetRequirements, state.Step)
	require.NotNil(t, state.Job)
	assert.Equal(t, "Engenheiro de Dados Pleno", state.Job.Title)
}
