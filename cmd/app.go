package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/recruiter/internal/api"
	"github.com/spigell/recruiter/internal/hiring"
	"github.com/spigell/recruiter/internal/logger"
	"github.com/spigell/recruiter/internal/session"
)

// App holds everything a command needs. It is built once per command run.
type App struct {
	Config  *Config
	Logger  *zap.Logger
	Client  *api.Client
	Session *session.Manager
}

var routeCommands = map[string]string{
	session.RouteLogin:     app + " login",
	session.RouteDashboard: app + " dashboard",
}

func newApp() (*App, error) {
	config, err := getConfig(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("getting a config: %w", err)
	}

	var file *logger.FileOptions
	if config.Log.File != "" {
		file = &logger.FileOptions{
			Path:       config.Log.File,
			MaxSizeMB:  config.Log.MaxSizeMB,
			MaxBackups: config.Log.MaxBackups,
			MaxAgeDays: config.Log.MaxAgeDays,
		}
	}

	log, err := logger.NewWithFile(viper.GetBool("json"), viper.GetBool("debug"), file)
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	client := api.New(log, config.APIURL, config.Timeout)
	if config.UserAgent != "" {
		client.UserAgent = config.UserAgent
	}

	manager := session.New(&session.Config{RefreshLead: config.RefreshLead}, &session.Deps{
		Auth:      client,
		Storage:   newStorage(config),
		Navigator: session.NavigatorFunc(navigate),
		Logger:    logger.WithSessionFields(log, "", client.APIURL),
	})
	client.SetTokenSource(manager)

	log.Debug("starting the recruiter",
		zap.String("version", version),
		zap.String("api_url", client.APIURL),
		zap.Bool("ephemeral", config.Ephemeral),
	)

	return &App{
		Config:  config,
		Logger:  log,
		Client:  client,
		Session: manager,
	}, nil
}

func newStorage(config *Config) session.Storage {
	if config.Ephemeral {
		return session.NewMemoryStore()
	}

	path := config.SessionFile
	if path == "" {
		path = session.DefaultPath(app)
	}

	return session.NewFileStore(path)
}

// navigate tells the user which command leads to the requested view.
func navigate(route string) {
	next, ok := routeCommands[route]
	if !ok {
		next = app + " " + route
	}

	fmt.Fprintf(os.Stderr, "%s %s\n", color.New(color.Faint).Sprint("next:"), next)
}

// requireSession restores the persisted session and fails when there is none.
func (a *App) requireSession(ctx context.Context) error {
	restoreErr := a.Session.Restore(ctx)

	if !a.Session.IsAuthenticated() {
		if restoreErr != nil {
			// The failed restore has already logged out and pointed at the login command.
			a.Logger.Debug("restoring the session", zap.Error(restoreErr))
			return session.ErrNotAuthenticated
		}
		if !a.Session.Guard() {
			return session.ErrNotAuthenticated
		}
	}

	a.Logger = logger.WithSessionFields(a.Logger, a.Session.UserName(), a.Client.APIURL)
	return nil
}

// sessionRejected reports whether the backend refused the session token, in
// which case the persisted session is dropped and the user is sent to login.
func (a *App) sessionRejected(err error) bool {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || !apiErr.Unauthorized() {
		return false
	}

	a.Logger.Warn("session rejected by the backend", zap.Int("status", apiErr.StatusCode))
	a.Session.Logout()
	return true
}

func (a *App) newFunnel(ctx context.Context) *hiring.Funnel {
	return hiring.New(ctx, &hiring.Deps{
		Analyzer: a.Client,
		History:  a.Client,
		Logger:   a.Logger,
	})
}

func (a *App) catalog() (*hiring.Catalog, error) {
	if a.Config.JobsFile == "" {
		return hiring.DefaultCatalog(), nil
	}

	return hiring.LoadCatalog(a.Config.JobsFile)
}

func (a *App) Close() {
	a.Session.Close()
	_ = a.Logger.Sync()
}
