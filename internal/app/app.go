package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/five82/bookdesk/internal/auth"
	"github.com/five82/bookdesk/internal/bookapi"
	"github.com/five82/bookdesk/internal/config"
	"github.com/five82/bookdesk/internal/logging"
	"github.com/five82/bookdesk/internal/mutation"
	"github.com/five82/bookdesk/internal/prefs"
	"github.com/five82/bookdesk/internal/query"
	"github.com/five82/bookdesk/internal/session"
	"github.com/five82/bookdesk/internal/ui"
)

// Options configure the dashboard.
type Options struct {
	Config    config.Config
	PrefsPath string // empty uses default ~/.config/bookdesk/prefs.toml
}

// Deps is the object graph shared by the dashboard and the CLI commands.
type Deps struct {
	Config  config.Config
	Client  *bookapi.Client
	Session *session.Store
	Auth    *auth.Service
	Queries *query.Client
	Books   *query.Query[[]bookapi.Book]
	Log     logrus.FieldLogger
}

// Build wires the API client, session, auth service and book query.
func Build(cfg config.Config, log logrus.FieldLogger) (*Deps, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	client, err := bookapi.NewClient(cfg.BaseURL,
		bookapi.WithTimeout(cfg.RequestTimeout),
		bookapi.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("init book api client: %w", err)
	}

	store, writer := session.New()
	queries := query.NewClient(
		query.WithStaleTime(cfg.StaleTime),
		query.WithLogger(log),
	)
	return &Deps{
		Config:  cfg,
		Client:  client,
		Session: store,
		Auth:    auth.NewService(client, writer, log),
		Queries: queries,
		Books:   query.Books(queries, client),
		Log:     log,
	}, nil
}

// NewPipeline returns a create-book pipeline bound to these dependencies.
func (d *Deps) NewPipeline(onSuccess func(bookapi.Book), onChange func(mutation.State)) *mutation.Pipeline {
	return mutation.New(mutation.Config{
		API:       d.Client,
		Tokens:    d.Session,
		Cache:     d.Queries,
		Logger:    d.Log,
		OnSuccess: onSuccess,
		OnChange:  onChange,
	})
}

// Close cancels background query work.
func (d *Deps) Close() {
	d.Queries.Close()
}

// Run boots the dashboard until the user quits or the context is cancelled.
// Logs go to the configured file so the terminal stays clean.
func Run(ctx context.Context, opts Options) error {
	cfg := opts.Config
	log, closer, err := logging.SetupFile(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closer.Close()

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	deps, err := Build(cfg, log)
	if err != nil {
		return err
	}
	defer deps.Close()

	log.WithField("base_url", deps.Client.BaseURL()).Info("dashboard starting")
	stopPoller := StartPoller(ctx, deps.Books, cfg.RefreshInterval, log)
	defer stopPoller()

	return ui.Run(ui.Options{
		Context: ctx,
		Auth:    deps.Auth,
		Session: deps.Session,
		Books:   deps.Books,
		NewPipeline: func(onSuccess func(bookapi.Book)) *mutation.Pipeline {
			return deps.NewPipeline(onSuccess, nil)
		},
		Config:    &cfg,
		ThemeName: userPrefs.Theme,
		LastEmail: userPrefs.Email,
		PrefsPath: opts.PrefsPath,
		LogPath:   cfg.LogFile,
	})
}
