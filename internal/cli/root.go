package cli

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/five82/bookdesk/internal/app"
	"github.com/five82/bookdesk/internal/config"
	"github.com/five82/bookdesk/internal/logging"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	prefsPath  string
	baseURL    string
	logLevel   string
}

// NewRootCmd builds the bookdesk command tree. With no subcommand it opens
// the dashboard.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "bookdesk",
		Short: "Terminal dashboard for a book catalog API",
		Long: `bookdesk signs in to a book catalog API, lists the catalog and creates
new books with a cover image and a document.

Run without a subcommand to open the dashboard. The subcommands expose the
same operations for scripts.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			return app.Run(cmd.Context(), app.Options{Config: cfg, PrefsPath: flags.prefsPath})
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default ~/.config/bookdesk/config.toml)")
	pf.StringVar(&flags.prefsPath, "prefs", "", "preferences file (default ~/.config/bookdesk/prefs.toml)")
	pf.StringVar(&flags.baseURL, "base-url", "", "book API base URL (overrides config and "+config.EnvBaseURL+")")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(
		newLoginCmd(flags),
		newRegisterCmd(flags),
		newBooksCmd(flags),
		newMockServerCmd(flags),
	)
	return cmd
}

func (f *globalFlags) load() (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg.OverrideBaseURL(f.baseURL)
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	return cfg, nil
}

// deps loads config, points logging at stderr and builds the object graph
// for a one-shot command.
func (f *globalFlags) deps(cmd *cobra.Command) (*app.Deps, error) {
	cfg, err := f.load()
	if err != nil {
		return nil, err
	}
	log, err := f.logger(cmd, "warn")
	if err != nil {
		return nil, err
	}
	return app.Build(cfg, log)
}

// logger sends logs to stderr at fallback unless --log-level was given.
func (f *globalFlags) logger(cmd *cobra.Command, fallback string) (*logrus.Logger, error) {
	level := fallback
	if f.logLevel != "" {
		level = f.logLevel
	}
	return logging.Setup(cmd.ErrOrStderr(), level)
}
