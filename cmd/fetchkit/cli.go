package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/net/publicsuffix"

	"github.com/jeffersonwarrior/fetchkit/fetch"
	"github.com/jeffersonwarrior/fetchkit/interceptors"
	"github.com/jeffersonwarrior/fetchkit/internal/config"
	"github.com/jeffersonwarrior/fetchkit/internal/version"
	"github.com/jeffersonwarrior/fetchkit/journal"
)

// CLI represents the command-line interface
type CLI struct {
	rootCmd *cobra.Command
	out     io.Writer
	errOut  io.Writer

	// persistent flags
	configPath  string
	profile     string
	logLevel    string
	journal     bool
	journalPath string

	// transport overrides the default HTTP client (tests).
	transport fetch.Doer
}

// env is the state every command builds from flags and the config file.
type env struct {
	cfg     *config.Config
	profile config.Profile
	logger  *logrus.Logger
}

// NewCLI creates a new CLI instance
func NewCLI(out, errOut io.Writer) *CLI {
	cli := &CLI{out: out, errOut: errOut}

	cli.rootCmd = &cobra.Command{
		Use:   "fetchkit",
		Short: "Issue HTTP requests through the fetchkit interceptor pipeline",
		Long: `fetchkit sends HTTP requests with profile defaults (base URL, headers,
query parameters, timeout, token) and can record every call in a SQLite
journal for later inspection.

Examples:
  fetchkit get /users --profile api
  fetchkit post https://httpbin.org/post --json -d '{"name":"gopher"}'
  fetchkit journal stats`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cli.rootCmd.SetOut(out)
	cli.rootCmd.SetErr(errOut)
	// Flag parse errors are usage errors.
	cli.rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageErr(err)
	})

	cli.setupFlags()

	cli.rootCmd.AddCommand(cli.newRequestCommand())
	for _, m := range []fetch.Method{
		fetch.MethodGet, fetch.MethodPost, fetch.MethodPut, fetch.MethodPatch,
		fetch.MethodDelete, fetch.MethodHead, fetch.MethodOptions,
	} {
		cli.rootCmd.AddCommand(cli.newMethodCommand(m))
	}
	cli.rootCmd.AddCommand(cli.newJournalCommand())
	cli.rootCmd.AddCommand(cli.newVersionCommand())

	return cli
}

// setupFlags sets up command line flags
func (cli *CLI) setupFlags() {
	flags := cli.rootCmd.PersistentFlags()
	flags.StringVar(&cli.configPath, "config", config.DefaultPath(), "Config file path")
	flags.StringVarP(&cli.profile, "profile", "p", "", "Profile to use (default: default_profile from config)")
	flags.StringVar(&cli.logLevel, "log-level", "", "Log level (debug, info, warning, error)")
	flags.BoolVar(&cli.journal, "journal", false, "Record requests in the journal")
	flags.StringVar(&cli.journalPath, "journal-path", "", "Journal database path")
}

// Execute runs the command line and returns the process exit code.
func (cli *CLI) Execute(ctx context.Context, args []string) int {
	cli.rootCmd.SetArgs(args)
	err := cli.rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(cli.errOut, "Error: %v\n", err)
	}
	return exitCode(err)
}

// setup loads configuration and resolves the active profile.
func (cli *CLI) setup() (*env, error) {
	cfg, err := config.Load(cli.configPath)
	if err != nil {
		return nil, usageErr(fmt.Errorf("failed to load config: %w", err))
	}
	if cli.journal {
		cfg.Journal.Enabled = true
	}
	if cli.journalPath != "" {
		cfg.Journal.Path = cli.journalPath
	}
	if cli.logLevel != "" {
		cfg.Log.Level = cli.logLevel
	}

	profile, err := cfg.Profile(cli.profile)
	if err != nil {
		return nil, err
	}

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, usageErr(err)
	}
	logger := logrus.New()
	logger.SetOutput(cli.errOut)
	logger.SetLevel(level)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	return &env{cfg: cfg, profile: profile, logger: logger}, nil
}

// newClient builds a client for e. The returned cleanup closes the journal
// when one was opened.
func (cli *CLI) newClient(e *env) (*fetch.Client, func(), error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	defaults := e.profile.RequestOptions()
	if defaults.Headers == nil {
		defaults.Headers = make(http.Header)
	}
	if defaults.Headers.Get("User-Agent") == "" {
		defaults.Headers.Set("User-Agent", version.UserAgent())
	}

	client := fetch.New(fetch.Config{
		Defaults:   defaults,
		HTTPClient: cli.transport,
		Jar:        jar,
		Logger:     e.logger,
	})

	if e.profile.Token != "" {
		client.Interceptors.Request.Use(interceptors.Bearer(e.profile.Token), nil)
	}
	client.Interceptors.Request.Use(interceptors.RequestID(""), nil)
	if e.logger.IsLevelEnabled(logrus.InfoLevel) {
		interceptors.UseLogging(client, e.logger)
	}
	client.Interceptors.Response.UseHandler(interceptors.RateLimit(func(info *interceptors.RateLimitInfo, resp *fetch.Response) {
		e.logger.WithField("url", resp.Config.URL).Debug(info.String())
	}))

	cleanup := func() {}
	if e.cfg.Journal.Enabled {
		db, err := journal.Open(e.cfg.Journal.Path)
		if err != nil {
			return nil, nil, err
		}
		journal.NewRecorder(db, e.logger).Install(client)
		cleanup = func() {
			if err := db.Close(); err != nil {
				e.logger.WithError(err).Warn("Failed to close journal")
			}
		}
	}

	return client, cleanup, nil
}

func (cli *CLI) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cli.out, "fetchkit version %s\n", version.Version())
		},
	}
}
