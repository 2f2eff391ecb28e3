package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dshills/apigate/internal/checker"
	"github.com/dshills/apigate/internal/config"
	"github.com/dshills/apigate/internal/github"
	"github.com/dshills/apigate/internal/store"
)

const version = "0.3.0"

// Exit codes
const (
	ExitSuccess      = 0
	ExitFindings     = 1
	ExitUsageError   = 2
	ExitAuthError    = 3
	ExitRuntimeError = 4
)

var (
	_ checker.PullRequest   = (*github.PullRequest)(nil)
	_ checker.SnapshotStore = (*store.Store)(nil)
)

// Global flags
var (
	flagConfig   string
	flagLogLevel string
	flagTimeout  time.Duration
)

// logger is built from --log-level before any subcommand runs.
var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "apigate",
	Short: "API compatibility gate for pull requests",
	Long: "apigate compares the public API extracted from a build with the accepted snapshot, " +
		"reports changes on the pull request and places compiler warnings on changed lines.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := flagLogLevel
		if level == "" {
			level = os.Getenv("APIGATE_LOG_LEVEL")
		}
		l, err := newLogger(level)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

// Run executes the root command and returns an exit code.
func Run() int {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}
	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print apigate version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "apigate version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default $XDG_CONFIG_HOME/apigate/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 10*time.Minute, "Overall time limit for remote operations")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(annotateCmd)
	rootCmd.AddCommand(diagnosticsCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// newLogger builds a console logger on stderr. An empty level means info.
func newLogger(level string) (*zap.Logger, error) {
	if level == "" {
		level = "info"
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Sampling = nil
	return cfg.Build()
}

// commandContext returns a context bounded by --timeout.
func commandContext() (context.Context, context.CancelFunc) {
	if flagTimeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), flagTimeout)
}

// loadConfig merges the config file, environment and overrides. The
// configured log level applies unless --log-level was given.
func loadConfig(overrides map[string]string) (config.Config, error) {
	cfg, err := config.Load(flagConfig, overrides)
	if err != nil {
		return config.Config{}, err
	}
	if flagLogLevel == "" && os.Getenv("APIGATE_LOG_LEVEL") == "" && cfg.LogLevel != "" {
		l, err := newLogger(cfg.LogLevel)
		if err != nil {
			return config.Config{}, err
		}
		logger = l
	}
	return cfg, nil
}

// fail reports err and sets the exit code matching its kind.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	exitCode = exitCodeFor(err)
}

func exitCodeFor(err error) int {
	var (
		missing *config.MissingEnvError
		invalid *config.InvalidEnvError
	)
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, checker.ErrBuildFailed):
		return ExitFindings
	case errors.As(err, &missing), errors.As(err, &invalid):
		return ExitUsageError
	case errors.Is(err, errNoToken), github.IsAuthError(err):
		return ExitAuthError
	default:
		return ExitRuntimeError
	}
}

var errNoToken = errors.New("GITHUB_TOKEN is not set")

func newGitHubClient(cfg config.Config) (*github.Client, error) {
	token := os.Getenv(config.EnvToken)
	if token == "" {
		return nil, errNoToken
	}
	return github.NewClient(token, cfg.GitHub.APIURL, logger)
}

func openStore(cfg config.Config) (*store.Store, error) {
	sc := store.DefaultConfig()
	sc.Dir = cfg.Store.Dir
	st, err := store.Open(sc, logger)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot store: %w", err)
	}
	return st, nil
}
