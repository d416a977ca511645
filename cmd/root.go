package cmd

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/roboweedmaps/rwm-dataset/cmd/config"
	"github.com/roboweedmaps/rwm-dataset/cmd/dbcheck"
	"github.com/roboweedmaps/rwm-dataset/cmd/extract"
	"github.com/roboweedmaps/rwm-dataset/cmd/runs"
	"github.com/roboweedmaps/rwm-dataset/cmd/version"
	"github.com/roboweedmaps/rwm-dataset/internal/buildinfo"
	"github.com/roboweedmaps/rwm-dataset/internal/conf"
	"github.com/roboweedmaps/rwm-dataset/internal/errors"
	"github.com/roboweedmaps/rwm-dataset/internal/logger"
)

// skipSetup marks commands that run without configuration.
const skipSetup = "skip-setup"

// globalFlags are the persistent flags of the root command.
type globalFlags struct {
	configFile string
	logLevel   string
	debug      bool
}

var (
	cleanupMu sync.Mutex
	cleanups  []func()
)

func addCleanup(f func()) {
	cleanupMu.Lock()
	defer cleanupMu.Unlock()
	cleanups = append(cleanups, f)
}

// Cleanup flushes the logger and error telemetry. Call it once Execute returns.
func Cleanup() {
	cleanupMu.Lock()
	defer cleanupMu.Unlock()
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	cleanups = nil
}

// RootCommand creates and returns the root command. settings is filled in
// before any subcommand runs.
func RootCommand(settings *conf.Settings) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "rwm-dataset",
		Short:         "Build YOLO datasets from the RoboWeedMaps annotation database",
		Version:       buildinfo.Current().GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: trace, debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVarP(&flags.debug, "debug", "d", false, "Enable debug output")

	versionCmd := version.Command()
	versionCmd.Annotations = map[string]string{skipSetup: "true"}

	rootCmd.AddCommand(
		extract.Command(settings),
		dbcheck.Command(settings),
		runs.Command(settings),
		config.Command(settings),
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[skipSetup] == "true" {
			return nil
		}
		return initialize(settings, flags)
	}

	return rootCmd
}

// initialize loads the configuration and sets up logging and error telemetry.
func initialize(settings *conf.Settings, flags *globalFlags) error {
	loaded, err := conf.Load(conf.LoadOptions{ConfigFile: flags.configFile})
	if err != nil {
		return err
	}

	level, err := effectiveLogLevel(loaded, flags)
	if err != nil {
		return err
	}
	applyLogLevel(&loaded.Logging, level)
	if flags.debug {
		loaded.Debug = true
	}

	central, err := logger.NewCentralLogger(&loaded.Logging)
	if err != nil {
		return errors.New(fmt.Errorf("setup logging: %w", err)).
			Component("cli").
			Category(errors.CategoryConfiguration).
			Build()
	}
	logger.SetGlobal(central)
	addCleanup(func() { _ = central.Close() })

	if loaded.Sentry.Enabled {
		flush, err := errors.InitSentry(loaded.Sentry.DSN, loaded.Sentry.Environment, buildinfo.Current().Release())
		if err != nil {
			central.Module("cli").Warn("error telemetry disabled", logger.Error(err))
		} else {
			addCleanup(flush)
		}
	}

	*settings = *loaded
	return nil
}

// effectiveLogLevel returns the level forced by --log-level or debug mode, or ""
// to keep the configured levels.
func effectiveLogLevel(s *conf.Settings, flags *globalFlags) (string, error) {
	switch {
	case flags.logLevel != "":
		if !logger.IsValidLevel(flags.logLevel) {
			return "", errors.Newf("invalid --log-level %q", flags.logLevel).
				Component("cli").
				Category(errors.CategoryValidation).
				Build()
		}
		return flags.logLevel, nil
	case flags.debug || s.Debug:
		return string(logger.LogLevelDebug), nil
	default:
		return "", nil
	}
}

func applyLogLevel(cfg *logger.LoggingConfig, level string) {
	if level == "" {
		return
	}
	cfg.DefaultLevel = level
	if cfg.Console != nil {
		cfg.Console.Level = level
	}
}
