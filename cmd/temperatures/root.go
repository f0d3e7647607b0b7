package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/iver-wharf/temperatures/internal/flagtypes"
	"github.com/iver-wharf/temperatures/pkg/config"
	"github.com/iver-wharf/wharf-core/v2/pkg/app"
	"github.com/iver-wharf/wharf-core/v2/pkg/logger"
	"github.com/iver-wharf/wharf-core/v2/pkg/logger/consolepretty"
	"github.com/spf13/cobra"
)

var log = logger.NewScoped("TEMPERATURES")

var isLoggingInitialized bool
var loglevel = flagtypes.LogLevel(logger.LevelInfo)
var rootConfig config.Config
var rootVersion app.Version

var rootFlags = struct {
	configFile string
}{}

var rootCmd = &cobra.Command{
	SilenceErrors: true,
	SilenceUsage:  true,
	Use:           "temperatures",
	Short:         "Exports DS18B20 1-Wire temperature sensor readings as Prometheus metrics",
	Long: `Reads the DS18B20 temperature sensors exposed by the Linux w1 kernel
driver, by default in /sys/bus/w1/devices, and serves the readings as
Prometheus metrics on http://0.0.0.0:9091/metrics.

Without a subcommand it runs the same as "temperatures serve".`,
	Args: cobra.NoArgs,
	RunE: runServeCmd,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(rootFlags.configFile)
		if err != nil {
			return err
		}
		rootConfig = cfg
		return nil
	},
}

func execute(version app.Version) {
	rootVersion = version
	rootCmd.Version = versionString(version)
	if err := rootCmd.Execute(); err != nil {
		initLoggingIfNeeded()
		log.Error().Message(err.Error())
		os.Exit(1)
	}
}

func versionString(v app.Version) string {
	var sb strings.Builder
	if v.Version != "" {
		sb.WriteString(v.Version)
	} else {
		sb.WriteString("v0.0.0")
	}
	if v.BuildRef != 0 {
		fmt.Fprintf(&sb, " #%d", v.BuildRef)
	}
	if v.BuildGitCommit != "" && v.BuildGitCommit != "HEAD" {
		fmt.Fprintf(&sb, " (%s)", v.BuildGitCommit)
	}
	if v.BuildDate != (time.Time{}) {
		sb.WriteString(" built ")
		sb.WriteString(v.BuildDate.Format(time.RFC1123))
	}
	return sb.String()
}

func init() {
	cobra.OnInitialize(initLogging)
	rootCmd.InitDefaultVersionFlag()
	rootCmd.PersistentFlags().StringVar(&rootFlags.configFile, "config", "", "Config file to read, after the file in TEMPERATURES_CONFIG")
	rootCmd.PersistentFlags().Var(&loglevel, "loglevel", "Logging level, one of: debug, info, warn, error, panic")
	rootCmd.RegisterFlagCompletionFunc("loglevel", flagtypes.CompleteLogLevel)
}

func initLoggingIfNeeded() {
	if !isLoggingInitialized {
		initLogging()
	}
}

func initLogging() {
	logConfig := consolepretty.DefaultConfig
	if loglevel.Level() != logger.LevelDebug {
		logConfig.DisableCaller = true
		logConfig.DisableDate = true
		logConfig.ScopeMinLengthAuto = false
	}
	logger.AddOutput(loglevel.Level(), consolepretty.New(logConfig))
	log.Debug().WithStringer("loglevel", &loglevel).Message("Setting log-level.")
	isLoggingInitialized = true
}

func handleCancelSignals(cancel func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	sig := <-ch
	log.Info().WithStringer("signal", sig).Message("Received signal. Shutting down.")
	signal.Stop(ch)
	cancel()
}
