package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/config"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/logger"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/ui"
)

var (
	// Global flags
	configFile string
	logLevel   string
	dataDir    string
	noColor    bool
	quiet      bool
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "postwall",
	Short: "Build a local poster wall from your favorited videos",
	Long: `postwall collects your favorited videos into a local manifest, caches
their covers, and serves a poster wall page that can play the videos through
a range-aware proxy.

Typical flow:
  postwall collect     # page through favorites into data/metadata.json
  postwall fetch       # download covers into data/covers
  postwall serve       # open http://localhost:5000/

or all at once with 'postwall run'.`,
	Version:       logger.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.SetColor(false)
		}
		if quiet {
			ui.SetQuietMode(true)
		}
		switch cmd.Name() {
		case "version", "help", "show", "validate", "init", "search":
		default:
			ui.PrintLogo()
		}
	},
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./postwall.yaml or $HOME/.postwall.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory holding the manifest, covers and catalog")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.SetVersionTemplate(`postwall {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig resolves configuration for cmd and initializes logging.
// extra holds command-specific overrides keyed like config flags.
func loadConfig(cmd *cobra.Command, extra map[string]interface{}) (*config.Config, error) {
	flags := make(map[string]interface{}, len(extra)+2)
	for k, v := range extra {
		flags[k] = v
	}
	fs := cmd.Flags()
	if fs.Changed("data-dir") {
		flags["data-dir"] = dataDir
	}
	if verbose {
		flags["log-level"] = "debug"
	} else if fs.Changed("log-level") {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.WithField("command", cmd.Name()).Debug("Configuration loaded")
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
