package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/config"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage postwall configuration files.

Configuration is resolved in this order (first wins):
  - Command line flags
  - Environment variables (POSTWALL_*)
  - .env files
  - Configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after applying every source. The feed cookie is
masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = "postwall.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Put your logged-in cookie under feed.cookie (or export POSTWALL_COOKIE)")
	fmt.Println("2. Run 'postwall config validate' to check the configuration")
	fmt.Println("3. Build the wall with 'postwall run'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	display := *cfg
	display.Feed.Cookie = maskSecret(display.Feed.Cookie)

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	if cfg.Feed.Cookie == "" {
		ui.PrintWarning("Feed cookie not configured; collect will only work with --replay")
	}
	if _, err := os.Stat(cfg.Server.StaticRoot); err != nil {
		ui.PrintWarning("Static root not found", cfg.Server.StaticRoot)
	}

	ui.PrintSuccess("Configuration is valid")
	ui.PrintSummary("Configuration summary", map[string]interface{}{
		"manifest":    cfg.Storage.ManifestPath,
		"covers":      cfg.Storage.CoversDir,
		"max items":   cfg.Collect.MaxItems,
		"stall limit": cfg.Collect.StallLimit,
		"concurrency": cfg.Download.Concurrency,
		"listen":      cfg.Server.Addr,
		"catalog":     cfg.Catalog.Enabled,
		"log level":   cfg.Logging.Level,
	})
	return nil
}

// maskSecret keeps the first and last four characters of long values
func maskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) > 8:
		return s[:4] + "..." + s[len(s)-4:]
	default:
		return "***"
	}
}
