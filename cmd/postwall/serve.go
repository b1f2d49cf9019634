package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/config"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/logger"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/pipeline"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/proxy"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/resolver"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/server"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/ui"
)

var (
	// Serve command flags
	addr          string
	staticRoot    string
	enableCatalog bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the poster wall and the video proxy",
	Long: `Start the local HTTP server. It serves the frontend and cached covers
from the static root, proxies video streams with Range support, resolves
pasted share links and saves manifest edits made in the page.

Stop it with Ctrl+C; in-flight requests get a grace period to finish.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, serveFlags(cmd))
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		p, err := pipeline.New(cfg, logger.GetLogger())
		if err != nil {
			return err
		}
		defer p.Close()

		return runServe(ctx, cfg, p)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addServeFlags(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :5000)")
	cmd.Flags().StringVar(&staticRoot, "static-root", "", "directory served for static files")
	cmd.Flags().BoolVar(&enableCatalog, "catalog", false, "mirror the manifest into SQLite and enable /api/items")
}

func serveFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	fs := cmd.Flags()
	if fs.Changed("addr") {
		flags["addr"] = addr
	}
	if fs.Changed("static-root") {
		flags["static-root"] = staticRoot
	}
	if fs.Changed("catalog") {
		flags["catalog"] = enableCatalog
	}
	return flags
}

func runServe(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline) error {
	log := logger.GetLogger()

	deps := server.Dependencies{
		Resolver: resolver.New(cfg.Feed.Timeout, log),
		Proxy: proxy.New(proxy.Options{
			Timeout:         cfg.Server.ProxyTimeout,
			MaxConnsPerHost: cfg.Server.MaxUpstreamConns,
		}, log),
		Manifest: p.Manifest(),
	}
	if c := p.Catalog(); c != nil {
		deps.Catalog = c
	}

	ui.PrintInfo("Poster wall", pageURL(cfg.Server))
	ui.PrintHighlight("Press Ctrl+C to stop")
	return server.New(cfg.Server, deps, log).Run(ctx)
}

func pageURL(cfg config.ServerConfig) string {
	host := cfg.Addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	return "http://" + host + cfg.IndexPage
}
