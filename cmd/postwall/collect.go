package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/collector"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/logger"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/pipeline"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/ui"
)

var (
	// Collect command flags
	replayPath     string
	fetchAfter     bool
	backupManifest bool
	maxItems       int
	stallLimit     int
	settleInterval time.Duration
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect favorites into the manifest",
	Long: `Page through the favorites feed and merge every item into the manifest.

Items already in the manifest are kept; the run only adds and updates. The
manifest is saved after every batch that added something, so an interrupted
run loses nothing. The run ends when the feed stops producing new items, the
item cap is reached, or the feed reports it has no more pages.

The feed request needs your logged-in cookie, set through POSTWALL_COOKIE or
feed.cookie in the config file.`,
	Example: `  # Collect using the configured favorites API
  postwall collect

  # Replay a recorded feed instead of calling the API
  postwall collect --replay testdata/feed.json

  # Collect, keep a backup of the previous manifest, then fetch covers
  postwall collect --backup --fetch`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, collectFlags(cmd))
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

		if backupManifest {
			if err := p.Manifest().Backup(); err != nil {
				return err
			}
		}

		if _, err := runCollect(ctx, p); err != nil {
			return err
		}
		if fetchAfter {
			return runFetch(ctx, p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(collectCmd)
	addCollectFlags(collectCmd)
	collectCmd.Flags().BoolVar(&backupManifest, "backup", false, "copy the current manifest to metadata.json.bak first")
	collectCmd.Flags().BoolVar(&fetchAfter, "fetch", false, "download covers after collecting")
}

func addCollectFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&replayPath, "replay", "", "read batches from a recorded JSON fixture instead of the API")
	cmd.Flags().IntVar(&maxItems, "max-items", 0, "stop after this many items (default from config)")
	cmd.Flags().IntVar(&stallLimit, "stall-limit", 0, "stop after this many batches without new items (default from config)")
	cmd.Flags().DurationVar(&settleInterval, "settle-interval", 0, "wait between requesting and pulling the next batch (default from config)")
}

func collectFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	fs := cmd.Flags()
	if fs.Changed("max-items") {
		flags["max-items"] = maxItems
	}
	if fs.Changed("stall-limit") {
		flags["stall-limit"] = stallLimit
	}
	if fs.Changed("settle-interval") {
		flags["settle-interval"] = settleInterval
	}
	return flags
}

func runCollect(ctx context.Context, p *pipeline.Pipeline) (collector.Result, error) {
	src, err := p.Source(replayPath)
	if err != nil {
		return collector.Result{}, err
	}
	if replayPath != "" {
		ui.PrintInfo("Source", replayPath)
	} else {
		ui.PrintInfo("Source", "favorites API")
	}

	ui.PrintHighlight("[COLLECTING FAVORITES]")
	res, err := p.Collect(ctx, src)
	ui.PrintSummary("Collection", map[string]interface{}{
		"stop reason": res.Reason,
		"batches":     res.Batches,
		"added":       res.Added,
		"total":       res.Total,
		"manifest":    p.Manifest().Path(),
	})
	if err != nil {
		return res, err
	}
	ui.PrintSuccess("Collection finished")
	return res, nil
}
