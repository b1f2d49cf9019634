package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/logger"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/pipeline"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/ui"
)

var concurrency int

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download missing covers into the local cache",
	Long: `Download the cover of every manifest item that is not cached yet and
record its local path in the manifest. Covers already on disk are never
downloaded again. Failed covers are left unmarked and retried next time.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		extra := map[string]interface{}{}
		if cmd.Flags().Changed("concurrency") {
			extra["concurrency"] = concurrency
		}
		cfg, err := loadConfig(cmd, extra)
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

		return runFetch(ctx, p)
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel cover downloads (default from config)")
}

func runFetch(ctx context.Context, p *pipeline.Pipeline) error {
	ui.PrintHighlight("[FETCHING COVERS]")
	sum, err := p.FetchCovers(ctx)
	if err != nil {
		return err
	}
	ui.PrintSummary("Covers", map[string]interface{}{
		"items":  sum.Items,
		"cached": sum.Cached,
		"failed": sum.Failed,
	})
	if sum.Failed > 0 {
		ui.PrintWarning("Some covers failed, run fetch again to retry", sum.Failed)
	} else {
		ui.PrintSuccess("All covers cached")
	}
	return nil
}
