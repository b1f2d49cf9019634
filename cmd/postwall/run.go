package main

import (
	"github.com/spf13/cobra"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/errors"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/logger"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/pipeline"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/ui"
)

var skipCollect bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Collect, fetch covers and serve in one go",
	Long: `Run the whole flow: collect favorites into the manifest, cache their
covers, then serve the poster wall until interrupted.

If collection fails but an earlier manifest exists, the wall is still built
from what is already on disk.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		extra := collectFlags(cmd)
		for k, v := range serveFlags(cmd) {
			extra[k] = v
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

		if !skipCollect {
			if _, err := runCollect(ctx, p); err != nil {
				existing, loadErr := p.Manifest().Load()
				if loadErr != nil || len(existing) == 0 {
					return err
				}
				ui.PrintWarning("Collection failed, continuing with the existing manifest", err)
			}
		}
		if ctx.Err() != nil {
			return nil
		}

		if err := runFetch(ctx, p); err != nil && !errors.Is(err, errors.ErrorTypeSourceUnavailable) {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		return runServe(ctx, cfg, p)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addCollectFlags(runCmd)
	addServeFlags(runCmd)
	runCmd.Flags().BoolVar(&skipCollect, "skip-collect", false, "build the wall from the existing manifest only")
}
