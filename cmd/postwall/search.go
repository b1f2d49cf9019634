package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/logger"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/pipeline"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/ui"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search collected items by title or author",
	Long: `Search the SQLite catalog for items whose title or author contains the
query. The catalog is built from the manifest on first use.`,
	Example: `  postwall search 猫
  postwall search --limit 5 travel`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, map[string]interface{}{"catalog": true})
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

		c := p.Catalog()
		n, err := c.Count(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			if err := p.SyncCatalog(ctx); err != nil {
				return err
			}
		}

		query := strings.Join(args, " ")
		found, err := c.Search(ctx, query, searchLimit)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			ui.PrintWarning("No matches", query)
			return nil
		}
		for _, it := range found {
			fmt.Printf("%s  %s  %s\n", ui.Dim(it.ID), it.Title, ui.Cyan("@"+it.Author))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "maximum number of results")
}
