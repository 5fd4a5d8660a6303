package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/community-ingest/internal/config"
	"github.com/sells-group/community-ingest/internal/db"
	"github.com/sells-group/community-ingest/internal/pipeline"
)

var loadDirect bool

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Apply generated SQL to Postgres",
	Long:  "Applies the generated SQL scripts in order, skipping scripts already recorded in ingest_loads. With --direct, inserts the finalized entities with parameterized statements instead.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		return withPipeline(ctx, config.StageLoad, func(p *pipeline.Pipeline) error {
			pool, err := db.Connect(ctx, cfg.Database.URL, &db.PoolConfig{MaxConns: cfg.Database.MaxConns})
			if err != nil {
				return eris.Wrap(err, "connect database")
			}
			defer pool.Close()

			sum, err := p.Load(ctx, pool, loadDirect)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(sum)
		})
	},
}

func init() {
	loadCmd.Flags().BoolVar(&loadDirect, "direct", false, "insert finalized JSON with parameterized statements instead of applying SQL files")
	rootCmd.AddCommand(loadCmd)
}
