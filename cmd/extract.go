package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/community-ingest/internal/config"
	"github.com/sells-group/community-ingest/internal/pipeline"
)

var extractRetryFailed bool

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract candidates from the message export with Claude",
	Long:  "Sends eligible messages to Claude in batches and writes per-kind candidate files. Resumes from the last checkpoint.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		oracle := newOracle()
		defer oracle.LogUsage()

		return withPipeline(ctx, config.StageExtract, func(p *pipeline.Pipeline) error {
			sum, err := p.Extract(ctx, extractRetryFailed)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(sum)
		}, pipeline.WithOracle(oracle))
	},
}

func init() {
	extractCmd.Flags().BoolVar(&extractRetryFailed, "retry-failed", false, "re-send only messages from previously failed batches")
	rootCmd.AddCommand(extractCmd)
}
