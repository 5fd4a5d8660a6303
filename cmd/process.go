package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/community-ingest/internal/config"
	"github.com/sells-group/community-ingest/internal/pipeline"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Merge, link, geocode and finalize extracted candidates",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		return withPipeline(ctx, config.StageProcess, func(p *pipeline.Pipeline) error {
			sum, err := p.Process(ctx)
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
	rootCmd.AddCommand(processCmd)
}
