package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/community-ingest/internal/config"
	"github.com/sells-group/community-ingest/internal/pipeline"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Render finalized entities as SQL scripts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		return withPipeline(ctx, config.StageGenerate, func(p *pipeline.Pipeline) error {
			sum, err := p.Generate(ctx)
			if err != nil {
				return err
			}
			if len(sum.Files) == 0 {
				fmt.Fprintln(os.Stderr, "No records to render.")
				return nil
			}
			for _, f := range sum.Files {
				fmt.Fprintf(os.Stdout, "%s\t%d\n", f.Name, f.Count)
			}
			return nil
		})
	},
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run extract, process and generate in order",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		oracle := newOracle()
		defer oracle.LogUsage()

		return withPipeline(ctx, config.StageAll, func(p *pipeline.Pipeline) error {
			return p.All(ctx)
		}, pipeline.WithOracle(oracle))
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(allCmd)
}
