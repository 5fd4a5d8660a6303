package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/community-ingest/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "community-ingest",
	Short: "Turn a community chat export into directory SQL",
	Long: `community-ingest works through a chat export in stages, each writing its
output under the configured output directory:

  extract   send message batches to Claude and collect candidate records
  process   merge duplicates, attach media, resolve coordinates, finalize
  generate  render one SQL script per kind and completeness bucket
  load      apply the scripts, or insert the records directly, into Postgres

"all" runs extract, process and generate in order. Every stage run is
recorded in the local run ledger; "runs" lists it.`,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) { _ = zap.L().Sync() },
	SilenceUsage:      true,
}

// setup loads configuration and installs the global logger before any
// subcommand runs.
func setup(*cobra.Command, []string) error {
	c, err := config.Load()
	if err != nil {
		return eris.Wrap(err, "load config")
	}
	if err := config.InitLogger(c.Log); err != nil {
		return eris.Wrap(err, "init logger")
	}
	cfg = c
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
