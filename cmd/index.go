package cmd

import (
	"context"
	"os"
	"time"

	"github.com/samogod/trainconf/pkg/elastic"
	"github.com/samogod/trainconf/pkg/inspector"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index <runs.jsonl>",
	Short: "Bulk-index exported run reports into elasticsearch",
	Long:  `Bulk-index a JSON-lines export of run reports into the configured elasticsearch index`,
	Args:  cobra.ExactArgs(1),
	Run:   runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) {
	insp, err := inspector.NewInspector(configFile)
	if err != nil {
		color.Red("Failed to initialize inspector: %v", err)
		os.Exit(1)
	}

	cfg := insp.GetConfig()
	if !cfg.Elasticsearch.Enabled {
		color.Red("Error: elasticsearch is not enabled. Please enable it in config.yaml")
		os.Exit(1)
	}

	es, err := elastic.New(cfg.Elasticsearch)
	if err != nil {
		color.Red("Failed to connect to elasticsearch: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.DefaultSettings.Timeout)*time.Minute)
	defer cancel()

	if err := es.IndexJSONLinesFile(ctx, args[0]); err != nil {
		color.Red("Bulk indexing failed: %v", err)
		os.Exit(1)
	}

	if !silent {
		color.Green("Indexed %s", args[0])
	}
}
