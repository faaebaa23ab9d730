package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/samogod/trainconf/pkg/inspector"
	"github.com/samogod/trainconf/pkg/registry"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	trackStatus string
	trackAll    bool
)

var trackCmd = &cobra.Command{
	Use:   "track [run-name]",
	Short: "Query the run registry",
	Long:  `Query the run registry for a specific run name or all tracked runs`,
	Run:   runTrack,
}

func init() {
	trackCmd.Flags().StringVar(&trackStatus, "status", "", "filter by status (valid, invalid)")
	trackCmd.Flags().BoolVar(&trackAll, "all", false, "query all runs")
	rootCmd.AddCommand(trackCmd)
}

func runTrack(cmd *cobra.Command, args []string) {
	if !trackAll && len(args) == 0 {
		color.Red("Error: either provide a run name or use --all flag")
		cmd.Help()
		os.Exit(1)
	}

	if trackAll && len(args) > 0 {
		color.Red("Error: cannot use both a run name and --all flag together")
		cmd.Help()
		os.Exit(1)
	}

	insp, err := inspector.NewInspector(configFile)
	if err != nil {
		color.Red("Failed to initialize inspector: %v", err)
		os.Exit(1)
	}

	db := insp.GetDB()
	if db == nil || !db.IsEnabled() {
		color.Red("Error: Run registry is not enabled. Please enable it in config.yaml")
		os.Exit(1)
	}

	if trackStatus != "" {
		trackStatus = strings.ToUpper(trackStatus)
	}

	var records []registry.RunRecord

	if trackAll {
		records, err = db.QueryAllRuns(trackStatus)
		if err != nil {
			color.Red("Failed to query registry: %v", err)
			os.Exit(1)
		}
	} else {
		records, err = db.QueryRuns(args[0], trackStatus)
		if err != nil {
			color.Red("Failed to query registry: %v", err)
			os.Exit(1)
		}

		if len(records) == 0 {
			color.Yellow("[INF] Run %s not found in registry.", args[0])
			os.Exit(0)
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, color.CyanString("NAME\tHASH\tWORLD\tTP\tPP\tGBS\tPRECISION\tSTATUS\tFIRST_SEEN\tLAST_SEEN"))
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, r := range records {
		statusColor := color.GreenString
		if r.Status == "INVALID" {
			statusColor = color.RedString
		}

		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\t%s\t%s\n",
			r.Name,
			r.ConfigHash,
			r.WorldSize,
			r.TensorPar,
			r.PipelinePar,
			r.GlobalBatch,
			r.Precision,
			statusColor(r.Status),
			r.FirstSeen.Format("2006-01-02 15:04:05"),
			r.LastSeen.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()

	color.Green("\nTotal records: %d", len(records))
}
