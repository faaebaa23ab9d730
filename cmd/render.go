package cmd

import (
	"fmt"
	"os"

	"github.com/samogod/trainconf/pkg/inspector"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var renderOutput string

var renderCmd = &cobra.Command{
	Use:   "render <run.yaml>",
	Short: "Print a run document with all interpolations resolved",
	Long:  `Resolve every cross-field placeholder in a run document and print the result, comments preserved`,
	Args:  cobra.ExactArgs(1),
	Run:   runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "file to write the resolved document to")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) {
	Verbose = verbose
	if verbose {
		setDebugLogFunctions()
	}

	insp, err := inspector.NewInspector(configFile)
	if err != nil {
		color.Red("Failed to initialize inspector: %v", err)
		os.Exit(1)
	}

	data, err := insp.Render(args[0])
	if err != nil {
		color.Red("Render failed: %v", err)
		os.Exit(1)
	}

	if renderOutput == "" {
		fmt.Print(string(data))
		return
	}

	if err := os.WriteFile(renderOutput, data, 0644); err != nil {
		color.Red("Failed to write output: %v", err)
		os.Exit(1)
	}

	if !silent {
		color.Green("Resolved document written to %s", renderOutput)
	}
}
