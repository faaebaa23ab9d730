package cmd

import (
	"fmt"
	"os"

	"github.com/samogod/trainconf/pkg/document"
	"github.com/samogod/trainconf/pkg/interp"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var getRaw bool

var getCmd = &cobra.Command{
	Use:   "get <run.yaml> <path>",
	Short: "Print a single resolved value from a run document",
	Long:  `Print the value at a dotted key path ("model.optim.sched.name") after interpolation resolution`,
	Args:  cobra.ExactArgs(2),
	Run:   runGet,
}

func init() {
	getCmd.Flags().BoolVar(&getRaw, "raw", false, "print the value before interpolation resolution")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) {
	Verbose = verbose
	if verbose {
		setDebugLogFunctions()
	}

	doc, err := document.Load(args[0])
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}

	if !getRaw {
		if err := interp.NewRegistry().Resolve(doc); err != nil {
			color.Red("Interpolation failed: %v", err)
			os.Exit(1)
		}
	}

	node, ok := doc.Lookup(args[1])
	if !ok {
		color.Red("Error: key not found: %s", args[1])
		os.Exit(1)
	}

	data, err := document.EncodeNode(node)
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}

	fmt.Print(string(data))
}
