package cmd

import (
	"os"

	"github.com/samogod/trainconf/pkg/runconfig"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [file]",
	Short: "Write the default llama2-7b PPO sentiments run document",
	Long:  `Write the canonical llama2-7b PPO sentiments run document, placeholders unresolved, as a starting point for a new run`,
	Args:  cobra.MaximumNArgs(1),
	Run:   runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) {
	path := "llama2_7b_ppo_sentiments.yaml"
	if len(args) > 0 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		color.Red("Error: %s already exists (use -f to overwrite)", path)
		os.Exit(1)
	}

	if err := os.WriteFile(path, runconfig.DefaultTemplate(), 0644); err != nil {
		color.Red("Failed to write run document: %v", err)
		os.Exit(1)
	}

	if !silent {
		color.Green("Run document written to %s", path)
	}
}
