package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/samogod/trainconf/pkg/config"
	"github.com/samogod/trainconf/pkg/inspector"
	"github.com/samogod/trainconf/pkg/interp"
	"github.com/samogod/trainconf/pkg/registry"
	"github.com/samogod/trainconf/pkg/runconfig"
	"github.com/samogod/trainconf/pkg/tokenizer"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	configFile     string
	jsonFormat     bool
	silent         bool
	stats          bool
	verbose        bool
	strict         bool
	checkTokenizer bool
	skipRecord     bool
)

var Verbose bool

var rootCmd = &cobra.Command{
	Use:   "trainconf [run.yaml]",
	Short: "training run configuration toolkit",
	Long:  `validate, resolve, and track distributed LLM training run configurations`,
	Args:  cobra.MaximumNArgs(1),
	Run:   runInspect,
}

func Execute() {
	hasSilentFlag := false
	for i, arg := range os.Args {
		if arg == "-silent" {
			os.Args[i] = "--silent"
			hasSilentFlag = true
		}
		if arg == "-stats" {
			os.Args[i] = "--stats"
		}
		if arg == "-strict" {
			os.Args[i] = "--strict"
		}
		if arg == "-tokenizer" {
			os.Args[i] = "--tokenizer"
		}
	}

	if !hasSilentFlag {
		printBanner()
	}

	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func DebugLog(format string, args ...interface{}) {
	if Verbose {
		fmt.Printf("[DBG] "+format+"\n", args...)
	}
}

func setDebugLogFunctions() {
	config.DebugLog = DebugLog
	interp.DebugLog = DebugLog
	inspector.DebugLog = DebugLog
	registry.DebugLog = DebugLog
	tokenizer.DebugLog = DebugLog
}

func init() {
	rootCmd.SetHelpTemplate(`Usage:
  {{.UseLine}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}

{{if .HasAvailableSubCommands}}Commands:{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}Flags:
INPUT:
   [run.yaml]              run configuration document to inspect

VALIDATION:
   -strict                 treat warnings as errors
   -tokenizer              fetch and verify the configured tokenizer artifacts

TRACK:
   --status string         filter by status (valid, invalid)
   --all                   query all runs

OUTPUT:
   -j, -json               write the inspection report as JSON
   -silent                 silent mode - no banner or extra output
   -stats                  display per-phase timing after inspection

CONFIGURATION:
   -c, -config string      tool config file path (default: config/config.yaml)

OPTIMIZATION:
   -v, -verbose            enable verbose/debug output
{{if .HasAvailableSubCommands}}
Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`)

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "tool config file path (default: config/config.yaml)")

	rootCmd.Flags().BoolVarP(&jsonFormat, "json", "j", false, "write the inspection report as JSON")
	rootCmd.Flags().BoolVar(&silent, "silent", false, "silent mode - no banner or extra output")
	rootCmd.Flags().BoolVar(&stats, "stats", false, "display per-phase timing after inspection")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose/debug output")
	rootCmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as errors")
	rootCmd.Flags().BoolVar(&checkTokenizer, "tokenizer", false, "fetch and verify the configured tokenizer artifacts")
	rootCmd.Flags().BoolVar(&skipRecord, "no-record", false, "skip registry and index recording")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(updateCmd)
}

func runInspect(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		color.Red("Error: a run configuration file is required")
		cmd.Help()
		os.Exit(1)
	}

	Verbose = verbose
	if verbose {
		setDebugLogFunctions()
	}

	insp, err := inspector.NewInspector(configFile)
	if err != nil {
		color.Red("Failed to initialize inspector: %v", err)
		os.Exit(1)
	}

	report, err := insp.Inspect(inspector.InspectOptions{
		File:           args[0],
		Strict:         strict,
		CheckTokenizer: checkTokenizer,
		SkipRecord:     skipRecord,
		CollectStats:   stats,
	})
	if err != nil {
		color.Red("Inspection failed: %v", err)
		os.Exit(1)
	}

	if jsonFormat {
		displayJSONReport(report)
	} else {
		displayReport(report)
	}

	if stats && !silent {
		displayPhaseStats(report)
	}

	if report.Valid {
		os.Exit(0)
	}
	os.Exit(1)
}

func displayReport(report *inspector.Report) {
	s := report.Summary

	if !silent {
		fmt.Printf("  run:        %s\n", s.Name)
		fmt.Printf("  config:     %s (%s)\n", report.File, s.ConfigHash)
		fmt.Printf("  topology:   %d devices (tp=%d pp=%d dp=%d)\n", s.WorldSize, s.TensorParallel, s.PipelineParallel, s.DataParallel)
		fmt.Printf("  batch:      global=%d micro=%d accum=%d\n", s.GlobalBatchSize, s.MicroBatchSize, s.GradAccumSteps)
		fmt.Printf("  model:      %d layers, hidden %d, seq %d\n", s.NumLayers, s.HiddenSize, s.SeqLength)
		fmt.Printf("  precision:  %s\n", s.Precision)
		fmt.Printf("  optimizer:  %s (%s), lr %g\n", s.Optimizer, s.Sched, s.LearningRate)
		fmt.Printf("  tokenizer:  %s\n", s.Tokenizer)
		if report.TokenizerPath != "" {
			fmt.Printf("  artifacts:  %s\n", report.TokenizerPath)
		}
		if report.TokenizerInfo != nil {
			fmt.Printf("  tok class:  %s (max length %d)\n", report.TokenizerInfo.TokenizerClass, report.TokenizerInfo.ModelMaxLength)
		}
		fmt.Println()
	}

	for _, finding := range report.Findings {
		if finding.Warning {
			color.Yellow("[WARN] %s", finding)
		} else {
			color.Red("[ERR] %s", finding)
		}
	}

	if !silent {
		if len(report.Findings) > 0 {
			fmt.Println()
		}
		if report.Valid {
			color.Green("Configuration is valid (%d findings) in %v", len(report.Findings), report.Duration)
		} else {
			color.Red("Configuration is invalid (%d findings) in %v", len(report.Findings), report.Duration)
		}
	}
}

type jsonReport struct {
	File      string            `json:"file"`
	Valid     bool              `json:"valid"`
	Summary   runconfig.Summary `json:"summary"`
	Findings  []jsonFinding     `json:"findings"`
	Refs      []string          `json:"references"`
	Resolvers []string          `json:"resolvers"`
}

type jsonFinding struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Level   string `json:"level"`
}

func displayJSONReport(report *inspector.Report) {
	out := jsonReport{
		File:      report.File,
		Valid:     report.Valid,
		Summary:   report.Summary,
		Findings:  []jsonFinding{},
		Refs:      report.References,
		Resolvers: report.Resolvers,
	}
	for _, finding := range report.Findings {
		level := "error"
		if finding.Warning {
			level = "warning"
		}
		out.Findings = append(out.Findings, jsonFinding{
			Path:    finding.Path,
			Message: finding.Message,
			Level:   level,
		})
	}

	jsonBytes, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		color.Red("Failed to marshal report: %v", err)
		return
	}
	fmt.Println(string(jsonBytes))
}

func displayPhaseStats(report *inspector.Report) {
	fmt.Println()
	color.Cyan("[INF] Printing phase statistics for %s", report.File)
	fmt.Println()

	fmt.Printf(" %-20s %-15s\n", "Phase", "Duration")
	color.Cyan(strings.Repeat("─", 36))

	for _, stat := range report.PhaseStats {
		duration := fmt.Sprintf("%.0fms", stat.Duration.Seconds()*1000)
		if stat.Duration.Seconds() >= 1 {
			duration = fmt.Sprintf("%.3fs", stat.Duration.Seconds())
		}
		fmt.Printf(" %-20s %-15s\n", stat.Name, duration)
	}

	fmt.Println()
}

func printBanner() {
	banner := color.CyanString(`
┌┬┐┬─┐┌─┐┬┌┐┌┌─┐┌─┐┌┐┌┌─┐
 │ ├┬┘├─┤│││││  │ ││││├┤
 ┴ ┴└─┴ ┴┴┘└┘└─┘└─┘┘└┘└  @samogod
`)
	info := color.HiBlackString("validate, resolve & track distributed LLM training run configurations")
	fmt.Println(banner)
	fmt.Println(info)
	fmt.Println()
}
