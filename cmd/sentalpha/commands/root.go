package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sentalpha",
	Short: "Earnings-call sentiment signal and alpha engine",
	Long: `sentalpha turns scored earnings-call sentiment into trade signals
and measures the alpha those signals would have earned.

Pipeline stages per company:
  sentiment -> delta -> signal -> price fetch -> alpha -> persist

Usage:
  go run ./cmd/sentalpha [command]

Examples:
  go run ./cmd/sentalpha run
  go run ./cmd/sentalpha ingest records.json
  go run ./cmd/sentalpha backtest grid
  go run ./cmd/sentalpha api`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML file (default from STRATEGY_FILE env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
