package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gudapatin/sentalpha/internal/backtest"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Historical strategy evaluation",
	Long: `Evaluates strategy variants against stored sentiment history.

Subcommands:
  grid - sweep threshold pairs and report mean alpha per cell

Example:
  go run ./cmd/sentalpha backtest grid
  go run ./cmd/sentalpha backtest grid --json`,
}

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Sweep pos/neg threshold pairs over stored history",
	RunE:  runGrid,
}

var gridJSON bool

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(gridCmd)

	gridCmd.Flags().BoolVar(&gridJSON, "json", false, "print the full grid as JSON")
}

func runGrid(cmd *cobra.Command, args []string) error {
	fmt.Println("=== sentalpha threshold grid sweep ===")

	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	engine := backtest.NewGridEngine(a.strategy, a.sentiments, a.cache, a.log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := engine.Run(ctx)
	if err != nil {
		return fmt.Errorf("grid sweep: %w", err)
	}

	if gridJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("\nCompanies: %v\n\n", result.Companies)
	fmt.Printf("  %8s %8s %8s %10s %8s %12s\n", "pos", "neg", "signals", "evaluated", "skipped", "mean_alpha")
	for _, cell := range result.Cells {
		fmt.Printf("  %8.3f %8.3f %8d %10d %8d %12.5f\n",
			cell.Pos, cell.Neg, cell.Signals, cell.Evaluated, cell.Skipped, cell.MeanAlpha)
	}

	if best, ok := result.Best(); ok {
		fmt.Printf("\nBest cell: pos=%.3f neg=%.3f mean_alpha=%.5f over %d signals\n",
			best.Pos, best.Neg, best.MeanAlpha, best.Evaluated)
	}

	return nil
}
