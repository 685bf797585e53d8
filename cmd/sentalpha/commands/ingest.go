package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gudapatin/sentalpha/internal/contracts"
	"github.com/gudapatin/sentalpha/internal/sentiment"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Load scored sentiment records into the database",
	Long: `Loads pre-scored sentiment records from a JSON file. Records are
validated and ordered through the in-memory store before being
persisted; a duplicate (company, quarter) row is ignored on conflict.

Input format (JSON array):
  [{"company": "TCS", "quarter": "2026Q1",
    "finbert_score": 0.12, "vader_score": 0.08,
    "earnings_date": "2026-04-12T00:00:00Z"}]

Example:
  go run ./cmd/sentalpha ingest records.json`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	fmt.Println("=== sentalpha sentiment ingest ===")

	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	var records []contracts.SentimentRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parse input: %w", err)
	}

	// The store validates and orders before anything touches the DB
	store := sentiment.NewStore(a.log)
	for i, rec := range records {
		if rec.ObservedAt.IsZero() {
			rec.ObservedAt = time.Now()
		}
		if err := store.Append(rec); err != nil {
			return fmt.Errorf("record %d (%s/%s): %w", i, rec.Company, rec.Quarter, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	total := 0
	for _, company := range store.Companies() {
		history := store.History(company)
		if err := a.sentiments.SaveBatch(ctx, history); err != nil {
			return fmt.Errorf("persist %s: %w", company, err)
		}
		total += len(history)
	}

	fmt.Printf("\nIngested %d records for %d companies\n", total, len(store.Companies()))
	return nil
}
