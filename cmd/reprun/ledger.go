package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/weiihann/reprun/benchmark"
	"github.com/weiihann/reprun/report"
	"github.com/weiihann/reprun/stream"
)

func (a *app) ledgerCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "ledger FILE...",
		Short: "Summarize timing ledger files",
		Long: `Read the tab-separated files written with --timeit-file and report
runs, total and mean times per timing name.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.summarizeLedgers(cmd, args, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table",
		"Output format: table, json, yaml")

	return cmd
}

func (a *app) summarizeLedgers(cmd *cobra.Command, paths []string, output string) error {
	var records []benchmark.Record

	for _, path := range paths {
		recs, err := readLedger(path)
		if err != nil {
			return err
		}

		a.logger.InfoContext(cmd.Context(), "read ledger",
			slog.String("path", path),
			slog.Int("records", len(recs)),
		)

		records = append(records, recs...)
	}

	summaries := report.Summarize(records)
	w := cmd.OutOrStdout()

	switch output {
	case "table":
		if err := report.Generate(w, summaries); err != nil {
			return fmt.Errorf("generate report: %w", err)
		}
	case "json":
		if err := report.GenerateJSON(w, summaries); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}
	case "yaml":
		if err := report.GenerateYAML(w, summaries); err != nil {
			return fmt.Errorf("generate YAML report: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format %q", output)
	}

	return nil
}

func readLedger(path string) ([]benchmark.Record, error) {
	r, err := stream.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer r.Close()

	records, err := benchmark.ReadRecords(r)
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", path, err)
	}

	return records, nil
}
