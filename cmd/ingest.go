package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wanderplan/places-cli/internal/load"
	"github.com/wanderplan/places-cli/internal/model"
)

var (
	ingestJSONPath string
	ingestXLSXPath string
	ingestSheet    string
	ingestVerbose  bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run a batch of scraped records through the pipeline",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if ingestJSONPath == "" && ingestXLSXPath == "" {
			return eris.New("one of --json or --xlsx is required")
		}

		var (
			records []model.RawRecord
			err     error
		)
		switch {
		case ingestJSONPath != "":
			records, err = load.ReadJSON(ingestJSONPath)
		default:
			records, err = load.ReadXLSX(ingestXLSXPath, load.XLSXOptions{SheetName: ingestSheet})
		}
		if err != nil {
			return eris.Wrap(err, "load records")
		}
		if len(records) == 0 {
			zap.L().Warn("no records to ingest")
			return nil
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		results := env.Pipeline.ProcessBatch(ctx, records)
		stats := env.Pipeline.Statistics()

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if ingestVerbose {
			if err := enc.Encode(results); err != nil {
				return eris.Wrap(err, "encode results")
			}
		}
		if err := enc.Encode(stats); err != nil {
			return eris.Wrap(err, "encode statistics")
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestJSONPath, "json", "", "path to JSON batch file")
	ingestCmd.Flags().StringVar(&ingestXLSXPath, "xlsx", "", "path to XLSX batch file")
	ingestCmd.Flags().StringVar(&ingestSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	ingestCmd.Flags().BoolVar(&ingestVerbose, "verbose", false, "print per-record results")
	rootCmd.AddCommand(ingestCmd)
}
