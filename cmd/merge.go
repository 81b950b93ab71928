package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wanderplan/places-cli/internal/load"
)

var (
	mergeJSONPath string
	mergeOutPath  string
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge duplicate event records from a scraped batch",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		records, err := load.ReadJSON(mergeJSONPath)
		if err != nil {
			return eris.Wrap(err, "load records")
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		merged := env.Merger.Merge(ctx, records)
		zap.L().Info("merge complete",
			zap.Int("input", len(records)),
			zap.Int("output", len(merged)),
		)

		out := os.Stdout
		if mergeOutPath != "" {
			f, err := os.Create(mergeOutPath)
			if err != nil {
				return eris.Wrap(err, "create output file")
			}
			defer f.Close()
			out = f
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(merged); err != nil {
			return eris.Wrap(err, "encode merged records")
		}
		return nil
	},
}

func init() {
	mergeCmd.Flags().StringVar(&mergeJSONPath, "json", "", "path to JSON batch file (required)")
	mergeCmd.Flags().StringVar(&mergeOutPath, "out", "", "output path (default stdout)")
	_ = mergeCmd.MarkFlagRequired("json")
	rootCmd.AddCommand(mergeCmd)
}
