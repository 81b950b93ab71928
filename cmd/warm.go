package main

import (
	"github.com/spf13/cobra"
)

var (
	warmCities []string
	warmFlags  []string
)

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Pre-populate the cache from the search index",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		return env.Pipeline.WarmCache(ctx, warmCities, warmFlags)
	},
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Compact the search index",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		return env.Pipeline.Optimize(ctx)
	},
}

func init() {
	warmCmd.Flags().StringSliceVar(&warmCities, "city", nil, "city to warm (repeatable, default from config)")
	warmCmd.Flags().StringSliceVar(&warmFlags, "flag", nil, "flag to warm (repeatable, default from config)")
	rootCmd.AddCommand(warmCmd)
	rootCmd.AddCommand(optimizeCmd)
}
