package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"go-intentflow/internal/analytics"
	"go-intentflow/internal/config"
)

func newAnalyticsCmd(load func() (config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Inspect and maintain the configured analytics store",
	}

	var window time.Duration
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Print aggregated usage statistics as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAnalytics(load, func(_ config.Config, a *analytics.Analytics) error {
				s, err := a.Stats(context.Background(), window)
				if err != nil {
					return err
				}
				return printJSON(cmd, s)
			})
		},
	}
	stats.Flags().DurationVarP(&window, "window", "w", 0, "only consider entries this recent (0 for all)")

	recommend := &cobra.Command{
		Use:   "recommend",
		Short: "Print recommendations derived from the statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAnalytics(load, func(_ config.Config, a *analytics.Analytics) error {
				recs, err := a.Recommendations(context.Background(), window)
				if err != nil {
					return err
				}
				if len(recs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no recommendations")
					return nil
				}
				for _, r := range recs {
					fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", r.Type, r.Message)
				}
				return nil
			})
		},
	}
	recommend.Flags().DurationVarP(&window, "window", "w", 0, "only consider entries this recent (0 for all)")

	var maxAge time.Duration
	trim := &cobra.Command{
		Use:   "trim",
		Short: "Delete entries older than --max-age (defaults to analytics.retention)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAnalytics(load, func(cfg config.Config, a *analytics.Analytics) error {
				age := maxAge
				if age <= 0 {
					age = cfg.Analytics.Retention
				}
				n, err := a.Trim(context.Background(), age)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", n)
				return nil
			})
		},
	}
	trim.Flags().DurationVar(&maxAge, "max-age", 0, "maximum entry age to keep")

	cmd.AddCommand(stats, recommend, trim)
	return cmd
}

func withAnalytics(load func() (config.Config, error), fn func(cfg config.Config, a *analytics.Analytics) error) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	a, err := openAnalytics(cfg.Analytics)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cfg, a)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
