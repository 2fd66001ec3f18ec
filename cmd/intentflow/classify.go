package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"go-intentflow/internal/classify"
	"go-intentflow/internal/config"
	"go-intentflow/pkg/models"
)

func newClassifyCmd(load func() (config.Config, error)) *cobra.Command {
	var turns []string

	cmd := &cobra.Command{
		Use:   "classify <utterance>",
		Short: "Classify an utterance with the pattern and context tiers",
		Long: `Classify runs the offline tiers only (patterns and conversation context) and prints
the classification as JSON. Earlier turns are passed with --turn "role: content".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			history, err := parseTurns(turns)
			if err != nil {
				return err
			}
			pipeline := classify.NewPipeline(cfg.Classifier.Thresholds, cfg.Classifier.HistoryWindow, nil)
			c := pipeline.Classify(context.Background(), strings.Join(args, " "), history)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(c)
		},
	}

	cmd.Flags().StringArrayVarP(&turns, "turn", "t", nil, `earlier conversation turn as "role: content", oldest first`)
	return cmd
}

func parseTurns(turns []string) ([]models.Message, error) {
	history := make([]models.Message, 0, len(turns))
	for _, t := range turns {
		role, content, ok := strings.Cut(t, ":")
		if !ok {
			return nil, fmt.Errorf("turn %q: expected \"role: content\"", t)
		}
		history = append(history, models.Message{Role: strings.TrimSpace(role), Content: strings.TrimSpace(content)})
	}
	return history, nil
}
