package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/itinerary/models"
)

func generateCMD(cfgPath *string) *cobra.Command {
	var (
		location  string
		category  string
		days      int
		interests []string
		budget    string
	)
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Generate one itinerary and print it as markdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadApp(*cfgPath)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			reg, cleanup, err := buildRegistry(ctx, *cfgPath, cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()
			defer reg.Close(context.Background())

			job, err := reg.Submit(ctx, models.NewItineraryRequest(location, category, days, interests, budget))
			if err != nil {
				return err
			}
			select {
			case <-job.Done():
			case <-ctx.Done():
				return ctx.Err()
			}
			itinerary, err := job.Result()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), itinerary)
			return nil
		},
	}
	generate.Flags().StringVar(&location, "location", "", "destination (required)")
	generate.Flags().StringVar(&category, "category", "", "trip category, e.g. cultural (required)")
	generate.Flags().IntVar(&days, "days", models.DefaultDays, "trip length in days")
	generate.Flags().StringSliceVar(&interests, "interest", nil, "interest; repeat for several")
	generate.Flags().StringVar(&budget, "budget", "", "budget descriptor, e.g. medium")
	_ = generate.MarkFlagRequired("location")
	_ = generate.MarkFlagRequired("category")
	return generate
}
