package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var rateUser string

var rateCmd = &cobra.Command{
	Use:   "rate DISH STARS",
	Short: "Submit a 0-5 star rating for a dish",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		stars, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("STARS must be a whole number: %w", err)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		dish, ok := a.Catalog.Get(args[0])
		if !ok {
			return fmt.Errorf("unknown dish %q", args[0])
		}
		if err := a.Engine.SubmitRating(ctx, dish.ID, stars, rateUser); err != nil {
			return fmt.Errorf("rating not saved: %w", err)
		}

		st := a.Engine.State()
		if st.Error != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "note: %s\n", st.Error)
		}
		score, _ := st.Ratings.Score(dish.ID)
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now at %d/5\n", dish.Name, score)
		return nil
	},
}

func init() {
	rateCmd.Flags().StringVar(&rateUser, "user", "", "Submitter id (optional)")
}

