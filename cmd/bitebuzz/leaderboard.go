package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Clark-Hu/bitebuzz/internal/feedback"
	"github.com/Clark-Hu/bitebuzz/internal/leaderboard"
	"github.com/Clark-Hu/bitebuzz/internal/menu"
)

var leaderboardJSON bool

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Fetch and print the ranked leaderboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		// Failures are mirrored into the state as an advisory message.
		_ = a.Engine.FetchLeaderboard(ctx)
		return printLeaderboard(cmd.OutOrStdout(), a.Catalog.All(), a.Engine.State(), leaderboardJSON)
	},
}

func init() {
	leaderboardCmd.Flags().BoolVar(&leaderboardJSON, "json", false, "Print JSON instead of a table")
}

func printLeaderboard(out io.Writer, dishes []menu.Dish, st feedback.State, asJSON bool) error {
	entries := leaderboard.Rank(dishes, st.Ratings)
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Entries []leaderboard.Entry `json:"entries"`
			Error   string              `json:"error,omitempty"`
		}{entries, st.Error})
	}

	if st.Error != "" {
		fmt.Fprintf(out, "note: %s\n\n", st.Error)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tDISH\tSCORE")
	for _, e := range entries {
		score := fmt.Sprintf("%d/5", e.Rating)
		if e.Pending {
			score = "Awaiting feedback"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", e.Rank, e.Name, score)
	}
	if !leaderboard.HasAnyRatings(entries) {
		fmt.Fprintln(tw, "\tNo ratings yet. Be the first to rate!\t")
	}
	return tw.Flush()
}
