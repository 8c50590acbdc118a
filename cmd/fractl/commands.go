package main

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rryowa/fra_portal/internal/models"
)

func (c *cli) table() *tabwriter.Writer {
	return tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
}

func (c *cli) loginCmd() *cobra.Command {
	var identifier, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if identifier == "" || password == "" {
				return errors.New("both --identifier and --password are required")
			}
			user, err := c.app.Auth.Login(cmd.Context(), identifier, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Logged in as %s (%s)\n", user.Username, user.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&identifier, "identifier", "u", "", "username, email or phone")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.Auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "Logged out")
			return nil
		},
	}
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := c.app.Auth.Status(cmd.Context())
			if err != nil {
				return err
			}
			if !st.Authenticated {
				fmt.Fprintln(c.out, "Not logged in")
				return nil
			}

			w := c.table()
			fmt.Fprintf(w, "User:\t%s\n", st.Username)
			fmt.Fprintf(w, "Role:\t%s\n", st.Role)
			if !st.ExpiresAt.IsZero() {
				fmt.Fprintf(w, "Expires:\t%s\n", st.ExpiresAt.Local().Format(time.RFC3339))
			}
			fmt.Fprintf(w, "Expired:\t%t\n", st.Expired)
			fmt.Fprintf(w, "Refresh token:\t%t\n", st.HasRefreshToken)
			return w.Flush()
		},
	}
}

func (c *cli) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the backend health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := c.app.Portal.Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%s (%s)\n", h.Status, h.Env)
			return nil
		},
	}
}

func (c *cli) claimsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "claims",
		Short: "List claims",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			claims, err := c.app.Portal.ListClaims(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(claims) > limit {
				claims = claims[:limit]
			}

			w := c.table()
			fmt.Fprintln(w, "CLAIM\tCLAIMANT\tSTATE\tSTATUS\tAREA_HA")
			for _, cl := range claims {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\n", cl.ClaimID, cl.Claimant, cl.State, cl.Status, cl.AreaHa)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most this many claims")
	return cmd
}

func scoreMode(ml bool) string {
	if ml {
		return models.ModeML
	}
	return models.ModeRules
}

func (c *cli) scoreCmd() *cobra.Command {
	var ml bool
	claim := models.DefaultClaim()
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a single claim",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := c.app.DSS.Score(cmd.Context(), scoreMode(ml), claim)
			if err != nil {
				return err
			}

			w := c.table()
			fmt.Fprintf(w, "Claim:\t%s\n", claim.ClaimID)
			fmt.Fprintf(w, "Score:\t%d\n", resp.Result.Score)
			fmt.Fprintf(w, "Priority:\t%s\n", resp.Result.Priority)
			fmt.Fprintf(w, "%s:\t%s\n", detailLabel(ml), detail(resp.Result))
			return w.Flush()
		},
	}

	f := cmd.Flags()
	f.BoolVar(&ml, "ml", false, "use the ML scorer")
	f.StringVar(&claim.ClaimID, "claim-id", claim.ClaimID, "claim identifier")
	f.StringVar(&claim.State, "state", claim.State, "state code")
	f.StringVar(&claim.Status, "status", claim.Status, "claim status")
	f.StringVar(&claim.LandType, "land-type", claim.LandType, "land type")
	f.Float64Var(&claim.AreaHa, "area-ha", claim.AreaHa, "claimed area in hectares")
	f.BoolVar(&claim.DocsComplete, "docs-complete", claim.DocsComplete, "documents are complete")
	f.BoolVar(&claim.IsDuplicate, "duplicate", claim.IsDuplicate, "claim is a duplicate")
	f.BoolVar(&claim.IsInCriticalWildlifeZone, "wildlife-zone", claim.IsInCriticalWildlifeZone, "claim lies in a critical wildlife zone")
	f.BoolVar(&claim.CommunitySupport, "community-support", claim.CommunitySupport, "claim has community support")
	return cmd
}

func (c *cli) batchCmd() *cobra.Command {
	var ml bool
	var limit int
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Score the first claims of the backend and rank them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := c.app.DSS.SampleBatch(cmd.Context(), scoreMode(ml), limit)
			if err != nil {
				return err
			}

			w := c.table()
			fmt.Fprintf(w, "#\tCLAIM\tSCORE\tPRIORITY\t%s\n", detailHeader(ml))
			for i, item := range resp.Results {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", i+1, item.Input.ClaimID, item.Result.Score, item.Result.Priority, detail(item.Result))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&ml, "ml", false, "use the ML scorer")
	cmd.Flags().IntVar(&limit, "limit", 0, "number of claims to score (default 20)")
	return cmd
}

func detailLabel(ml bool) string {
	if ml {
		return "Probability"
	}
	return "Explanation"
}

func detailHeader(ml bool) string {
	if ml {
		return "PROB"
	}
	return "EXPLANATION"
}

func detail(r models.ScoreResult) string {
	if r.Prob != nil {
		return strconv.FormatFloat(*r.Prob, 'f', 3, 64)
	}
	return r.Explanation
}

func (c *cli) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show claim totals and aggregates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := c.app.Portal.Dashboard(cmd.Context())
			if err != nil {
				return err
			}

			w := c.table()
			s := data.Summary
			fmt.Fprintf(w, "Total:\t%d\n", s.TotalClaims)
			fmt.Fprintf(w, "Approved:\t%d\n", s.Approved)
			fmt.Fprintf(w, "Pending:\t%d\n", s.Pending)
			fmt.Fprintf(w, "Rejected:\t%d\n", s.Rejected)

			agg := data.Aggregates
			printCounts(w, "By state", agg.ByState, sortedKeys(agg.ByState))
			printCounts(w, "By month", agg.ByMonth, sortedKeys(agg.ByMonth))
			printCounts(w, "Area (ha)", agg.AreaBuckets, models.AreaBucketOrder)
			return w.Flush()
		},
	}
}

func printCounts(w *tabwriter.Writer, title string, counts map[string]int, keys []string) {
	fmt.Fprintf(w, "\n%s\t\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s\t%d\n", k, counts[k])
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
