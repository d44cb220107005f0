package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/themis/pkg/catalog"
	"mercator-hq/themis/pkg/cli"
	"mercator-hq/themis/pkg/decision"
	decisionstorage "mercator-hq/themis/pkg/decision/storage"
	"mercator-hq/themis/pkg/policy"
)

var decisionsFlags struct {
	dbPath            string
	organizationID    string
	step              string
	outcome           string
	from              string
	to                string
	includeSuperseded bool
	includeExpired    bool
	page              int
	pageSize          int
	format            string
}

var decisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "Query the decision database",
}

var decisionsQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query decisions with filters",
	Long: `Query the decision database directly, without a running engine.

Filters combine with AND semantics. Superseded and expired decisions are
excluded unless requested.

Examples:
  # All active decisions for an organization
  themis decisions query --db data/decisions.db --org org-123

  # Rejected KYC decisions in a time range
  themis decisions query --db data/decisions.db \
    --step kyc_verification --outcome rejected \
    --from 2026-01-01T00:00:00Z --to 2026-02-01T00:00:00Z

  # JSON output
  themis decisions query --db data/decisions.db --org org-123 --format json`,
	RunE: queryDecisions,
}

func init() {
	rootCmd.AddCommand(decisionsCmd)
	decisionsCmd.AddCommand(decisionsQueryCmd)

	decisionsQueryCmd.Flags().StringVar(&decisionsFlags.dbPath, "db", "data/decisions.db", "decision database path")
	decisionsQueryCmd.Flags().StringVar(&decisionsFlags.organizationID, "org", "", "filter by organization ID")
	decisionsQueryCmd.Flags().StringVar(&decisionsFlags.step, "step", "", "filter by verification step")
	decisionsQueryCmd.Flags().StringVar(&decisionsFlags.outcome, "outcome", "", "filter by outcome")
	decisionsQueryCmd.Flags().StringVar(&decisionsFlags.from, "from", "", "filter by decision time, RFC 3339 lower bound")
	decisionsQueryCmd.Flags().StringVar(&decisionsFlags.to, "to", "", "filter by decision time, RFC 3339 upper bound")
	decisionsQueryCmd.Flags().BoolVar(&decisionsFlags.includeSuperseded, "include-superseded", false, "include superseded decisions")
	decisionsQueryCmd.Flags().BoolVar(&decisionsFlags.includeExpired, "include-expired", false, "include expired decisions")
	decisionsQueryCmd.Flags().IntVar(&decisionsFlags.page, "page", 1, "page number")
	decisionsQueryCmd.Flags().IntVar(&decisionsFlags.pageSize, "page-size", 50, "page size")
	decisionsQueryCmd.Flags().StringVar(&decisionsFlags.format, "format", "text", "output format: text, json")
}

func queryDecisions(cmd *cobra.Command, args []string) error {
	formatter, err := cli.NewFormatter(decisionsFlags.format)
	if err != nil {
		return err
	}

	store, err := decisionstorage.NewSQLiteStorage(&decisionstorage.SQLiteConfig{Path: decisionsFlags.dbPath})
	if err != nil {
		return fmt.Errorf("failed to open decision database: %w", err)
	}
	defer store.Close()

	q := &decision.Query{
		OrganizationID:    decisionsFlags.organizationID,
		Step:              catalog.Step(decisionsFlags.step),
		Outcome:           policy.Outcome(decisionsFlags.outcome),
		IncludeSuperseded: decisionsFlags.includeSuperseded,
		IncludeExpired:    decisionsFlags.includeExpired,
		Page:              decisionsFlags.page,
		PageSize:          decisionsFlags.pageSize,
	}
	if q.From, err = parseFlagTime(decisionsFlags.from); err != nil {
		return err
	}
	if q.To, err = parseFlagTime(decisionsFlags.to); err != nil {
		return err
	}

	decisions, total, err := store.Query(cmd.Context(), q, time.Now().UTC())
	if err != nil {
		return err
	}

	if decisionsFlags.format == "json" {
		return formatter.FormatTo(os.Stdout, map[string]any{
			"decisions": decisions,
			"total":     total,
		})
	}

	fmt.Printf("%d of %d decisions\n\n", len(decisions), total)
	for _, d := range decisions {
		marker := ""
		if d.IsSuperseded {
			marker = " (superseded)"
		}
		fmt.Printf("%s  %-20s %-24s %-24s %s%s\n",
			d.DecisionTimestamp.Format(time.RFC3339), d.OrganizationID, d.Step, d.Outcome, d.ID, marker)
	}
	return nil
}

func parseFlagTime(val string) (*time.Time, error) {
	if val == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: expected RFC 3339", val)
	}
	return &t, nil
}
