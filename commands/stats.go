package commands

import (
	"github.com/spf13/cobra"

	"github.com/penwyp/go-metrobus/internal/analytics"
	"github.com/penwyp/go-metrobus/internal/analyzer"
)

var (
	statsOutput   string
	statsDuration string
	statsHours    int
	statsRecent   int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "One-shot analytics report",
	Long: `Aggregates the analytics event log into traffic, event type and behavior
statistics. Calendar windows follow --timezone.

Examples:
  go-metrobus stats                          # Daily traffic and event types
  go-metrobus stats --output json            # Full snapshot as JSON
  go-metrobus stats --output csv             # Daily traffic as CSV
  go-metrobus stats --duration 7d --output summary`,
	Args: cobra.NoArgs,
	RunE: runStatsCmd,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVarP(&statsOutput, "output", "o", "table",
		"Output format (table, json, csv, summary)")
	statsCmd.Flags().StringVarP(&statsDuration, "duration", "d", "",
		"Only events from this far back (e.g., 12h, 7d, 2w, 1m, 1d12h)")
	statsCmd.Flags().IntVar(&statsHours, "hours", analytics.DefaultSeriesHours,
		"Hours covered by the time series")
	statsCmd.Flags().IntVar(&statsRecent, "recent", analytics.DefaultRecentEvents,
		"Recent events included in the report")
}

func runStatsCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	events, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer events.Close()

	a := analyzer.New(&analyzer.Config{
		OutputFormat: statsOutput,
		Timezone:     cfg.Display.Timezone,
		Duration:     statsDuration,
		Line:         cfg.SelectedLine(),
		SeriesHours:  statsHours,
		RecentEvents: statsRecent,
	}, events, cmd.OutOrStdout())
	return a.Run(ctx)
}
