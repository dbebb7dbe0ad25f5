package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-metrobus/internal/application/dashboard"
	"github.com/penwyp/go-metrobus/internal/application/linestate"
	"github.com/penwyp/go-metrobus/internal/config"
	"github.com/penwyp/go-metrobus/internal/presentation/display"
	"github.com/penwyp/go-metrobus/internal/presentation/interaction"
	"github.com/penwyp/go-metrobus/internal/tracker"
)

var dashboardRefreshPerSecond float64

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Live analytics dashboard",
	Long: `Similar to the Linux top command, shows the analytics event log as it grows:
traffic for today, the week and the month, event types, the selected line
and recent activity.

Keys:
  q  quit         r  refresh now     l  next metro line
  s  sort         t  toggle layout   h  help`,
	Args: cobra.NoArgs,
	RunE: runDashboardCmd,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashboardCmd.Flags().Float64Var(&dashboardRefreshPerSecond, "refresh-per-second", 1,
		"Display refresh rate (0.1-20 Hz)")
}

// dashboardConfig maps the loaded configuration onto the dashboard.
func dashboardConfig(c *config.Config, refreshPerSecond float64) *dashboard.DashboardConfig {
	return &dashboard.DashboardConfig{
		Timezone:      c.Display.Timezone,
		Line:          c.SelectedLine(),
		Debounce:      c.Refresh.Debounce,
		MinInterval:   c.Refresh.MinInterval,
		UIRefreshRate: refreshPerSecond,
	}
}

func runDashboardCmd(cmd *cobra.Command, args []string) error {
	if dashboardRefreshPerSecond < 0.1 || dashboardRefreshPerSecond > 20 {
		return fmt.Errorf("refresh-per-second must be between 0.1 and 20")
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	events, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer events.Close()

	client, closeCache := newAPIClient(ctx, cfg)
	defer closeCache()

	dcfg := dashboardConfig(cfg, dashboardRefreshPerSecond)
	pipeline, err := dashboard.NewPipeline(events, dcfg, nil)
	if err != nil {
		return err
	}

	keyboard, err := interaction.NewKeyboardReader()
	if err != nil {
		return fmt.Errorf("dashboard needs an interactive terminal: %w", err)
	}
	defer keyboard.Close()

	t := tracker.New(events, cfg.Store.WriteTimeout)
	lines := linestate.New(client, t, dcfg.Line)
	disp := display.NewTerminalDisplay(&display.DisplayConfig{Out: cmd.OutOrStdout()})

	orchestrator, err := dashboard.NewOrchestrator(dcfg, pipeline, lines, disp, keyboard)
	if err != nil {
		return err
	}
	return orchestrator.Run(ctx)
}
