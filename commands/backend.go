package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/penwyp/go-metrobus/internal/core/model"
)

var planOption int

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the journey-planning API is up",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBackendInfo(cmd, "health")
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show what the journey-planning API reports about itself",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBackendInfo(cmd, "info")
	},
}

var explainCmd = &cobra.Command{
	Use:   "explain <plan.json>",
	Short: "Explain a saved itinerary in plain language",
	Long: `Reads an itinerary saved with "plan --save" (or a single route plan) and
asks the backend to explain it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlanText(cmd, args[0], "explain")
	},
}

var tipsCmd = &cobra.Command{
	Use:   "tips <plan.json>",
	Short: "Travel tips for a saved itinerary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlanText(cmd, args[0], "tips")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd, infoCmd, explainCmd, tipsCmd)
	for _, c := range []*cobra.Command{explainCmd, tipsCmd} {
		c.Flags().IntVar(&planOption, "option", 1, "Which itinerary of a saved plan response to use")
	}
}

// Backend is the part of the API client used by the diagnostic commands.
type Backend interface {
	Health(ctx context.Context) (map[string]interface{}, error)
	APIInfo(ctx context.Context) (map[string]interface{}, error)
	ExplainRoute(ctx context.Context, plan model.RoutePlan) (string, error)
	TravelTips(ctx context.Context, plan model.RoutePlan) (string, error)
}

func runBackendInfo(cmd *cobra.Command, what string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	client, closeCache := newAPIClient(ctx, cfg)
	defer closeCache()

	var (
		info map[string]interface{}
		err  error
	)
	if what == "health" {
		info, err = client.Health(ctx)
	} else {
		info, err = client.APIInfo(ctx)
	}
	if err != nil {
		return fmt.Errorf("%s %s failed (circuit %s): %w", client.BaseURL(), what, client.BreakerState(), err)
	}
	writeInfo(cmd.OutOrStdout(), info)
	return nil
}

// writeInfo prints a JSON object as sorted key: value lines.
func writeInfo(w io.Writer, info map[string]interface{}) {
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := info[k]
		switch v.(type) {
		case map[string]interface{}, []interface{}:
			encoded, err := sonic.MarshalString(v)
			if err == nil {
				fmt.Fprintf(w, "%s: %s\n", k, encoded)
				continue
			}
		}
		fmt.Fprintf(w, "%s: %v\n", k, v)
	}
}

func runPlanText(cmd *cobra.Command, path, what string) error {
	plan, err := readPlan(path, planOption)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	client, closeCache := newAPIClient(ctx, cfg)
	defer closeCache()
	return planText(ctx, cmd.OutOrStdout(), client, plan, what)
}

func planText(ctx context.Context, w io.Writer, backend Backend, plan model.RoutePlan, what string) error {
	var (
		text string
		err  error
	)
	if what == "tips" {
		text, err = backend.TravelTips(ctx, plan)
	} else {
		text, err = backend.ExplainRoute(ctx, plan)
	}
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", what, err)
	}
	fmt.Fprintln(w, strings.TrimSpace(text))
	return nil
}

// readPlan loads either a saved plan response, picking itinerary option
// (1-based), or a bare route plan.
func readPlan(path string, option int) (model.RoutePlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.RoutePlan{}, fmt.Errorf("failed to read plan: %w", err)
	}

	var resp model.RoutePlanningResponse
	if err := sonic.Unmarshal(data, &resp); err == nil && len(resp.RoutePlans) > 0 {
		if option < 1 || option > len(resp.RoutePlans) {
			return model.RoutePlan{}, fmt.Errorf("option %d out of range (1-%d)", option, len(resp.RoutePlans))
		}
		return resp.RoutePlans[option-1], nil
	}

	var plan model.RoutePlan
	if err := sonic.Unmarshal(data, &plan); err != nil {
		return model.RoutePlan{}, fmt.Errorf("failed to parse plan %s: %w", path, err)
	}
	if len(plan.Segments) == 0 {
		return model.RoutePlan{}, fmt.Errorf("%s contains no route plan", path)
	}
	return plan, nil
}

// savePlans writes resp as JSON for later use by explain and tips.
func savePlans(path string, resp *model.RoutePlanningResponse) error {
	data, err := sonic.ConfigStd.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode plans: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save plans: %w", err)
	}
	return nil
}
