package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-metrobus/internal/core/model"
	"github.com/penwyp/go-metrobus/internal/presentation/formatter"
	"github.com/penwyp/go-metrobus/internal/util"
)

// DefaultMaxWait is the max_wait_time sent with a plan request, in minutes.
const DefaultMaxWait = 60

var (
	planFrom    string
	planTo      string
	planAt      string
	planMaxWait int
	planSave    string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan a journey between two stops",
	Long: `Plans a journey on the selected metro line and prints every itinerary the
backend returns, in order. The request and the answer are recorded in the
analytics event log.`,
	Example: `  go-metrobus plan --from "Central Station" --to "Airport"
  go-metrobus plan --from "Central Station" --to "Airport" --at 08:30 --line blue`,
	RunE: runPlanCmd,
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringVar(&planFrom, "from", "", "Origin stop name")
	planCmd.Flags().StringVar(&planTo, "to", "", "Destination stop name")
	planCmd.Flags().StringVar(&planAt, "at", "", "Preferred departure time HH:MM (default now)")
	planCmd.Flags().IntVar(&planMaxWait, "max-wait", DefaultMaxWait, "Maximum wait in minutes")
	planCmd.Flags().StringVar(&planSave, "save", "", "Write the itineraries as JSON to this file")
	_ = planCmd.MarkFlagRequired("from")
	_ = planCmd.MarkFlagRequired("to")
}

// RoutePlanner is the part of the API client used by plan.
type RoutePlanner interface {
	PlanRoute(ctx context.Context, req model.RoutePlanningRequest) (*model.RoutePlanningResponse, error)
}

// EventLogger records analytics events without failing the caller.
type EventLogger interface {
	Log(ctx context.Context, eventType string, details interface{}, line model.LineCode)
}

func runPlanCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	s := openSession(ctx, cfg)
	defer s.close()

	req := model.RoutePlanningRequest{
		Origin:      planFrom,
		Destination: planTo,
		MaxWaitTime: planMaxWait,
		MetroLine:   cfg.SelectedLine(),
	}
	resp, err := planRoute(ctx, cmd.OutOrStdout(), s.api, s.tracker, req, planAt, util.GetTimeProvider().Now())
	if err != nil {
		return err
	}
	if planSave != "" {
		return savePlans(planSave, resp)
	}
	return nil
}

// planRoute sends req with the preferred time derived from at and prints
// the answer. The request event is logged before the call, the response
// event only when plans came back.
func planRoute(ctx context.Context, w io.Writer, planner RoutePlanner, events EventLogger, req model.RoutePlanningRequest, at string, now time.Time) (*model.RoutePlanningResponse, error) {
	req.Origin = strings.TrimSpace(req.Origin)
	req.Destination = strings.TrimSpace(req.Destination)
	if req.Origin == "" || req.Destination == "" {
		return nil, errors.New("both origin and destination are required")
	}
	if req.MaxWaitTime <= 0 {
		req.MaxWaitTime = DefaultMaxWait
	}
	preferred, err := clockTime(at, now)
	if err != nil {
		return nil, err
	}
	req.PreferredTime = preferred

	events.Log(ctx, model.EventRoutePlanRequest, model.RoutePlanRequestDetails{
		Origin:        req.Origin,
		Destination:   req.Destination,
		PreferredTime: req.PreferredTime,
		Timestamp:     now.UTC().Format(time.RFC3339Nano),
	}, req.MetroLine)

	resp, err := planner.PlanRoute(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to plan route: %w", err)
	}
	if !resp.Success || len(resp.RoutePlans) == 0 {
		msg := resp.Message
		if msg == "" {
			msg = "no route found"
		}
		return nil, fmt.Errorf("route planning failed: %s", msg)
	}

	events.Log(ctx, model.EventRoutePlanResponse, model.RoutePlanDetails{
		RoutePlans: resp.RoutePlans,
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
	}, req.MetroLine)

	formatter.WriteRoutePlans(w, resp)
	return resp, nil
}

// clockTime turns HH:MM or HH:MM:SS into HH:MM:SS; empty means now.
func clockTime(at string, now time.Time) (string, error) {
	at = strings.TrimSpace(at)
	if at == "" {
		return now.Format("15:04:05"), nil
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, at); err == nil {
			return t.Format("15:04:05"), nil
		}
	}
	return "", fmt.Errorf("invalid time %q (want HH:MM)", at)
}
