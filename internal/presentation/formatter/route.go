package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/penwyp/go-metrobus/internal/core/model"
	"github.com/penwyp/go-metrobus/internal/util"
)

// WriteRoutePlans prints itineraries the way the planner lists them.
func WriteRoutePlans(w io.Writer, resp *model.RoutePlanningResponse) {
	if resp == nil || len(resp.RoutePlans) == 0 {
		msg := "No routes found"
		if resp != nil && resp.Message != "" {
			msg = resp.Message
		}
		fmt.Fprintln(w, msg)
		return
	}
	if resp.Message != "" {
		fmt.Fprintln(w, resp.Message)
		fmt.Fprintln(w)
	}
	for i, plan := range resp.RoutePlans {
		fmt.Fprintf(w, "Option %d", i+1)
		if dep, ok := plan.FirstDeparture(); ok {
			fmt.Fprintf(w, " · departs %s", dep)
		}
		fmt.Fprintln(w)
		WriteRoutePlan(w, plan)
		fmt.Fprintln(w)
	}
	for i, plan := range resp.AlternativeRoutes {
		fmt.Fprintf(w, "Alternative %d\n", i+1)
		WriteRoutePlan(w, plan)
		fmt.Fprintln(w)
	}
}

// WriteRoutePlan prints one itinerary.
func WriteRoutePlan(w io.Writer, plan model.RoutePlan) {
	origin, destination := plan.Endpoints()
	fmt.Fprintf(w, "  %s → %s\n", origin, destination)
	fmt.Fprintf(w, "  Duration: %s, waiting %s",
		util.FormatMinutes(plan.TotalDuration), util.FormatMinutes(plan.TotalWaitTime))
	if len(plan.MetroLines) > 0 {
		lines := make([]string, len(plan.MetroLines))
		for i, l := range plan.MetroLines {
			lines[i] = l.String()
		}
		fmt.Fprintf(w, ", lines %s", strings.Join(lines, ", "))
	}
	fmt.Fprintln(w)

	for _, seg := range plan.Segments {
		fmt.Fprintf(w, "  • %s %s → %s %s  %s (%s, %d min)\n",
			hhmm(seg.DepartureTime), seg.StartStop,
			hhmm(seg.ArrivalTime), seg.EndStop,
			seg.RouteName, seg.Direction, seg.DurationMinutes)
	}
	for _, step := range plan.Instructions {
		fmt.Fprintf(w, "    %s\n", step)
	}
}

// WriteChat prints an assistant answer and its suggested route.
func WriteChat(w io.Writer, resp *model.ChatResponse) {
	if resp == nil {
		return
	}
	fmt.Fprintln(w, strings.TrimSpace(resp.Response))
	if resp.RouteSuggestion != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Suggested route")
		WriteRoutePlan(w, *resp.RouteSuggestion)
	}
}

func hhmm(t string) string {
	if len(t) >= 5 {
		return t[:5]
	}
	return t
}
