package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-metrobus/internal/core/model"
	"github.com/penwyp/go-metrobus/internal/util"
)

var stopsSearch string

var stopsCmd = &cobra.Command{
	Use:   "stops",
	Short: "List or search the stops of the selected line",
	Example: `  go-metrobus stops --line blue
  go-metrobus stops --search "cent"`,
	Args: cobra.NoArgs,
	RunE: runStopsCmd,
}

var linesCmd = &cobra.Command{
	Use:   "lines [code]",
	Short: "Show the metro line catalogue or one line",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLinesCmd,
}

func init() {
	rootCmd.AddCommand(stopsCmd)
	rootCmd.AddCommand(linesCmd)
	stopsCmd.Flags().StringVarP(&stopsSearch, "search", "s", "", "Only stops matching this text")
}

// StopDirectory is the part of the API client used by stops and lines.
type StopDirectory interface {
	Stops(ctx context.Context, line model.LineCode) (*model.StopsResponse, error)
	SearchStops(ctx context.Context, query string, line model.LineCode) (*model.SearchStopsResponse, error)
	Lines(ctx context.Context) ([]model.LineInfo, error)
	Line(ctx context.Context, code model.LineCode) (*model.LineInfo, error)
}

func runStopsCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	client, closeCache := newAPIClient(ctx, cfg)
	defer closeCache()
	return listStops(ctx, cmd.OutOrStdout(), client, cfg.SelectedLine(), stopsSearch)
}

func listStops(ctx context.Context, w io.Writer, dir StopDirectory, line model.LineCode, query string) error {
	var stops []string
	query = strings.TrimSpace(query)
	if query != "" {
		resp, err := dir.SearchStops(ctx, query, line)
		if err != nil {
			return fmt.Errorf("failed to search stops: %w", err)
		}
		stops = resp.Stops
	} else {
		resp, err := dir.Stops(ctx, line)
		if err != nil {
			return fmt.Errorf("failed to load stops: %w", err)
		}
		stops = resp.Stops
	}

	if len(stops) == 0 {
		fmt.Fprintln(w, "No stops found")
		return nil
	}
	fmt.Fprintf(w, "%s line: %d stops\n", line, len(stops))
	for _, stop := range stops {
		fmt.Fprintf(w, "  %s\n", stop)
	}
	return nil
}

func runLinesCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	client, closeCache := newAPIClient(ctx, cfg)
	defer closeCache()

	code := ""
	if len(args) == 1 {
		code = args[0]
	}
	return showLines(ctx, cmd.OutOrStdout(), client, code, cfg.SelectedLine())
}

// showLines prints the catalogue, or a single line when code is given.
// The selected line is marked.
func showLines(ctx context.Context, w io.Writer, dir StopDirectory, code string, selected model.LineCode) error {
	if code != "" {
		line, ok := model.ParseLineCode(code)
		if !ok || line == "" {
			return fmt.Errorf("unknown metro line %q (want green or blue)", code)
		}
		info, err := dir.Line(ctx, line)
		if err != nil {
			return fmt.Errorf("failed to load line %s: %w", line, err)
		}
		writeLines(w, []model.LineInfo{*info}, selected)
		return nil
	}

	lines, err := dir.Lines(ctx)
	if err != nil {
		return fmt.Errorf("failed to load metro lines: %w", err)
	}
	if len(lines) == 0 {
		fmt.Fprintln(w, "No metro lines available")
		return nil
	}
	writeLines(w, lines, selected)
	return nil
}

func writeLines(w io.Writer, lines []model.LineInfo, selected model.LineCode) {
	nameWidth := 0
	for _, l := range lines {
		if width := util.GetDisplayWidth(l.Name); width > nameWidth {
			nameWidth = width
		}
	}
	for _, l := range lines {
		marker := " "
		if l.LineCode == selected {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s %s  %s stops  %s\n",
			marker,
			util.PadString(string(l.LineCode), 6, true),
			util.PadString(l.Name, nameWidth, true),
			util.PadString(util.FormatNumber(l.TotalStops), 5, false),
			lineColor(l))
	}
}

// lineColor shows the color name with its hex value. The theme color
// from the API wins over the built-in palette.
func lineColor(l model.LineInfo) string {
	hex := l.ThemeColor
	if hex == "" {
		hex = model.LineColor(string(l.LineCode))
	}
	if l.Color == "" {
		return hex
	}
	return fmt.Sprintf("%s (%s)", l.Color, hex)
}
