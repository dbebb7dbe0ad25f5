package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-metrobus/internal/config"
	"github.com/penwyp/go-metrobus/internal/core/model"
	"github.com/penwyp/go-metrobus/internal/util"
)

var (
	// Logging related
	debug bool

	// Configuration overrides
	configPath string
	apiURL     string
	lineFlag   string
	timezone   string
	resetCache bool

	// cfg is loaded once per invocation in PersistentPreRunE.
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "go-metrobus",
		Short: "Metro bus route planner and analytics client",
		Long: `go-metrobus talks to the metro bus journey-planning API and aggregates the
analytics event log that planning and chat sessions write.

Examples:
  go-metrobus plan --from "Central Station" --to "Airport"   # Plan a trip
  go-metrobus chat "How do I get to the stadium?"            # Ask the assistant
  go-metrobus stats --output json                            # One-shot analytics report
  go-metrobus dashboard --line blue                          # Live analytics dashboard
  go-metrobus serve                                          # HTTP analytics API`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file (default ~/.go-metrobus/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "",
		"Journey-planning API base URL (overrides config and "+config.APIURLEnvVar+")")
	rootCmd.PersistentFlags().StringVar(&lineFlag, "line", "",
		"Metro line (green, blue)")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "",
		"Timezone setting (e.g., Asia/Karachi, UTC)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug mode")
	rootCmd.PersistentFlags().BoolVar(&resetCache, "reset-cache", false,
		"Clear the file cache before running")
}

// setup loads configuration, applies flag overrides and starts logging.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(config.LoadOptions{Path: configPath})
	if err != nil {
		return err
	}
	if err := applyOverrides(loaded); err != nil {
		return err
	}
	cfg = loaded

	logLevel := cfg.Log.Level
	if debug {
		logLevel = "debug"
	}
	logFile := expandPath(cfg.Log.File)
	if err := ensureDir(filepath.Dir(logFile)); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := util.InitLogger(logLevel, logFile, debug); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := util.InitializeTimeProvider(cfg.Display.Timezone); err != nil {
		return err
	}

	if resetCache {
		if err := clearCache(expandPath(cfg.Cache.Dir)); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		util.LogInfo("Cache cleared")
	}
	return nil
}

func applyOverrides(c *config.Config) error {
	if apiURL != "" {
		c.API.BaseURL = apiURL
	}
	if lineFlag != "" {
		line, ok := model.ParseLineCode(lineFlag)
		if !ok || line == "" {
			return fmt.Errorf("unknown metro line %q (want green or blue)", lineFlag)
		}
		c.Display.Line = string(line)
	}
	if timezone != "" {
		c.Display.Timezone = timezone
	}
	if _, err := util.LoadLocation(c.Display.Timezone); err != nil {
		return err
	}
	return c.Validate()
}

func Execute() error {
	return rootCmd.Execute()
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Helper functions

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

func clearCache(cacheDir string) error {
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			path := filepath.Join(cacheDir, entry.Name())
			if err := os.Remove(path); err != nil {
				return err
			}
		}
	}

	return nil
}
