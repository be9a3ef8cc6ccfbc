// Command hotpath is the operational CLI for the adaptive dispatch engine:
// probe backend health, run the autotuner, and exercise a single dispatch.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/alexshd/hotpath"
)

func main() {
	var logLevel string

	root := &cobra.Command{
		Use:          "hotpath",
		Short:        "Adaptive dot-product dispatch: health, tuning, and dispatch inspection",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(slog.New(
				tint.NewHandler(os.Stderr, &tint.Options{
					Level: parseLevel(logLevel),
				}),
			))
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", os.Getenv("HOTPATH_LOGLEVEL"),
		"log verbosity: debug, info, warn, error")

	root.AddCommand(healthCmd(), autotuneCmd(), dotCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe every backend and report availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng := hotpath.NewEngine(hotpath.DefaultEngineConfig())
			report := eng.HealthCheck()

			fmt.Printf("reference:   %v\n", report.Reference)
			fmt.Printf("accelerated: %v\n", report.Accelerated)
			fmt.Printf("native:      %v\n", report.Native)
			for backend, msg := range report.Errors {
				fmt.Printf("  %s: %s\n", backend, msg)
			}
			return nil
		},
	}
}

func autotuneCmd() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "autotune",
		Short: "Measure timing crossovers and derive dispatch thresholds",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng := hotpath.NewEngine(hotpath.DefaultEngineConfig())

			thr, err := eng.Autotune(save)
			if err != nil {
				return err
			}
			fmt.Printf("small: %d\nmed:   %d\n", thr.Small, thr.Med)
			if save {
				slog.Info("calibration saved")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "persist derived thresholds to the calibration file")
	return cmd
}

func dotCmd() *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "dot",
		Short: "Dispatch one dot product and show which backend served it",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng := hotpath.NewEngine(hotpath.DefaultEngineConfig())
			eng.Warmup(nil, true)

			a, b := hotpath.PrepareVectors(size)
			v, err := eng.Dot(a, b)
			if err != nil {
				return err
			}

			out := eng.LastOutcome()
			fmt.Printf("n=%d dot=%.6f\n", size, v)
			fmt.Printf("selected=%s served=%s", out.Selected, out.Served)
			if out.FellBack {
				fmt.Printf(" (fallback: %s)", out.Reason)
			}
			fmt.Println()
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "size", 100_000, "vector length to dispatch")
	return cmd
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
