package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/UnknownOlympus/waypoint/internal/config"
	"github.com/spf13/cobra"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

// main is the entry point of the application.
func main() {
	// Create a context that will be canceled when an interrupt signal is received.
	// Links not yet processed at that point are reported as failures.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// newRootCmd builds the waypoint command. Flags override the WAYPOINT_* environment.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "waypoint",
		Short: "Resolve Google Maps links into places and coordinates",
		Long: `waypoint reads Google Maps links (one per line), follows short links,
extracts the coordinates and a place name for each of them and writes a
semicolon separated CSV report plus a file listing the links that failed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.MustLoad(cmd.Flags())
			logger := setupLogger(cfg.Env)

			summary, err := run(cmd.Context(), cfg, logger)
			if err != nil {
				logger.ErrorContext(cmd.Context(), "Batch failed", "error", err)
				if errors.Is(err, errInput) {
					fmt.Fprintln(cmd.ErrOrStderr(), err)
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Gerado: %s (separador ';'; coordenadas em xx.xx)\n", summary.CSVPath)
			fmt.Fprintf(cmd.OutOrStdout(), "Links com falha: %d (listados em %s)\n", summary.Failed, summary.FailuresPath)
			return nil
		},
	}

	cmd.Flags().String("input", "input/links.txt", "file with one link per line")
	cmd.Flags().String("output-dir", "output", "directory receiving the reports")
	cmd.Flags().Int("workers", 1, "number of links processed concurrently")
	cmd.Flags().String("provider", "nominatim", "reverse geocoder: nominatim, google or none")

	return cmd
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelInfo,
				AddSource: false,
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:       slog.LevelWarn,
				AddSource:   false,
				ReplaceAttr: dropTime,
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:       slog.LevelError,
				AddSource:   false,
				ReplaceAttr: dropTime,
			}),
		)

		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}

func dropTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}
