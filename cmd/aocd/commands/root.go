package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"aocd/internal/components/telemetry"
	"aocd/internal/config"
	"aocd/internal/puzzle"
	"aocd/pkg/aocd"

	"github.com/spf13/cobra"
)

var (
	configPath *string
	verbose    *bool
	dumpHttp   *string
)

var (
	cfg           config.Config
	telemetryStop func(context.Context) error
)

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "", "The config file to use, defaults to $XDG_CONFIG_HOME/aocd/config.json5.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Print debug logs.")
	dumpHttp = rootCmd.PersistentFlags().String("dump-http", "", "Write every http exchange to this directory.")
}

var rootCmd = &cobra.Command{
	Use:           "aocd",
	Short:         "aocd fetches Advent of Code inputs and submits answers, caching both.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(*verbose)

		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			return err
		}
		if *dumpHttp != "" {
			cfg.HttpDump = *dumpHttp
		}

		tel, err := telemetry.Setup(cmd.Context(), "aocd", cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		telemetryStop = tel.Shutdown
		return nil
	},
}

func ExecuteContext(ctx context.Context) {
	if err := execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// execute runs the command line, telemetry is flushed whether or not the
// command failed.
func execute(ctx context.Context) error {
	defer shutdownTelemetry()
	return rootCmd.ExecuteContext(ctx)
}

func shutdownTelemetry() {
	if telemetryStop == nil {
		return
	}
	stop := telemetryStop
	telemetryStop = nil

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := stop(ctx)
	if err != nil {
		slog.Warn("failed to flush telemetry", "err", err)
	}
}

type puzzleFlags struct {
	year *int
	day  *int
}

func addPuzzleFlags(cmd *cobra.Command) puzzleFlags {
	flags := puzzleFlags{
		year: cmd.Flags().IntP("year", "y", 0, "The event year."),
		day:  cmd.Flags().IntP("day", "d", 0, "The puzzle day, 1 to 25."),
	}
	cmd.MarkFlagRequired("year")
	cmd.MarkFlagRequired("day")
	return flags
}

func (f puzzleFlags) key() (puzzle.Key, error) {
	key := puzzle.Key{Year: *f.year, Day: *f.day}
	return key, key.Validate()
}

func addPartFlag(cmd *cobra.Command) *int {
	part := cmd.Flags().IntP("part", "p", 0, "The puzzle part, 1 or 2.")
	cmd.MarkFlagRequired("part")
	return part
}

func openSession(ctx context.Context, flags puzzleFlags, inputFile string) (*aocd.Session, error) {
	key, err := flags.key()
	if err != nil {
		return nil, err
	}
	return aocd.NewFromConfig(ctx, key, inputFile, cfg, telemetry.SlogAPI{})
}
