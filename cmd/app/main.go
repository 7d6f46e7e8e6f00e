package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/naudiz/internal"
	"github.com/starford/naudiz/internal/compare"
	"github.com/starford/naudiz/internal/inspect"
	pkgconfig "github.com/starford/naudiz/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOrDefault(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func runAggregate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	agg := internal.NewAggregator(cfg)
	summary, err := agg.Accumulate(cfg.Workspace.TelemetryDir, cfg.Workspace.SummaryPath)
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}

	fmt.Printf("Summary written to %s\n\n", cfg.Workspace.SummaryPath)
	inspect.RenderSummary(os.Stdout, summary)
	return nil
}

func runInspect(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	agg := internal.NewAggregator(cfg)

	if cmd.Bool("sessions") {
		sessions, err := agg.LoadSessions(cfg.Workspace.TelemetryDir)
		if err != nil {
			return fmt.Errorf("inspect sessions: %w", err)
		}
		inspect.RenderSessions(os.Stdout, sessions)
		return nil
	}

	summaryPath := cmd.String("summary")
	if summaryPath == "" {
		summaryPath = cfg.Workspace.SummaryPath
	}
	inspect.RenderSummary(os.Stdout, agg.LoadSummary(summaryPath))
	return nil
}

func runCompare(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	paths := cmd.Args().Slice()
	if pattern := cmd.String("glob"); pattern != "" {
		matched, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("compare: bad glob %q: %w", pattern, err)
		}
		sort.Strings(matched)
		paths = append(paths, matched...)
	}
	if len(paths) < 2 {
		return fmt.Errorf("compare: need at least two summary files, got %d", len(paths))
	}

	comparator := compare.New(internal.NewAggregator(cfg))
	result := comparator.Compare(paths, cmd.String("output"))
	inspect.RenderComparison(os.Stdout, result)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "naudiz",
		Usage: "Execution telemetry workspace: session aggregation, stability scoring, and cross-backend comparison",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "aggregate",
				Usage:  "Aggregate session files into a summary artifact",
				Action: runAggregate,
			},
			{
				Name:   "inspect",
				Usage:  "Render a summary or per-session metrics as a table",
				Action: runInspect,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "summary",
						Usage: "Path to a summary file (defaults to the configured summary path)",
					},
					&cli.BoolFlag{
						Name:  "sessions",
						Usage: "List per-session metrics instead of the summary",
					},
				},
			},
			{
				Name:      "compare",
				Usage:     "Compare summary files across backends",
				ArgsUsage: "[summary files...]",
				Action:    runCompare,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "glob",
						Usage: "Glob pattern matching additional summary files",
					},
					&cli.StringFlag{
						Name:  "output",
						Usage: "Write the comparison document to this path",
					},
				},
			},
			{
				Name:   "watch",
				Usage:  "Watch the telemetry directory and keep catalog and summary in sync",
				Action: runWatch,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
