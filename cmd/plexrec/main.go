package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/plexrec/internal/config"
	"github.com/TobiSchelling/plexrec/internal/database"
	"github.com/TobiSchelling/plexrec/internal/logging"
	"github.com/TobiSchelling/plexrec/internal/pipeline"
	"github.com/TobiSchelling/plexrec/internal/scheduler"
)

var version = "dev"

var (
	verbose     bool
	configPath  string
	resolvedCfg string
	cfg         *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "plexrec",
	Short:        "AI recommendation collections for Plex",
	Long:         "plexrec asks a language model for movie and TV recommendations, files the ones you own into Plex collections, and forwards the rest to Ombi or Trakt.",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			logging.Init(logging.Config{Level: levelFor("info")})
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		resolvedCfg = path

		logging.Init(logging.Config{Level: levelFor(cfg.Logging.Level), Format: cfg.Logging.Format})
		logging.Debug().Str("config", path).Msg("Loaded config")
		return nil
	},
}

func levelFor(configured string) string {
	if verbose {
		return "debug"
	}
	return configured
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(traktAuthCmd)
	rootCmd.AddCommand(historyCmd)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("plexrec", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/plexrec/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o600); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set your Plex token, completion API key, and forwarding targets.")
		return nil
	},
}

// --- run command ---

var (
	dryRun     bool
	themeNames []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every recommendation theme once",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		pipe, cleanup, err := pipeline.Setup(ctx, cfg, resolvedCfg)
		if err != nil {
			return err
		}
		defer cleanup()

		ths, err := pipe.Themes(themeNames)
		if err != nil {
			return err
		}

		if dryRun {
			printDryRun(pipe.DryRun(ctx, ths))
			return nil
		}

		printResult(pipe.Run(ctx, ths))
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the prompts that would be sent without changing anything")
	runCmd.Flags().StringSliceVarP(&themeNames, "theme", "t", nil, "Only run the named theme (repeatable)")
}

func printDryRun(passes []pipeline.DryRunPass) {
	for i, p := range passes {
		fmt.Printf("\nTheme %d/%d: %s (%s, %s)\n", i+1, len(passes), p.Theme, p.Kind.Plural(), p.Source)
		switch {
		case p.Err != nil:
			fmt.Printf("  Error: %v\n", p.Err)
		case p.Skipped:
			fmt.Println("  Skipped: no library data for this theme")
		default:
			if p.Feed != "" {
				fmt.Printf("  Feed: %s (not fetched in a dry run)\n", p.Feed)
			}
			fmt.Println(indent(p.Prompt, "  | "))
		}
	}
}

func printResult(res *pipeline.Result) {
	for i, p := range res.Passes {
		fmt.Printf("\nTheme %d/%d: %s\n", i+1, len(res.Passes), p.Theme)
		if p.Err != nil {
			fmt.Printf("  Error: %v\n", p.Err)
			continue
		}
		fmt.Printf("  %s: %d matched, %d missing, %d forwarded\n",
			p.StateLabel(), len(p.Matched), len(p.Missing), len(p.ForwardedTitles()))
		if len(p.Missing) > 0 {
			fmt.Printf("  Missing: %s\n", strings.Join(p.Missing, ", "))
		}
	}

	if failed := res.Failed(); len(failed) > 0 {
		fmt.Printf("\n%d of %d themes failed:\n", len(failed), len(res.Passes))
		for _, p := range failed {
			fmt.Printf("- %s (%s)\n", p.Theme, p.StateLabel())
		}
	}

	fmt.Println()
	fmt.Print(res.Summary())
	if res.ReportPath != "" {
		fmt.Printf("\nReport: %s\n", res.ReportPath)
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// --- schedule command ---

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run every theme on the configured cron schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		sched, err := scheduler.New(cfg.Schedule, func(ctx context.Context) error {
			pipe, cleanup, err := pipeline.Setup(ctx, cfg, resolvedCfg)
			if err != nil {
				return err
			}
			defer cleanup()

			ths, err := pipe.Themes(nil)
			if err != nil {
				return err
			}
			printResult(pipe.Run(ctx, ths))
			return nil
		})
		if err != nil {
			return err
		}

		fmt.Printf("Scheduled with %q, next run at %s\n", cfg.Schedule, sched.Next(time.Now()).Format(time.RFC1123))
		fmt.Println("Press Ctrl+C to stop")
		if err := sched.Start(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

// --- history command ---

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recent runs, or the passes of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.HistoryDBPath()
		if path == "" {
			return fmt.Errorf("run history is disabled; set output.history_db in %s", resolvedCfg)
		}
		db, err := database.Open(path)
		if err != nil {
			return err
		}
		defer db.Close()

		if len(args) == 1 {
			return printRun(db, args[0])
		}

		runs, err := db.RecentRuns(historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}
		for _, r := range runs {
			fmt.Printf("  %s  %s  %d/%d updated%s\n",
				r.ID[:8], r.StartedAt.Local().Format("2006-01-02 15:04"), r.Updated, r.Passes, unfinished(r))
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of runs to list")
}

func unfinished(r database.Run) string {
	if r.FinishedAt == nil {
		return "  (unfinished)"
	}
	return ""
}

func printRun(db *database.DB, id string) error {
	run, err := db.GetRun(id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", id)
	}

	passes, err := db.PassesForRun(run.ID)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s started %s\n\n", run.ID, run.StartedAt.Local().Format(time.RFC1123))
	for _, p := range passes {
		icon := " "
		if p.Updated {
			icon = "*"
		}
		fmt.Printf("  %s %s [%s] %s: %d matched, %d forwarded\n", icon, p.Theme, p.Kind, p.State, p.MatchedCount, p.ForwardedCount)
		if len(p.Missing) > 0 {
			fmt.Printf("      missing: %s\n", strings.Join(p.Missing, ", "))
		}
		if p.Error != nil {
			fmt.Printf("      error: %s\n", *p.Error)
		}
	}
	return nil
}
