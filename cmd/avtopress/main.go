// Command avtopress collects automotive press releases, translates them,
// resolves reusable photos and publishes the results as versioned run
// artifacts, an HTTP API and a Postgres sink.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"avtopress/internal/backfill"
	"avtopress/internal/config"
	"avtopress/internal/logger"
	"avtopress/internal/runner"
	"avtopress/internal/server"
	"avtopress/internal/sink"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	// Missing .env is fine; environment variables win either way.
	godotenv.Load()
	logger.Init()
	return config.Load()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(cmd *cobra.Command, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return nil
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "avtopress",
		Short:         "Automotive press release ingestion pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		scrapeCommand(),
		serveCommand(),
		backfillPhotosCommand(),
		backfillTranslationsCommand(),
		syncCommand(),
		excludeCommand(),
	)
	return root
}

func scrapeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Run the full collect-translate-save-backfill pipeline once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			tracker := runner.NewTracker()
			tracker.TryStart()
			result, err := runner.New(cfg).Run(ctx, tracker)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the scrape API and saved run artifacts over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			r := runner.New(cfg)
			srv := server.New(r, runner.NewTracker(), r.Store().Root, cfg.ExcludedIDsPath)
			return srv.ListenAndServe(ctx, cfg.ServerPort)
		},
	}
}

func backfillPhotosCommand() *cobra.Command {
	var runPath string
	cmd := &cobra.Command{
		Use:   "backfill-photos",
		Short: "Resolve photos for saved items that have none",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			r := runner.New(cfg)
			summary, err := backfill.MissingPhotosForRun(ctx, r.Store(), backfill.PhotoOptions{RunPath: runPath})
			if err != nil {
				return err
			}
			return printJSON(cmd, summary)
		},
	}
	cmd.Flags().StringVar(&runPath, "run-path", "", "run directory to backfill (default: latest run)")
	return cmd
}

func backfillTranslationsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill-translations",
		Short: "Retranslate snapshot items whose text kept untranslated fragments",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			r := runner.New(cfg)
			summary, err := backfill.SnapshotTranslations(ctx, r.Store(), r.Engine(), backfill.TranslationOptions{
				TargetLanguage: cfg.TargetLanguage,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, summary)
		},
	}
}

func syncCommand() *cobra.Command {
	var scope string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Upsert saved items into the Postgres news table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required for sync")
			}
			ctx, cancel := signalContext()
			defer cancel()

			syncer, err := sink.NewSyncer(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer syncer.Close()

			result, err := syncer.Sync(ctx, runner.New(cfg).Store(), sink.Options{
				Scope:           sink.ParseScope(scope),
				ExcludedIDsPath: cfg.ExcludedIDsPath,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "latest-run", "items to sync: latest-run or snapshot")
	return cmd
}

func excludeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exclude <item-id>",
		Short: "Keep one item id out of future sync passes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			added, ids, err := sink.AddExcludedID(cfg.ExcludedIDsPath, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{
				"ok":           true,
				"added":        added,
				"excluded_ids": ids,
			})
		},
	}
}
