package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/phrazzld/boxpack-api/internal/config"
)

type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "boxpack-server",
		Short:        "Box packing API server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts, false)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"config file (default: ./config.yaml when present)")

	root.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(opts),
		newStrategyCommand(),
		newHashPasswordCommand(),
	)
	return root
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|version]",
		Short:     "Manage the database schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: migrationCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}

			cfg, err := loadAppConfig(opts.configPath)
			if err != nil {
				return err
			}
			log, err := setupAppLogger(cfg)
			if err != nil {
				return err
			}
			db, err := setupAppDatabase(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			return runMigrations(cmd.Context(), db, command, log)
		},
	}
}

func newStrategyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strategy",
		Short: "Work with placement strategies",
	}

	p := config.DefaultPlacementConfig()
	check := &cobra.Command{
		Use:   "check <file.go>",
		Short: "Inspect, load and smoke test a candidate strategy without activating it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkStrategyFile(cmd.Context(), args[0], p, cmd.OutOrStdout())
		},
	}
	check.Flags().StringVar(&p.ScratchDir, "scratch-dir", p.ScratchDir, "directory the interpreter may read")
	check.Flags().DurationVar(&p.LoadTimeout, "load-timeout", p.LoadTimeout, "bound on interpreting the source")
	check.Flags().DurationVar(&p.SmokeTestTimeout, "smoke-timeout", p.SmokeTestTimeout, "bound on each smoke test call")
	check.Flags().Int64Var(&p.MaxSourceBytes, "max-bytes", p.MaxSourceBytes, "largest accepted source")

	cmd.AddCommand(check)
	return cmd
}

// runServe wires the application and serves until ctx is cancelled.
func runServe(ctx context.Context, opts *rootOptions, migrate bool) error {
	cfg, err := loadAppConfig(opts.configPath)
	if err != nil {
		return err
	}
	log, err := setupAppLogger(cfg)
	if err != nil {
		return err
	}

	db, err := setupAppDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}

	if migrate {
		if err := runMigrations(ctx, db, "up", log); err != nil {
			_ = db.Close()
			return err
		}
	}

	app, err := newApplication(ctx, cfg, log, db, prometheus.NewRegistry())
	if err != nil {
		log.Error("failed to initialize application", "error", err)
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}
