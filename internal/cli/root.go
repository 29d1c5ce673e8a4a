// Package cli wires the planner services into a cobra command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pawpal/internal/config"
	"pawpal/internal/logging"
	"pawpal/internal/metrics"
	"pawpal/internal/repository"
	"pawpal/internal/service"
)

// app holds everything a command needs once configuration is loaded.
type app struct {
	configPath string
	dataPath   string
	driver     string
	logLevel   string

	cfg       config.Config
	log       zerolog.Logger
	store     repository.Store
	metrics   *metrics.Registry
	household *service.HouseholdService
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "pawpal",
		Short:         "Daily pet care planner",
		Long:          `PawPal keeps a household's pet care tasks in order: what is due, what repeats and what overlaps.`,
		Version:       "0.3.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context(), cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML config file (defaults to $PAWPAL_CONFIG)")
	flags.StringVar(&a.dataPath, "data", "", "data file, or database path for the sqlite driver")
	flags.StringVar(&a.driver, "driver", "", "storage driver: json, sqlite or redis")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newServeCmd(a),
		newPlanCmd(a),
		newConflictsCmd(a),
		newPetCmd(a),
		newTaskCmd(a),
		newResetCmd(a),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		return err
	}
	return nil
}

func (a *app) open(ctx context.Context, cmd *cobra.Command) error {
	path := a.configPath
	if path == "" {
		path = os.Getenv("PAWPAL_CONFIG")
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return err
	}
	if a.driver != "" {
		cfg.Storage.Driver = strings.ToLower(a.driver)
	}
	if a.dataPath != "" {
		if cfg.Storage.Driver == "sqlite" || cfg.Storage.Driver == "sqlite3" {
			cfg.Storage.DatabaseURL = a.dataPath
		} else {
			cfg.Storage.Path = a.dataPath
		}
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg
	a.log = logging.New(cfg.LogLevel, cmd.ErrOrStderr())

	store, err := repository.Open(cfg.Storage, a.log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.store = store
	a.metrics = metrics.NewRegistry(nil)
	a.household = service.NewHouseholdService(store, service.NewScheduler(), a.metrics, a.log)

	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := a.household.Bootstrap(ctx, cfg.OwnerName); err != nil {
		return err
	}
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}
