package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/roster/internal/bootstrap"
	"github.com/JonMunkholm/roster/internal/config"
	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/core/kinds"
	"github.com/JonMunkholm/roster/internal/logging"
	"github.com/JonMunkholm/roster/internal/store/memory"
)

// app holds the global flags and the streams commands write to.
type app struct {
	out    io.Writer
	errOut io.Writer

	envFile  string
	driver   string
	db       string
	logLevel string

	logger *slog.Logger
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "rosterctl",
		Short: "Import and export gym roster data",
		Long: `rosterctl loads members, payments, attendance and classes from CSV,
Excel or JSON files and exports them again.

Examples:
  rosterctl import members members.csv --driver sqlite --db roster.db
  rosterctl import payments payments.xlsx --mode replace
  rosterctl import members members.csv --dry-run
  rosterctl export all --format xlsx --out ./exports
  rosterctl export payments --from 2024-01-01 --to 2024-03-31
  rosterctl template classes --format xlsx
  rosterctl reference members`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.envFile != "" {
				if err := godotenv.Load(a.envFile); err != nil {
					return fmt.Errorf("load %s: %w", a.envFile, err)
				}
			}
			a.logger = logging.New(a.errOut, a.logLevel, "text")
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", "", "load environment variables from this file")
	flags.StringVar(&a.driver, "driver", "", "store driver: postgres or sqlite (default from DB_DRIVER)")
	flags.StringVar(&a.db, "db", "", "database URL (postgres) or file path (sqlite)")
	flags.StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		newImportCmd(a),
		newExportCmd(a),
		newTemplateCmd(a),
		newReferenceCmd(a),
	)
	return root
}

// loadConfig reads the environment and applies the store flags.
func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Parse()
	if err != nil {
		return nil, err
	}
	if a.driver != "" {
		cfg.Database.Driver = a.driver
	}
	if a.db != "" {
		switch cfg.Database.Driver {
		case config.DriverSQLite:
			cfg.Database.SQLitePath = a.db
		default:
			cfg.Database.URL = a.db
		}
	}
	// One process runs one import at a time.
	cfg.Rate.Enabled = false
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openService connects to the configured store. The returned func closes it.
func (a *app) openService(ctx context.Context) (*core.Service, *config.Config, func(), error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	catalog := kinds.DefaultCatalog()
	backend, err := bootstrap.OpenStore(ctx, cfg, catalog, a.logger)
	if err != nil {
		return nil, nil, nil, err
	}

	locker, err := bootstrap.NewLocker(ctx, cfg, backend, a.logger)
	if err != nil {
		backend.Close()
		return nil, nil, nil, err
	}

	svc, err := bootstrap.NewService(cfg, catalog, backend.Store, locker, a.logger)
	if err != nil {
		backend.Close()
		return nil, nil, nil, err
	}
	return svc, cfg, backend.Close, nil
}

// offlineService runs against an in-memory store. Templates, field
// references and dry runs need no database.
func (a *app) offlineService() *core.Service {
	return core.NewService(core.ServiceConfig{
		Store:   memory.New(),
		Catalog: kinds.DefaultCatalog(),
		Logger:  a.logger,
	})
}
