package main

import (
	"fmt"
	"os"

	"github.com/okrboard/backend/internal/config"
	"github.com/okrboard/backend/internal/core/ports"
	"github.com/okrboard/backend/internal/core/services"
	"github.com/okrboard/backend/internal/infrastructure/db"
	"github.com/okrboard/backend/internal/infrastructure/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	configPath string

	cfg      *config.Config
	log      *logger.Logger
	database *gorm.DB
	taskRepo ports.TaskRepository
	engine   *services.Engine
)

var rootCmd = &cobra.Command{
	Use:   "taskctl",
	Short: "Operate on the task store",
	Long: `taskctl runs maintenance against the postgres task store: schema
migrations, umbrella reconciliation after partial cascades, and task inspection.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		log, err = logger.New(cfg.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if cfg.Database.Driver != config.DriverPostgres {
			return fmt.Errorf("taskctl needs the postgres store, got driver %q", cfg.Database.Driver)
		}
		database, err = db.NewPostgresConnection(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}

		taskRepo = db.NewTaskRepository(database, log)
		engine = services.NewEngine(services.EngineConfig{
			TaskRepo:           taskRepo,
			ApprovalRepo:       db.NewApprovalRepository(database, log),
			TimelineRepo:       db.NewTimelineRepository(database, log),
			Feed:               services.NewChangeBroker(log),
			Logger:             log.Named("taskctl"),
			Retry:              services.RetryConfig(cfg.Engine.Retry),
			CascadeConcurrency: cfg.Engine.CascadeConcurrency,
			ReconcileRate:      cfg.Engine.ReconcileRate,
			EnableLocks:        cfg.Features.EnableLocks,
		})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := db.Close(database); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "path to the config file")
	rootCmd.AddCommand(migrateCmd, reconcileCmd, showCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
