package main

import (
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"dental-captcha/internal/bootstrap"
	"dental-captcha/internal/config"
	"dental-captcha/internal/repository"
)

// env is filled by the root command before any subcommand runs.
type env struct {
	cfg      *config.Config
	db       *gorm.DB
	store    *repository.Store
	services *bootstrap.Services
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "captchactl",
		Short:         "Administer the dental captcha annotation store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return e.close()
		},
	}

	root.AddCommand(
		newMigrateCmd(e),
		newSeedCmd(e),
		newImportImagesCmd(e),
		newImportQuestionsCmd(e),
		newReconcileStatsCmd(e),
		newPromoteCmd(e),
	)
	return root
}

func (e *env) open(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := bootstrap.OpenDatabase(cmd.Context(), cfg, nil)
	if err != nil {
		return err
	}
	e.cfg = cfg
	e.db = db
	e.store = repository.NewStore(db)
	e.services = bootstrap.NewServices(cfg, e.store, nil, nil, nil)
	return nil
}

func (e *env) close() error {
	if e.db == nil {
		return nil
	}
	sqlDB, err := e.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update every table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bootstrap.Migrate(e.db); err != nil {
				return err
			}
			cmd.Printf("Migrated schema on %s\n", e.cfg.Database.Driver)
			return nil
		},
	}
}
