package main

import (
	"database/sql"
	"log"

	"github.com/spf13/cobra"

	"github.com/dhr2333/beancount-recon/internal/config"
	"github.com/dhr2333/beancount-recon/internal/database"
	"github.com/dhr2333/beancount-recon/internal/database/repository"
	"github.com/dhr2333/beancount-recon/internal/service"
	"github.com/dhr2333/beancount-recon/internal/storage"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "beanrecon",
	Short: "Reconcile beancount ledgers against reported balances",
	Long: `beanrecon keeps a plain-text beancount ledger consistent with reality:
it schedules recurring reconciliations, compares the ledger's expected
balance with the actual one, appends corrective directives, and comments
out entries duplicated by an externally synced ledger tree.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalln(err)
	}
}

// app bundles the wired services behind every subcommand.
type app struct {
	cfg      config.Config
	db       *sql.DB
	subjects *repository.SubjectRepo
	tasks    *repository.TaskRepo

	scheduler  *service.Scheduler
	recon      *service.Orchestrator
	suppressor *service.Suppressor
}

func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := database.MigrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	subjects := repository.NewSubjectRepo(db)
	tasks := repository.NewTaskRepo(db)
	store := storage.NewFileStore(cfg.Ledger.Root)
	reader := service.NewBalanceReader(store, cfg.Cache.TTL)

	return &app{
		cfg:        cfg,
		db:         db,
		subjects:   subjects,
		tasks:      tasks,
		scheduler:  service.NewScheduler(subjects, tasks),
		recon:      service.NewOrchestrator(subjects, tasks, store, reader),
		suppressor: service.NewSuppressor(store),
	}, nil
}

func (a *app) Close() {
	a.db.Close()
}

// mustApp wires the application or aborts the command.
func mustApp() *app {
	a, err := openApp()
	if err != nil {
		log.Fatalln(err)
	}
	return a
}
