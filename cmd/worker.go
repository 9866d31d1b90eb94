package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/frahmantamala/equipment-tracker/internal/scheduler"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the scheduled inventory jobs",
	Long:  `Run the overdue-checkout scan and the ledger consistency audit on their cron schedules.`,
	Run: func(cmd *cobra.Command, args []string) {
		startWorker()
	},
}

var runOnce bool

func init() {
	workerCmd.Flags().BoolVar(&runOnce, "once", false, "run every job once and exit")
}

func startWorker() {
	ctx := context.Background()
	deps, err := initializeDependencies(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	lg := deps.Logger
	jobs := scheduler.NewScheduler(deps.Config.Scheduler, deps.Ledger, deps.EventBus, lg)

	if runOnce {
		if err := jobs.OverdueScan(ctx); err != nil {
			lg.Error("overdue scan failed", "error", err)
		}
		if err := jobs.ConsistencyAudit(ctx); err != nil {
			lg.Error("consistency audit failed", "error", err)
		}
		deps.EventBus.Wait()
		return
	}

	if !deps.Config.Scheduler.Enabled {
		lg.Warn("scheduler is disabled in config; nothing to run")
		return
	}

	if err := jobs.RegisterJobs(); err != nil {
		lg.Error("failed to register jobs", "error", err)
		return
	}
	jobs.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	lg.Info("worker is running. Press Ctrl+C to stop.")
	sig := <-sigChan
	lg.Info("received signal, shutting down worker", "signal", sig)

	jobs.Stop()
	deps.EventBus.Wait()
	lg.Info("worker shutdown complete")
}
