package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/okrboard/backend/internal/core/ports"
	"github.com/okrboard/backend/internal/core/services"
	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute umbrella tasks from their children",
	Long: `Re-aggregate umbrella tasks from their children. Reconciliation is
idempotent and only writes when progress or status differ, so it heals any
cascade that was only partially applied.

Examples:
  # Reconcile every task that has children, 20 per second
  taskctl reconcile

  # Reconcile one umbrella task
  taskctl reconcile --parent 5f0c...

  # Go easy on a busy database
  taskctl reconcile --rate 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		parentID, _ := cmd.Flags().GetString("parent")
		perSecond, _ := cmd.Flags().GetFloat64("rate")
		if perSecond <= 0 {
			perSecond = cfg.Engine.ReconcileRate
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sweeper := services.NewReconcileSweeper(services.ReconcileSweeperConfig{
			TaskRepo:  taskRepo,
			Cascade:   engine.Cascade,
			Logger:    log,
			PerSecond: perSecond,
		})

		var parents []string
		if parentID != "" {
			parents = []string{parentID}
		}
		report, err := reconcileAll(ctx, sweeper, parents, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if report.Failed > 0 {
			return fmt.Errorf("%d umbrella task(s) could not be reconciled", report.Failed)
		}
		return nil
	},
}

func init() {
	reconcileCmd.Flags().String("parent", "", "reconcile only this umbrella task")
	reconcileCmd.Flags().Float64("rate", 0, "umbrella tasks per second (default from engine.reconcile_rate)")
}

// reconcileAll sweeps the given umbrella tasks, or every one of them when
// parents is empty, and prints one line per task.
func reconcileAll(ctx context.Context, sweeper *services.ReconcileSweeper, parents []string, w io.Writer) (services.SweepReport, error) {
	green := color.New(color.FgGreen).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()

	observe := func(id string, res *ports.ReconcileResult, err error) {
		switch {
		case err != nil:
			fmt.Fprintf(w, "%s %s: %v\n", red("✗"), id, err)
		case res.Changed:
			fmt.Fprintf(w, "%s %s: %d%% %s (%d children)\n", green("●"), id, res.Task.Progress, res.Task.Status, res.Children)
		default:
			fmt.Fprintf(w, "%s %s\n", gray("○"), gray(id))
		}
	}

	var (
		report services.SweepReport
		err    error
	)
	if len(parents) > 0 {
		report, err = sweeper.Sweep(ctx, parents, observe)
	} else {
		report, err = sweeper.SweepAll(ctx, observe)
	}
	if err != nil {
		return report, err
	}

	fmt.Fprintf(w, "\n%s %d checked, %s changed, %d unchanged, %s failed\n",
		cyan("Reconcile:"),
		report.Total,
		green(fmt.Sprintf("%d", report.Changed)),
		report.Unchanged,
		red(fmt.Sprintf("%d", report.Failed)),
	)
	return report, nil
}
