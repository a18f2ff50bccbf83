package main

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/okrboard/backend/internal/core/ports"
	"github.com/okrboard/backend/internal/domain"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Print a task with its milestones and children",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showTask(cmd.Context(), engine.Tasks, args[0], cmd.OutOrStdout())
	},
}

func statusColor(s domain.TaskStatus) func(a ...interface{}) string {
	switch s {
	case domain.TaskStatusCompleted:
		return color.New(color.FgGreen).SprintFunc()
	case domain.TaskStatusInProgress:
		return color.New(color.FgCyan).SprintFunc()
	case domain.TaskStatusHold:
		return color.New(color.FgYellow).SprintFunc()
	case domain.TaskStatusCancelled:
		return color.New(color.FgRed).SprintFunc()
	}
	return color.New(color.FgHiBlack).SprintFunc()
}

func showTask(ctx context.Context, tasks ports.TaskService, id string, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	task, err := tasks.GetTask(ctx, id)
	if err != nil {
		return err
	}
	children, err := tasks.ListChildren(ctx, id)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(w, "%s %s\n", bold(task.Title), gray(task.ID))
	fmt.Fprintf(w, "  Status:   %s\n", statusColor(task.Status)(task.Status))
	fmt.Fprintf(w, "  Progress: %d%%\n", task.Progress)
	fmt.Fprintf(w, "  Scope:    %s", task.Scope)
	if dept := domain.StringValue(task.DepartmentID); dept != "" {
		fmt.Fprintf(w, " (department %s)", dept)
	}
	fmt.Fprintln(w)
	if task.HasParent() {
		fmt.Fprintf(w, "  Parent:   %s\n", *task.ParentTaskID)
	}
	fmt.Fprintf(w, "  Revision: %d\n", task.Revision)

	if len(task.Milestones) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold("Milestones:"))
		for _, m := range task.Milestones {
			mark := "[ ]"
			if m.Completed {
				mark = "[x]"
			}
			fmt.Fprintf(w, "  %s %3d%%  %s\n", mark, m.Weight, m.Description)
		}
	}

	if len(children) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold(fmt.Sprintf("Children (%d):", len(children))))
		for _, c := range children {
			fmt.Fprintf(w, "  %-12s %3d%%  %s %s\n", statusColor(c.Status)(c.Status), c.Progress, c.Title, gray(c.ID))
		}
	}
	return nil
}
