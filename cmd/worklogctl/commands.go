package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"worklog/internal/backend"
	"worklog/internal/config"
	"worklog/internal/core"
	"worklog/internal/worklog"
)

var (
	listUser string

	calendarUser  string
	calendarMonth string

	rangeKind string
	rangeFrom string
	rangeTo   string

	rejectReason string

	seedTaskID      string
	seedTaskTitle   string
	seedTaskProject string
	seedTaskAssign  string
)

func init() {
	listCmd.Flags().StringVar(&listUser, "user", "", "filter entries by owner user ID")

	calendarCmd.Flags().StringVar(&calendarUser, "user", "", "filter entries by owner user ID")
	calendarCmd.Flags().StringVar(&calendarMonth, "month", "", "month to display as YYYY-MM (default: current)")

	for _, cmd := range []*cobra.Command{approveCmd, rejectCmd} {
		cmd.Flags().StringVar(&rangeKind, "range", "all", "range kind: all, week, month or custom")
		cmd.Flags().StringVar(&rangeFrom, "from", "", "custom range start as YYYY-MM-DD")
		cmd.Flags().StringVar(&rangeTo, "to", "", "custom range end as YYYY-MM-DD")
	}
	rejectCmd.Flags().StringVar(&rejectReason, "reason", "", "rejection reason shown to entry owners (required)")

	seedTaskCmd.Flags().StringVar(&seedTaskID, "id", "", "task ID (required)")
	seedTaskCmd.Flags().StringVar(&seedTaskTitle, "title", "", "task title (required)")
	seedTaskCmd.Flags().StringVar(&seedTaskProject, "project", "", "project ID (required)")
	seedTaskCmd.Flags().StringVar(&seedTaskAssign, "assign", "", "user ID to assign the task to")
}

// setup builds the configured backend plus an engine over it.
func setup(ctx context.Context) (*backend.Components, *worklog.Engine, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	components, err := backend.Build(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	engine := worklog.NewEngine(components.Store, components.Notifier, worklog.SystemClock{})
	engine.SetConcurrency(cfg.BatchConcurrency)
	return components, engine, nil
}

func parseRange() (core.ApprovalRange, error) {
	kind := core.RangeKind(rangeKind)
	if !kind.IsValid() {
		return core.ApprovalRange{}, fmt.Errorf("unknown range kind %q", rangeKind)
	}
	if kind != core.RangeCustom {
		return core.ApprovalRange{Kind: kind}, nil
	}

	from, err := core.ParseDate(rangeFrom)
	if err != nil {
		return core.ApprovalRange{}, fmt.Errorf("invalid --from: %w", err)
	}
	to, err := core.ParseDate(rangeTo)
	if err != nil {
		return core.ApprovalRange{}, fmt.Errorf("invalid --to: %w", err)
	}
	return core.Custom(from, to), nil
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List work log entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		components, _, err := setup(ctx)
		if err != nil {
			return err
		}
		defer components.Cleanup()

		entries, err := components.Store.List(ctx, listUser)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tOWNER\tDATE\tTASK\tHOURS\tSTATUS\tREASON")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%s\t%s\n",
				e.ID, e.OwnerUserID, e.WorkDate, e.TaskID, e.HoursWorked, e.Status, e.RejectionReason)
		}
		return w.Flush()
	},
}

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Print the month grid with daily hour totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		components, _, err := setup(ctx)
		if err != nil {
			return err
		}
		defer components.Cleanup()

		today := core.DateOf(time.Now())
		viewMonth := core.MonthOf(today)
		if calendarMonth != "" {
			t, err := time.Parse("2006-01", calendarMonth)
			if err != nil {
				return fmt.Errorf("invalid --month: %w", err)
			}
			viewMonth = core.Month{Year: t.Year(), Month: t.Month()}
		}

		entries, err := components.Store.List(ctx, calendarUser)
		if err != nil {
			return err
		}

		grid := worklog.BuildMonthGrid(entries, viewMonth, today)

		fmt.Printf("%s  (%.2f hours)\n", viewMonth, grid.MonthHours())
		fmt.Println("Mon     Tue     Wed     Thu     Fri     Sat     Sun")
		for _, week := range grid.Weeks() {
			for _, cell := range week {
				marker := " "
				if !cell.Selectable {
					marker = "."
				}
				fmt.Printf("%02d%s%5.1f ", cell.Date.Day(), marker, worklog.DailyHours(cell))
			}
			fmt.Println()
		}
		return nil
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve [entry-id]",
	Short: "Approve pending entries, in bulk or one by ID",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		components, engine, err := setup(ctx)
		if err != nil {
			return err
		}
		defer components.Cleanup()

		if len(args) == 1 {
			updated, err := engine.ApproveOne(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("approved %s (%s, %s)\n", updated.ID, updated.OwnerUserID, updated.WorkDate)
			return nil
		}

		rng, err := parseRange()
		if err != nil {
			return err
		}
		entries, err := components.Store.List(ctx, "")
		if err != nil {
			return err
		}
		result, err := engine.ApproveBatch(ctx, entries, rng)
		if err != nil {
			return err
		}
		fmt.Printf("approved %d, failed %d\n", len(result.SucceededIDs), len(result.FailedIDs))
		for _, id := range result.FailedIDs {
			fmt.Printf("  failed: %s\n", id)
		}
		return nil
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject [entry-id]",
	Short: "Reject pending entries with a reason, in bulk or one by ID",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		components, engine, err := setup(ctx)
		if err != nil {
			return err
		}
		defer components.Cleanup()

		if len(args) == 1 {
			updated, err := engine.RejectOne(ctx, args[0], rejectReason)
			if err != nil {
				return err
			}
			fmt.Printf("rejected %s (%s, %s)\n", updated.ID, updated.OwnerUserID, updated.WorkDate)
			return nil
		}

		rng, err := parseRange()
		if err != nil {
			return err
		}
		entries, err := components.Store.List(ctx, "")
		if err != nil {
			return err
		}
		result, err := engine.RejectBatch(ctx, entries, rng, rejectReason)
		if err != nil {
			return err
		}
		fmt.Printf("rejected %d, failed %d\n", len(result.SucceededIDs), len(result.FailedIDs))
		for _, id := range result.FailedIDs {
			fmt.Printf("  failed: %s\n", id)
		}
		return nil
	},
}

var seedTaskCmd = &cobra.Command{
	Use:   "seed-task",
	Short: "Insert a task into the SQLite catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		if seedTaskID == "" || seedTaskTitle == "" || seedTaskProject == "" {
			return fmt.Errorf("--id, --title and --project are required")
		}

		cfg := config.Load()
		if err := cfg.Validate(); err != nil {
			return err
		}
		if cfg.DataBackend != "sqlite" {
			return fmt.Errorf("seed-task requires DATA_BACKEND=sqlite, got %q", cfg.DataBackend)
		}

		ctx := cmd.Context()
		components, _, err := setup(ctx)
		if err != nil {
			return err
		}
		defer components.Cleanup()

		repo, ok := components.Store.(interface {
			UpsertTask(context.Context, core.Task) error
			AssignTask(ctx context.Context, taskID, userID string) error
		})
		if !ok {
			return fmt.Errorf("backend does not support task seeding")
		}

		task := core.Task{
			ID:        seedTaskID,
			Title:     seedTaskTitle,
			ProjectID: seedTaskProject,
			Status:    "active",
		}
		if err := repo.UpsertTask(ctx, task); err != nil {
			return err
		}
		if seedTaskAssign != "" {
			if err := repo.AssignTask(ctx, seedTaskID, seedTaskAssign); err != nil {
				return err
			}
		}
		fmt.Printf("seeded task %s\n", seedTaskID)
		return nil
	},
}
