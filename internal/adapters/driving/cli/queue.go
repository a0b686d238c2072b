package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
)

var (
	tasksAll       bool
	tasksLimit     int
	pruneOlderThan time.Duration
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Queue an indexing task",
	Long:  `Records an indexing intent. Nothing is indexed until the next drain.`,
}

var enqueueFullCmd = &cobra.Command{
	Use:   "full",
	Short: "Queue a full-site reindex",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return enqueue(cmd, func() (*domain.IndexingTask, error) {
			return queueService.EnqueueFullSiteTask(cmd.Context())
		})
	},
}

var enqueueUpsertCmd = &cobra.Command{
	Use:   "upsert <collection> <item-id>",
	Short: "Queue indexing of one record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return enqueue(cmd, func() (*domain.IndexingTask, error) {
			return queueService.EnqueueItemUpsert(cmd.Context(), args[0], args[1])
		})
	},
}

var enqueueRemoveCmd = &cobra.Command{
	Use:   "remove <collection> <item-id>",
	Short: "Queue removal of one record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return enqueue(cmd, func() (*domain.IndexingTask, error) {
			return queueService.EnqueueItemRemove(cmd.Context(), args[0], args[1])
		})
	},
}

var enqueueCollectionCmd = &cobra.Command{
	Use:   "collection <collection>",
	Short: "Queue a re-index of one collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return enqueue(cmd, func() (*domain.IndexingTask, error) {
			return queueService.EnqueueCollectionReindex(cmd.Context(), args[0])
		})
	},
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List indexing tasks",
	Long:  `Lists pending tasks, oldest first. With --all, lists recent tasks of any state, newest first.`,
	Args:  cobra.NoArgs,
	RunE:  runTasks,
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old completed tasks",
	Args:  cobra.NoArgs,
	RunE:  runPrune,
}

func init() {
	enqueueCmd.AddCommand(enqueueFullCmd)
	enqueueCmd.AddCommand(enqueueUpsertCmd)
	enqueueCmd.AddCommand(enqueueRemoveCmd)
	enqueueCmd.AddCommand(enqueueCollectionCmd)
	rootCmd.AddCommand(enqueueCmd)

	tasksCmd.Flags().BoolVarP(&tasksAll, "all", "a", false, "include completed tasks")
	tasksCmd.Flags().IntVarP(&tasksLimit, "limit", "n", 50, "maximum number of tasks with --all")
	rootCmd.AddCommand(tasksCmd)

	pruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 7*24*time.Hour,
		"delete tasks completed longer ago than this")
	rootCmd.AddCommand(pruneCmd)
}

func enqueue(cmd *cobra.Command, fn func() (*domain.IndexingTask, error)) error {
	if queueService == nil {
		return errors.New("queue service not configured")
	}

	task, err := fn()
	if err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}
	cmd.Printf("Queued %s task %s.\n", task.Kind, task.ID)
	return nil
}

func runTasks(cmd *cobra.Command, _ []string) error {
	if queueService == nil {
		return errors.New("queue service not configured")
	}

	var (
		tasks []domain.IndexingTask
		err   error
	)
	if tasksAll {
		tasks, err = queueService.Recent(cmd.Context(), tasksLimit)
	} else {
		tasks, err = queueService.Pending(cmd.Context())
	}
	if err != nil {
		return fmt.Errorf("listing tasks: %w", err)
	}

	if len(tasks) == 0 {
		cmd.Println("No tasks.")
		return nil
	}

	for i := range tasks {
		t := tasks[i]
		state := "pending"
		if t.Completed {
			state = "completed"
		}
		target := t.CollectionName
		if t.ItemID != "" {
			target += "/" + t.ItemID
		}
		cmd.Printf("  %s  %-18s %-9s %s  %s\n",
			t.ID, t.Kind, state, t.CreatedAt.Local().Format(time.DateTime), target)
	}
	return nil
}

func runPrune(cmd *cobra.Command, _ []string) error {
	if queueService == nil {
		return errors.New("queue service not configured")
	}

	n, err := queueService.Prune(cmd.Context(), pruneOlderThan)
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}
	cmd.Printf("Pruned %d completed tasks.\n", n)
	return nil
}
