package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/hako/durafmt"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/dhr2333/beancount-recon/internal/database/repository"
)

var listDueOnly bool

const (
	ansiRed   = "\033[31m"
	ansiReset = "\033[0m"
)

// taskCmd represents the task command
var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect and drive scheduled tasks",
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending tasks with their due time",
	Run: func(_ *cobra.Command, _ []string) {
		a := mustApp()
		defer a.Close()

		ctx := context.Background()
		var tasks []repository.ScheduledTask
		var err error
		if listDueOnly {
			tasks, err = a.scheduler.Due(ctx)
		} else {
			tasks, err = a.scheduler.Pending(ctx)
		}
		if err != nil {
			log.Fatalln(err)
		}
		printTasks(tasks)
	},
}

var taskCancelCmd = &cobra.Command{
	Use:   "cancel <task-id>",
	Args:  cobra.ExactArgs(1),
	Short: "Cancel a pending task",
	Run: func(_ *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()
		if err := a.scheduler.CancelTask(context.Background(), args[0]); err != nil {
			log.Fatalln(err)
		}
	},
}

var taskActivateCmd = &cobra.Command{
	Use:   "activate <task-id>",
	Args:  cobra.ExactArgs(1),
	Short: "Activate an inactive review task",
	Run: func(_ *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()
		if err := a.scheduler.ActivateReview(context.Background(), args[0]); err != nil {
			log.Fatalln(err)
		}
	},
}

var taskReviewedCmd = &cobra.Command{
	Use:   "reviewed <task-id>",
	Args:  cobra.ExactArgs(1),
	Short: "Complete a pending review task",
	Run: func(_ *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()
		if err := a.scheduler.CompleteReview(context.Background(), args[0]); err != nil {
			log.Fatalln(err)
		}
	},
}

func printTasks(tasks []repository.ScheduledTask) {
	color := isatty.IsTerminal(os.Stdout.Fd())
	now := time.Now()

	buf := bufio.NewWriter(os.Stdout)
	defer buf.Flush()
	for _, t := range tasks {
		due := ""
		overdue := false
		if t.ScheduledDate != nil {
			d := t.ScheduledDate.Sub(now)
			if d < 0 {
				overdue = true
				due = "overdue by " + durafmt.Parse(-d).LimitFirstN(2).String()
			} else {
				due = "due in " + durafmt.Parse(d).LimitFirstN(2).String()
			}
		}
		line := fmt.Sprintf("%s  %-14s %s/%s  %s", t.ID, t.Type, t.SubjectKind, t.SubjectID, due)
		if overdue && color {
			line = ansiRed + line + ansiReset
		}
		fmt.Fprintln(buf, line)
	}
}

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskCancelCmd)
	taskCmd.AddCommand(taskActivateCmd)
	taskCmd.AddCommand(taskReviewedCmd)

	taskListCmd.Flags().BoolVar(&listDueOnly, "due", false, "Only show tasks whose scheduled date has arrived.")
}
