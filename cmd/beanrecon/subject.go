package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhr2333/beancount-recon/internal/database/repository"
)

var (
	subjectKind     string
	subjectName     string
	subjectAccount  string
	subjectCurrency string
	cycleUnit       string
	cycleInterval   int
)

// subjectCmd represents the subject command
var subjectCmd = &cobra.Command{
	Use:   "subject",
	Short: "Manage reconcilable accounts and cards",
}

var subjectAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a subject, optionally with a recurrence",
	Run: func(_ *cobra.Command, _ []string) {
		a := mustApp()
		defer a.Close()

		currency := subjectCurrency
		if currency == "" {
			currency = a.cfg.Ledger.DefaultCurrency
		}
		subject := repository.Subject{
			Kind:        subjectKind,
			Name:        subjectName,
			AccountPath: subjectAccount,
			Currency:    currency,
			Enabled:     true,
		}
		if cycleUnit != "" {
			subject.CycleUnit = &cycleUnit
			subject.CycleInterval = &cycleInterval
		}
		taskID, err := a.scheduler.RegisterSubject(context.Background(), subject)
		if err != nil {
			log.Fatalln(err)
		}
		if taskID != "" {
			fmt.Println("first task:", taskID)
		}
	},
}

var subjectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered subjects",
	Run: func(_ *cobra.Command, _ []string) {
		a := mustApp()
		defer a.Close()

		subjects, err := a.subjects.List(context.Background())
		if err != nil {
			log.Fatalln(err)
		}
		buf := bufio.NewWriter(os.Stdout)
		defer buf.Flush()
		for _, s := range subjects {
			cycle := "no cycle"
			if s.HasCycle() {
				cycle = fmt.Sprintf("every %d %s", *s.CycleInterval, *s.CycleUnit)
			}
			state := ""
			if !s.Enabled {
				state = "  (disabled)"
			}
			fmt.Fprintf(buf, "%s/%s  %-20s %s  %s%s\n", s.Kind, s.ID, s.Name, s.AccountPath, cycle, state)
		}
	},
}

var subjectCycleCmd = &cobra.Command{
	Use:   "set-cycle <kind> <subject-id>",
	Args:  cobra.ExactArgs(2),
	Short: "Replace a subject's recurrence and reseed its pending task",
	Run: func(_ *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()

		taskID, err := a.scheduler.ConfigureCycle(context.Background(), args[0], args[1], cycleUnit, cycleInterval)
		if err != nil {
			log.Fatalln(err)
		}
		fmt.Println("next task:", taskID)
	},
}

var subjectRemoveCycleCmd = &cobra.Command{
	Use:   "remove-cycle <kind> <subject-id>",
	Args:  cobra.ExactArgs(2),
	Short: "Drop a subject's recurrence and cancel its pending tasks",
	Run: func(_ *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()
		if err := a.scheduler.RemoveCycle(context.Background(), args[0], args[1]); err != nil {
			log.Fatalln(err)
		}
	},
}

var subjectDisableCmd = &cobra.Command{
	Use:   "disable <kind> <subject-id>",
	Args:  cobra.ExactArgs(2),
	Short: "Disable a subject and cancel its pending tasks",
	Run: func(_ *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()
		if err := a.scheduler.DisableSubject(context.Background(), args[0], args[1]); err != nil {
			log.Fatalln(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(subjectCmd)
	subjectCmd.AddCommand(subjectAddCmd)
	subjectCmd.AddCommand(subjectListCmd)
	subjectCmd.AddCommand(subjectCycleCmd)
	subjectCmd.AddCommand(subjectRemoveCycleCmd)
	subjectCmd.AddCommand(subjectDisableCmd)

	subjectAddCmd.Flags().StringVar(&subjectKind, "kind", repository.SubjectAccount, "Subject kind: account or card.")
	subjectAddCmd.Flags().StringVar(&subjectName, "name", "", "Display name.")
	subjectAddCmd.Flags().StringVar(&subjectAccount, "account", "", "Ledger account path, e.g. Assets:Bank:Checking.")
	subjectAddCmd.Flags().StringVar(&subjectCurrency, "currency", "", "Subject currency (defaults to the configured currency).")
	subjectAddCmd.Flags().StringVar(&cycleUnit, "cycle-unit", "", "Recurrence unit: days, weeks, months or years.")
	subjectAddCmd.Flags().IntVar(&cycleInterval, "cycle-interval", 1, "Recurrence interval.")
	_ = subjectAddCmd.MarkFlagRequired("name")
	_ = subjectAddCmd.MarkFlagRequired("account")

	subjectCycleCmd.Flags().StringVar(&cycleUnit, "unit", "", "Recurrence unit: days, weeks, months or years.")
	subjectCycleCmd.Flags().IntVar(&cycleInterval, "interval", 1, "Recurrence interval.")
	_ = subjectCycleCmd.MarkFlagRequired("unit")
}
