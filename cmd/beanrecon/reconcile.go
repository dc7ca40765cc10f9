package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/dhr2333/beancount-recon/internal/database/repository"
	"github.com/dhr2333/beancount-recon/internal/service"
)

var (
	actualString string
	currency     string
	asOfString   string
	lineSpecs    []string
	autoAccount  string
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Preview and execute reconciliations",
}

var reconcileStartCmd = &cobra.Command{
	Use:   "start <task-id>",
	Args:  cobra.ExactArgs(1),
	Short: "Show the expected balances for a pending task",
	Run: func(_ *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()

		preview, err := a.recon.StartReconciliation(context.Background(), args[0])
		if err != nil {
			log.Fatalln(err)
		}
		fmt.Printf("as of %s", preview.AsOfDate.Format(repository.DateFormat))
		if preview.IsFirstReconciliation {
			fmt.Print(" (first reconciliation)")
		}
		fmt.Println()
		if len(preview.Balances) == 0 {
			fmt.Println("no ledger balance, account unknown or settled")
			return
		}
		for cur, amt := range preview.Balances {
			fmt.Printf("    %s %s\n", amt.StringFixed(2), cur)
		}
	},
}

var reconcileExecuteCmd = &cobra.Command{
	Use:   "execute <task-id>",
	Args:  cobra.ExactArgs(1),
	Short: "Execute a reconciliation and append corrective directives",
	Run: func(_ *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()

		actual, err := decimal.NewFromString(actualString)
		if err != nil {
			log.Fatalln("unable to parse --actual:", err)
		}
		cur := currency
		if cur == "" {
			cur = a.cfg.Ledger.DefaultCurrency
		}
		var asOf time.Time
		if asOfString != "" {
			asOf, err = time.Parse(repository.DateFormat, asOfString)
			if err != nil {
				log.Fatalln("unable to parse --as-of:", err)
			}
		}
		lines, err := parseAllocationLines(lineSpecs, autoAccount)
		if err != nil {
			log.Fatalln(err)
		}

		result, err := a.recon.ExecuteReconciliation(context.Background(), args[0], actual, cur, lines, asOf)
		if err != nil {
			log.Fatalln(err)
		}
		for _, d := range result.Directives {
			fmt.Println(d)
			fmt.Println()
		}
		if result.NextTaskID != "" {
			fmt.Println("next task:", result.NextTaskID)
		}
	},
}

// parseAllocationLines turns --line Account=Amount flags plus an optional
// --auto account into allocation lines.
func parseAllocationLines(specs []string, auto string) ([]service.AllocationLine, error) {
	var lines []service.AllocationLine
	for _, spec := range specs {
		account, amountStr, found := strings.Cut(spec, "=")
		if !found {
			return nil, errors.New("allocation line must be Account=Amount, got " + spec)
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(amountStr))
		if err != nil {
			return nil, fmt.Errorf("unable to parse amount in %q: %w", spec, err)
		}
		lines = append(lines, service.AllocationLine{Account: strings.TrimSpace(account), Amount: &amount})
	}
	if auto != "" {
		lines = append(lines, service.AllocationLine{Account: auto})
	}
	return lines, nil
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	reconcileCmd.AddCommand(reconcileStartCmd)
	reconcileCmd.AddCommand(reconcileExecuteCmd)

	reconcileExecuteCmd.Flags().StringVar(&actualString, "actual", "", "Actual balance reported for the subject account.")
	reconcileExecuteCmd.Flags().StringVar(&currency, "currency", "", "Currency of the actual balance (defaults to the configured currency).")
	reconcileExecuteCmd.Flags().StringVar(&asOfString, "as-of", "", "Cutoff date, defaults to the task's scheduled date.")
	reconcileExecuteCmd.Flags().StringArrayVar(&lineSpecs, "line", nil, "Allocation line as Account=Amount, repeatable.")
	reconcileExecuteCmd.Flags().StringVar(&autoAccount, "auto", "", "Account absorbing the remaining difference.")
	_ = reconcileExecuteCmd.MarkFlagRequired("actual")
}
