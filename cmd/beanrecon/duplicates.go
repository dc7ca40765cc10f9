package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/dhr2333/beancount-recon/internal/database/repository"
)

// duplicatesCmd represents the duplicates command
var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Detect and suppress entries duplicated by the synced ledger tree",
}

var duplicatesDetectCmd = &cobra.Command{
	Use:   "detect <kind> <subject-id>",
	Args:  cobra.ExactArgs(2),
	Short: "Report platform entries that also exist in the synced tree",
	Run: func(_ *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()

		report, err := a.suppressor.Detect(args[0], args[1])
		if err != nil {
			log.Fatalln(err)
		}
		if !report.HasDuplicates {
			fmt.Println("no duplicates")
		}
		for _, d := range report.Duplicates {
			fmt.Printf("%s %s %s lines %v\n", d.Date.Format(repository.DateFormat), d.Kind, d.Account, d.Lines)
		}
		for _, m := range report.NearMisses {
			fmt.Printf("near miss: %s %s payee %q vs %q (distance %d)\n",
				m.Date.Format(repository.DateFormat), m.Account, m.PlatformPayee, m.ExternalPayee, m.Distance)
		}
	},
}

var duplicatesSuppressCmd = &cobra.Command{
	Use:   "suppress <kind> <subject-id>",
	Args:  cobra.ExactArgs(2),
	Short: "Comment out duplicated platform entries in place",
	Run: func(_ *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()

		n, err := a.suppressor.SuppressDuplicates(args[0], args[1])
		if err != nil {
			log.Fatalln(err)
		}
		fmt.Printf("commented %d entries\n", n)
	},
}

var duplicatesRestoreCmd = &cobra.Command{
	Use:   "restore <kind> <subject-id>",
	Args:  cobra.ExactArgs(2),
	Short: "Uncomment previously suppressed platform entries",
	Run: func(_ *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()

		n, err := a.suppressor.RestoreAll(args[0], args[1])
		if err != nil {
			log.Fatalln(err)
		}
		fmt.Printf("restored %d entries\n", n)
	},
}

func init() {
	rootCmd.AddCommand(duplicatesCmd)
	duplicatesCmd.AddCommand(duplicatesDetectCmd)
	duplicatesCmd.AddCommand(duplicatesSuppressCmd)
	duplicatesCmd.AddCommand(duplicatesRestoreCmd)
}
