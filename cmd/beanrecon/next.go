package main

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/dhr2333/beancount-recon/internal/cycle"
	"github.com/dhr2333/beancount-recon/internal/database/repository"
)

var (
	nextUnit     string
	nextInterval int
	nextFrom     string
)

// nextDateCmd represents the next-date command
var nextDateCmd = &cobra.Command{
	Use:   "next-date",
	Short: "Compute the next occurrence of a recurrence cycle",
	Run: func(_ *cobra.Command, _ []string) {
		unit, err := cycle.ParseUnit(nextUnit)
		if err != nil {
			log.Fatalln(err)
		}
		from := time.Now()
		if nextFrom != "" {
			from, err = time.Parse(repository.DateFormat, nextFrom)
			if err != nil {
				log.Fatalln("unable to parse --from:", err)
			}
		}
		next, err := cycle.Next(unit, nextInterval, from)
		if err != nil {
			log.Fatalln(err)
		}
		fmt.Println(next.Format(repository.DateFormat))
	},
}

func init() {
	rootCmd.AddCommand(nextDateCmd)

	nextDateCmd.Flags().StringVar(&nextUnit, "unit", "months", "Recurrence unit: days, weeks, months or years.")
	nextDateCmd.Flags().IntVar(&nextInterval, "interval", 1, "Recurrence interval.")
	nextDateCmd.Flags().StringVar(&nextFrom, "from", "", "Base date, defaults to today.")
}
