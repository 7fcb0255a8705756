package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantlab/breakout/journal"
)

func newReportCmd(rc *rootConfig) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "report <run-id>",
		Short: "Summarize a finished run from its journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := args[0]

			j, err := journal.NewSQLite(dbPath)
			if err != nil {
				return err
			}
			defer j.Close()

			pnl, err := j.ListPnL(runID)
			if err != nil {
				return err
			}
			equity, err := j.ListEquity(runID)
			if err != nil {
				return err
			}
			rejections, err := j.ListRejections(runID)
			if err != nil {
				return err
			}

			if len(equity) == 0 {
				return fmt.Errorf("no records for run %q", runID)
			}

			wins, losses, total := 0, 0, 0.0
			for _, rec := range pnl {
				total += rec.PnL
				if rec.PnL > 0 {
					wins++
				} else if rec.PnL < 0 {
					losses++
				}
			}

			first, last := equity[0], equity[len(equity)-1]
			fmt.Printf("run %s: %s .. %s (%d equity points)\n",
				runID, first.Time.Format("2006-01-02 15:04"), last.Time.Format("2006-01-02 15:04"), len(equity))
			fmt.Printf("trades %d (W%d/L%d), realized pnl %.2f\n", len(pnl), wins, losses, total)
			fmt.Printf("equity %.2f -> %.2f\n", first.Equity, last.Equity)

			byReason := map[string]int{}
			for _, rej := range rejections {
				byReason[rej.Reason]++
			}
			if len(byReason) > 0 {
				fmt.Printf("rejections:")
				for _, reason := range []string{"capacity", "size", "exposure", "conflict", "cooldown"} {
					if n := byReason[reason]; n > 0 {
						fmt.Printf(" %s=%d", reason, n)
					}
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "journal-db", "./breakout.sqlite", "SQLite journal database")
	return cmd
}
