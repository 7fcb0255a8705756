package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantlab/breakout/market"
	"github.com/quantlab/breakout/store"
)

func newIngestCmd(rc *rootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <bars.csv>",
		Short: "Append CSV bars into the bar store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bars, dropped, err := market.LoadCSV(args[0])
			if err != nil {
				return err
			}

			st, err := store.NewSQLite(rc.BarsDB)
			if err != nil {
				return err
			}
			defer st.Close()

			inserted, err := st.Append(bars)
			if err != nil {
				return err
			}

			fmt.Printf("ingested %d bars (%d new, %d dropped) into %s\n",
				len(bars), inserted, dropped, rc.BarsDB)
			return nil
		},
	}
	return cmd
}
