package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantlab/breakout/backtest"
	"github.com/quantlab/breakout/config"
	"github.com/quantlab/breakout/features"
	"github.com/quantlab/breakout/journal"
	"github.com/quantlab/breakout/market"
	"github.com/quantlab/breakout/pkg/id"
	"github.com/quantlab/breakout/risk"
	"github.com/quantlab/breakout/sim"
	"github.com/quantlab/breakout/store"
)

func newBacktestCmd(rc *rootConfig) *cobra.Command {
	var (
		csvPath  string
		startRaw string
		endRaw   string
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run a paper-trading backtest over stored or CSV bars",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rc)
			if err != nil {
				return err
			}

			bars, err := loadBars(rc, cfg, csvPath, startRaw, endRaw)
			if err != nil {
				return err
			}

			j, err := openJournal(cfg)
			if err != nil {
				return err
			}
			defer j.Close()

			runner, err := buildRunner(cfg, j, id.New())
			if err != nil {
				return err
			}

			res, err := runner.Run(bars)
			if err != nil {
				return err
			}

			fmt.Printf("run %s: %d ticks, %d bars (%d dropped)\n",
				res.RunID, res.Ticks, res.Bars, res.DroppedBars)
			fmt.Printf("trades %d (W%d/L%d, win rate %.1f%%), max drawdown %.2f%%\n",
				res.Trades, res.Wins, res.Losses, 100*res.WinRate, 100*res.MaxDrawdown)
			fmt.Printf("final cash %.2f, final equity %.2f\n", res.FinalCash, res.FinalEquity)
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "Backtest a CSV file instead of the bar store")
	cmd.Flags().StringVar(&startRaw, "start", "", "Range start (RFC3339)")
	cmd.Flags().StringVar(&endRaw, "end", "", "Range end, exclusive (RFC3339)")
	return cmd
}

func loadConfig(rc *rootConfig) (*config.Config, error) {
	if rc.ConfigPath == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(rc.ConfigPath)
}

func loadBars(rc *rootConfig, cfg *config.Config, csvPath, startRaw, endRaw string) ([]market.Bar, error) {
	start, end, err := parseRange(startRaw, endRaw)
	if err != nil {
		return nil, err
	}

	if csvPath != "" {
		bars, dropped, err := market.LoadCSV(csvPath)
		if err != nil {
			return nil, err
		}
		if dropped > 0 {
			fmt.Printf("dropped %d malformed csv rows\n", dropped)
		}
		return market.ClipRange(bars, start, end), nil
	}

	st, err := store.NewSQLite(rc.BarsDB)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.Query(cfg.Symbols, start, end)
}

func parseRange(startRaw, endRaw string) (start, end time.Time, err error) {
	if startRaw != "" {
		if start, err = time.Parse(time.RFC3339, startRaw); err != nil {
			return start, end, fmt.Errorf("parse --start: %w", err)
		}
	}
	if endRaw != "" {
		if end, err = time.Parse(time.RFC3339, endRaw); err != nil {
			return start, end, fmt.Errorf("parse --end: %w", err)
		}
	}
	return start, end, nil
}

func openJournal(cfg *config.Config) (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "csv":
		return journal.NewCSV(cfg.Journal.FillsFile, cfg.Journal.PnLFile, cfg.Journal.EquityFile)
	default:
		return journal.NewSQLite(cfg.Journal.DBPath)
	}
}

func buildRunner(cfg *config.Config, j journal.Journal, runID string) (*backtest.Runner, error) {
	reg, err := cfg.BuildRegistry()
	if err != nil {
		return nil, err
	}
	ctrl, err := risk.NewController(cfg.RiskLimits())
	if err != nil {
		return nil, err
	}
	simulator, err := sim.NewSimulator(runID, cfg.SimulatorConfig(), j)
	if err != nil {
		return nil, err
	}

	return &backtest.Runner{
		Engine:     features.NewEngine(cfg.Indicators()...),
		Registry:   reg,
		Controller: ctrl,
		Sim:        simulator,
		Journal:    j,
		Options: backtest.Options{
			CloseEnd:    cfg.Account.CloseEnd,
			CloseReason: "end_of_run",
		},
	}, nil
}
