// Package cli is the thin orchestration layer over the pipeline library.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootConfig carries the persistent flags shared by subcommands.
type rootConfig struct {
	ConfigPath string
	BarsDB     string
}

func NewRootCmd() *cobra.Command {
	rc := &rootConfig{}

	cmd := &cobra.Command{
		Use:           "breakout",
		Short:         "Crypto breakout signals and paper-trading backtests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "", "Path to YAML config (defaults apply when empty)")
	cmd.PersistentFlags().StringVar(&rc.BarsDB, "bars-db", "./bars.sqlite", "SQLite bar store")

	cmd.AddCommand(
		newIngestCmd(rc),
		newBacktestCmd(rc),
		newReportCmd(rc),
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("breakout (dev)")
		},
	})

	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
