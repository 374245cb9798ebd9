package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "launchpool",
		Short:        "Presale/AMM liquidity pool tooling",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay an operation script against a fresh pool",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("ops", "", "input operations JSONL")
	simulateCmd.Flags().String("out", "./data/events.jsonl", "output pool events JSONL")
	simulateCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for events and snapshots")
	simulateCmd.Flags().Int("batch-size", 100, "batch size for event writes")
	simulateCmd.Flags().Uint64("start-time", 0, "simulated clock start (unix seconds, 0 means now)")
	simulateCmd.Flags().String("quote-address", "0x0000000000000000000000000000000000000001", "quote asset address")
	simulateCmd.Flags().String("var-address", "0x0000000000000000000000000000000000000002", "variable asset address")
	simulateCmd.Flags().String("treasury", "0x0000000000000000000000000000000000000003", "protocol treasury address")
	simulateCmd.Flags().String("virtual-quote", "", "virtual quote reserve")
	simulateCmd.Flags().String("bootstrap-quote", "", "bootstrap quote target")
	simulateCmd.Flags().String("initial-quote", "", "creator's declared initial quote commitment")
	simulateCmd.Flags().String("share-match", "", "initial share match")
	simulateCmd.Flags().String("min-collectable-fees", "0", "protocol fee flush threshold")
	simulateCmd.Flags().Int64("transfer-fee-bps", 0, "variable asset transfer fee in bps")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a swap against given curve parameters and reserves",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("virtual-quote", "", "virtual quote reserve")
	quoteCmd.Flags().String("bootstrap-quote", "", "bootstrap quote target")
	quoteCmd.Flags().String("share-match", "", "initial share match")
	quoteCmd.Flags().String("reserve-quote", "", "current quote reserve")
	quoteCmd.Flags().String("reserve-variable", "", "current variable reserve")
	quoteCmd.Flags().String("amount-in", "", "input amount")
	quoteCmd.Flags().String("side", "buy", "buy (quote in) or sell (variable in)")
	quoteCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(quoteCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
