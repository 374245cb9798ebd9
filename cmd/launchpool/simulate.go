package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"launchpool/internal/config"
	"launchpool/internal/model"
	"launchpool/internal/pool"
	"launchpool/internal/sim"
	"launchpool/internal/storage"
	"launchpool/internal/storage/postgres"
)

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Ops == "" {
		return fmt.Errorf("ops path is required")
	}

	params, err := launchParams(cfg)
	if err != nil {
		return err
	}
	minCollectable, err := parseBig(cfg.MinCollectableFees, "min-collectable-fees")
	if err != nil {
		return err
	}
	quoteAddr, err := parseAddr(cfg.QuoteAddress, "quote-address")
	if err != nil {
		return err
	}
	varAddr, err := parseAddr(cfg.VarAddress, "var-address")
	if err != nil {
		return err
	}
	treasury, err := parseAddr(cfg.Treasury, "treasury")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks := []storage.Storage{storage.NewJsonlStorage(cfg.Out)}

	var pgStore *postgres.Store
	if cfg.PGDSN != "" {
		pgStore, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pgStore.Close()
		sinks = append(sinks, &pgEventSink{ctx: ctx, store: pgStore})
	}

	simulator, err := sim.New(sim.Config{
		QuoteAddress:           quoteAddr,
		VariableAddress:        varAddr,
		Treasury:               treasury,
		TransferFeeBps:         cfg.TransferFeeBps,
		Params:                 params,
		MinimumCollectableFees: minCollectable,
		StartTime:              cfg.StartTime,
		BatchSize:              cfg.BatchSize,
		Storage:                multiStorage(sinks),
		Logger:                 logger,
	})
	if err != nil {
		return err
	}

	logger.Info("simulate start",
		zap.String("ops", cfg.Ops),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Int("batch_size", cfg.BatchSize),
		zap.String("virtual_quote", params.VirtualQuote.String()),
		zap.String("bootstrap_quote", params.BootstrapQuote.String()),
		zap.String("share_match", params.InitialShareMatch.String()),
	)

	if err := simulator.Run(ctx, cfg.Ops); err != nil {
		return err
	}

	if pgStore != nil {
		snap := simulator.Pool().Snapshot()
		if err := pgStore.UpsertSnapshots(ctx, []model.PoolSnapshot{snap}); err != nil {
			return fmt.Errorf("upsert snapshot: %w", err)
		}
	}

	reserveQuote, reserveVariable := simulator.Pool().Reserves()
	logger.Info("final pool state",
		zap.Bool("presale", simulator.Pool().InPresale()),
		zap.String("reserve_quote", reserveQuote.String()),
		zap.String("reserve_variable", reserveVariable.String()),
		zap.String("total_supply", simulator.Pool().TotalSupply().String()),
	)
	return nil
}

func launchParams(cfg config.SimulateConfig) (pool.LaunchParams, error) {
	virtualQuote, err := parseBig(cfg.VirtualQuote, "virtual-quote")
	if err != nil {
		return pool.LaunchParams{}, err
	}
	bootstrapQuote, err := parseBig(cfg.BootstrapQuote, "bootstrap-quote")
	if err != nil {
		return pool.LaunchParams{}, err
	}
	initialQuote, err := parseBig(cfg.InitialQuote, "initial-quote")
	if err != nil {
		return pool.LaunchParams{}, err
	}
	shareMatch, err := parseBig(cfg.ShareMatch, "share-match")
	if err != nil {
		return pool.LaunchParams{}, err
	}
	return pool.LaunchParams{
		VirtualQuote:      virtualQuote,
		BootstrapQuote:    bootstrapQuote,
		InitialQuote:      initialQuote,
		InitialShareMatch: shareMatch,
	}, nil
}

func parseBig(value, name string) (*big.Int, error) {
	if value == "" {
		return nil, fmt.Errorf("%s is required", name)
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s: %q", name, value)
	}
	return parsed, nil
}

func parseAddr(value, name string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid %s: %q", name, value)
	}
	return common.HexToAddress(value), nil
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}

// pgEventSink adapts the Postgres store to the event batch interface.
type pgEventSink struct {
	ctx   context.Context
	store *postgres.Store
}

func (s *pgEventSink) PutEventBatch(events []model.PoolEvent) error {
	return s.store.InsertEvents(s.ctx, events)
}

// multiStorage fans event batches out to every sink.
type multiStorage []storage.Storage

func (m multiStorage) PutEventBatch(events []model.PoolEvent) error {
	for _, sink := range m {
		if err := sink.PutEventBatch(events); err != nil {
			return err
		}
	}
	return nil
}
