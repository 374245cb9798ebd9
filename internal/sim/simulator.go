// Package sim replays an operation script against an in-memory pool and
// writes the resulting pool events out as JSONL. It exists so the curve,
// fee and guard behavior can be exercised end to end without a chain.
package sim

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"launchpool/internal/model"
	"launchpool/internal/pool"
	"launchpool/internal/registry"
	"launchpool/internal/storage"
	"launchpool/internal/token"
)

// Config wires a simulator run.
type Config struct {
	QuoteAddress    common.Address
	VariableAddress common.Address
	Treasury        common.Address

	TransferFeeBps int64

	Params                 pool.LaunchParams
	MinimumCollectableFees *big.Int

	StartTime uint64
	BatchSize int

	Storage storage.Storage
	Logger  *zap.Logger
}

// Simulator owns the ledgers, the registry and one pool, plus a manual
// clock the advance op moves.
type Simulator struct {
	logger *zap.Logger

	quote    *token.Ledger
	variable *token.Ledger
	reg      *registry.Registry
	pool     *pool.Pool

	clock uint64

	store     storage.Storage
	batchSize int
	pending   []model.PoolEvent

	applied uint64
	failed  uint64
}

// New builds the simulator and creates its pool through the registry.
func New(cfg Config) (*Simulator, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	s := &Simulator{
		logger:    logger,
		quote:     token.NewLedger(cfg.QuoteAddress, "QUOTE"),
		variable:  token.NewLedger(cfg.VariableAddress, "VAR"),
		clock:     cfg.StartTime,
		store:     cfg.Storage,
		batchSize: batchSize,
	}
	if s.clock == 0 {
		s.clock = uint64(time.Now().Unix())
	}
	if cfg.TransferFeeBps > 0 {
		s.variable.SetTransferFeeBps(cfg.TransferFeeBps)
	}

	reg, err := registry.New(cfg.Treasury, cfg.MinimumCollectableFees)
	if err != nil {
		return nil, err
	}
	s.reg = reg

	p, err := reg.CreatePool(cfg.QuoteAddress, cfg.VariableAddress, s.quote, s.variable, cfg.Params, pool.Config{
		Logger:   logger,
		Now:      func() uint64 { return s.clock },
		Recorder: s,
	})
	if err != nil {
		return nil, err
	}
	s.pool = p
	return s, nil
}

// Pool exposes the simulated pool for inspection.
func (s *Simulator) Pool() *pool.Pool {
	return s.pool
}

// Quote exposes the quote-asset ledger.
func (s *Simulator) Quote() *token.Ledger {
	return s.quote
}

// Variable exposes the variable-asset ledger.
func (s *Simulator) Variable() *token.Ledger {
	return s.variable
}

// Now returns the simulated clock.
func (s *Simulator) Now() uint64 {
	return s.clock
}

// Record buffers a pool event and flushes full batches.
func (s *Simulator) Record(ev model.PoolEvent) {
	s.pending = append(s.pending, ev)
	if len(s.pending) >= s.batchSize {
		if err := s.flush(); err != nil {
			s.logger.Error("flush events failed", zap.Error(err))
		}
	}
}

func (s *Simulator) flush() error {
	if s.store == nil || len(s.pending) == 0 {
		s.pending = s.pending[:0]
		return nil
	}
	if err := s.store.PutEventBatch(s.pending); err != nil {
		return err
	}
	s.pending = s.pending[:0]
	return nil
}

// Run replays every operation in the input file, one JSON object per
// line. Failed operations are logged and counted but do not stop the
// replay.
func (s *Simulator) Run(ctx context.Context, inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open ops file: %w", err)
	}
	defer file.Close()

	start := time.Now()
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var op Operation
		if err := json.Unmarshal(line, &op); err != nil {
			s.failed++
			s.logger.Warn("skip malformed op", zap.Int("line", lineNo), zap.Error(err))
			continue
		}

		if err := s.Apply(op); err != nil {
			s.failed++
			s.logger.Warn("op failed",
				zap.Int("line", lineNo),
				zap.String("op", op.Op),
				zap.Error(err),
			)
			continue
		}
		s.applied++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read ops file: %w", err)
	}

	if err := s.flush(); err != nil {
		return fmt.Errorf("flush events: %w", err)
	}

	s.logger.Info("replay finished",
		zap.Int("lines", lineNo),
		zap.Uint64("applied", s.applied),
		zap.Uint64("failed", s.failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Apply executes a single operation against the pool.
func (s *Simulator) Apply(op Operation) error {
	switch op.Op {
	case "advance":
		s.clock += op.Seconds
		return nil

	case "fund":
		caller, err := parseAddress(op.Caller, "caller")
		if err != nil {
			return err
		}
		amount, err := parseAmount(op.Amount, "fund")
		if err != nil {
			return err
		}
		s.ledgerFor(op.Asset).Mint(caller, amount)
		return nil

	case "pay":
		caller, err := parseAddress(op.Caller, "caller")
		if err != nil {
			return err
		}
		amount, err := parseAmount(op.Amount, "pay")
		if err != nil {
			return err
		}
		return s.ledgerFor(op.Asset).Transfer(caller, s.pool.Address(), amount)

	case "mint":
		caller, to, err := s.callerAndTo(op)
		if err != nil {
			return err
		}
		_, err = s.pool.Mint(caller, to)
		return err

	case "burn":
		caller, to, err := s.callerAndTo(op)
		if err != nil {
			return err
		}
		_, _, err = s.pool.Burn(caller, to)
		return err

	case "swap":
		caller, to, err := s.callerAndTo(op)
		if err != nil {
			return err
		}
		variableOut, err := parseAmount(op.VariableOut, "variable_out")
		if err != nil {
			return err
		}
		quoteOut, err := parseAmount(op.QuoteOut, "quote_out")
		if err != nil {
			return err
		}
		return s.pool.Swap(caller, variableOut, quoteOut, to)

	case "transfer_shares":
		caller, to, err := s.callerAndTo(op)
		if err != nil {
			return err
		}
		amount, err := parseAmount(op.Amount, "shares")
		if err != nil {
			return err
		}
		return s.pool.TransferShares(caller, to, amount)

	case "withdraw_fees":
		caller, to, err := s.callerAndTo(op)
		if err != nil {
			return err
		}
		_, err = s.pool.WithdrawFees(caller, to)
		return err

	case "withdraw_excess":
		caller, err := parseAddress(op.Caller, "caller")
		if err != nil {
			return err
		}
		return s.pool.WithdrawExcessToken(caller)

	case "takeover":
		caller, err := parseAddress(op.Caller, "caller")
		if err != nil {
			return err
		}
		params, err := takeoverParams(op)
		if err != nil {
			return err
		}
		return s.pool.TakeOverPool(caller, params)

	case "sync":
		caller, err := parseAddress(op.Caller, "caller")
		if err != nil {
			return err
		}
		return s.pool.Sync(caller)

	default:
		return fmt.Errorf("unknown op %q", op.Op)
	}
}

// callerAndTo parses caller and recipient; to defaults to caller.
func (s *Simulator) callerAndTo(op Operation) (common.Address, common.Address, error) {
	caller, err := parseAddress(op.Caller, "caller")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	if op.To == "" {
		return caller, caller, nil
	}
	to, err := parseAddress(op.To, "to")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return caller, to, nil
}

func (s *Simulator) ledgerFor(asset string) *token.Ledger {
	if asset == "variable" {
		return s.variable
	}
	return s.quote
}

func takeoverParams(op Operation) (pool.LaunchParams, error) {
	virtualQuote, err := parseAmount(op.VirtualQuote, "virtual_quote")
	if err != nil {
		return pool.LaunchParams{}, err
	}
	bootstrapQuote, err := parseAmount(op.BootstrapQuote, "bootstrap_quote")
	if err != nil {
		return pool.LaunchParams{}, err
	}
	initialQuote, err := parseAmount(op.InitialQuote, "initial_quote")
	if err != nil {
		return pool.LaunchParams{}, err
	}
	shareMatch, err := parseAmount(op.ShareMatch, "share_match")
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
