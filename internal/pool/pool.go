// Package pool implements the two-regime liquidity pool: a bonding-curve
// presale that converts one way into a constant-product AMM once the
// bootstrap quote threshold is raised. The pool owns its reserves, the
// share ledger, fee accounting and the first-LP restrictions; pricing
// math lives in internal/pricing.
package pool

import (
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"launchpool/internal/fees"
	"launchpool/internal/guard"
	"launchpool/internal/model"
	"launchpool/internal/pricing"
)

const (
	// ModeDeadlineSentinel marks presale mode; once the pool transitions
	// the field holds the presale-buyer vesting end instead.
	ModeDeadlineSentinel = math.MaxUint32

	// MinLiquidity shares are minted to the null holder on the first
	// mint and can never move.
	MinLiquidity = 1000

	shareLockCapSeconds    = 2 * 24 * 60 * 60
	vestingDurationSeconds = 24 * 60 * 60
	maturityWindowSeconds  = 30 * 24 * 60 * 60
	tradeMarkerBucket      = 60
)

// Asset is the transfer surface the pool consumes for both legs. Declared
// amounts are never trusted; the pool measures balance deltas.
type Asset interface {
	BalanceOf(addr common.Address) *big.Int
	Transfer(from, to common.Address, amount *big.Int) error
}

// Registry is the slice of the pool registry the pool itself needs.
type Registry interface {
	Treasury() common.Address
	MinimumCollectableFees() *big.Int
	RemovePool(caller, variableAsset common.Address) error
}

// EventRecorder receives pool events as they are committed.
type EventRecorder interface {
	Record(ev model.PoolEvent)
}

// LaunchParams are the immutable-until-takeover creation parameters.
type LaunchParams struct {
	VirtualQuote      *big.Int
	BootstrapQuote    *big.Int
	InitialQuote      *big.Int
	InitialShareMatch *big.Int
}

// Validate rejects zero or over-width parameters.
func (lp LaunchParams) Validate() error {
	for _, v := range []*big.Int{lp.VirtualQuote, lp.BootstrapQuote, lp.InitialQuote, lp.InitialShareMatch} {
		if v == nil || v.Sign() <= 0 {
			return ErrInvalidLaunchParams
		}
		if err := pricing.CheckUint112(v); err != nil {
			return ErrInvalidLaunchParams
		}
	}
	return nil
}

func (lp LaunchParams) curve() pricing.Curve {
	return pricing.Curve{
		VirtualQuote:      lp.VirtualQuote,
		BootstrapQuote:    lp.BootstrapQuote,
		InitialShareMatch: lp.InitialShareMatch,
	}
}

// Config carries the pool's ambient dependencies.
type Config struct {
	Logger   *zap.Logger
	Now      func() uint64
	Recorder EventRecorder
}

// Pool is one presale/AMM market for a variable asset against the quote
// asset. All mutating operations are serialized and atomic: they either
// fully commit or abort with no state change.
type Pool struct {
	addr          common.Address
	variableAddr  common.Address
	quoteAsset    Asset
	variableAsset Asset
	registry      Registry

	logger   *zap.Logger
	now      func() uint64
	recorder EventRecorder
	seq      uint64

	locked bool

	params LaunchParams
	curve  pricing.Curve

	reserveQuote        *big.Int
	reserveVariable     *big.Int
	modeDeadline        uint64
	pendingLpFees       *big.Int
	pendingProtocolFees *big.Int
	acc                 *fees.Accumulator
	lastTradeMarker     uint32
	genesisTime         uint64

	totalSupply     *big.Int
	positions       map[common.Address]*sharePosition
	firstLP         *guard.Record
	presaleBalances map[common.Address]*big.Int
}

// New creates a pool. Callers normally go through the registry, which
// validates one-pool-per-asset and supplies the treasury linkage.
func New(addr, variableAddr common.Address, quoteAsset, variableAsset Asset, reg Registry, params LaunchParams, cfg Config) (*Pool, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = func() uint64 { return uint64(time.Now().Unix()) }
	}

	p := &Pool{
		addr:                addr,
		variableAddr:        variableAddr,
		quoteAsset:          quoteAsset,
		variableAsset:       variableAsset,
		registry:            reg,
		logger:              logger,
		now:                 nowFn,
		recorder:            cfg.Recorder,
		params:              params,
		curve:               params.curve(),
		reserveQuote:        new(big.Int),
		reserveVariable:     new(big.Int),
		modeDeadline:        ModeDeadlineSentinel,
		pendingLpFees:       new(big.Int),
		pendingProtocolFees: new(big.Int),
		acc:                 fees.NewAccumulator(),
		totalSupply:         new(big.Int),
		positions:           make(map[common.Address]*sharePosition),
		presaleBalances:     make(map[common.Address]*big.Int),
	}
	p.genesisTime = p.now()
	return p, nil
}

// Address returns the pool's ledger address.
func (p *Pool) Address() common.Address {
	return p.addr
}

// VariableAsset returns the address of the pool's variable asset.
func (p *Pool) VariableAsset() common.Address {
	return p.variableAddr
}

// InPresale reports whether the pool is still in the bonding-curve regime.
func (p *Pool) InPresale() bool {
	return p.modeDeadline == ModeDeadlineSentinel
}

// Reserves returns the current reserve snapshot.
func (p *Pool) Reserves() (reserveQuote, reserveVariable *big.Int) {
	return new(big.Int).Set(p.reserveQuote), new(big.Int).Set(p.reserveVariable)
}

// TotalSupply returns the share supply including the locked minimum.
func (p *Pool) TotalSupply() *big.Int {
	return new(big.Int).Set(p.totalSupply)
}

// Params returns the current launch parameters.
func (p *Pool) Params() LaunchParams {
	return p.params
}

// Curve returns the pricing curve for the current parameters.
func (p *Pool) Curve() pricing.Curve {
	return p.curve
}

// FirstLP returns a copy of the first liquidity provider's record, or nil
// if the pool has no first LP yet.
func (p *Pool) FirstLP() *guard.Record {
	if p.firstLP == nil {
		return nil
	}
	rec := *p.firstLP
	rec.FractionalBalance = new(big.Int).Set(p.firstLP.FractionalBalance)
	rec.InitialQuoteContributed = new(big.Int).Set(p.firstLP.InitialQuoteContributed)
	return &rec
}

// PresaleBalanceOf returns the net variable units an address acquired
// during the vesting-tracked window.
func (p *Pool) PresaleBalanceOf(addr common.Address) *big.Int {
	if bal, ok := p.presaleBalances[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// PendingFees returns the LP and protocol fee counters.
func (p *Pool) PendingFees() (lp, protocol *big.Int) {
	return new(big.Int).Set(p.pendingLpFees), new(big.Int).Set(p.pendingProtocolFees)
}

func (p *Pool) lock() error {
	if p.locked {
		return ErrReentrancy
	}
	p.locked = true
	return nil
}

func (p *Pool) unlock() {
	p.locked = false
}

// availableQuoteBalance is the pool's quote balance net of fees owed to
// LPs and the protocol; only this part backs the reserves.
func (p *Pool) availableQuoteBalance() *big.Int {
	bal := p.quoteAsset.BalanceOf(p.addr)
	bal.Sub(bal, p.pendingLpFees)
	bal.Sub(bal, p.pendingProtocolFees)
	return bal
}

func (p *Pool) variableBalance() *big.Int {
	return p.variableAsset.BalanceOf(p.addr)
}

// update persists new reserves, enforcing the 112-bit field width.
func (p *Pool) update(reserveQuote, reserveVariable *big.Int) error {
	if err := pricing.CheckUint112(reserveQuote); err != nil {
		return err
	}
	if err := pricing.CheckUint112(reserveVariable); err != nil {
		return err
	}
	p.reserveQuote = new(big.Int).Set(reserveQuote)
	p.reserveVariable = new(big.Int).Set(reserveVariable)
	return nil
}

// syncFromBalances re-derives reserves from real balances.
func (p *Pool) syncFromBalances() error {
	return p.update(p.availableQuoteBalance(), p.variableBalance())
}

// Sync re-derives reserves directly from current balances, the escape
// hatch for balance drift caused by direct transfers.
func (p *Pool) Sync(caller common.Address) error {
	if err := p.lock(); err != nil {
		return err
	}
	defer p.unlock()

	if err := p.syncFromBalances(); err != nil {
		return err
	}
	p.logger.Debug("pool sync",
		zap.String("pool", p.addr.Hex()),
		zap.String("reserve_quote", p.reserveQuote.String()),
		zap.String("reserve_variable", p.reserveVariable.String()),
	)
	p.record(model.PoolEvent{Type: model.EventSync, Caller: caller.Hex()})
	return nil
}

// WithdrawFees pays out the caller's accrued LP fee share.
func (p *Pool) WithdrawFees(caller, to common.Address) (*big.Int, error) {
	if err := p.lock(); err != nil {
		return nil, err
	}
	defer p.unlock()

	p.settleFees(caller)
	pos := p.position(caller)
	amount := new(big.Int).Set(pos.accrued)
	if amount.Sign() == 0 {
		return nil, ErrNoAccruedFees
	}
	pos.accrued.SetInt64(0)
	p.pendingLpFees.Sub(p.pendingLpFees, amount)
	if err := p.quoteAsset.Transfer(p.addr, to, amount); err != nil {
		return nil, err
	}
	p.record(model.PoolEvent{
		Type:     model.EventFeesWithdrawn,
		Caller:   caller.Hex(),
		To:       to.Hex(),
		QuoteOut: amount.String(),
	})
	return amount, nil
}

// flushProtocolFees forwards the protocol counter to the treasury once it
// exceeds the registry's collectable threshold.
func (p *Pool) flushProtocolFees() error {
	if p.pendingProtocolFees.Cmp(p.registry.MinimumCollectableFees()) <= 0 {
		return nil
	}
	amount := new(big.Int).Set(p.pendingProtocolFees)
	p.pendingProtocolFees.SetInt64(0)
	if err := p.quoteAsset.Transfer(p.addr, p.registry.Treasury(), amount); err != nil {
		return err
	}
	p.logger.Info("protocol fees flushed",
		zap.String("pool", p.addr.Hex()),
		zap.String("amount", amount.String()),
	)
	p.record(model.PoolEvent{
		Type:     model.EventFeesFlushed,
		Caller:   p.addr.Hex(),
		To:       p.registry.Treasury().Hex(),
		QuoteOut: amount.String(),
	})
	return nil
}

func (p *Pool) record(ev model.PoolEvent) {
	p.seq++
	ev.Seq = p.seq
	ev.Pool = p.addr.Hex()
	ev.Timestamp = p.now()
	if p.recorder != nil {
		p.recorder.Record(ev)
	}
}

// Snapshot captures the pool state for persistence.
func (p *Pool) Snapshot() model.PoolSnapshot {
	mode := "amm"
	if p.InPresale() {
		mode = "presale"
	}
	return model.PoolSnapshot{
		Pool:                p.addr.Hex(),
		VariableAsset:       p.variableAddr.Hex(),
		Mode:                mode,
		ReserveQuote:        p.reserveQuote.String(),
		ReserveVariable:     p.reserveVariable.String(),
		TotalSupply:         p.totalSupply.String(),
		PendingLpFees:       p.pendingLpFees.String(),
		PendingProtocolFees: p.pendingProtocolFees.String(),
		FeePerShareStored:   p.acc.PerShareStored().String(),
		ModeDeadline:        p.modeDeadline,
		LastTradeMarker:     p.lastTradeMarker,
		GenesisTime:         p.genesisTime,
		UpdatedAtSeq:        p.seq,
	}
}
