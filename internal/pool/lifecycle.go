package pool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"launchpool/internal/guard"
	"launchpool/internal/model"
	"launchpool/internal/pricing"
)

// Mint turns assets already transferred to the pool into LP shares for
// `to`. The first mint fixes the pool's fate: a quote deposit below
// bootstrapQuote leaves the pool in presale (shares priced off the
// virtual parameters), an exact bootstrapQuote deposit skips presale
// entirely. Further mints are only possible once the pool is in AMM mode.
func (p *Pool) Mint(caller, to common.Address) (*big.Int, error) {
	if err := p.lock(); err != nil {
		return nil, err
	}
	defer p.unlock()

	availQuote := p.availableQuoteBalance()
	varBalance := p.variableBalance()
	quoteIn := new(big.Int).Sub(availQuote, p.reserveQuote)
	variableIn := new(big.Int).Sub(varBalance, p.reserveVariable)
	if quoteIn.Sign() < 0 {
		quoteIn.SetInt64(0)
	}
	if variableIn.Sign() < 0 {
		variableIn.SetInt64(0)
	}

	var liquidity *big.Int
	now := p.now()

	if p.totalSupply.Sign() == 0 {
		if variableIn.Cmp(p.curve.TokenRequirement()) < 0 {
			return nil, ErrInsufficientTokenAmount
		}
		switch quoteIn.Cmp(p.params.BootstrapQuote) {
		case 1:
			return nil, ErrSupplyMoreThanBootstrapQuote
		case 0:
			// Fully funded up front: no presale, straight to AMM.
			liquidity = pricing.Sqrt(new(big.Int).Mul(quoteIn, variableIn))
			p.modeDeadline = now + vestingDurationSeconds
		default:
			liquidity = pricing.Sqrt(new(big.Int).Mul(p.params.VirtualQuote, p.params.InitialShareMatch))
		}
		liquidity.Sub(liquidity, big.NewInt(MinLiquidity))
		if liquidity.Sign() <= 0 {
			return nil, ErrInsufficientLiquidityMinted
		}
		p.mintLockedMinimum()
		p.mintShares(to, liquidity)
		p.firstLP = guard.NewRecord(to, liquidity, quoteIn)
	} else {
		if p.InPresale() {
			return nil, ErrPresalePeriod
		}
		byQuote := new(big.Int).Mul(quoteIn, p.totalSupply)
		byQuote.Quo(byQuote, p.reserveQuote)
		byVariable := new(big.Int).Mul(variableIn, p.totalSupply)
		byVariable.Quo(byVariable, p.reserveVariable)
		liquidity = byQuote
		if byVariable.Cmp(liquidity) < 0 {
			liquidity = byVariable
		}
		if liquidity.Sign() == 0 {
			return nil, ErrInsufficientLiquidityMinted
		}
		p.mintShares(to, liquidity)
		if p.firstLP != nil && to == p.firstLP.Holder {
			p.firstLP.NoteAdded(liquidity)
		}
	}

	if err := p.update(availQuote, varBalance); err != nil {
		return nil, err
	}
	p.logger.Debug("mint",
		zap.String("pool", p.addr.Hex()),
		zap.String("to", to.Hex()),
		zap.String("quote_in", quoteIn.String()),
		zap.String("variable_in", variableIn.String()),
		zap.String("liquidity", liquidity.String()),
	)
	p.record(model.PoolEvent{
		Type:       model.EventMint,
		Caller:     caller.Hex(),
		To:         to.Hex(),
		QuoteIn:    quoteIn.String(),
		VariableIn: variableIn.String(),
		Liquidity:  liquidity.String(),
	})
	return liquidity, nil
}

// Burn redeems the LP shares previously transferred to the pool's own
// address for the proportional slice of both reserves. AMM mode only.
func (p *Pool) Burn(caller, to common.Address) (*big.Int, *big.Int, error) {
	if err := p.lock(); err != nil {
		return nil, nil, err
	}
	defer p.unlock()

	if p.InPresale() {
		return nil, nil, ErrPresalePeriod
	}
	liquidity := p.BalanceOfShares(p.addr)
	if liquidity.Sign() == 0 {
		return nil, nil, ErrInsufficientLiquidityBurned
	}

	availQuote := p.availableQuoteBalance()
	varBalance := p.variableBalance()
	quoteOut := new(big.Int).Mul(liquidity, availQuote)
	quoteOut.Quo(quoteOut, p.totalSupply)
	variableOut := new(big.Int).Mul(liquidity, varBalance)
	variableOut.Quo(variableOut, p.totalSupply)
	if quoteOut.Sign() == 0 || variableOut.Sign() == 0 {
		return nil, nil, ErrInsufficientLiquidityBurned
	}

	// Fees that accrued to the shares while parked at the pool belong to
	// the burner, not the pool.
	p.settleFees(p.addr)
	poolPos := p.position(p.addr)
	if poolPos.accrued.Sign() > 0 {
		quoteOut.Add(quoteOut, poolPos.accrued)
		p.pendingLpFees.Sub(p.pendingLpFees, poolPos.accrued)
		poolPos.accrued.SetInt64(0)
	}

	if err := p.burnShares(p.addr, liquidity); err != nil {
		return nil, nil, err
	}
	if err := p.quoteAsset.Transfer(p.addr, to, quoteOut); err != nil {
		return nil, nil, err
	}
	if err := p.variableAsset.Transfer(p.addr, to, variableOut); err != nil {
		return nil, nil, err
	}
	if err := p.syncFromBalances(); err != nil {
		return nil, nil, err
	}

	p.logger.Debug("burn",
		zap.String("pool", p.addr.Hex()),
		zap.String("to", to.Hex()),
		zap.String("liquidity", liquidity.String()),
		zap.String("quote_out", quoteOut.String()),
		zap.String("variable_out", variableOut.String()),
	)
	p.record(model.PoolEvent{
		Type:        model.EventBurn,
		Caller:      caller.Hex(),
		To:          to.Hex(),
		QuoteOut:    quoteOut.String(),
		VariableOut: variableOut.String(),
		Liquidity:   liquidity.String(),
	})
	return quoteOut, variableOut, nil
}

// WithdrawExcessToken lets the first LP wind down a presale that never
// reached bootstrapQuote: after the maturity window, whatever quote was
// actually raised becomes the new bootstrapQuote, the surplus variable
// asset goes back to the first LP, and the pool converts to AMM mode
// with the reduced parameters. A pool that raised nothing is deleted
// from the registry instead.
func (p *Pool) WithdrawExcessToken(caller common.Address) error {
	if err := p.lock(); err != nil {
		return err
	}
	defer p.unlock()

	if p.firstLP == nil || caller != p.firstLP.Holder {
		return guard.ErrNotInitialLP
	}
	if !p.InPresale() {
		return ErrNotPresalePeriod
	}
	now := p.now()
	if now < p.genesisTime+maturityWindowSeconds {
		return ErrMaturityNotReached
	}

	raised := new(big.Int).Set(p.reserveQuote)
	if raised.Sign() == 0 {
		surplus := p.variableBalance()
		if surplus.Sign() > 0 {
			if err := p.variableAsset.Transfer(p.addr, caller, surplus); err != nil {
				return err
			}
		}
		if err := p.registry.RemovePool(p.addr, p.variableAddr); err != nil {
			return err
		}
		p.reserveQuote.SetInt64(0)
		p.reserveVariable.SetInt64(0)
		p.logger.Info("empty presale dissolved", zap.String("pool", p.addr.Hex()))
		p.record(model.PoolEvent{
			Type:        model.EventExcessRecovered,
			Caller:      caller.Hex(),
			VariableOut: surplus.String(),
		})
		return nil
	}

	newParams := p.params
	newParams.BootstrapQuote = raised
	newCurve := newParams.curve()
	carry := newCurve.BootstrapVariableForAMM()
	surplus := new(big.Int).Sub(p.variableBalance(), carry)
	if surplus.Sign() < 0 {
		surplus.SetInt64(0)
	}
	newReserveQuote := p.availableQuoteBalance()
	newReserveVariable := new(big.Int).Sub(p.variableBalance(), surplus)
	target := pricing.Sqrt(new(big.Int).Mul(newReserveQuote, newReserveVariable))
	if err := p.checkRemintFeasible(target); err != nil {
		return err
	}

	p.params = newParams
	p.curve = newCurve
	if surplus.Sign() > 0 {
		if err := p.variableAsset.Transfer(p.addr, caller, surplus); err != nil {
			return err
		}
	}
	if err := p.transitionToAMM(newReserveQuote, newReserveVariable, now); err != nil {
		return err
	}
	if err := p.update(newReserveQuote, newReserveVariable); err != nil {
		return err
	}

	p.logger.Info("excess token recovered",
		zap.String("pool", p.addr.Hex()),
		zap.String("new_bootstrap_quote", raised.String()),
		zap.String("surplus_returned", surplus.String()),
	)
	p.record(model.PoolEvent{
		Type:        model.EventExcessRecovered,
		Caller:      caller.Hex(),
		VariableOut: surplus.String(),
	})
	return nil
}

// TakeOverPool replaces the first LP with a challenger who deposits at
// least 110% of the incumbent's combined token requirement and quote
// covering the current reserve, both measured as balance deltas. The
// incumbent is refunded their quote minus a 5% penalty (sent to the
// treasury) plus their token contribution; their shares are burned and
// fresh shares are minted to the challenger under the new parameters.
func (p *Pool) TakeOverPool(challenger common.Address, newParams LaunchParams) error {
	if err := p.lock(); err != nil {
		return err
	}
	defer p.unlock()

	if !p.InPresale() {
		return ErrNotPresalePeriod
	}
	if p.firstLP == nil {
		return guard.ErrNotInitialLP
	}
	if err := newParams.Validate(); err != nil {
		return err
	}

	newCurve := newParams.curve()
	incumbentReq := p.curve.TokenRequirement()
	challengerReq := newCurve.TokenRequirement()

	availQuote := p.availableQuoteBalance()
	varBalance := p.variableBalance()
	quoteIn := new(big.Int).Sub(availQuote, p.reserveQuote)
	variableIn := new(big.Int).Sub(varBalance, p.reserveVariable)
	if variableIn.Cmp(challengerReq) < 0 {
		return ErrInsufficientTokenAmount
	}
	if err := guard.ValidateTakeover(incumbentReq, challengerReq, p.reserveQuote, quoteIn); err != nil {
		return err
	}

	incumbent := p.firstLP.Holder
	refundQuote := new(big.Int).Set(p.firstLP.InitialQuoteContributed)
	penalty := guard.Penalty(refundQuote)
	refundQuote.Sub(refundQuote, penalty)

	// The incumbent's token refund cannot dip into the challenger's
	// deposit; presale sales may have reduced what is left of it.
	refundTokens := new(big.Int).Sub(varBalance, challengerReq)
	if refundTokens.Cmp(incumbentReq) > 0 {
		refundTokens.Set(incumbentReq)
	}
	if refundTokens.Sign() < 0 {
		refundTokens.SetInt64(0)
	}

	if refundQuote.Sign() > 0 {
		if err := p.quoteAsset.Transfer(p.addr, incumbent, refundQuote); err != nil {
			return err
		}
	}
	if penalty.Sign() > 0 {
		if err := p.quoteAsset.Transfer(p.addr, p.registry.Treasury(), penalty); err != nil {
			return err
		}
	}
	if refundTokens.Sign() > 0 {
		if err := p.variableAsset.Transfer(p.addr, incumbent, refundTokens); err != nil {
			return err
		}
	}

	incumbentShares := p.BalanceOfShares(incumbent)
	if incumbentShares.Sign() > 0 {
		if err := p.burnShares(incumbent, incumbentShares); err != nil {
			return err
		}
	}

	p.params = newParams
	p.curve = newCurve
	liquidity := pricing.Sqrt(new(big.Int).Mul(newParams.VirtualQuote, newParams.InitialShareMatch))
	liquidity.Sub(liquidity, big.NewInt(MinLiquidity))
	if liquidity.Sign() <= 0 {
		return ErrInsufficientLiquidityMinted
	}
	p.mintShares(challenger, liquidity)
	p.firstLP = guard.NewRecord(challenger, liquidity, quoteIn)

	if err := p.syncFromBalances(); err != nil {
		return err
	}

	p.logger.Info("pool taken over",
		zap.String("pool", p.addr.Hex()),
		zap.String("incumbent", incumbent.Hex()),
		zap.String("challenger", challenger.Hex()),
		zap.String("quote_in", quoteIn.String()),
		zap.String("variable_in", variableIn.String()),
	)
	p.record(model.PoolEvent{
		Type:       model.EventTakeover,
		Caller:     challenger.Hex(),
		To:         incumbent.Hex(),
		QuoteIn:    quoteIn.String(),
		VariableIn: variableIn.String(),
		Liquidity:  liquidity.String(),
	})
	return nil
}
