package pool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"launchpool/internal/fees"
	"launchpool/internal/model"
	"launchpool/internal/pricing"
)

// Swap trades against the pool. Exactly one of variableOut/quoteOut must
// be nonzero; the caller transfers the input asset to the pool before
// calling, and the pool measures what actually arrived. A presale buy
// that carries the raised quote past bootstrapQuote converts the pool to
// AMM mode inside the same swap. Every check runs before the first state
// mutation, so a failed swap leaves the pool untouched.
func (p *Pool) Swap(caller common.Address, variableOut, quoteOut *big.Int, to common.Address) error {
	if err := p.lock(); err != nil {
		return err
	}
	defer p.unlock()

	if variableOut == nil {
		variableOut = new(big.Int)
	}
	if quoteOut == nil {
		quoteOut = new(big.Int)
	}
	if variableOut.Sign() == 0 && quoteOut.Sign() == 0 {
		return ErrInsufficientOutput
	}
	if variableOut.Sign() > 0 && quoteOut.Sign() > 0 {
		return ErrMultipleOutputs
	}
	if variableOut.Cmp(p.reserveVariable) > 0 || quoteOut.Cmp(p.reserveQuote) > 0 {
		return ErrInsufficientAmountOut
	}

	isBuy := variableOut.Sign() > 0
	now := p.now()
	marker, err := p.nextTradeMarker(now, isBuy)
	if err != nil {
		return err
	}

	// Inputs arrived before the call; measure them as balance deltas so
	// fee-on-transfer assets settle correctly.
	availQuote := p.availableQuoteBalance()
	varBalance := p.variableBalance()
	quoteIn := new(big.Int).Sub(availQuote, p.reserveQuote)
	if quoteIn.Sign() < 0 {
		quoteIn.SetInt64(0)
	}
	variableIn := new(big.Int).Sub(varBalance, p.reserveVariable)
	if variableIn.Sign() < 0 {
		variableIn.SetInt64(0)
	}
	if isBuy && quoteIn.Sign() == 0 {
		return ErrInsufficientInput
	}
	if !isBuy && variableIn.Sign() == 0 {
		return ErrInsufficientInput
	}

	// The 0.99% fee always comes off the quote leg: the input on buys,
	// the requested output on sells.
	var fee *big.Int
	if isBuy {
		fee = pricing.FeeAmount(quoteIn)
	} else {
		fee = pricing.FeeAmount(quoteOut)
	}
	lpFee, protocolFee := fees.Split(fee)

	// In presale the single LP's fee share stays in the reserve; in AMM
	// mode it leaves the reserve for the per-share accumulator.
	reserveFeeDrain := new(big.Int).Set(protocolFee)
	if !p.InPresale() {
		reserveFeeDrain.Add(reserveFeeDrain, lpFee)
	}
	newReserveQuote := new(big.Int).Sub(availQuote, quoteOut)
	newReserveQuote.Sub(newReserveQuote, reserveFeeDrain)
	newReserveVariable := new(big.Int).Sub(varBalance, variableOut)
	if newReserveQuote.Sign() < 0 {
		return ErrInsufficientAmountOut
	}

	// Crossing uses the same fee-stripped effective-input split the
	// boundary pricing does, so detection and pricing never disagree on
	// inputs near the remaining capacity.
	crossing := p.InPresale() && isBuy && p.curve.CrossesBootstrap(quoteIn, p.reserveQuote)
	if crossing {
		// A crossing trade is priced by the boundary-straddling split
		// instead of a single-regime K check.
		expected, _, err := p.curve.BuyAmountOut(quoteIn, p.reserveQuote, p.reserveVariable)
		if err != nil {
			return err
		}
		if variableOut.Cmp(expected) > 0 {
			return ErrKInvariant
		}
	} else if err := p.checkKInvariant(p.reserveQuote, p.reserveVariable, newReserveQuote, newReserveVariable); err != nil {
		return err
	}
	if err := pricing.CheckUint112(newReserveQuote); err != nil {
		return err
	}
	if err := pricing.CheckUint112(newReserveVariable); err != nil {
		return err
	}
	if crossing {
		// The transition re-anchors supply to sqrt(reserve product); if
		// that burn cannot be covered, abort before paying anything out.
		target := pricing.Sqrt(new(big.Int).Mul(newReserveQuote, newReserveVariable))
		if err := p.checkRemintFeasible(target); err != nil {
			return err
		}
	}

	// Presale-buyer resale lock: before the vesting deadline only
	// recorded presale buyers may sell. The sentinel deadline keeps this
	// active for the whole presale.
	vesting := now < p.modeDeadline
	if vesting && !isBuy {
		bal, ok := p.presaleBalances[caller]
		if !ok || bal.Cmp(variableIn) < 0 {
			return ErrInsufficientPresaleBalance
		}
	}

	// All checks passed; commit.
	if isBuy {
		if err := p.variableAsset.Transfer(p.addr, to, variableOut); err != nil {
			return err
		}
	} else {
		if err := p.quoteAsset.Transfer(p.addr, to, quoteOut); err != nil {
			return err
		}
	}

	p.pendingProtocolFees.Add(p.pendingProtocolFees, protocolFee)
	if !p.InPresale() {
		p.pendingLpFees.Add(p.pendingLpFees, lpFee)
		p.acc.Accrue(lpFee, p.totalSupply)
	}
	if vesting {
		if isBuy {
			bal, ok := p.presaleBalances[to]
			if !ok {
				bal = new(big.Int)
				p.presaleBalances[to] = bal
			}
			bal.Add(bal, variableOut)
		} else {
			p.presaleBalances[caller].Sub(p.presaleBalances[caller], variableIn)
		}
	}
	p.lastTradeMarker = marker
	if crossing {
		if err := p.transitionToAMM(newReserveQuote, newReserveVariable, now); err != nil {
			return err
		}
	}
	if err := p.update(newReserveQuote, newReserveVariable); err != nil {
		return err
	}
	if err := p.flushProtocolFees(); err != nil {
		return err
	}

	p.logger.Debug("swap",
		zap.String("pool", p.addr.Hex()),
		zap.Bool("buy", isBuy),
		zap.String("quote_in", quoteIn.String()),
		zap.String("variable_in", variableIn.String()),
		zap.String("quote_out", quoteOut.String()),
		zap.String("variable_out", variableOut.String()),
		zap.Bool("crossed", crossing),
	)
	p.record(model.PoolEvent{
		Type:        model.EventSwap,
		Caller:      caller.Hex(),
		To:          to.Hex(),
		QuoteIn:     quoteIn.String(),
		VariableIn:  variableIn.String(),
		QuoteOut:    quoteOut.String(),
		VariableOut: variableOut.String(),
	})
	return nil
}

// nextTradeMarker enforces the anti-sandwich direction lock and returns
// the marker value to store on commit. The marker holds the bucket start
// after the first trade of a time bucket, and bucket+1 (buy) or bucket+2
// (sell) after the second; later trades in the bucket must match the
// locked direction. Heuristic only: buckets below the environment's
// serialization granularity defeat it.
func (p *Pool) nextTradeMarker(now uint64, isBuy bool) (uint32, error) {
	bucket := uint32(now - now%tradeMarkerBucket)
	switch {
	case p.lastTradeMarker < bucket:
		return bucket, nil
	case p.lastTradeMarker == bucket:
		if isBuy {
			return bucket + 1, nil
		}
		return bucket + 2, nil
	case p.lastTradeMarker == bucket+1:
		if !isBuy {
			return 0, ErrSellDirectionLocked
		}
	case p.lastTradeMarker == bucket+2:
		if isBuy {
			return 0, ErrBuyDirectionLocked
		}
	}
	return p.lastTradeMarker, nil
}

// checkKInvariant requires the (virtual-adjusted) reserve product to not
// decrease across a non-crossing trade.
func (p *Pool) checkKInvariant(prevQuote, prevVariable, newQuote, newVariable *big.Int) error {
	if p.InPresale() {
		offset := p.curve.VirtualVariableOffset()
		before := new(big.Int).Mul(
			new(big.Int).Add(prevQuote, p.params.VirtualQuote),
			new(big.Int).Add(prevVariable, offset),
		)
		after := new(big.Int).Mul(
			new(big.Int).Add(newQuote, p.params.VirtualQuote),
			new(big.Int).Add(newVariable, offset),
		)
		if after.Cmp(before) < 0 {
			return ErrKInvariant
		}
		return nil
	}
	before := new(big.Int).Mul(prevQuote, prevVariable)
	after := new(big.Int).Mul(newQuote, newVariable)
	if after.Cmp(before) < 0 {
		return ErrKInvariant
	}
	return nil
}

// transitionToAMM finalizes the one-way mode switch: the first LP's
// position is re-minted (or trimmed) so total supply matches the real
// sqrt(reserve product), and the presale-buyer vesting clock starts.
func (p *Pool) transitionToAMM(reserveQuote, reserveVariable *big.Int, now uint64) error {
	target := pricing.Sqrt(new(big.Int).Mul(reserveQuote, reserveVariable))
	if err := p.remintFirstLP(target); err != nil {
		return err
	}
	p.modeDeadline = now + vestingDurationSeconds
	p.logger.Info("presale complete, pool entered amm mode",
		zap.String("pool", p.addr.Hex()),
		zap.String("reserve_quote", reserveQuote.String()),
		zap.String("reserve_variable", reserveVariable.String()),
		zap.Uint64("vesting_end", p.modeDeadline),
	)
	p.record(model.PoolEvent{
		Type:      model.EventTransition,
		Caller:    p.addr.Hex(),
		Liquidity: target.String(),
	})
	return nil
}

// checkRemintFeasible verifies the transition's supply re-anchor can
// burn enough shares. Burnable supply is the first LP's balance plus
// their shares parked at the pool by earlier withdrawal steps; the
// locked minimum never burns.
func (p *Pool) checkRemintFeasible(target *big.Int) error {
	deficit := new(big.Int).Sub(p.totalSupply, target)
	if deficit.Sign() <= 0 {
		return nil
	}
	burnable := new(big.Int).Add(p.BalanceOfShares(p.firstLP.Holder), p.BalanceOfShares(p.addr))
	if deficit.Cmp(burnable) > 0 {
		return ErrInsufficientShares
	}
	return nil
}

// remintFirstLP adjusts the first LP's position so total supply equals
// target: minting to the first LP, or burning from their balance and,
// once that is exhausted, from their shares parked at the pool by
// earlier withdrawal steps. The fractional withdrawal schedule then
// restarts over the new balance.
func (p *Pool) remintFirstLP(target *big.Int) error {
	diff := new(big.Int).Sub(target, p.totalSupply)
	holder := p.firstLP.Holder
	if diff.Sign() > 0 {
		p.mintShares(holder, diff)
	} else if diff.Sign() < 0 {
		burn := diff.Neg(diff)
		fromHolder := new(big.Int).Set(burn)
		if holderBal := p.BalanceOfShares(holder); fromHolder.Cmp(holderBal) > 0 {
			fromHolder.Set(holderBal)
		}
		if fromHolder.Sign() > 0 {
			if err := p.burnShares(holder, fromHolder); err != nil {
				return err
			}
		}
		if rest := new(big.Int).Sub(burn, fromHolder); rest.Sign() > 0 {
			if err := p.burnShares(p.addr, rest); err != nil {
				return err
			}
		}
	}
	p.firstLP.NoteRemint(p.BalanceOfShares(holder))
	return nil
}
