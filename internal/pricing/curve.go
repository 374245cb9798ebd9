package pricing

import "math/big"

// Curve carries the immutable launch parameters that shape the presale
// bonding curve and its handoff into constant-product pricing.
//
// The curve is a constant product k = virtualQuote*initialShareMatch run on
// virtual reserves: quote side offset by virtualQuote, variable side offset
// so that when exactly bootstrapQuote has been raised the spot price equals
// the price of the post-transition AMM leg (bootstrapQuote quote against
// the precomputed carryover variable amount).
type Curve struct {
	VirtualQuote      *big.Int
	BootstrapQuote    *big.Int
	InitialShareMatch *big.Int
}

// K returns the curve constant virtualQuote*initialShareMatch.
func (c Curve) K() *big.Int {
	return new(big.Int).Mul(c.VirtualQuote, c.InitialShareMatch)
}

func (c Curve) endDivisor() *big.Int {
	sum := new(big.Int).Add(c.VirtualQuote, c.BootstrapQuote)
	return sum.Mul(sum, sum)
}

// PresaleVariableAllocation returns the variable-asset amount sold through
// the whole presale: initialShareMatch - k/(virtualQuote+bootstrapQuote).
func (c Curve) PresaleVariableAllocation() *big.Int {
	end := new(big.Int).Add(c.VirtualQuote, c.BootstrapQuote)
	end.Quo(c.K(), end)
	return end.Sub(new(big.Int).Set(c.InitialShareMatch), end)
}

// BootstrapVariableForAMM returns the variable-asset amount reserved for
// the post-transition AMM leg: bootstrapQuote*k/(virtualQuote+bootstrapQuote)^2.
func (c Curve) BootstrapVariableForAMM() *big.Int {
	out := new(big.Int).Mul(c.BootstrapQuote, c.K())
	return out.Quo(out, c.endDivisor())
}

// VirtualVariableOffset returns the non-real variable reserve added during
// presale: virtualQuote*k/(virtualQuote+bootstrapQuote)^2.
func (c Curve) VirtualVariableOffset() *big.Int {
	out := new(big.Int).Mul(c.VirtualQuote, c.K())
	return out.Quo(out, c.endDivisor())
}

// TokenRequirement returns the variable-asset deposit the first liquidity
// provider must supply: presale allocation plus the AMM carryover.
func (c Curve) TokenRequirement() *big.Int {
	return new(big.Int).Add(c.PresaleVariableAllocation(), c.BootstrapVariableForAMM())
}

// PresaleAmountOut prices a presale buy against virtual reserves. The fee
// is removed from the quote input first, as in the AMM case.
func (c Curve) PresaleAmountOut(quoteIn, reserveQuote, reserveVariable *big.Int) (*big.Int, error) {
	vq := new(big.Int).Add(reserveQuote, c.VirtualQuote)
	vv := new(big.Int).Add(reserveVariable, c.VirtualVariableOffset())
	return AmountOutQuoteToVariable(quoteIn, vq, vv)
}

// PresaleSellAmountOut prices a presale sell-back against virtual
// reserves, fee removed from the quote output.
func (c Curve) PresaleSellAmountOut(variableIn, reserveQuote, reserveVariable *big.Int) (*big.Int, error) {
	vq := new(big.Int).Add(reserveQuote, c.VirtualQuote)
	vv := new(big.Int).Add(reserveVariable, c.VirtualVariableOffset())
	return AmountOutVariableToQuote(variableIn, vq, vv)
}

// PresaleAmountIn returns the quote input, fee included, that buys exactly
// variableOut from the presale curve.
func (c Curve) PresaleAmountIn(variableOut, reserveQuote, reserveVariable *big.Int) (*big.Int, error) {
	vq := new(big.Int).Add(reserveQuote, c.VirtualQuote)
	vv := new(big.Int).Add(reserveVariable, c.VirtualVariableOffset())
	return AmountInQuoteForVariableOut(variableOut, vq, vv)
}

// CrossesBootstrap reports whether a quote input, fee stripped, meets or
// exceeds the remaining presale capacity. This is the same split
// BuyAmountOut prices on, so callers deciding a regime change agree with
// the pricing of the trade.
func (c Curve) CrossesBootstrap(quoteIn, reserveQuote *big.Int) bool {
	effIn := new(big.Int).Mul(quoteIn, feeKeep)
	effIn.Quo(effIn, feeDenom)
	capacity := new(big.Int).Sub(c.BootstrapQuote, reserveQuote)
	return effIn.Cmp(capacity) >= 0
}

// BuyAmountOut prices a quote->variable trade that may straddle the
// bootstrap boundary. The effective input (fee already stripped from the
// quote leg) first consumes the remaining presale capacity, and any
// remainder is priced against the post-transition AMM reserves. crossed
// reports whether the trade carries the pool past bootstrapQuote.
func (c Curve) BuyAmountOut(quoteIn, reserveQuote, reserveVariable *big.Int) (out *big.Int, crossed bool, err error) {
	if quoteIn.Sign() == 0 {
		return nil, false, ErrInsufficientInput
	}
	effIn := new(big.Int).Mul(quoteIn, feeKeep)
	effIn.Quo(effIn, feeDenom)
	capacity := new(big.Int).Sub(c.BootstrapQuote, reserveQuote)
	if capacity.Sign() < 0 {
		capacity.SetInt64(0)
	}

	vq := new(big.Int).Add(reserveQuote, c.VirtualQuote)
	vv := new(big.Int).Add(reserveVariable, c.VirtualVariableOffset())

	if effIn.Cmp(capacity) <= 0 {
		numerator := new(big.Int).Mul(effIn, vv)
		denominator := new(big.Int).Add(vq, effIn)
		return numerator.Quo(numerator, denominator), effIn.Cmp(capacity) == 0, nil
	}

	presaleOut := new(big.Int).Mul(capacity, vv)
	presaleOut.Quo(presaleOut, new(big.Int).Add(vq, capacity))

	ammIn := new(big.Int).Sub(effIn, capacity)
	ammVariable := c.BootstrapVariableForAMM()
	ammOut := new(big.Int).Mul(ammIn, ammVariable)
	ammOut.Quo(ammOut, new(big.Int).Add(c.BootstrapQuote, ammIn))

	return presaleOut.Add(presaleOut, ammOut), true, nil
}

// BuyAmountIn is the inverse of BuyAmountOut: the quote input, fee
// included, needed to receive exactly variableOut across the boundary.
func (c Curve) BuyAmountIn(variableOut, reserveQuote, reserveVariable *big.Int) (in *big.Int, crossed bool, err error) {
	if variableOut.Sign() == 0 {
		return nil, false, ErrInsufficientOutput
	}
	capacity := new(big.Int).Sub(c.BootstrapQuote, reserveQuote)
	if capacity.Sign() < 0 {
		capacity.SetInt64(0)
	}

	vq := new(big.Int).Add(reserveQuote, c.VirtualQuote)
	vv := new(big.Int).Add(reserveVariable, c.VirtualVariableOffset())

	maxPresaleOut := new(big.Int).Mul(capacity, vv)
	maxPresaleOut.Quo(maxPresaleOut, new(big.Int).Add(vq, capacity))

	if variableOut.Cmp(maxPresaleOut) <= 0 {
		if variableOut.Cmp(vv) >= 0 {
			return nil, false, ErrInsufficientLiquidity
		}
		effIn := new(big.Int).Mul(vq, variableOut)
		effIn.Quo(effIn, new(big.Int).Sub(vv, variableOut))
		effIn.Add(effIn, one)
		return grossUp(effIn), variableOut.Cmp(maxPresaleOut) == 0, nil
	}

	ammOut := new(big.Int).Sub(variableOut, maxPresaleOut)
	ammVariable := c.BootstrapVariableForAMM()
	if ammOut.Cmp(ammVariable) >= 0 {
		return nil, false, ErrInsufficientLiquidity
	}
	ammIn := new(big.Int).Mul(c.BootstrapQuote, ammOut)
	ammIn.Quo(ammIn, new(big.Int).Sub(ammVariable, ammOut))
	ammIn.Add(ammIn, one)

	effIn := new(big.Int).Add(capacity, ammIn)
	return grossUp(effIn), true, nil
}

// grossUp converts an effective (post-fee) quote amount back to the
// fee-inclusive input the caller must supply.
func grossUp(effIn *big.Int) *big.Int {
	in := new(big.Int).Mul(effIn, feeDenom)
	in.Quo(in, feeKeep)
	return in.Add(in, one)
}
