package pool

import "errors"

// Every operation aborts with exactly one of these; callers distinguish
// economic rejections from state and authorization failures via errors.Is.
var (
	// validation
	ErrInvalidLaunchParams = errors.New("pool: launch parameters must be nonzero 112-bit values")
	ErrInsufficientOutput  = errors.New("pool: insufficient output amount")
	ErrMultipleOutputs     = errors.New("pool: only one output amount may be nonzero")
	ErrInsufficientInput   = errors.New("pool: insufficient input amount")

	// state
	ErrPresalePeriod    = errors.New("pool: operation not available during presale")
	ErrNotPresalePeriod = errors.New("pool: operation only available during presale")
	ErrReentrancy       = errors.New("pool: reentrant call")

	// economic invariants
	ErrKInvariant                   = errors.New("pool: constant-product invariant violated")
	ErrInsufficientAmountOut        = errors.New("pool: requested output exceeds reserves")
	ErrInsufficientTokenAmount      = errors.New("pool: variable-asset deposit below requirement")
	ErrSupplyMoreThanBootstrapQuote = errors.New("pool: quote deposit exceeds bootstrap quote")
	ErrInsufficientLiquidityMinted  = errors.New("pool: insufficient liquidity minted")
	ErrInsufficientLiquidityBurned  = errors.New("pool: insufficient liquidity burned")
	ErrInsufficientPresaleBalance   = errors.New("pool: sale exceeds recorded presale balance")
	ErrInsufficientShares           = errors.New("pool: insufficient share balance")
	ErrNoAccruedFees                = errors.New("pool: no accrued fees to withdraw")

	// authorization
	ErrFirstLPTransferRestricted = errors.New("pool: first LP shares may only move into the pool")

	// timing
	ErrMaturityNotReached  = errors.New("pool: maturity window not yet reached")
	ErrSharesLocked        = errors.New("pool: shares are still lock-vested")
	ErrBuyDirectionLocked  = errors.New("pool: buy rejected, trade bucket locked to sells")
	ErrSellDirectionLocked = errors.New("pool: sell rejected, trade bucket locked to buys")
)
