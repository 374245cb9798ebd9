// Package guard tracks the restrictions placed on a pool's first
// liquidity provider: a four-step fractional exit schedule with a
// cooldown between steps, and the takeover challenge that can replace
// the first provider while the pool is still in presale.
package guard

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// WithdrawalSteps is the number of fractional withdrawals the first
	// provider gets; the last one must clear the whole remaining balance.
	WithdrawalSteps = 4

	// CooldownSeconds is the minimum spacing between withdrawals.
	CooldownSeconds = 7 * 24 * 60 * 60
)

var (
	ErrNotInitialLP        = errors.New("guard: caller is not the initial liquidity provider")
	ErrCooldownActive      = errors.New("guard: withdrawal cooldown active")
	ErrNoWithdrawalsLeft   = errors.New("guard: no withdrawal steps left")
	ErrExceedsFraction     = errors.New("guard: amount exceeds fractional withdrawal limit")
	ErrMustClearRemainder  = errors.New("guard: final withdrawal must clear the entire balance")
	ErrTakeoverUnderfunded = errors.New("guard: takeover requires at least 110% of incumbent requirement")
	ErrTakeoverQuoteShort  = errors.New("guard: takeover quote below current reserve")
)

var (
	takeoverNum   = big.NewInt(110)
	takeoverDenom = big.NewInt(100)
	penaltyNum    = big.NewInt(5)
	penaltyDenom  = big.NewInt(100)
	stepCount     = big.NewInt(WithdrawalSteps)
)

// Record is the first liquidity provider's ledger.
type Record struct {
	Holder                  common.Address
	FractionalBalance       *big.Int
	WithdrawalsLeft         int
	LastWithdrawTime        uint64
	InitialQuoteContributed *big.Int
}

// NewRecord starts a fresh schedule over the provider's full post-mint
// balance: a quarter per step.
func NewRecord(holder common.Address, balance, quoteContributed *big.Int) *Record {
	return &Record{
		Holder:                  holder,
		FractionalBalance:       new(big.Int).Quo(balance, stepCount),
		WithdrawalsLeft:         WithdrawalSteps,
		InitialQuoteContributed: new(big.Int).Set(quoteContributed),
	}
}

// NoteRemint resets the schedule after a full re-mint of the position
// (presale transition or takeover): fraction becomes balance/4 again.
func (r *Record) NoteRemint(balance *big.Int) {
	r.FractionalBalance = new(big.Int).Quo(balance, stepCount)
	r.WithdrawalsLeft = WithdrawalSteps
}

// NoteAdded spreads newly received position value over the remaining
// steps, a weighted average of the old cap and the addition.
func (r *Record) NoteAdded(added *big.Int) {
	if r.WithdrawalsLeft <= 0 {
		return
	}
	extra := new(big.Int).Quo(added, big.NewInt(int64(r.WithdrawalsLeft)))
	r.FractionalBalance = new(big.Int).Add(r.FractionalBalance, extra)
}

// AuthorizeWithdrawal validates one step of the exit schedule and, on
// success, consumes it. remaining is the provider's balance before the
// withdrawal.
func (r *Record) AuthorizeWithdrawal(now uint64, amount, remaining *big.Int) error {
	if r.WithdrawalsLeft <= 0 {
		return ErrNoWithdrawalsLeft
	}
	if r.LastWithdrawTime != 0 && now < r.LastWithdrawTime+CooldownSeconds {
		return ErrCooldownActive
	}
	if r.WithdrawalsLeft == 1 {
		if amount.Cmp(remaining) != 0 {
			return ErrMustClearRemainder
		}
	} else if amount.Cmp(r.FractionalBalance) > 0 {
		return ErrExceedsFraction
	}
	r.WithdrawalsLeft--
	r.LastWithdrawTime = now
	return nil
}

// ValidateTakeover checks a challenger's offer: the combined token
// requirement must be at least 110% of the incumbent's, and the quote
// supplied must cover the current reserve. Exactly 110% passes.
func ValidateTakeover(incumbentRequirement, challengerRequirement, reserveQuote, offeredQuote *big.Int) error {
	threshold := new(big.Int).Mul(incumbentRequirement, takeoverNum)
	scaled := new(big.Int).Mul(challengerRequirement, takeoverDenom)
	if scaled.Cmp(threshold) < 0 {
		return ErrTakeoverUnderfunded
	}
	if offeredQuote.Cmp(reserveQuote) < 0 {
		return ErrTakeoverQuoteShort
	}
	return nil
}

// Penalty returns the 5% haircut on the incumbent's refunded quote.
func Penalty(contributed *big.Int) *big.Int {
	p := new(big.Int).Mul(contributed, penaltyNum)
	return p.Quo(p, penaltyDenom)
}
