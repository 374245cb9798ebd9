package pool

import (
	"errors"
	"math/big"
	"testing"

	"launchpool/internal/guard"
	"launchpool/internal/pricing"
)

func TestWithdrawExcessBeforeMaturity(t *testing.T) {
	e := newEnv(t, defaultParams())
	e.initPresale(alice)
	e.clock += maturityWindowSeconds - 1

	if err := e.pool.WithdrawExcessToken(alice); !errors.Is(err, ErrMaturityNotReached) {
		t.Fatalf("expected ErrMaturityNotReached, got %v", err)
	}
}

func TestWithdrawExcessNotFirstLP(t *testing.T) {
	e := newEnv(t, defaultParams())
	e.initPresale(alice)
	e.clock += maturityWindowSeconds

	if err := e.pool.WithdrawExcessToken(bob); !errors.Is(err, guard.ErrNotInitialLP) {
		t.Fatalf("expected ErrNotInitialLP, got %v", err)
	}
}

func TestWithdrawExcessAfterTransition(t *testing.T) {
	e := newEnv(t, defaultParams())
	e.initAMM(alice)
	e.clock += maturityWindowSeconds

	if err := e.pool.WithdrawExcessToken(alice); !errors.Is(err, ErrNotPresalePeriod) {
		t.Fatalf("expected ErrNotPresalePeriod, got %v", err)
	}
}

func TestWithdrawExcessZeroRaise(t *testing.T) {
	e := newEnv(t, defaultParams())
	e.initPresale(alice)
	e.clock += maturityWindowSeconds

	if err := e.pool.WithdrawExcessToken(alice); err != nil {
		t.Fatalf("withdraw excess: %v", err)
	}

	// Nothing raised: the whole deposit comes back and the pool is
	// deleted from the registry.
	if got := e.vari.BalanceOf(alice); got.Cmp(big.NewInt(750_000_000)) != 0 {
		t.Fatalf("returned deposit: got %s, want 750000000", got)
	}
	if !e.reg.removed {
		t.Fatalf("registry entry should be removed")
	}
	rq, rv := e.pool.Reserves()
	if rq.Sign() != 0 || rv.Sign() != 0 {
		t.Fatalf("reserves should be zeroed, got %s/%s", rq, rv)
	}
}

func TestWithdrawExcessPartialRaise(t *testing.T) {
	e := newEnv(t, defaultParams())
	e.initPresale(alice)
	e.clock += 120

	// A single buy raises part of the bootstrap target.
	quoteIn := big.NewInt(5_000_000)
	e.payQuote(bob, quoteIn.Int64())
	rq, rv := e.pool.Reserves()
	bought, err := e.pool.Curve().PresaleAmountOut(quoteIn, rq, rv)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if err := e.pool.Swap(bob, bought, nil, bob); err != nil {
		t.Fatalf("buy: %v", err)
	}

	e.clock += maturityWindowSeconds
	raised, varBefore := e.pool.Reserves()
	if err := e.pool.WithdrawExcessToken(alice); err != nil {
		t.Fatalf("withdraw excess: %v", err)
	}

	// The raise becomes the new bootstrap target and the pool converts.
	if e.pool.InPresale() {
		t.Fatalf("pool should be in AMM mode")
	}
	if e.pool.Params().BootstrapQuote.Cmp(raised) != 0 {
		t.Fatalf("new bootstrap quote: got %s, want %s", e.pool.Params().BootstrapQuote, raised)
	}

	// The surplus over the recomputed AMM carryover went back to alice.
	rqAfter, rvAfter := e.pool.Reserves()
	surplus := new(big.Int).Sub(varBefore, rvAfter)
	if surplus.Sign() <= 0 {
		t.Fatalf("expected a positive surplus, got %s", surplus)
	}
	if got := e.vari.BalanceOf(alice); got.Cmp(surplus) != 0 {
		t.Fatalf("alice surplus: got %s, want %s", got, surplus)
	}
	if rvAfter.Cmp(e.pool.Curve().BootstrapVariableForAMM()) != 0 {
		t.Fatalf("remaining variable reserve should equal the carryover")
	}

	wantSupply := pricing.Sqrt(new(big.Int).Mul(rqAfter, rvAfter))
	if e.pool.TotalSupply().Cmp(wantSupply) != 0 {
		t.Fatalf("supply after conversion: got %s, want %s", e.pool.TotalSupply(), wantSupply)
	}
}

func challengerParams() LaunchParams {
	// Token requirement 825000000, exactly 110% of the incumbent's.
	return LaunchParams{
		VirtualQuote:      big.NewInt(10_000_000),
		BootstrapQuote:    big.NewInt(10_000_000),
		InitialQuote:      big.NewInt(1_000_000),
		InitialShareMatch: big.NewInt(1_100_000_000),
	}
}

func TestTakeover(t *testing.T) {
	e := newEnv(t, defaultParams())

	// Incumbent seeds the pool with quote alongside the token deposit.
	e.payVariable(alice, e.pool.Curve().TokenRequirement())
	e.payQuote(alice, 1_000_000)
	if _, err := e.pool.Mint(alice, alice); err != nil {
		t.Fatalf("first mint: %v", err)
	}
	if !e.pool.InPresale() {
		t.Fatalf("pool should be in presale")
	}

	newParams := challengerParams()
	e.payVariable(carol, newParams.curve().TokenRequirement())
	e.payQuote(carol, 1_000_000)
	if err := e.pool.TakeOverPool(carol, newParams); err != nil {
		t.Fatalf("takeover: %v", err)
	}

	// Incumbent refund: quote minus the 5% penalty, tokens in full.
	if got := e.quote.BalanceOf(alice); got.Cmp(big.NewInt(950_000)) != 0 {
		t.Fatalf("incumbent quote refund: got %s, want 950000", got)
	}
	if got := e.quote.BalanceOf(treasuryAddr); got.Cmp(big.NewInt(50_000)) != 0 {
		t.Fatalf("penalty to treasury: got %s, want 50000", got)
	}
	if got := e.vari.BalanceOf(alice); got.Cmp(big.NewInt(750_000_000)) != 0 {
		t.Fatalf("incumbent token refund: got %s, want 750000000", got)
	}

	// Incumbent shares are gone; challenger holds the new first position.
	if e.pool.BalanceOfShares(alice).Sign() != 0 {
		t.Fatalf("incumbent shares should be burned")
	}
	wantShares := pricing.Sqrt(new(big.Int).Mul(newParams.VirtualQuote, newParams.InitialShareMatch))
	wantShares.Sub(wantShares, big.NewInt(MinLiquidity))
	if e.pool.BalanceOfShares(carol).Cmp(wantShares) != 0 {
		t.Fatalf("challenger shares: got %s, want %s", e.pool.BalanceOfShares(carol), wantShares)
	}
	rec := e.pool.FirstLP()
	if rec == nil || rec.Holder != carol {
		t.Fatalf("first LP should be the challenger")
	}

	rq, rv := e.pool.Reserves()
	if rq.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("reserve quote: got %s, want 1000000", rq)
	}
	if rv.Cmp(big.NewInt(825_000_000)) != 0 {
		t.Fatalf("reserve variable: got %s, want 825000000", rv)
	}
	if !e.pool.InPresale() {
		t.Fatalf("takeover must leave the pool in presale")
	}
}

func TestTakeoverUnderfunded(t *testing.T) {
	e := newEnv(t, defaultParams())
	e.initPresale(alice)

	// 824250000 is just below the 110% threshold of 825000000.
	newParams := challengerParams()
	newParams.InitialShareMatch = big.NewInt(1_099_000_000)
	e.payVariable(carol, newParams.curve().TokenRequirement())

	if err := e.pool.TakeOverPool(carol, newParams); !errors.Is(err, guard.ErrTakeoverUnderfunded) {
		t.Fatalf("expected ErrTakeoverUnderfunded, got %v", err)
	}
	rec := e.pool.FirstLP()
	if rec == nil || rec.Holder != alice {
		t.Fatalf("failed takeover must not change the first LP")
	}
}

func TestTakeoverTokenShort(t *testing.T) {
	e := newEnv(t, defaultParams())
	e.initPresale(alice)

	newParams := challengerParams()
	short := new(big.Int).Sub(newParams.curve().TokenRequirement(), big.NewInt(1))
	e.payVariable(carol, short)

	if err := e.pool.TakeOverPool(carol, newParams); !errors.Is(err, ErrInsufficientTokenAmount) {
		t.Fatalf("expected ErrInsufficientTokenAmount, got %v", err)
	}
}

func TestTakeoverAfterTransition(t *testing.T) {
	e := newEnv(t, defaultParams())
	e.initAMM(alice)

	if err := e.pool.TakeOverPool(carol, challengerParams()); !errors.Is(err, ErrNotPresalePeriod) {
		t.Fatalf("expected ErrNotPresalePeriod, got %v", err)
	}
}

func TestTakeoverQuoteShort(t *testing.T) {
	e := newEnv(t, defaultParams())

	e.payVariable(alice, e.pool.Curve().TokenRequirement())
	e.payQuote(alice, 1_000_000)
	if _, err := e.pool.Mint(alice, alice); err != nil {
		t.Fatalf("first mint: %v", err)
	}

	// Challenger covers the token side but not the raised quote.
	newParams := challengerParams()
	e.payVariable(carol, newParams.curve().TokenRequirement())
	if err := e.pool.TakeOverPool(carol, newParams); !errors.Is(err, guard.ErrTakeoverQuoteShort) {
		t.Fatalf("expected ErrTakeoverQuoteShort, got %v", err)
	}
}
