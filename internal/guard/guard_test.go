package guard

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var holder = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func TestNewRecord(t *testing.T) {
	rec := NewRecord(holder, big.NewInt(1000), big.NewInt(500))
	if rec.FractionalBalance.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("fraction: got %s, want 250", rec.FractionalBalance)
	}
	if rec.WithdrawalsLeft != WithdrawalSteps {
		t.Fatalf("steps: got %d, want %d", rec.WithdrawalsLeft, WithdrawalSteps)
	}
	if rec.InitialQuoteContributed.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("quote contributed: got %s, want 500", rec.InitialQuoteContributed)
	}
}

func TestWithdrawalSchedule(t *testing.T) {
	rec := NewRecord(holder, big.NewInt(1000), new(big.Int))
	now := uint64(100)
	remaining := big.NewInt(1000)

	// Step 1: up to the fraction.
	if err := rec.AuthorizeWithdrawal(now, big.NewInt(250), remaining); err != nil {
		t.Fatalf("step 1: %v", err)
	}
	remaining.Sub(remaining, big.NewInt(250))

	// Too early for step 2.
	if err := rec.AuthorizeWithdrawal(now+CooldownSeconds-1, big.NewInt(250), remaining); !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive, got %v", err)
	}

	now += CooldownSeconds

	// Over the fraction.
	if err := rec.AuthorizeWithdrawal(now, big.NewInt(251), remaining); !errors.Is(err, ErrExceedsFraction) {
		t.Fatalf("expected ErrExceedsFraction, got %v", err)
	}

	if err := rec.AuthorizeWithdrawal(now, big.NewInt(250), remaining); err != nil {
		t.Fatalf("step 2: %v", err)
	}
	remaining.Sub(remaining, big.NewInt(250))

	now += CooldownSeconds
	if err := rec.AuthorizeWithdrawal(now, big.NewInt(250), remaining); err != nil {
		t.Fatalf("step 3: %v", err)
	}
	remaining.Sub(remaining, big.NewInt(250))

	// Final step must clear the whole remainder.
	now += CooldownSeconds
	if err := rec.AuthorizeWithdrawal(now, big.NewInt(249), remaining); !errors.Is(err, ErrMustClearRemainder) {
		t.Fatalf("expected ErrMustClearRemainder, got %v", err)
	}
	if err := rec.AuthorizeWithdrawal(now, big.NewInt(250), remaining); err != nil {
		t.Fatalf("final step: %v", err)
	}

	now += CooldownSeconds
	if err := rec.AuthorizeWithdrawal(now, big.NewInt(1), new(big.Int)); !errors.Is(err, ErrNoWithdrawalsLeft) {
		t.Fatalf("expected ErrNoWithdrawalsLeft, got %v", err)
	}
}

func TestNoteAdded(t *testing.T) {
	rec := NewRecord(holder, big.NewInt(1000), new(big.Int))
	rec.NoteAdded(big.NewInt(100))
	if rec.FractionalBalance.Cmp(big.NewInt(275)) != 0 {
		t.Fatalf("fraction after add: got %s, want 275", rec.FractionalBalance)
	}
}

func TestNoteRemint(t *testing.T) {
	rec := NewRecord(holder, big.NewInt(1000), new(big.Int))
	if err := rec.AuthorizeWithdrawal(100, big.NewInt(250), big.NewInt(1000)); err != nil {
		t.Fatalf("step 1: %v", err)
	}

	rec.NoteRemint(big.NewInt(2000))
	if rec.FractionalBalance.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("fraction after remint: got %s, want 500", rec.FractionalBalance)
	}
	if rec.WithdrawalsLeft != WithdrawalSteps {
		t.Fatalf("steps after remint: got %d, want %d", rec.WithdrawalsLeft, WithdrawalSteps)
	}
}

func TestValidateTakeover(t *testing.T) {
	incumbent := big.NewInt(1000)

	// Exactly 110% passes.
	if err := ValidateTakeover(incumbent, big.NewInt(1100), new(big.Int), new(big.Int)); err != nil {
		t.Fatalf("110%% offer should pass: %v", err)
	}
	if err := ValidateTakeover(incumbent, big.NewInt(1099), new(big.Int), new(big.Int)); !errors.Is(err, ErrTakeoverUnderfunded) {
		t.Fatalf("expected ErrTakeoverUnderfunded, got %v", err)
	}
	if err := ValidateTakeover(incumbent, big.NewInt(1100), big.NewInt(50), big.NewInt(49)); !errors.Is(err, ErrTakeoverQuoteShort) {
		t.Fatalf("expected ErrTakeoverQuoteShort, got %v", err)
	}
}

func TestPenalty(t *testing.T) {
	if got := Penalty(big.NewInt(100)); got.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("penalty: got %s, want 5", got)
	}
	if got := Penalty(big.NewInt(19)); got.Sign() != 0 {
		t.Fatalf("penalty on 19 should round to zero, got %s", got)
	}
}
