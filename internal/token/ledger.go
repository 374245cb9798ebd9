// Package token provides the in-memory fungible-asset ledger used by the
// simulator and tests. Pools never trust declared transfer amounts, so
// the ledger can simulate fee-on-transfer assets by burning a slice of
// every transfer.
package token

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

const feeBpsDenominator = 10000

// Ledger is one fungible asset: address -> balance, with an optional
// transfer fee in basis points.
type Ledger struct {
	mu             sync.Mutex
	address        common.Address
	symbol         string
	balances       map[common.Address]*big.Int
	transferFeeBps int64
}

func NewLedger(address common.Address, symbol string) *Ledger {
	return &Ledger{
		address:  address,
		symbol:   symbol,
		balances: make(map[common.Address]*big.Int),
	}
}

// Address returns the asset's identity.
func (l *Ledger) Address() common.Address {
	return l.address
}

func (l *Ledger) Symbol() string {
	return l.symbol
}

// SetTransferFeeBps makes every transfer burn fee basis points of the
// moved amount before it reaches the recipient.
func (l *Ledger) SetTransferFeeBps(bps int64) {
	l.mu.Lock()
	l.transferFeeBps = bps
	l.mu.Unlock()
}

// Mint credits newly created units to an address.
func (l *Ledger) Mint(to common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(to, amount)
}

func (l *Ledger) BalanceOf(addr common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if bal, ok := l.balances[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// Transfer moves amount from one address to another. With a transfer fee
// configured the recipient receives less than amount; callers must
// measure balance deltas rather than trust the declared amount.
func (l *Ledger) Transfer(from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("%s: negative transfer amount", l.symbol)
	}
	if amount.Sign() == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bal, ok := l.balances[from]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("%s: insufficient balance for %s", l.symbol, from.Hex())
	}
	bal.Sub(bal, amount)

	received := new(big.Int).Set(amount)
	if l.transferFeeBps > 0 {
		fee := new(big.Int).Mul(amount, big.NewInt(l.transferFeeBps))
		fee.Quo(fee, big.NewInt(feeBpsDenominator))
		received.Sub(received, fee)
	}
	l.credit(to, received)
	return nil
}

func (l *Ledger) credit(to common.Address, amount *big.Int) {
	if bal, ok := l.balances[to]; ok {
		bal.Add(bal, amount)
		return
	}
	l.balances[to] = new(big.Int).Set(amount)
}
