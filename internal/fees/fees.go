package fees

import "math/big"

// Scale is the fixed-point multiplier for the fee-per-share counter.
var Scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

var (
	lpShareNum   = big.NewInt(2)
	lpShareDenom = big.NewInt(5)
)

// Split divides a swap fee between liquidity providers and the protocol:
// LP share is floor(fee*2/5), the protocol keeps the remainder.
func Split(fee *big.Int) (lpFee, protocolFee *big.Int) {
	lpFee = new(big.Int).Mul(fee, lpShareNum)
	lpFee.Quo(lpFee, lpShareDenom)
	protocolFee = new(big.Int).Sub(fee, lpFee)
	return lpFee, protocolFee
}

// Accumulator is a scaled per-share reward counter. Each LP position
// carries a checkpoint of the counter at its last interaction; the
// difference times the position balance is the fee owed since then.
type Accumulator struct {
	perShareStored *big.Int
}

func NewAccumulator() *Accumulator {
	return &Accumulator{perShareStored: new(big.Int)}
}

// PerShareStored returns the current counter value.
func (a *Accumulator) PerShareStored() *big.Int {
	return new(big.Int).Set(a.perShareStored)
}

// SetPerShareStored restores a counter value from a snapshot.
func (a *Accumulator) SetPerShareStored(v *big.Int) {
	a.perShareStored = new(big.Int).Set(v)
}

// Accrue folds an LP fee into the counter: perShare += lpFee*Scale/supply.
// A zero supply leaves the counter untouched.
func (a *Accumulator) Accrue(lpFee, totalSupply *big.Int) {
	if lpFee.Sign() == 0 || totalSupply.Sign() == 0 {
		return
	}
	delta := new(big.Int).Mul(lpFee, Scale)
	delta.Quo(delta, totalSupply)
	a.perShareStored.Add(a.perShareStored, delta)
}

// Owed returns the fee a position of the given balance has earned since
// its checkpoint: balance*(perShareStored-checkpoint)/Scale.
func (a *Accumulator) Owed(balance, checkpoint *big.Int) *big.Int {
	if balance.Sign() == 0 {
		return new(big.Int)
	}
	delta := new(big.Int).Sub(a.perShareStored, checkpoint)
	if delta.Sign() <= 0 {
		return new(big.Int)
	}
	owed := delta.Mul(delta, balance)
	return owed.Quo(owed, Scale)
}
