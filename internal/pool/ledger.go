package pool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// nullHolder receives the permanently locked minimum-liquidity shares.
var nullHolder = common.Address{}

// sharePosition is one holder's LP position. accrued and checkpoint are
// maintained by settleFees on every balance-affecting transfer.
type sharePosition struct {
	balance    *big.Int
	checkpoint *big.Int
	accrued    *big.Int
	lockUntil  uint64
}

func (p *Pool) position(addr common.Address) *sharePosition {
	pos, ok := p.positions[addr]
	if !ok {
		pos = &sharePosition{
			balance:    new(big.Int),
			checkpoint: new(big.Int),
			accrued:    new(big.Int),
		}
		p.positions[addr] = pos
	}
	return pos
}

// BalanceOfShares returns a holder's share balance.
func (p *Pool) BalanceOfShares(addr common.Address) *big.Int {
	if pos, ok := p.positions[addr]; ok {
		return new(big.Int).Set(pos.balance)
	}
	return new(big.Int)
}

// AccruedFees returns the holder's claimable fee amount as of now.
func (p *Pool) AccruedFees(addr common.Address) *big.Int {
	pos, ok := p.positions[addr]
	if !ok {
		return new(big.Int)
	}
	owed := p.acc.Owed(pos.balance, pos.checkpoint)
	return owed.Add(owed, pos.accrued)
}

// settleFees is the before-transfer hook's fee half: it folds the
// position's share of the accumulator into its accrued amount and
// advances the checkpoint.
func (p *Pool) settleFees(addr common.Address) {
	pos := p.position(addr)
	owed := p.acc.Owed(pos.balance, pos.checkpoint)
	if owed.Sign() > 0 {
		pos.accrued.Add(pos.accrued, owed)
	}
	pos.checkpoint = p.acc.PerShareStored()
}

// mintShares credits freshly minted shares and assigns the resale lock:
// duration proportional to the minted fraction of the new supply, capped,
// and never shortening an existing lock.
func (p *Pool) mintShares(to common.Address, amount *big.Int) {
	p.settleFees(to)
	pos := p.position(to)
	pos.balance.Add(pos.balance, amount)
	p.totalSupply.Add(p.totalSupply, amount)

	duration := new(big.Int).Mul(amount, big.NewInt(shareLockCapSeconds))
	duration.Quo(duration, p.totalSupply)
	if duration.Int64() > shareLockCapSeconds {
		duration.SetInt64(shareLockCapSeconds)
	}
	lockUntil := p.now() + uint64(duration.Int64())
	if lockUntil > pos.lockUntil {
		pos.lockUntil = lockUntil
	}
}

// mintLockedMinimum credits the null holder's permanently locked shares.
func (p *Pool) mintLockedMinimum() {
	pos := p.position(nullHolder)
	pos.balance.Add(pos.balance, big.NewInt(MinLiquidity))
	pos.lockUntil = ModeDeadlineSentinel
	p.totalSupply.Add(p.totalSupply, big.NewInt(MinLiquidity))
}

func (p *Pool) burnShares(from common.Address, amount *big.Int) error {
	p.settleFees(from)
	pos := p.position(from)
	if pos.balance.Cmp(amount) < 0 {
		return ErrInsufficientShares
	}
	pos.balance.Sub(pos.balance, amount)
	p.totalSupply.Sub(p.totalSupply, amount)
	return nil
}

// TransferShares moves LP shares between holders. All share movement
// funnels through here so fee checkpoints, mint locks, and the first
// LP's exit schedule are enforced in one place.
func (p *Pool) TransferShares(caller, to common.Address, amount *big.Int) error {
	if err := p.lock(); err != nil {
		return err
	}
	defer p.unlock()

	if amount == nil || amount.Sign() <= 0 {
		return ErrInsufficientShares
	}
	pos, ok := p.positions[caller]
	if !ok || pos.balance.Cmp(amount) < 0 {
		return ErrInsufficientShares
	}

	now := p.now()
	if now < pos.lockUntil {
		return ErrSharesLocked
	}
	if p.firstLP != nil && caller == p.firstLP.Holder {
		if to != p.addr {
			return ErrFirstLPTransferRestricted
		}
		if err := p.firstLP.AuthorizeWithdrawal(now, amount, pos.balance); err != nil {
			return err
		}
	}

	p.settleFees(caller)
	p.settleFees(to)
	pos.balance.Sub(pos.balance, amount)
	p.position(to).balance.Add(p.position(to).balance, amount)
	if p.firstLP != nil && to == p.firstLP.Holder && caller != to {
		p.firstLP.NoteAdded(amount)
	}
	return nil
}
