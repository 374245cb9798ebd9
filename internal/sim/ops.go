package sim

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Operation is one line of a simulation input file.
//
// Supported ops:
//
//	fund             mint `amount` of `asset` to `caller`
//	pay              transfer `amount` of `asset` from `caller` to the pool
//	mint             pool.Mint(caller, to)
//	burn             pool.Burn(caller, to)
//	swap             pool.Swap(caller, variable_out, quote_out, to)
//	transfer_shares  pool.TransferShares(caller, to, amount)
//	withdraw_fees    pool.WithdrawFees(caller, to)
//	withdraw_excess  pool.WithdrawExcessToken(caller)
//	takeover         pool.TakeOverPool(caller, new params)
//	sync             pool.Sync(caller)
//	advance          move the simulated clock forward `seconds`
type Operation struct {
	Op          string `json:"op"`
	Caller      string `json:"caller,omitempty"`
	To          string `json:"to,omitempty"`
	Asset       string `json:"asset,omitempty"`
	Amount      string `json:"amount,omitempty"`
	QuoteOut    string `json:"quote_out,omitempty"`
	VariableOut string `json:"variable_out,omitempty"`
	Seconds     uint64 `json:"seconds,omitempty"`

	// takeover parameters
	VirtualQuote   string `json:"virtual_quote,omitempty"`
	BootstrapQuote string `json:"bootstrap_quote,omitempty"`
	InitialQuote   string `json:"initial_quote,omitempty"`
	ShareMatch     string `json:"share_match,omitempty"`
}

func parseAddress(value, field string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid %s address: %q", field, value)
	}
	return common.HexToAddress(value), nil
}

func parseAmount(value, field string) (*big.Int, error) {
	if value == "" {
		return new(big.Int), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok || parsed.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s amount: %q", field, value)
	}
	return parsed, nil
}
