package model

// Event types emitted by a pool.
const (
	EventMint            = "mint"
	EventBurn            = "burn"
	EventSwap            = "swap"
	EventSync            = "sync"
	EventFeesWithdrawn   = "fees_withdrawn"
	EventFeesFlushed     = "fees_flushed"
	EventTakeover        = "takeover"
	EventExcessRecovered = "excess_recovered"
	EventTransition      = "transition"
)

// PoolEvent is one observable pool state change, amounts as decimal
// strings.
type PoolEvent struct {
	Seq         uint64 `json:"seq"`
	Type        string `json:"type"`
	Pool        string `json:"pool"`
	Caller      string `json:"caller"`
	To          string `json:"to,omitempty"`
	QuoteIn     string `json:"quote_in,omitempty"`
	VariableIn  string `json:"variable_in,omitempty"`
	QuoteOut    string `json:"quote_out,omitempty"`
	VariableOut string `json:"variable_out,omitempty"`
	Liquidity   string `json:"liquidity,omitempty"`
	Timestamp   uint64 `json:"timestamp"`
}
