package model

// PoolSnapshot captures a pool's persisted state after an operation.
type PoolSnapshot struct {
	Pool                string `json:"pool"`
	VariableAsset       string `json:"variable_asset"`
	Mode                string `json:"mode"`
	ReserveQuote        string `json:"reserve_quote"`
	ReserveVariable     string `json:"reserve_variable"`
	TotalSupply         string `json:"total_supply"`
	PendingLpFees       string `json:"pending_lp_fees"`
	PendingProtocolFees string `json:"pending_protocol_fees"`
	FeePerShareStored   string `json:"fee_per_share_stored"`
	ModeDeadline        uint64 `json:"mode_deadline"`
	LastTradeMarker     uint32 `json:"last_trade_marker"`
	GenesisTime         uint64 `json:"genesis_time"`
	UpdatedAtSeq        uint64 `json:"updated_at_seq"`
}
