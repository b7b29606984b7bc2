package domain

// PeerInfo tells how to reach a counterparty's swap daemon.
type PeerInfo struct {
	PeerID      string `json:"peer_id"`
	AddressHint string `json:"address_hint,omitempty"`
}

// Expiries are unix timestamps. The ask leg is alpha, funded first, so its
// expiry must come after the bid one.
type Expiries struct {
	AskExpiry int64 `json:"ask_expiry"`
	BidExpiry int64 `json:"bid_expiry"`
}

// ExecutionParams are the parameters the maker hands to the taker once an
// order is accepted. They are immutable afterward.
type ExecutionParams struct {
	// SwapID identifies the taken order on the maker side.
	SwapID         string            `json:"swap_id,omitempty"`
	ConnectionInfo PeerInfo          `json:"connection_info"`
	Role           Role              `json:"role"`
	Expiries       Expiries          `json:"expiries"`
	Ledgers        map[string]Ledger `json:"ledgers,omitempty"`
}

// TakenOrder is the maker's reply to a taker accepting an order.
type TakenOrder struct {
	Order           Order           `json:"order"`
	ExecutionParams ExecutionParams `json:"execution_params"`
}
