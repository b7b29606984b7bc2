package domain

// SwapRequest is the body posted to the registry to initiate a swap.
type SwapRequest struct {
	AlphaLedger               Ledger   `json:"alpha_ledger"`
	BetaLedger                Ledger   `json:"beta_ledger"`
	AlphaAsset                Asset    `json:"alpha_asset"`
	BetaAsset                 Asset    `json:"beta_asset"`
	AlphaExpiry               int64    `json:"alpha_expiry"`
	BetaExpiry                int64    `json:"beta_expiry"`
	AlphaLedgerRefundIdentity string   `json:"alpha_ledger_refund_identity,omitempty"`
	BetaLedgerRedeemIdentity  string   `json:"beta_ledger_redeem_identity,omitempty"`
	Peer                      PeerInfo `json:"peer"`
}
