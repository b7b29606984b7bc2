package domain

// JournalEntry records a ledger action performed for a swap.
type JournalEntry struct {
	Key       string
	SwapID    string
	Action    ActionName
	Kind      LedgerActionKind
	TxID      string
	Timestamp int64
}

// ReportedSwap records that a swap reaching a terminal status has been
// reported.
type ReportedSwap struct {
	SwapID    string
	Status    SwapStatus
	Timestamp int64
}
