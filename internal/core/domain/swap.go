package domain

import "strings"

// Role of the local party in a swap. Alice initiates the swap and funds the
// alpha ledger first, Bob responds.
type Role string

const (
	RoleAlice Role = "Alice"
	RoleBob   Role = "Bob"
)

// SwapStatus is the status of a swap as reported by the swap registry.
type SwapStatus string

const (
	SwapStatusPendingAccept   SwapStatus = "PENDING_ACCEPT"
	SwapStatusAccepted        SwapStatus = "ACCEPTED"
	SwapStatusInProgress      SwapStatus = "IN_PROGRESS"
	SwapStatusSwapped         SwapStatus = "SWAPPED"
	SwapStatusNotSwapped      SwapStatus = "NOT_SWAPPED"
	SwapStatusInternalFailure SwapStatus = "INTERNAL_FAILURE"
)

// IsTerminal returns whether no further action can happen on a swap with
// this status.
func (s SwapStatus) IsTerminal() bool {
	switch s {
	case SwapStatusSwapped, SwapStatusNotSwapped, SwapStatusInternalFailure:
		return true
	default:
		return false
	}
}

// ActionName ...
type ActionName string

const (
	ActionAccept  ActionName = "accept"
	ActionDecline ActionName = "decline"
	ActionDeploy  ActionName = "deploy"
	ActionFund    ActionName = "fund"
	ActionRedeem  ActionName = "redeem"
	ActionRefund  ActionName = "refund"
)

// OngoingActions are the actions resulting in a ledger action, in the order
// a swap goes through them.
var OngoingActions = []ActionName{
	ActionDeploy, ActionFund, ActionRedeem, ActionRefund,
}

// ProducesLedgerAction returns whether executing the action is expected to
// return a ledger action to dispatch.
func (n ActionName) ProducesLedgerAction() bool {
	switch n {
	case ActionDeploy, ActionFund, ActionRedeem, ActionRefund:
		return true
	default:
		return false
	}
}

// FieldKind is the closed set of action fields this daemon knows how to fill.
type FieldKind int

const (
	UnknownField FieldKind = iota
	BitcoinAddressField
	BitcoinFeePerWUField
	EthereumAddressField
)

func (k FieldKind) String() string {
	switch k {
	case BitcoinAddressField:
		return "bitcoin.address"
	case BitcoinFeePerWUField:
		return "bitcoin.feePerWU"
	case EthereumAddressField:
		return "ethereum.address"
	default:
		return "unknown"
	}
}

// ParseFieldKind maps the class tags of an action field to its kind.
func ParseFieldKind(classes []string) FieldKind {
	var ledger, kind string
	for _, c := range classes {
		switch c {
		case LedgerBitcoin, LedgerEthereum:
			ledger = c
		default:
			kind = c
		}
	}

	switch {
	case ledger == LedgerBitcoin && kind == "address":
		return BitcoinAddressField
	case ledger == LedgerBitcoin && strings.EqualFold(kind, "feePerWU"):
		return BitcoinFeePerWUField
	case ledger == LedgerEthereum && kind == "address":
		return EthereumAddressField
	default:
		return UnknownField
	}
}

// Field is an input required to execute an action.
type Field struct {
	Name string
	Kind FieldKind
}

// Action is a transition currently available on a swap.
type Action struct {
	Name   ActionName
	Href   string
	Method string
	Fields []Field
}

// SwapParameters ...
type SwapParameters struct {
	AlphaLedger Ledger `json:"alpha_ledger"`
	BetaLedger  Ledger `json:"beta_ledger"`
	AlphaAsset  Asset  `json:"alpha_asset"`
	BetaAsset   Asset  `json:"beta_asset"`
}

// Swap is a swap record owned by the swap registry, with the actions it
// currently exposes in registry order.
type Swap struct {
	ID           string
	Role         Role
	Counterparty string
	Status       SwapStatus
	Parameters   SwapParameters
	Actions      []Action
}

// FindAction returns the first available action, in registry order, whose
// name is one of names.
func (s Swap) FindAction(names ...ActionName) (Action, bool) {
	for _, a := range s.Actions {
		for _, n := range names {
			if a.Name == n {
				return a, true
			}
		}
	}
	return Action{}, false
}

// IsNew returns whether the swap is waiting to be accepted.
func (s Swap) IsNew() bool {
	_, ok := s.FindAction(ActionAccept)
	return ok
}

// IsOngoing returns whether the swap exposes an action producing a ledger
// action.
func (s Swap) IsOngoing() bool {
	_, ok := s.FindAction(OngoingActions...)
	return ok
}

// IsDone ...
func (s Swap) IsDone() bool {
	return s.Status.IsTerminal()
}

// Assets returns the assets bought and sold by the local party.
func (s Swap) Assets() (buy, sell Asset) {
	if s.Role == RoleAlice {
		return s.Parameters.BetaAsset, s.Parameters.AlphaAsset
	}
	return s.Parameters.AlphaAsset, s.Parameters.BetaAsset
}
