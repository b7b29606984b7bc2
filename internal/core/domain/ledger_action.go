package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// LedgerActionKind ...
type LedgerActionKind string

const (
	BitcoinBroadcastSignedTransactionKind LedgerActionKind = "bitcoin-broadcast-signed-transaction"
	BitcoinSendAmountToAddressKind        LedgerActionKind = "bitcoin-send-amount-to-address"
	EthereumCallContractKind              LedgerActionKind = "ethereum-call-contract"
	EthereumDeployContractKind            LedgerActionKind = "ethereum-deploy-contract"
)

// LedgerAction is a concrete blockchain operation the local wallets must
// perform to progress a swap. The set of variants is closed.
type LedgerAction interface {
	Kind() LedgerActionKind
	isLedgerAction()
}

// BitcoinBroadcastSignedTransaction asks to broadcast an already signed
// transaction.
type BitcoinBroadcastSignedTransaction struct {
	Hex                string `json:"hex"`
	Network            string `json:"network"`
	MinMedianBlockTime *int64 `json:"min_median_block_time,omitempty"`
}

// BitcoinSendAmountToAddress asks to send Amount sats to To.
type BitcoinSendAmountToAddress struct {
	To      string `json:"to"`
	Amount  string `json:"amount"`
	Network string `json:"network"`
}

// EthereumCallContract ...
type EthereumCallContract struct {
	ContractAddress   string `json:"contract_address"`
	Data              string `json:"data,omitempty"`
	GasLimit          string `json:"gas_limit"`
	ChainID           uint64 `json:"chain_id,omitempty"`
	Network           string `json:"network,omitempty"`
	MinBlockTimestamp *int64 `json:"min_block_timestamp,omitempty"`
}

// EthereumDeployContract asks to deploy a contract funded with Amount wei.
type EthereumDeployContract struct {
	Data     string `json:"data"`
	Amount   string `json:"amount"`
	GasLimit string `json:"gas_limit"`
	ChainID  uint64 `json:"chain_id,omitempty"`
	Network  string `json:"network,omitempty"`
}

// UnknownLedgerAction holds a ledger action of a kind this daemon can't
// dispatch.
type UnknownLedgerAction struct {
	Type    string
	Payload json.RawMessage
}

func (BitcoinBroadcastSignedTransaction) Kind() LedgerActionKind {
	return BitcoinBroadcastSignedTransactionKind
}
func (BitcoinSendAmountToAddress) Kind() LedgerActionKind {
	return BitcoinSendAmountToAddressKind
}
func (EthereumCallContract) Kind() LedgerActionKind   { return EthereumCallContractKind }
func (EthereumDeployContract) Kind() LedgerActionKind { return EthereumDeployContractKind }
func (a UnknownLedgerAction) Kind() LedgerActionKind  { return LedgerActionKind(a.Type) }

func (BitcoinBroadcastSignedTransaction) isLedgerAction() {}
func (BitcoinSendAmountToAddress) isLedgerAction()        {}
func (EthereumCallContract) isLedgerAction()              {}
func (EthereumDeployContract) isLedgerAction()            {}
func (UnknownLedgerAction) isLedgerAction()               {}

type ledgerActionJSON struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeLedgerAction returns the canonical JSON serialization of the given
// ledger action: {"type": <kind>, "payload": {...}}.
func EncodeLedgerAction(action LedgerAction) ([]byte, error) {
	var payload []byte
	var err error
	if u, ok := action.(UnknownLedgerAction); ok {
		buf := &bytes.Buffer{}
		if len(u.Payload) > 0 {
			if err := json.Compact(buf, u.Payload); err != nil {
				return nil, err
			}
		}
		payload = buf.Bytes()
		if len(payload) == 0 {
			payload = []byte("null")
		}
	} else {
		payload, err = json.Marshal(action)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(ledgerActionJSON{
		Type:    string(action.Kind()),
		Payload: payload,
	})
}

// DecodeLedgerAction parses a ledger action. Unknown kinds are returned as
// UnknownLedgerAction so they can be reported with their payload.
func DecodeLedgerAction(data []byte) (LedgerAction, error) {
	var raw ledgerActionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed ledger action: %w", err)
	}
	if raw.Type == "" {
		return nil, fmt.Errorf("malformed ledger action: missing type")
	}

	var action LedgerAction
	var err error
	switch LedgerActionKind(raw.Type) {
	case BitcoinBroadcastSignedTransactionKind:
		a := BitcoinBroadcastSignedTransaction{}
		err = json.Unmarshal(raw.Payload, &a)
		action = a
	case BitcoinSendAmountToAddressKind:
		a := BitcoinSendAmountToAddress{}
		err = json.Unmarshal(raw.Payload, &a)
		action = a
	case EthereumCallContractKind:
		a := EthereumCallContract{}
		err = json.Unmarshal(raw.Payload, &a)
		action = a
	case EthereumDeployContractKind:
		a := EthereumDeployContract{}
		err = json.Unmarshal(raw.Payload, &a)
		action = a
	default:
		return UnknownLedgerAction{Type: raw.Type, Payload: raw.Payload}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("malformed %s payload: %w", raw.Type, err)
	}
	return action, nil
}

// LedgerActionKey returns the key used to recognize an already performed
// ledger action.
func LedgerActionKey(action LedgerAction) (string, error) {
	b, err := EncodeLedgerAction(action)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ActionResult is the outcome of executing a swap action on the registry.
// Accept and decline carry no ledger action, the other actions do.
type ActionResult struct {
	ledgerAction LedgerAction
}

// NoLedgerAction ...
func NoLedgerAction() ActionResult {
	return ActionResult{}
}

// WithLedgerAction ...
func WithLedgerAction(action LedgerAction) ActionResult {
	return ActionResult{action}
}

// LedgerAction returns the ledger action to dispatch, if any.
func (r ActionResult) LedgerAction() (LedgerAction, bool) {
	return r.ledgerAction, r.ledgerAction != nil
}
