package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when there's no published order for a pair or
	// no swap matching the given id.
	ErrNotFound = errors.New("not found")
	// ErrInvalidOrder is returned for orders that are expired, have a zero
	// amount leg or mismatching ledger/asset.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrUnresolvedField is returned when a required action field has no value.
	ErrUnresolvedField = errors.New("unresolved action field")
	// ErrUnsupportedActionKind ...
	ErrUnsupportedActionKind = errors.New("unsupported ledger action kind")
	// ErrNetworkMismatch is returned by wallets asked to act on a network
	// they are not connected to.
	ErrNetworkMismatch = errors.New("network mismatch")
	// ErrDispatchFailure wraps any error returned by a wallet call.
	ErrDispatchFailure = errors.New("ledger action dispatch failed")
	// ErrTimeout is returned when the retry budget is exhausted.
	ErrTimeout = errors.New("timed out")
	// ErrOrderRejected is returned when the acceptance predicate rejects an order.
	ErrOrderRejected = errors.New("order rejected")
	// ErrActionNotAvailable ...
	ErrActionNotAvailable = errors.New("action not available")
	// ErrInvalidLedgerAction is returned for ledger actions carrying
	// malformed amounts or gas limits.
	ErrInvalidLedgerAction = errors.New("invalid ledger action data")
	// ErrInvalidExecutionParams ...
	ErrInvalidExecutionParams = errors.New("invalid execution params")

	// ErrOrderExpired ...
	ErrOrderExpired = fmt.Errorf("%w: order expired", ErrInvalidOrder)
	// ErrOrderZeroAmount ...
	ErrOrderZeroAmount = fmt.Errorf("%w: amount must be greater than zero", ErrInvalidOrder)
	// ErrOrderAssetMismatch ...
	ErrOrderAssetMismatch = fmt.Errorf("%w: asset does not belong to ledger", ErrInvalidOrder)
	// ErrOrderMalformed ...
	ErrOrderMalformed = fmt.Errorf("%w: missing key or id", ErrInvalidOrder)
)
