package negotiation

import (
	"strings"

	"github.com/comit-network/swapd/internal/core/domain"
	"github.com/shopspring/decimal"
)

// Predicate decides whether a taker is willing to accept an order. It is
// only ever called on non expired orders with non zero legs.
type Predicate func(order domain.Order) bool

// AcceptAll ...
func AcceptAll(domain.Order) bool { return true }

// NonZeroLegs rejects orders with a missing or non positive amount.
func NonZeroLegs(order domain.Order) bool {
	return !order.Ask.IsZero() && !order.Bid.IsZero()
}

// MinRate accepts orders giving at least rate units of bid asset for one
// unit of ask asset.
func MinRate(rate decimal.Decimal) Predicate {
	return func(order domain.Order) bool {
		r, err := order.Rate()
		if err != nil {
			return false
		}
		return r.GreaterThanOrEqual(rate)
	}
}

// MaxRate accepts orders giving at most rate units of bid asset for one unit
// of ask asset.
func MaxRate(rate decimal.Decimal) Predicate {
	return func(order domain.Order) bool {
		r, err := order.Rate()
		if err != nil {
			return false
		}
		return r.LessThanOrEqual(rate)
	}
}

// AssetWhitelist accepts orders whose legs both trade one of the given assets.
func AssetWhitelist(assets ...string) Predicate {
	allowed := make(map[string]struct{}, len(assets))
	for _, a := range assets {
		allowed[strings.ToLower(a)] = struct{}{}
	}
	return func(order domain.Order) bool {
		_, askOk := allowed[strings.ToLower(order.Ask.Asset)]
		_, bidOk := allowed[strings.ToLower(order.Bid.Asset)]
		return askOk && bidOk
	}
}

// All accepts orders satisfying every given predicate.
func All(predicates ...Predicate) Predicate {
	return func(order domain.Order) bool {
		for _, p := range predicates {
			if !p(order) {
				return false
			}
		}
		return true
	}
}
