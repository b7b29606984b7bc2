package orderbook

import (
	"sort"
	"sync"

	"github.com/comit-network/swapd/internal/core/domain"
	"github.com/comit-network/swapd/pkg/unitconv"
)

// Option customizes the order book.
type Option func(*Service)

// WithBestPriceOrdering makes FindOffers return the offers with the lowest
// sell amount per unit bought first. Offers at the same price keep the
// insertion order.
func WithBestPriceOrdering() Option {
	return func(s *Service) {
		s.bestPriceFirst = true
	}
}

// Service is an in-memory book of the offers published by makers. Offers
// are stored mirrored so that lookups are expressed from the taker's point of
// view: a taker buying bitcoin finds the offers of makers selling bitcoin.
type Service struct {
	lock           sync.RWMutex
	offers         []domain.Offer
	bestPriceFirst bool
}

// NewService returns an empty order book.
func NewService(opts ...Option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddOffer stores a mirrored copy of the given maker offer.
func (s *Service) AddOffer(offer domain.Offer) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.offers = append(s.offers, offer.Mirror())
}

// FindOffers returns the offers matching the coin types of the query that can
// fill the requested buy amount. The amounts of every returned offer are
// scaled to the request: buy amount b and sell amount S*b/B, rounded down to
// the sell coin's smallest unit. No match results in an empty list.
func (s *Service) FindOffers(query domain.FindOfferQuery) []domain.Offer {
	if !query.BuyAmount.IsPositive() {
		return []domain.Offer{}
	}

	s.lock.RLock()
	defer s.lock.RUnlock()

	found := make([]domain.Offer, 0)
	for _, o := range s.offers {
		if o.BuyCoin.Coin != query.BuyCoin || o.SellCoin.Coin != query.SellCoin {
			continue
		}
		if o.BuyCoin.Amount.LessThan(query.BuyAmount) {
			continue
		}

		precision, ok := unitconv.PrecisionOf(string(o.SellCoin.Coin))
		if !ok {
			precision = unitconv.BitcoinPrecision
		}
		sellAmount, err := unitconv.MulDiv(
			o.SellCoin.Amount, query.BuyAmount, o.BuyCoin.Amount, precision,
		)
		if err != nil {
			continue
		}

		found = append(found, domain.Offer{
			SellCoin:         domain.Coin{Coin: o.SellCoin.Coin, Amount: sellAmount},
			BuyCoin:          domain.Coin{Coin: o.BuyCoin.Coin, Amount: query.BuyAmount},
			MakerPeerID:      o.MakerPeerID,
			MakerPeerAddress: o.MakerPeerAddress,
		})
	}

	if s.bestPriceFirst {
		sort.SliceStable(found, func(i, j int) bool {
			pi, _ := found[i].Price()
			pj, _ := found[j].Price()
			return pi.LessThan(pj)
		})
	}
	return found
}

// RemoveOffers deletes the offers for which match returns true and returns
// how many were removed. match is given the offer as published by the maker.
func (s *Service) RemoveOffers(match func(offer domain.Offer) bool) int {
	s.lock.Lock()
	defer s.lock.Unlock()

	kept := s.offers[:0]
	for _, o := range s.offers {
		if !match(o.Mirror()) {
			kept = append(kept, o)
		}
	}
	removed := len(s.offers) - len(kept)
	for i := len(kept); i < len(s.offers); i++ {
		s.offers[i] = domain.Offer{}
	}
	s.offers = kept
	return removed
}

// Len returns the number of stored offers.
func (s *Service) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.offers)
}
