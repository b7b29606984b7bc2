package negotiation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/comit-network/swapd/internal/core/application/orderbook"
	"github.com/comit-network/swapd/internal/core/domain"
	"github.com/comit-network/swapd/internal/core/ports"
	log "github.com/sirupsen/logrus"
	"github.com/thanhpk/randstr"
)

const (
	// DefaultAlphaExpiry is the lifetime of the HTLC on the ledger funded
	// first.
	DefaultAlphaExpiry = 2 * time.Hour
	// DefaultBetaExpiry ...
	DefaultBetaExpiry = time.Hour
)

// MakerOpts defines the parameters needed for creating a maker with NewMaker.
type MakerOpts struct {
	Registry    ports.SwapRegistry
	OrderBook   *orderbook.Service
	AlphaExpiry time.Duration
	BetaExpiry  time.Duration
	// Ledgers maps ledger names to the network the maker is connected to.
	Ledgers map[string]domain.Ledger
}

// Maker holds the orders published by the local party, at most one per
// trading pair, and hands out the params to execute a swap to the takers
// accepting them. Publishing an order for a pair replaces the previous one.
type Maker struct {
	registry    ports.SwapRegistry
	orderBook   *orderbook.Service
	alphaExpiry time.Duration
	betaExpiry  time.Duration
	ledgers     map[string]domain.Ledger

	lock   sync.RWMutex
	orders map[string]domain.Order
	// keyed by the swap id handed out with the execution params.
	takenOrders map[string]takenOrder

	now func() time.Time
}

// takenOrder authorizes one incoming swap until the bid expiry handed out
// to the taker.
type takenOrder struct {
	order     domain.Order
	expiresAt int64
}

// NewMaker ...
func NewMaker(opts MakerOpts) (*Maker, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("missing swap registry")
	}
	if opts.AlphaExpiry <= 0 {
		opts.AlphaExpiry = DefaultAlphaExpiry
	}
	if opts.BetaExpiry <= 0 {
		opts.BetaExpiry = DefaultBetaExpiry
	}
	if opts.AlphaExpiry <= opts.BetaExpiry {
		return nil, fmt.Errorf("alpha expiry must be after beta expiry")
	}
	if opts.OrderBook == nil {
		opts.OrderBook = orderbook.NewService()
	}

	return &Maker{
		registry:    opts.Registry,
		orderBook:   opts.OrderBook,
		alphaExpiry: opts.AlphaExpiry,
		betaExpiry:  opts.BetaExpiry,
		ledgers:     opts.Ledgers,
		orders:      make(map[string]domain.Order),
		takenOrders: make(map[string]takenOrder),
		now:         time.Now,
	}, nil
}

// OrderBook returns the book where the published orders are advertised as
// offers.
func (m *Maker) OrderBook() *orderbook.Service {
	return m.orderBook
}

// AddOrder publishes the order for its trading pair, replacing any previous
// one. Expired or zero amount orders are rejected.
func (m *Maker) AddOrder(order domain.Order) error {
	if err := order.Validate(m.now()); err != nil {
		return err
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	m.orders[order.Key] = order
	log.WithFields(log.Fields{
		"pair": order.Key, "order_id": order.ID,
	}).Debug("order published")
	return nil
}

// PublishOrder adds the order and advertises it in the order book as an offer
// of the local peer.
func (m *Maker) PublishOrder(ctx context.Context, order domain.Order) error {
	if err := m.AddOrder(order); err != nil {
		return err
	}

	ask, err := order.Ask.NominalAmount()
	if err != nil {
		return err
	}
	bid, err := order.Bid.NominalAmount()
	if err != nil {
		return err
	}
	offer, err := m.CreateOffer(
		ctx,
		domain.Coin{Coin: domain.CoinType(order.Bid.Asset), Amount: bid},
		domain.Coin{Coin: domain.CoinType(order.Ask.Asset), Amount: ask},
	)
	if err != nil {
		return err
	}

	// The offer of the previous order for the same pair is replaced.
	m.orderBook.RemoveOffers(func(o domain.Offer) bool {
		return o.MakerPeerID == offer.MakerPeerID &&
			o.SellCoin.Coin == offer.SellCoin.Coin &&
			o.BuyCoin.Coin == offer.BuyCoin.Coin
	})
	m.orderBook.AddOffer(offer)
	return nil
}

// GetOrder returns the order currently published for the pair.
func (m *Maker) GetOrder(pair string) (domain.Order, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	order, ok := m.orders[pair]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return order, nil
}

// TakeOrder returns the order with the given id and the params the taker
// must use to initiate the swap. It fails with ErrNotFound if the id doesn't
// match the order currently published for the pair and with ErrInvalidOrder
// if the order is expired.
func (m *Maker) TakeOrder(
	ctx context.Context, pair, id string,
) (domain.Order, domain.ExecutionParams, error) {
	order, err := m.GetOrder(pair)
	if err != nil {
		return domain.Order{}, domain.ExecutionParams{}, err
	}
	if order.ID != id {
		return domain.Order{}, domain.ExecutionParams{}, domain.ErrNotFound
	}
	now := m.now()
	if err := order.Validate(now); err != nil {
		return domain.Order{}, domain.ExecutionParams{}, err
	}

	peer, err := m.peerInfo(ctx)
	if err != nil {
		return domain.Order{}, domain.ExecutionParams{}, err
	}

	params := domain.ExecutionParams{
		SwapID:         randstr.Hex(16),
		ConnectionInfo: peer,
		Role:           domain.RoleAlice,
		Expiries: domain.Expiries{
			AskExpiry: now.Add(m.alphaExpiry).Unix(),
			BidExpiry: now.Add(m.betaExpiry).Unix(),
		},
		Ledgers: m.ledgersFor(order),
	}

	m.lock.Lock()
	m.takenOrders[params.SwapID] = takenOrder{order, params.Expiries.BidExpiry}
	m.lock.Unlock()

	log.WithFields(log.Fields{
		"pair": pair, "order_id": id, "swap_id": params.SwapID,
	}).Info("order taken")
	return order, params, nil
}

// CreateOffer returns an offer to sell the given coin for the other one,
// made by the local peer.
func (m *Maker) CreateOffer(
	ctx context.Context, sell, buy domain.Coin,
) (domain.Offer, error) {
	peer, err := m.peerInfo(ctx)
	if err != nil {
		return domain.Offer{}, err
	}
	return domain.Offer{
		SellCoin:         sell,
		BuyCoin:          buy,
		MakerPeerID:      peer.PeerID,
		MakerPeerAddress: peer.AddressHint,
	}, nil
}

// AcceptPolicy accepts incoming swaps whose terms match an order taken from
// this maker. The swap's alpha leg is the order's ask, the beta one its bid.
// Every taken order authorizes a single swap and only until its bid expiry.
func (m *Maker) AcceptPolicy(swap domain.Swap) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	now := m.now().Unix()
	for swapID, taken := range m.takenOrders {
		if now >= taken.expiresAt {
			delete(m.takenOrders, swapID)
			continue
		}
		ask, err := taken.order.Ask.ToAsset()
		if err != nil {
			continue
		}
		bid, err := taken.order.Bid.ToAsset()
		if err != nil {
			continue
		}
		if sameAsset(swap.Parameters.AlphaAsset, ask) &&
			sameAsset(swap.Parameters.BetaAsset, bid) {
			delete(m.takenOrders, swapID)
			log.WithFields(log.Fields{
				"swap_id": swap.ID, "order_id": taken.order.ID, "taken_as": swapID,
			}).Debug("swap matches taken order")
			return true
		}
	}
	return false
}

func (m *Maker) peerInfo(ctx context.Context) (domain.PeerInfo, error) {
	peerID, err := m.registry.GetPeerID(ctx)
	if err != nil {
		return domain.PeerInfo{}, fmt.Errorf("failed to get peer id: %w", err)
	}
	addresses, err := m.registry.GetListenAddresses(ctx)
	if err != nil {
		return domain.PeerInfo{}, fmt.Errorf("failed to get listen addresses: %w", err)
	}
	var hint string
	if len(addresses) > 0 {
		hint = addresses[0]
	}
	return domain.PeerInfo{PeerID: peerID, AddressHint: hint}, nil
}

func (m *Maker) ledgersFor(order domain.Order) map[string]domain.Ledger {
	ledgers := make(map[string]domain.Ledger, 2)
	for _, leg := range []domain.OrderLeg{order.Ask, order.Bid} {
		ledger := leg.ToLedger()
		if l, ok := m.ledgers[leg.Ledger]; ok {
			ledger = l
		}
		ledgers[leg.Ledger] = ledger
	}
	return ledgers
}

func sameAsset(a, b domain.Asset) bool {
	qa, err := a.Amount()
	if err != nil {
		return false
	}
	qb, err := b.Amount()
	if err != nil {
		return false
	}
	return a.Name == b.Name && qa.Equal(qb)
}
