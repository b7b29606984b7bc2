package negotiation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/comit-network/swapd/internal/core/application/executor"
	"github.com/comit-network/swapd/internal/core/domain"
	"github.com/comit-network/swapd/internal/core/ports"
	"github.com/comit-network/swapd/pkg/unitconv"
	log "github.com/sirupsen/logrus"
)

// TakerOpts defines the parameters needed for creating a taker with NewTaker.
type TakerOpts struct {
	Registry   ports.SwapRegistry
	Dispatcher *executor.Dispatcher
	// Expiries used when taking offers from the order book.
	AlphaExpiry time.Duration
	BetaExpiry  time.Duration
	// Ledgers maps ledger names to the network the taker is connected to.
	Ledgers map[string]domain.Ledger
}

// Taker discovers the orders published by makers, evaluates them and
// initiates the swaps for the accepted ones.
type Taker struct {
	registry    ports.SwapRegistry
	dispatcher  *executor.Dispatcher
	alphaExpiry time.Duration
	betaExpiry  time.Duration
	ledgers     map[string]domain.Ledger

	now func() time.Time
}

// NewTaker ...
func NewTaker(opts TakerOpts) (*Taker, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("missing swap registry")
	}
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("missing action dispatcher")
	}
	if opts.AlphaExpiry <= 0 {
		opts.AlphaExpiry = DefaultAlphaExpiry
	}
	if opts.BetaExpiry <= 0 {
		opts.BetaExpiry = DefaultBetaExpiry
	}
	return &Taker{
		registry:    opts.Registry,
		dispatcher:  opts.Dispatcher,
		alphaExpiry: opts.AlphaExpiry,
		betaExpiry:  opts.BetaExpiry,
		ledgers:     opts.Ledgers,
		now:         time.Now,
	}, nil
}

// Discover returns the order the maker publishes for the pair.
func (t *Taker) Discover(
	ctx context.Context, maker ports.MakerClient, pair string,
) (*domain.Order, error) {
	return maker.GetOrder(ctx, pair)
}

// Evaluate returns whether the order is acceptable. Expired orders and
// orders with a zero leg are rejected before consulting the predicate.
func (t *Taker) Evaluate(order domain.Order, predicate Predicate) bool {
	if order.IsExpired(t.now()) || !NonZeroLegs(order) {
		return false
	}
	if predicate == nil {
		predicate = AcceptAll
	}
	return predicate(order)
}

// Accept takes the order from the maker and initiates the swap with the
// returned execution params. The ask leg is alpha, the bid leg beta.
func (t *Taker) Accept(
	ctx context.Context, maker ports.MakerClient, order domain.Order,
) (*executor.Handle, error) {
	takenOrder, params, err := maker.TakeOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	if !takenOrder.SameAs(order) {
		return nil, fmt.Errorf("%w: maker returned a different order", domain.ErrInvalidOrder)
	}
	if err := takenOrder.Validate(t.now()); err != nil {
		return nil, err
	}
	if err := t.validateParams(*params); err != nil {
		return nil, err
	}

	req, err := t.swapRequestFromOrder(ctx, *takenOrder, *params)
	if err != nil {
		return nil, err
	}
	return t.sendRequest(ctx, req)
}

// NegotiateAndSendRequest discovers the order for the pair, evaluates it and,
// if acceptable, accepts it. A rejected order is returned along with
// ErrOrderRejected and no swap is created.
func (t *Taker) NegotiateAndSendRequest(
	ctx context.Context, maker ports.MakerClient, pair string, predicate Predicate,
) (*domain.Order, *executor.Handle, error) {
	order, err := t.Discover(ctx, maker, pair)
	if err != nil {
		return nil, nil, err
	}
	if !t.Evaluate(*order, predicate) {
		log.WithFields(log.Fields{
			"pair": pair, "order_id": order.ID,
		}).Info("order rejected")
		return order, nil, domain.ErrOrderRejected
	}

	handle, err := t.Accept(ctx, maker, *order)
	if err != nil {
		return order, nil, err
	}
	return order, handle, nil
}

// TakeOffer initiates a swap selling the offer's sell coin for its buy coin
// with the maker that published it.
func (t *Taker) TakeOffer(
	ctx context.Context, offer domain.Offer,
) (*executor.Handle, error) {
	if offer.MakerPeerID == "" {
		return nil, fmt.Errorf("offer is missing maker peer id")
	}
	if !offer.SellCoin.Amount.IsPositive() || !offer.BuyCoin.Amount.IsPositive() {
		return nil, domain.ErrOrderZeroAmount
	}

	alpha, alphaLedger, err := coinToAsset(offer.SellCoin)
	if err != nil {
		return nil, err
	}
	beta, betaLedger, err := coinToAsset(offer.BuyCoin)
	if err != nil {
		return nil, err
	}

	now := t.now()
	req := domain.SwapRequest{
		AlphaLedger: t.ledger(alphaLedger),
		BetaLedger:  t.ledger(betaLedger),
		AlphaAsset:  alpha,
		BetaAsset:   beta,
		AlphaExpiry: now.Add(t.alphaExpiry).Unix(),
		BetaExpiry:  now.Add(t.betaExpiry).Unix(),
		Peer: domain.PeerInfo{
			PeerID:      offer.MakerPeerID,
			AddressHint: offer.MakerPeerAddress,
		},
	}
	if err := t.addIdentities(ctx, &req); err != nil {
		return nil, err
	}
	return t.sendRequest(ctx, req)
}

func (t *Taker) ledger(name string) domain.Ledger {
	if l, ok := t.ledgers[name]; ok {
		return l
	}
	return domain.Ledger{Name: name, Network: domain.NetworkRegtest}
}

func (t *Taker) validateParams(params domain.ExecutionParams) error {
	if params.ConnectionInfo.PeerID == "" {
		return fmt.Errorf("%w: missing maker peer id", domain.ErrInvalidExecutionParams)
	}
	now := t.now().Unix()
	if params.Expiries.BidExpiry <= now {
		return fmt.Errorf("%w: bid expiry in the past", domain.ErrInvalidExecutionParams)
	}
	if params.Expiries.AskExpiry <= params.Expiries.BidExpiry {
		return fmt.Errorf(
			"%w: ask expiry must be after bid expiry", domain.ErrInvalidExecutionParams,
		)
	}
	return nil
}

func (t *Taker) swapRequestFromOrder(
	ctx context.Context, order domain.Order, params domain.ExecutionParams,
) (domain.SwapRequest, error) {
	alpha, err := order.Ask.ToAsset()
	if err != nil {
		return domain.SwapRequest{}, err
	}
	beta, err := order.Bid.ToAsset()
	if err != nil {
		return domain.SwapRequest{}, err
	}

	alphaLedger := order.Ask.ToLedger()
	if l, ok := params.Ledgers[alphaLedger.Name]; ok {
		alphaLedger = l
	}
	betaLedger := order.Bid.ToLedger()
	if l, ok := params.Ledgers[betaLedger.Name]; ok {
		betaLedger = l
	}

	req := domain.SwapRequest{
		AlphaLedger: alphaLedger,
		BetaLedger:  betaLedger,
		AlphaAsset:  alpha,
		BetaAsset:   beta,
		AlphaExpiry: params.Expiries.AskExpiry,
		BetaExpiry:  params.Expiries.BidExpiry,
		Peer:        params.ConnectionInfo,
	}
	if err := t.addIdentities(ctx, &req); err != nil {
		return domain.SwapRequest{}, err
	}
	return req, nil
}

// addIdentities fills the ethereum identities the registry can't derive
// by itself.
func (t *Taker) addIdentities(ctx context.Context, req *domain.SwapRequest) error {
	field := domain.Field{Name: "identity", Kind: domain.EthereumAddressField}
	if req.AlphaLedger.Name == domain.LedgerEthereum {
		id, err := t.dispatcher.ResolveField(ctx, field)
		if err != nil {
			return err
		}
		req.AlphaLedgerRefundIdentity = id
	}
	if req.BetaLedger.Name == domain.LedgerEthereum {
		id, err := t.dispatcher.ResolveField(ctx, field)
		if err != nil {
			return err
		}
		req.BetaLedgerRedeemIdentity = id
	}
	return nil
}

func (t *Taker) sendRequest(
	ctx context.Context, req domain.SwapRequest,
) (*executor.Handle, error) {
	id, err := t.registry.PostSwap(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to initiate swap: %w", err)
	}
	log.WithFields(log.Fields{
		"swap_id": id,
		"alpha":   req.AlphaAsset.Quantity + " " + req.AlphaAsset.Name,
		"beta":    req.BetaAsset.Quantity + " " + req.BetaAsset.Name,
	}).Info("swap request sent")
	return executor.NewHandle(id, t.registry, t.dispatcher), nil
}

var errUnknownCoin = errors.New("unknown coin")

func coinToAsset(coin domain.Coin) (domain.Asset, string, error) {
	switch coin.Coin {
	case domain.CoinBitcoin:
		return domain.Asset{
			Name:     domain.AssetBitcoin,
			Quantity: unitconv.ToBaseUnits(coin.Amount, unitconv.BitcoinPrecision).String(),
		}, domain.LedgerBitcoin, nil
	case domain.CoinEther:
		return domain.Asset{
			Name:     domain.AssetEther,
			Quantity: unitconv.ToBaseUnits(coin.Amount, unitconv.EtherPrecision).String(),
		}, domain.LedgerEthereum, nil
	default:
		return domain.Asset{}, "", fmt.Errorf("%w: %s", errUnknownCoin, coin.Coin)
	}
}
