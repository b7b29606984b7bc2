package httpinterface

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/comit-network/swapd/internal/core/application/negotiation"
	"github.com/comit-network/swapd/internal/core/domain"
	"github.com/comit-network/swapd/pkg/stats"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const (
	healthMessage = "Maker is up and running"

	getOrderEndpoint   = "get_order"
	takeOrderEndpoint  = "take_order"
	findOffersEndpoint = "find_offers"

	resultOK          = "ok"
	resultUnavailable = "unavailable"
	resultBadRequest  = "bad_request"
	resultError       = "error"
)

type handler struct {
	maker *negotiation.Maker
}

// NewRouter returns the routes of the negotiation server.
func NewRouter(maker *negotiation.Maker) http.Handler {
	h := &handler{maker}

	r := mux.NewRouter()
	r.Use(logRequest)
	r.HandleFunc("/", h.health).Methods(http.MethodGet)
	r.HandleFunc("/orders/{pair}", h.getOrder).Methods(http.MethodGet)
	r.HandleFunc("/orders/{pair}/{id}/accept", h.takeOrder).Methods(http.MethodGet)
	r.HandleFunc("/offers", h.findOffers).Methods(http.MethodGet)
	r.Handle("/metrics", metricsHandler()).Methods(http.MethodGet)
	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(healthMessage))
}

func (h *handler) getOrder(w http.ResponseWriter, r *http.Request) {
	pair := mux.Vars(r)["pair"]

	order, err := h.maker.GetOrder(pair)
	if err != nil {
		h.fail(w, getOrderEndpoint, err)
		return
	}
	stats.OrderRequests.WithLabelValues(getOrderEndpoint, resultOK).Inc()
	writeJSON(w, order)
}

func (h *handler) takeOrder(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	order, params, err := h.maker.TakeOrder(r.Context(), vars["pair"], vars["id"])
	if err != nil {
		h.fail(w, takeOrderEndpoint, err)
		return
	}
	stats.OrderRequests.WithLabelValues(takeOrderEndpoint, resultOK).Inc()
	writeJSON(w, domain.TakenOrder{Order: order, ExecutionParams: params})
}

func (h *handler) findOffers(w http.ResponseWriter, r *http.Request) {
	query, err := parseOfferQuery(r)
	if err != nil {
		stats.OrderRequests.WithLabelValues(findOffersEndpoint, resultBadRequest).Inc()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	offers := h.maker.OrderBook().FindOffers(query)
	stats.OrderRequests.WithLabelValues(findOffersEndpoint, resultOK).Inc()
	writeJSON(w, offers)
}

// fail replies 451 to requests for orders that are unknown, replaced or
// expired.
func (h *handler) fail(w http.ResponseWriter, endpoint string, err error) {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidOrder) {
		stats.OrderRequests.WithLabelValues(endpoint, resultUnavailable).Inc()
		http.Error(
			w, http.StatusText(http.StatusUnavailableForLegalReasons),
			http.StatusUnavailableForLegalReasons,
		)
		return
	}

	log.WithError(err).Warnf("failed to serve %s request", endpoint)
	stats.OrderRequests.WithLabelValues(endpoint, resultError).Inc()
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

var errInvalidQuery = errors.New("invalid query")

func parseOfferQuery(r *http.Request) (domain.FindOfferQuery, error) {
	q := r.URL.Query()

	buy, err := parseCoinType(q.Get("buy_coin"))
	if err != nil {
		return domain.FindOfferQuery{}, err
	}
	sell, err := parseCoinType(q.Get("sell_coin"))
	if err != nil {
		return domain.FindOfferQuery{}, err
	}
	amount, err := decimal.NewFromString(q.Get("buy_amount"))
	if err != nil {
		return domain.FindOfferQuery{}, errors.Join(errInvalidQuery, err)
	}

	return domain.FindOfferQuery{
		BuyCoin:   buy,
		SellCoin:  sell,
		BuyAmount: amount,
	}, nil
}

func parseCoinType(s string) (domain.CoinType, error) {
	switch c := domain.CoinType(strings.ToLower(s)); c {
	case domain.CoinBitcoin, domain.CoinEther:
		return c, nil
	default:
		return "", errors.Join(errInvalidQuery, errors.New("unknown coin "+s))
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}

func logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debugf("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
