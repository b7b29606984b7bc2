package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/comit-network/swapd/internal/core/domain"
	"github.com/comit-network/swapd/internal/core/ports"
	"github.com/comit-network/swapd/pkg/circuitbreaker"
	"github.com/comit-network/swapd/pkg/util"
	"github.com/golang-jwt/jwt"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
)

const (
	// SwapFinishedEvent is the event of the messages published when a swap
	// reaches a terminal status.
	SwapFinishedEvent = "SWAP_FINISHED"

	requestTimeout = 15 * time.Second
)

// SwapFinishedMessage is the body posted to every endpoint.
type SwapFinishedMessage struct {
	Event        string        `json:"event"`
	SwapID       string        `json:"swap_id"`
	Status       string        `json:"status"`
	Role         string        `json:"role"`
	Counterparty string        `json:"counterparty,omitempty"`
	Buy          *domain.Asset `json:"buy,omitempty"`
	Sell         *domain.Asset `json:"sell,omitempty"`
	Timestamp    int64         `json:"timestamp"`
}

type service struct {
	endpoints []string
	secret    string
	cb        *gobreaker.CircuitBreaker
}

// NewService returns a ports.SwapNotifier posting the finished swaps to the
// given webhook endpoints. When secret is not empty every request carries a
// HS256 signed bearer token.
func NewService(endpoints []string, secret string) (ports.SwapNotifier, error) {
	if len(endpoints) <= 0 {
		return nil, fmt.Errorf("missing webhook endpoints")
	}
	for _, e := range endpoints {
		u, err := url.Parse(e)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid webhook endpoint %q", e)
		}
	}

	return &service{
		endpoints: endpoints,
		secret:    secret,
		cb:        circuitbreaker.NewCircuitBreaker("webhook"),
	}, nil
}

func (ws *service) NotifySwapFinished(ctx context.Context, swap domain.Swap) error {
	msg := SwapFinishedMessage{
		Event:        SwapFinishedEvent,
		SwapID:       swap.ID,
		Status:       string(swap.Status),
		Role:         string(swap.Role),
		Counterparty: swap.Counterparty,
		Timestamp:    time.Now().Unix(),
	}
	if buy, sell := swap.Assets(); buy.Name != "" && sell.Name != "" {
		msg.Buy, msg.Sell = &buy, &sell
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	eg := &errgroup.Group{}
	for i := range ws.endpoints {
		endpoint := ws.endpoints[i]
		eg.Go(func() error { return ws.doRequest(ctx, endpoint, swap.ID, payload) })
	}
	return eg.Wait()
}

func (ws *service) doRequest(
	ctx context.Context, endpoint, swapID string, payload []byte,
) error {
	_, err := ws.cb.Execute(func() (interface{}, error) {
		headers := map[string]string{
			"Content-Type": "application/json",
		}
		if ws.secret != "" {
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
				Subject:  swapID,
				IssuedAt: time.Now().Unix(),
			})
			tokenString, err := token.SignedString([]byte(ws.secret))
			if err != nil {
				return nil, err
			}
			headers["Authorization"] = fmt.Sprintf("Bearer %s", tokenString)
		}

		resp, err := util.NewHTTPRequest(ctx, http.MethodPost, endpoint, payload, headers)
		if err != nil {
			return nil, err
		}
		if !resp.IsSuccess() {
			return nil, fmt.Errorf(
				"webhook %s responded with status %d: %s",
				endpoint, resp.StatusCode, string(resp.Body),
			)
		}
		return nil, nil
	})

	return err
}
