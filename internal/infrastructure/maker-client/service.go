package makerclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/comit-network/swapd/internal/core/domain"
	"github.com/comit-network/swapd/internal/core/ports"
	"github.com/comit-network/swapd/pkg/util"
)

type service struct {
	baseURL string
}

// NewService returns a client of a maker negotiation server as a
// ports.MakerClient interface.
func NewService(makerURL string) (ports.MakerClient, error) {
	if makerURL == "" {
		return nil, fmt.Errorf("missing maker url")
	}
	u, err := url.Parse(makerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid maker url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid maker url %s", makerURL)
	}
	return &service{strings.TrimSuffix(makerURL, "/")}, nil
}

func (s *service) GetOrder(
	ctx context.Context, pair string,
) (*domain.Order, error) {
	endpoint := fmt.Sprintf("%s/orders/%s", s.baseURL, url.PathEscape(pair))
	resp, err := util.NewHTTPRequest(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	order := &domain.Order{}
	if err := json.Unmarshal(resp.Body, order); err != nil {
		return nil, fmt.Errorf("failed to parse order: %w", err)
	}
	return order, nil
}

func (s *service) TakeOrder(
	ctx context.Context, order domain.Order,
) (*domain.Order, *domain.ExecutionParams, error) {
	endpoint := fmt.Sprintf(
		"%s/orders/%s/%s/accept",
		s.baseURL, url.PathEscape(order.Key), url.PathEscape(order.ID),
	)
	resp, err := util.NewHTTPRequest(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, nil, err
	}
	if err := checkStatus(resp); err != nil {
		return nil, nil, err
	}

	var taken domain.TakenOrder
	if err := json.Unmarshal(resp.Body, &taken); err != nil {
		return nil, nil, fmt.Errorf("failed to parse taken order: %w", err)
	}
	return &taken.Order, &taken.ExecutionParams, nil
}

func checkStatus(resp *util.Response) error {
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnavailableForLegalReasons, http.StatusNotFound:
		return domain.ErrNotFound
	default:
		return fmt.Errorf(
			"maker responded with status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(resp.Body)),
		)
	}
}
