package cnd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/comit-network/swapd/internal/core/domain"
	"github.com/comit-network/swapd/internal/core/ports"
	"github.com/comit-network/swapd/pkg/circuitbreaker"
	"github.com/comit-network/swapd/pkg/util"
	"github.com/sony/gobreaker"
	"go.uber.org/ratelimit"
)

const (
	// DefaultRateLimit is the max number of requests per second sent to cnd.
	DefaultRateLimit = 20

	swapsPath = "/swaps"
	rfc003    = "/swaps/rfc003"
)

type service struct {
	baseURL *url.URL
	cb      *gobreaker.CircuitBreaker
	limiter ratelimit.Limiter
}

// NewService returns a cnd client as a ports.SwapRegistry interface.
// Requests are paced to at most rateLimit per second.
func NewService(baseURL string, rateLimit int) (ports.SwapRegistry, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("missing cnd url")
	}
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid cnd url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid cnd url %s", baseURL)
	}
	if rateLimit <= 0 {
		rateLimit = DefaultRateLimit
	}

	return &service{
		baseURL: u,
		cb:      circuitbreaker.NewCircuitBreaker("cnd"),
		limiter: ratelimit.New(rateLimit),
	}, nil
}

func (s *service) GetPeerID(ctx context.Context) (string, error) {
	info, err := s.getInfo(ctx)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

func (s *service) GetListenAddresses(ctx context.Context) ([]string, error) {
	info, err := s.getInfo(ctx)
	if err != nil {
		return nil, err
	}
	return info.ListenAddresses, nil
}

func (s *service) ListSwaps(ctx context.Context) ([]domain.Swap, error) {
	resp, err := s.do(ctx, http.MethodGet, s.endpoint(swapsPath), nil)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, parseError(resp)
	}

	var body swapsResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("failed to parse swaps: %w", err)
	}
	swaps := make([]domain.Swap, 0, len(body.Entities))
	for _, e := range body.Entities {
		swaps = append(swaps, e.toDomain())
	}
	return swaps, nil
}

func (s *service) GetSwap(ctx context.Context, id string) (*domain.Swap, error) {
	resp, err := s.do(ctx, http.MethodGet, s.endpoint(path.Join(rfc003, id)), nil)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, parseError(resp)
	}

	var entity swapEntity
	if err := json.Unmarshal(resp.Body, &entity); err != nil {
		return nil, fmt.Errorf("failed to parse swap %s: %w", id, err)
	}
	swap := entity.toDomain()
	if swap.ID == "" {
		swap.ID = id
	}
	return &swap, nil
}

func (s *service) PostSwap(
	ctx context.Context, req domain.SwapRequest,
) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	resp, err := s.do(ctx, http.MethodPost, s.endpoint(rfc003), body)
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", parseError(resp)
	}

	var created postSwapResponse
	if len(resp.Body) > 0 {
		// Some cnd versions reply with an empty body and a Location header.
		_ = json.Unmarshal(resp.Body, &created)
	}
	if created.ID != "" {
		return created.ID, nil
	}
	if location := resp.Header.Get("Location"); location != "" {
		return path.Base(location), nil
	}
	return "", fmt.Errorf("cnd did not return the id of the created swap")
}

func (s *service) ExecuteAction(
	ctx context.Context, action domain.Action, resolver ports.FieldResolver,
) (domain.ActionResult, error) {
	values := make(map[string]string, len(action.Fields))
	for _, f := range action.Fields {
		if resolver == nil {
			return domain.ActionResult{}, fmt.Errorf(
				"%w: %s", domain.ErrUnresolvedField, f.Name,
			)
		}
		v, err := resolver(ctx, f)
		if err != nil {
			return domain.ActionResult{}, err
		}
		values[f.Name] = v
	}

	target := s.endpoint(action.Href)
	var body []byte
	method := strings.ToUpper(action.Method)
	switch method {
	case "", http.MethodGet:
		method = http.MethodGet
		if len(values) > 0 {
			u, err := url.Parse(target)
			if err != nil {
				return domain.ActionResult{}, err
			}
			q := u.Query()
			for k, v := range values {
				q.Set(k, v)
			}
			u.RawQuery = q.Encode()
			target = u.String()
		}
	case http.MethodPost:
		b, err := json.Marshal(values)
		if err != nil {
			return domain.ActionResult{}, err
		}
		body = b
	default:
		return domain.ActionResult{}, fmt.Errorf(
			"unsupported method %s for action %s", action.Method, action.Name,
		)
	}

	resp, err := s.do(ctx, method, target, body)
	if err != nil {
		return domain.ActionResult{}, err
	}
	if !resp.IsSuccess() {
		return domain.ActionResult{}, parseError(resp)
	}

	if !action.Name.ProducesLedgerAction() {
		return domain.NoLedgerAction(), nil
	}
	ledgerAction, err := domain.DecodeLedgerAction(resp.Body)
	if err != nil {
		return domain.ActionResult{}, fmt.Errorf(
			"%w: %w", domain.ErrInvalidLedgerAction, err,
		)
	}
	return domain.WithLedgerAction(ledgerAction), nil
}

func (s *service) getInfo(ctx context.Context) (*infoResponse, error) {
	resp, err := s.do(ctx, http.MethodGet, s.endpoint("/"), nil)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, parseError(resp)
	}

	var info infoResponse
	if err := json.Unmarshal(resp.Body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse cnd info: %w", err)
	}
	return &info, nil
}

// endpoint resolves href against the cnd base url. Absolute hrefs are
// returned as they are.
func (s *service) endpoint(href string) string {
	ref, err := url.Parse(href)
	if err != nil || ref.IsAbs() {
		return href
	}
	return s.baseURL.ResolveReference(ref).String()
}

// do paces and performs the request through the circuit breaker. Only
// transport errors and 5xx responses count as failures for the breaker.
func (s *service) do(
	ctx context.Context, method, target string, body []byte,
) (*util.Response, error) {
	s.limiter.Take()

	header := map[string]string{"Accept": "application/vnd.siren+json"}
	if body != nil {
		header["Content-Type"] = "application/json"
	}

	var serverErr *util.Response
	res, err := s.cb.Execute(func() (interface{}, error) {
		resp, err := util.NewHTTPRequest(ctx, method, target, body, header)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			serverErr = resp
			return nil, parseError(resp)
		}
		return resp, nil
	})
	if err != nil {
		if serverErr != nil {
			return serverErr, nil
		}
		return nil, fmt.Errorf("cnd request %s %s failed: %w", method, target, err)
	}
	return res.(*util.Response), nil
}

func parseError(resp *util.Response) error {
	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}

	var p problem
	if err := json.Unmarshal(resp.Body, &p); err != nil || p.Title == "" {
		msg := strings.TrimSpace(string(resp.Body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("cnd responded with status %d: %s", resp.StatusCode, msg)
	}
	return fmt.Errorf("cnd responded with status %d: %s", resp.StatusCode, p)
}
