package executor_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/comit-network/swapd/internal/core/domain"
	"github.com/comit-network/swapd/internal/core/ports"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// **** Registry ****

// fakeRegistry serves a scripted list of swaps and returns, for every
// executed action, the result or error registered for its href.
type fakeRegistry struct {
	lock       sync.Mutex
	swaps      []domain.Swap
	results    map[string]domain.ActionResult
	executeErr map[string]error
	executed   []string
	resolved   map[string]string
	listErr    error
}

func newFakeRegistry(swaps ...domain.Swap) *fakeRegistry {
	return &fakeRegistry{
		swaps:      swaps,
		results:    map[string]domain.ActionResult{},
		executeErr: map[string]error{},
		resolved:   map[string]string{},
	}
}

func (f *fakeRegistry) setSwaps(swaps ...domain.Swap) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.swaps = swaps
}

func (f *fakeRegistry) setResult(href string, action domain.LedgerAction) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.results[href] = domain.WithLedgerAction(action)
}

func (f *fakeRegistry) setError(href string, err error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if err == nil {
		delete(f.executeErr, href)
		return
	}
	f.executeErr[href] = err
}

func (f *fakeRegistry) executedHrefs() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]string{}, f.executed...)
}

func (f *fakeRegistry) GetPeerID(context.Context) (string, error) {
	return "QmLocalPeer", nil
}

func (f *fakeRegistry) GetListenAddresses(context.Context) ([]string, error) {
	return []string{"/ip4/127.0.0.1/tcp/9939"}, nil
}

func (f *fakeRegistry) ListSwaps(context.Context) ([]domain.Swap, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Swap{}, f.swaps...), nil
}

func (f *fakeRegistry) GetSwap(_ context.Context, id string) (*domain.Swap, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	for _, s := range f.swaps {
		if s.ID == id {
			swap := s
			return &swap, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRegistry) PostSwap(
	_ context.Context, req domain.SwapRequest,
) (string, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	id := fmt.Sprintf("swap-%d", len(f.swaps)+1)
	f.swaps = append(f.swaps, domain.Swap{
		ID:     id,
		Role:   domain.RoleAlice,
		Status: domain.SwapStatusPendingAccept,
		Parameters: domain.SwapParameters{
			AlphaLedger: req.AlphaLedger, BetaLedger: req.BetaLedger,
			AlphaAsset: req.AlphaAsset, BetaAsset: req.BetaAsset,
		},
	})
	return id, nil
}

func (f *fakeRegistry) ExecuteAction(
	ctx context.Context, action domain.Action, resolver ports.FieldResolver,
) (domain.ActionResult, error) {
	for _, field := range action.Fields {
		value, err := resolver(ctx, field)
		if err != nil {
			return domain.ActionResult{}, err
		}
		f.lock.Lock()
		f.resolved[field.Name] = value
		f.lock.Unlock()
	}

	f.lock.Lock()
	defer f.lock.Unlock()
	f.executed = append(f.executed, action.Href)
	if err := f.executeErr[action.Href]; err != nil {
		return domain.ActionResult{}, err
	}
	return f.results[action.Href], nil
}

// **** Wallets ****

type mockBitcoinWallet struct {
	mock.Mock
}

func (m *mockBitcoinWallet) Network() string {
	return domain.NetworkRegtest
}

func (m *mockBitcoinWallet) GetAddress(ctx context.Context) (string, error) {
	args := m.Called()

	var res string
	if a := args.Get(0); a != nil {
		res = a.(string)
	}
	return res, args.Error(1)
}

func (m *mockBitcoinWallet) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called()

	var res decimal.Decimal
	if a := args.Get(0); a != nil {
		res = a.(decimal.Decimal)
	}
	return res, args.Error(1)
}

func (m *mockBitcoinWallet) BroadcastTransaction(
	ctx context.Context, txHex, network string,
) (string, error) {
	args := m.Called(txHex, network)

	var res string
	if a := args.Get(0); a != nil {
		res = a.(string)
	}
	return res, args.Error(1)
}

func (m *mockBitcoinWallet) SendToAddress(
	ctx context.Context, address string, sats int64, network string,
) (string, error) {
	args := m.Called(address, sats, network)

	var res string
	if a := args.Get(0); a != nil {
		res = a.(string)
	}
	return res, args.Error(1)
}

type mockEthereumWallet struct {
	mock.Mock
}

func (m *mockEthereumWallet) Network() string {
	return domain.NetworkRegtest
}

func (m *mockEthereumWallet) GetAccount() string {
	return "0x00a329c0648769a73afac7f9381e08fb43dbea72"
}

func (m *mockEthereumWallet) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called()

	var res decimal.Decimal
	if a := args.Get(0); a != nil {
		res = a.(decimal.Decimal)
	}
	return res, args.Error(1)
}

func (m *mockEthereumWallet) CallContract(
	ctx context.Context, data, contractAddress string, gasLimit uint64,
	network string,
) (string, error) {
	args := m.Called(data, contractAddress, gasLimit, network)

	var res string
	if a := args.Get(0); a != nil {
		res = a.(string)
	}
	return res, args.Error(1)
}

func (m *mockEthereumWallet) DeployContract(
	ctx context.Context, data string, value decimal.Decimal, gasLimit uint64,
	network string,
) (string, error) {
	args := m.Called(data, value.String(), gasLimit, network)

	var res string
	if a := args.Get(0); a != nil {
		res = a.(string)
	}
	return res, args.Error(1)
}

// **** Notifier ****

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifySwapFinished(
	ctx context.Context, swap domain.Swap,
) error {
	args := m.Called(swap.ID, swap.Status)
	return args.Error(0)
}
