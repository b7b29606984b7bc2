package negotiation

import (
	"context"

	"github.com/comit-network/swapd/internal/core/domain"
	"github.com/comit-network/swapd/internal/core/ports"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// **** Registry ****

type mockRegistry struct {
	mock.Mock
}

func (m *mockRegistry) GetPeerID(ctx context.Context) (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *mockRegistry) GetListenAddresses(ctx context.Context) ([]string, error) {
	args := m.Called()

	var res []string
	if a := args.Get(0); a != nil {
		res = a.([]string)
	}
	return res, args.Error(1)
}

func (m *mockRegistry) ListSwaps(ctx context.Context) ([]domain.Swap, error) {
	args := m.Called()

	var res []domain.Swap
	if a := args.Get(0); a != nil {
		res = a.([]domain.Swap)
	}
	return res, args.Error(1)
}

func (m *mockRegistry) GetSwap(ctx context.Context, id string) (*domain.Swap, error) {
	args := m.Called(id)

	var res *domain.Swap
	if a := args.Get(0); a != nil {
		res = a.(*domain.Swap)
	}
	return res, args.Error(1)
}

func (m *mockRegistry) PostSwap(
	ctx context.Context, req domain.SwapRequest,
) (string, error) {
	args := m.Called(req)
	return args.String(0), args.Error(1)
}

func (m *mockRegistry) ExecuteAction(
	ctx context.Context, action domain.Action, resolver ports.FieldResolver,
) (domain.ActionResult, error) {
	args := m.Called(action)

	var res domain.ActionResult
	if a := args.Get(0); a != nil {
		res = a.(domain.ActionResult)
	}
	return res, args.Error(1)
}

// **** Maker client ****

// localMakerClient talks to a Maker living in the same process, optionally
// tampering with the returned order.
type localMakerClient struct {
	maker  *Maker
	tamper func(o *domain.Order)
}

func (c *localMakerClient) GetOrder(
	_ context.Context, pair string,
) (*domain.Order, error) {
	order, err := c.maker.GetOrder(pair)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *localMakerClient) TakeOrder(
	ctx context.Context, order domain.Order,
) (*domain.Order, *domain.ExecutionParams, error) {
	taken, params, err := c.maker.TakeOrder(ctx, order.Key, order.ID)
	if err != nil {
		return nil, nil, err
	}
	if c.tamper != nil {
		c.tamper(&taken)
	}
	return &taken, &params, nil
}

// staticMakerClient serves a fixed order.
type staticMakerClient struct {
	mock.Mock
	order domain.Order
}

func (c *staticMakerClient) GetOrder(
	_ context.Context, pair string,
) (*domain.Order, error) {
	order := c.order
	return &order, nil
}

func (c *staticMakerClient) TakeOrder(
	ctx context.Context, order domain.Order,
) (*domain.Order, *domain.ExecutionParams, error) {
	args := c.Called(order)

	var res *domain.ExecutionParams
	if a := args.Get(0); a != nil {
		res = a.(*domain.ExecutionParams)
	}
	return &order, res, args.Error(1)
}

// **** Wallets ****

type mockBitcoinWallet struct {
	mock.Mock
}

func (m *mockBitcoinWallet) Network() string { return domain.NetworkRegtest }

func (m *mockBitcoinWallet) GetAddress(ctx context.Context) (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *mockBitcoinWallet) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called()
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockBitcoinWallet) BroadcastTransaction(
	ctx context.Context, txHex, network string,
) (string, error) {
	args := m.Called(txHex, network)
	return args.String(0), args.Error(1)
}

func (m *mockBitcoinWallet) SendToAddress(
	ctx context.Context, address string, sats int64, network string,
) (string, error) {
	args := m.Called(address, sats, network)
	return args.String(0), args.Error(1)
}

type mockEthereumWallet struct {
	mock.Mock
}

func (m *mockEthereumWallet) Network() string { return domain.NetworkRegtest }

func (m *mockEthereumWallet) GetAccount() string {
	return testEthAccount
}

func (m *mockEthereumWallet) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called()
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockEthereumWallet) CallContract(
	ctx context.Context, data, contractAddress string, gasLimit uint64,
	network string,
) (string, error) {
	args := m.Called(data, contractAddress, gasLimit, network)
	return args.String(0), args.Error(1)
}

func (m *mockEthereumWallet) DeployContract(
	ctx context.Context, data string, value decimal.Decimal, gasLimit uint64,
	network string,
) (string, error) {
	args := m.Called(data, value.String(), gasLimit, network)
	return args.String(0), args.Error(1)
}
