package httpinterface_test

import (
	"context"

	"github.com/comit-network/swapd/internal/core/domain"
	"github.com/comit-network/swapd/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

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
