package bitcoind

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/mock"
)

type mockRPCClient struct {
	mock.Mock
}

func (m *mockRPCClient) GetNewAddress(account string) (btcutil.Address, error) {
	args := m.Called(account)

	var res btcutil.Address
	if a := args.Get(0); a != nil {
		res = a.(btcutil.Address)
	}
	return res, args.Error(1)
}

func (m *mockRPCClient) GetBalance(account string) (btcutil.Amount, error) {
	args := m.Called(account)
	return args.Get(0).(btcutil.Amount), args.Error(1)
}

func (m *mockRPCClient) SendRawTransaction(
	tx *wire.MsgTx, allowHighFees bool,
) (*chainhash.Hash, error) {
	args := m.Called(tx.TxHash().String(), allowHighFees)

	var res *chainhash.Hash
	if a := args.Get(0); a != nil {
		res = a.(*chainhash.Hash)
	}
	return res, args.Error(1)
}

func (m *mockRPCClient) SendToAddress(
	address btcutil.Address, amount btcutil.Amount,
) (*chainhash.Hash, error) {
	args := m.Called(address.EncodeAddress(), int64(amount))

	var res *chainhash.Hash
	if a := args.Get(0); a != nil {
		res = a.(*chainhash.Hash)
	}
	return res, args.Error(1)
}

func (m *mockRPCClient) Shutdown() {
	m.Called()
}
