package executor_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/comit-network/swapd/internal/core/application/executor"
	"github.com/comit-network/swapd/internal/core/domain"
	journalstore "github.com/comit-network/swapd/internal/infrastructure/storage/journal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	fundAction = domain.BitcoinSendAmountToAddress{
		To: "bcrt1qhtlc", Amount: "100000000", Network: "regtest",
	}
	redeemAction = domain.BitcoinBroadcastSignedTransaction{
		Hex: "0200000001", Network: "regtest",
	}
	ethFundAction = domain.EthereumDeployContract{
		Data: "0x6060", Amount: "10000000000000000000", GasLimit: "0x5208",
		ChainID: 17,
	}
	ethRedeemAction = domain.EthereumCallContract{
		ContractAddress: "0x9f1f4f3b0ad3e1a5b3f0e6a1b2d4c0c1e1d2f3a4",
		Data:            "0xf00d", GasLimit: "0x186a0", ChainID: 17,
	}
)

func newAction(swapID string, name domain.ActionName, fields ...domain.Field) domain.Action {
	method := "GET"
	if !name.ProducesLedgerAction() {
		method = "POST"
	}
	return domain.Action{
		Name:   name,
		Href:   "/swaps/rfc003/" + swapID + "/" + string(name),
		Method: method,
		Fields: fields,
	}
}

func newSwap(id string, status domain.SwapStatus, actions ...domain.ActionName) domain.Swap {
	swap := domain.Swap{
		ID:           id,
		Role:         domain.RoleAlice,
		Counterparty: "QmCounterparty",
		Status:       status,
		Parameters: domain.SwapParameters{
			AlphaLedger: domain.Ledger{Name: domain.LedgerEthereum, ChainID: 17},
			BetaLedger:  domain.Ledger{Name: domain.LedgerBitcoin, Network: "regtest"},
			AlphaAsset:  domain.Asset{Name: domain.AssetEther, Quantity: "10000000000000000000"},
			BetaAsset:   domain.Asset{Name: domain.AssetBitcoin, Quantity: "100000000"},
		},
	}
	for _, name := range actions {
		swap.Actions = append(swap.Actions, newAction(id, name))
	}
	return swap
}

func newEngine(
	t *testing.T, registry *fakeRegistry, opts executor.Opts,
) (*executor.Service, *mockBitcoinWallet, *mockEthereumWallet) {
	btcWallet := &mockBitcoinWallet{}
	ethWallet := &mockEthereumWallet{}
	dispatcher, err := executor.NewDispatcher(btcWallet, ethWallet, "")
	require.NoError(t, err)

	opts.Registry = registry
	opts.Dispatcher = dispatcher
	// ticks are driven by the tests.
	opts.PollInterval = time.Hour
	engine, err := executor.NewService(opts)
	require.NoError(t, err)
	return engine, btcWallet, ethWallet
}

func TestNewService(t *testing.T) {
	t.Parallel()

	_, err := executor.NewService(executor.Opts{})
	require.Error(t, err)
	_, err = executor.NewService(executor.Opts{Registry: newFakeRegistry()})
	require.Error(t, err)
}

func TestEngineAcceptsNewSwaps(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	accepted := newSwap("accepted", domain.SwapStatusPendingAccept)
	accepted.Actions = []domain.Action{
		newAction("accepted", domain.ActionAccept, domain.Field{
			Name: "beta_ledger_refund_identity", Kind: domain.EthereumAddressField,
		}),
		newAction("accepted", domain.ActionDecline),
	}
	declined := newSwap("declined", domain.SwapStatusPendingAccept,
		domain.ActionAccept, domain.ActionDecline)

	registry := newFakeRegistry(accepted, declined)
	engine, _, _ := newEngine(t, registry, executor.Opts{
		AcceptPolicy: func(s domain.Swap) bool { return s.ID == "accepted" },
	})

	engine.Tick(ctx)
	engine.Tick(ctx)

	require.Equal(t, []string{
		"/swaps/rfc003/accepted/accept",
		"/swaps/rfc003/declined/decline",
	}, registry.executedHrefs())
	require.Equal(
		t, "0x00a329c0648769a73afac7f9381e08fb43dbea72",
		registry.resolved["beta_ledger_refund_identity"],
	)
}

func TestEngineDispatchesLedgerActionOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registry := newFakeRegistry(newSwap("swap", domain.SwapStatusInProgress, domain.ActionFund))
	registry.setResult("/swaps/rfc003/swap/fund", fundAction)

	engine, btcWallet, _ := newEngine(t, registry, executor.Opts{})
	btcWallet.On("SendToAddress", "bcrt1qhtlc", int64(100000000), "regtest").
		Return("txid", nil)

	for i := 0; i < 3; i++ {
		engine.Tick(ctx)
	}

	btcWallet.AssertNumberOfCalls(t, "SendToAddress", 1)
	require.Len(t, registry.executedHrefs(), 3)
}

func TestEngineTakesFirstActionInRegistryOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registry := newFakeRegistry(newSwap(
		"swap", domain.SwapStatusInProgress, domain.ActionRedeem, domain.ActionRefund,
	))
	registry.setResult("/swaps/rfc003/swap/redeem", redeemAction)

	engine, btcWallet, _ := newEngine(t, registry, executor.Opts{})
	btcWallet.On("BroadcastTransaction", "0200000001", "regtest").Return("txid", nil)

	engine.Tick(ctx)

	require.Equal(t, []string{"/swaps/rfc003/swap/redeem"}, registry.executedHrefs())
	btcWallet.AssertExpectations(t)
}

func TestEngineReportsDoneSwapsOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registry := newFakeRegistry(newSwap("old", domain.SwapStatusSwapped))
	notifier := &mockNotifier{}
	notifier.On("NotifySwapFinished", "new", domain.SwapStatusNotSwapped).Return(nil)

	engine, _, _ := newEngine(t, registry, executor.Opts{Notifier: notifier})
	require.NoError(t, engine.Start(ctx))
	defer engine.Stop()
	require.True(t, engine.IsReported("old"))

	registry.setSwaps(
		newSwap("old", domain.SwapStatusSwapped),
		newSwap("new", domain.SwapStatusNotSwapped),
	)
	engine.Tick(ctx)
	engine.Tick(ctx)

	require.True(t, engine.IsReported("new"))
	notifier.AssertNumberOfCalls(t, "NotifySwapFinished", 1)
	notifier.AssertExpectations(t)
}

func TestEngineRetriesFailedAction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registry := newFakeRegistry(newSwap("swap", domain.SwapStatusInProgress, domain.ActionFund))
	registry.setResult("/swaps/rfc003/swap/fund", fundAction)

	engine, btcWallet, _ := newEngine(t, registry, executor.Opts{})
	btcWallet.On("SendToAddress", "bcrt1qhtlc", int64(100000000), "regtest").
		Return(nil, errors.New("insufficient funds")).Once()
	btcWallet.On("SendToAddress", "bcrt1qhtlc", int64(100000000), "regtest").
		Return("txid", nil).Once()

	for i := 0; i < 3; i++ {
		engine.Tick(ctx)
	}

	btcWallet.AssertNumberOfCalls(t, "SendToAddress", 2)
	require.NoError(t, engine.AbortReason("swap"))
}

func TestEngineGivesUpAfterActionTimeout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registry := newFakeRegistry(newSwap("swap", domain.SwapStatusInProgress, domain.ActionFund))
	registry.setResult("/swaps/rfc003/swap/fund", fundAction)

	engine, btcWallet, _ := newEngine(t, registry, executor.Opts{
		ActionTimeout: 10 * time.Millisecond,
	})
	btcWallet.On("SendToAddress", "bcrt1qhtlc", int64(100000000), "regtest").
		Return(nil, errors.New("insufficient funds"))

	engine.Tick(ctx)
	time.Sleep(20 * time.Millisecond)
	engine.Tick(ctx)
	engine.Tick(ctx)

	require.ErrorIs(t, engine.AbortReason("swap"), domain.ErrTimeout)
	btcWallet.AssertNumberOfCalls(t, "SendToAddress", 1)
}

func TestEngineAbortsOnUnsupportedActionKind(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registry := newFakeRegistry(newSwap("swap", domain.SwapStatusInProgress, domain.ActionFund))
	registry.setResult("/swaps/rfc003/swap/fund", domain.UnknownLedgerAction{
		Type: "lightning-pay-invoice",
	})

	engine, _, _ := newEngine(t, registry, executor.Opts{})
	engine.Tick(ctx)
	engine.Tick(ctx)

	require.ErrorIs(t, engine.AbortReason("swap"), domain.ErrUnsupportedActionKind)
	require.Len(t, registry.executedHrefs(), 1)
}

func TestEngineAbortsOnInvalidLedgerAction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registry := newFakeRegistry(newSwap("swap", domain.SwapStatusInProgress, domain.ActionFund))
	registry.setError(
		"/swaps/rfc003/swap/fund",
		fmt.Errorf("%w: malformed amount", domain.ErrInvalidLedgerAction),
	)

	engine, btcWallet, _ := newEngine(t, registry, executor.Opts{})
	for i := 0; i < 5; i++ {
		engine.Tick(ctx)
	}

	require.ErrorIs(t, engine.AbortReason("swap"), domain.ErrInvalidLedgerAction)
	require.Len(t, registry.executedHrefs(), 1)
	btcWallet.AssertNumberOfCalls(t, "SendToAddress", 0)
}

func TestEngineGivesUpOnFailingRegistry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registry := newFakeRegistry(newSwap("swap", domain.SwapStatusInProgress, domain.ActionFund))
	registry.setError("/swaps/rfc003/swap/fund", errors.New("502 bad gateway"))

	engine, _, _ := newEngine(t, registry, executor.Opts{
		ActionTimeout: 10 * time.Millisecond,
	})

	engine.Tick(ctx)
	require.NoError(t, engine.AbortReason("swap"))

	time.Sleep(20 * time.Millisecond)
	engine.Tick(ctx)
	engine.Tick(ctx)

	require.ErrorIs(t, engine.AbortReason("swap"), domain.ErrTimeout)
	require.Len(t, registry.executedHrefs(), 2)
}

func TestEngineRecoversFromRegistryFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registry := newFakeRegistry(newSwap("swap", domain.SwapStatusInProgress, domain.ActionFund))
	registry.setResult("/swaps/rfc003/swap/fund", fundAction)
	registry.setError("/swaps/rfc003/swap/fund", errors.New("502 bad gateway"))

	engine, btcWallet, _ := newEngine(t, registry, executor.Opts{})
	btcWallet.On("SendToAddress", "bcrt1qhtlc", int64(100000000), "regtest").
		Return("txid", nil)

	engine.Tick(ctx)
	btcWallet.AssertNumberOfCalls(t, "SendToAddress", 0)

	registry.setError("/swaps/rfc003/swap/fund", nil)
	engine.Tick(ctx)

	btcWallet.AssertNumberOfCalls(t, "SendToAddress", 1)
	require.NoError(t, engine.AbortReason("swap"))
}

func TestEngineRestoresFromJournal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	journal, err := journalstore.NewActionJournal("", nil)
	require.NoError(t, err)
	defer journal.Close()

	key, err := domain.LedgerActionKey(fundAction)
	require.NoError(t, err)
	require.NoError(t, journal.AddAction(ctx, domain.JournalEntry{
		Key: key, SwapID: "swap", Action: domain.ActionFund,
		Kind: fundAction.Kind(), TxID: "txid",
	}))
	require.NoError(t, journal.AddReportedSwap(ctx, domain.ReportedSwap{
		SwapID: "done", Status: domain.SwapStatusSwapped,
	}))

	registry := newFakeRegistry(newSwap("swap", domain.SwapStatusInProgress, domain.ActionFund))
	registry.setResult("/swaps/rfc003/swap/fund", fundAction)
	notifier := &mockNotifier{}

	engine, btcWallet, _ := newEngine(t, registry, executor.Opts{
		Journal: journal, Notifier: notifier,
	})
	require.NoError(t, engine.Start(ctx))
	defer engine.Stop()

	registry.setSwaps(
		newSwap("swap", domain.SwapStatusInProgress, domain.ActionFund),
		newSwap("done", domain.SwapStatusSwapped),
	)
	engine.Tick(ctx)

	btcWallet.AssertNumberOfCalls(t, "SendToAddress", 0)
	notifier.AssertNumberOfCalls(t, "NotifySwapFinished", 0)
}

func TestEngineJournalsDispatchedActions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	journal, err := journalstore.NewActionJournal("", nil)
	require.NoError(t, err)
	defer journal.Close()

	registry := newFakeRegistry(newSwap("swap", domain.SwapStatusInProgress, domain.ActionFund))
	registry.setResult("/swaps/rfc003/swap/fund", fundAction)
	engine, btcWallet, _ := newEngine(t, registry, executor.Opts{Journal: journal})
	btcWallet.On("SendToAddress", "bcrt1qhtlc", int64(100000000), "regtest").
		Return("txid", nil)

	engine.Tick(ctx)

	entries, err := journal.ListActions(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "swap", entries[0].SwapID)
	require.Equal(t, domain.ActionFund, entries[0].Action)
	require.Equal(t, "txid", entries[0].TxID)
}

func TestEngineSkipsBucketOnRegistryError(t *testing.T) {
	t.Parallel()

	registry := newFakeRegistry()
	registry.listErr = errors.New("connection refused")
	engine, _, _ := newEngine(t, registry, executor.Opts{})

	require.Error(t, engine.Start(context.Background()))
	engine.Tick(context.Background())
	require.Empty(t, registry.executedHrefs())
}

// The taker (Alice) sells 10 ether for 1 bitcoin to the maker (Bob). Each
// party polls its own registry: Alice funds the ethereum HTLC, Bob funds the
// bitcoin one once Alice's fund is observed, then Alice redeems the bitcoin
// and Bob the ether. Both see the swap as swapped and report it once.
func TestEngineBitcoinEtherSwap(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var performed []string
	record := func(step string) func(mock.Arguments) {
		return func(mock.Arguments) { performed = append(performed, step) }
	}

	bobSwap := func(status domain.SwapStatus, actions ...domain.ActionName) domain.Swap {
		swap := newSwap("swap", status, actions...)
		swap.Role = domain.RoleBob
		return swap
	}

	aliceRegistry := newFakeRegistry(newSwap("swap", domain.SwapStatusInProgress, domain.ActionFund))
	aliceRegistry.setResult("/swaps/rfc003/swap/fund", ethFundAction)
	aliceRegistry.setResult("/swaps/rfc003/swap/redeem", redeemAction)
	bobRegistry := newFakeRegistry(bobSwap(domain.SwapStatusInProgress))
	bobRegistry.setResult("/swaps/rfc003/swap/fund", fundAction)
	bobRegistry.setResult("/swaps/rfc003/swap/redeem", ethRedeemAction)

	aliceNotifier := &mockNotifier{}
	aliceNotifier.On("NotifySwapFinished", "swap", domain.SwapStatusSwapped).Return(nil)
	bobNotifier := &mockNotifier{}
	bobNotifier.On("NotifySwapFinished", "swap", domain.SwapStatusSwapped).Return(nil)

	alice, aliceBtc, aliceEth := newEngine(t, aliceRegistry, executor.Opts{
		Name: "taker", Notifier: aliceNotifier,
	})
	bob, bobBtc, bobEth := newEngine(t, bobRegistry, executor.Opts{
		Name: "maker", Notifier: bobNotifier,
	})
	aliceEth.On(
		"DeployContract", "0x6060", "10000000000000000000", uint64(21000), "17",
	).Return("eth-fund-tx", nil).Run(record("alice fund"))
	bobBtc.On("SendToAddress", "bcrt1qhtlc", int64(100000000), "regtest").
		Return("btc-fund-tx", nil).Run(record("bob fund"))
	aliceBtc.On("BroadcastTransaction", "0200000001", "regtest").
		Return("btc-redeem-tx", nil).Run(record("alice redeem"))
	bobEth.On(
		"CallContract", "0xf00d", "0x9f1f4f3b0ad3e1a5b3f0e6a1b2d4c0c1e1d2f3a4",
		uint64(100000), "17",
	).Return("eth-redeem-tx", nil).Run(record("bob redeem"))

	tick := func() {
		for i := 0; i < 2; i++ {
			alice.Tick(ctx)
			bob.Tick(ctx)
		}
	}

	tick()
	require.Equal(t, []string{"alice fund"}, performed)

	aliceRegistry.setSwaps(newSwap("swap", domain.SwapStatusInProgress))
	bobRegistry.setSwaps(bobSwap(domain.SwapStatusInProgress, domain.ActionFund))
	tick()

	aliceRegistry.setSwaps(newSwap(
		"swap", domain.SwapStatusInProgress, domain.ActionRedeem, domain.ActionRefund,
	))
	bobRegistry.setSwaps(bobSwap(domain.SwapStatusInProgress))
	tick()

	aliceRegistry.setSwaps(newSwap("swap", domain.SwapStatusSwapped))
	bobRegistry.setSwaps(bobSwap(
		domain.SwapStatusInProgress, domain.ActionRedeem, domain.ActionRefund,
	))
	tick()

	bobRegistry.setSwaps(bobSwap(domain.SwapStatusSwapped))
	tick()

	require.Equal(t, []string{
		"alice fund", "bob fund", "alice redeem", "bob redeem",
	}, performed)
	for _, engine := range []*executor.Service{alice, bob} {
		require.True(t, engine.IsReported("swap"))
		require.NoError(t, engine.AbortReason("swap"))
	}
	aliceNotifier.AssertNumberOfCalls(t, "NotifySwapFinished", 1)
	bobNotifier.AssertNumberOfCalls(t, "NotifySwapFinished", 1)
}
