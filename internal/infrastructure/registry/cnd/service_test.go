package cnd_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/comit-network/swapd/internal/core/domain"
	"github.com/comit-network/swapd/internal/core/ports"
	"github.com/comit-network/swapd/internal/infrastructure/registry/cnd"
	"github.com/stretchr/testify/require"
)

const (
	peerID     = "QmXfGiwNESAFWUvDVJ4NLaKYYVopYdV5HbpDSgz5TSypkb"
	swapID     = "399e8ff5-9729-479e-aad8-49b03f8fc5d5"
	btcAddress = "bcrt1qq8uy4adtnzvzgmaam2pe0q4n9u7k4rwh3ysyzh"
)

var (
	swapsJSON = fmt.Sprintf(`{
  "class": ["swaps"],
  "entities": [{
    "class": ["swap"],
    "properties": {
      "id": %q,
      "role": "Bob",
      "status": "IN_PROGRESS",
      "counterparty": "QmTaker",
      "parameters": {
        "alpha_ledger": {"name": "bitcoin", "network": "regtest"},
        "beta_ledger": {"name": "ethereum", "chain_id": 17},
        "alpha_asset": {"name": "bitcoin", "quantity": "100000000"},
        "beta_asset": {"name": "ether", "quantity": "10000000000000000000"}
      }
    },
    "actions": [
      {"name": "accept", "href": "/swaps/rfc003/%[1]s/accept", "method": "POST"},
      {
        "name": "fund",
        "href": "/swaps/rfc003/%[1]s/fund",
        "method": "GET",
        "fields": [
          {"name": "address", "class": ["bitcoin", "address"]},
          {"name": "fee_per_wu", "class": ["bitcoin", "feePerWU"]},
          {"name": "note", "class": ["comment"]}
        ]
      }
    ],
    "links": [{"rel": ["self"], "href": "/swaps/rfc003/%[1]s"}]
  }]
}`, swapID)
	fundJSON = `{
  "type": "bitcoin-send-amount-to-address",
  "payload": {"to": "bcrt1qtx8s7kxx6ezq6kqxyl0twf0dk2u4cq2rz6ah0c", "amount": "100000000", "network": "regtest"}
}`
)

type testServer struct {
	*httptest.Server
	hits      int32
	lock      sync.Mutex
	lastQuery map[string]string
	lastBody  map[string]string
}

func (ts *testServer) query() map[string]string {
	ts.lock.Lock()
	defer ts.lock.Unlock()
	return ts.lastQuery
}

func (ts *testServer) body() map[string]string {
	ts.lock.Lock()
	defer ts.lock.Unlock()
	return ts.lastBody
}

func newTestServer(t *testing.T) *testServer {
	ts := &testServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&ts.hits, 1)
		if r.URL.Path != "/" {
			w.Header().Set("Content-Type", "application/problem+json")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"title": "Swap not found."}`))
			return
		}
		fmt.Fprintf(w, `{"id": %q, "listen_addresses": ["/ip4/127.0.0.1/tcp/9939"]}`, peerID)
	})
	mux.HandleFunc("/swaps", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&ts.hits, 1)
		w.Write([]byte(swapsJSON))
	})
	mux.HandleFunc("/swaps/rfc003", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&ts.hits, 1)
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req domain.SwapRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Peer.PeerID == "location" {
			w.Header().Set("Location", "/swaps/rfc003/"+swapID)
			w.WriteHeader(http.StatusCreated)
			return
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"id": %q}`, swapID)
	})
	mux.HandleFunc("/swaps/rfc003/"+swapID+"/fund", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&ts.hits, 1)
		ts.lock.Lock()
		ts.lastQuery = map[string]string{}
		for k := range r.URL.Query() {
			ts.lastQuery[k] = r.URL.Query().Get(k)
		}
		ts.lock.Unlock()
		w.Write([]byte(fundJSON))
	})
	mux.HandleFunc("/swaps/rfc003/"+swapID+"/redeem", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&ts.hits, 1)
		w.Write([]byte(`{"payload": {}}`))
	})
	mux.HandleFunc("/swaps/rfc003/"+swapID+"/accept", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&ts.hits, 1)
		body := map[string]string{}
		json.NewDecoder(r.Body).Decode(&body)
		ts.lock.Lock()
		ts.lastBody = body
		ts.lock.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/swaps/rfc003/"+swapID+"/decline", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&ts.hits, 1)
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"title": "Invalid action.", "detail": "swap already accepted"}`))
	})
	mux.HandleFunc("/swaps/rfc003/"+swapID+"/refund", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&ts.hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	ts.Server = httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newTestRegistry(t *testing.T) (ports.SwapRegistry, *testServer) {
	ts := newTestServer(t)
	registry, err := cnd.NewService(ts.URL, 1000)
	require.NoError(t, err)
	return registry, ts
}

func resolver(_ context.Context, f domain.Field) (string, error) {
	switch f.Kind {
	case domain.BitcoinAddressField:
		return btcAddress, nil
	case domain.BitcoinFeePerWUField:
		return "150", nil
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnresolvedField, f.Name)
	}
}

func TestNewService(t *testing.T) {
	_, err := cnd.NewService("", 0)
	require.Error(t, err)
	_, err = cnd.NewService("localhost", 0)
	require.Error(t, err)
	_, err = cnd.NewService("http://localhost:8000", 0)
	require.NoError(t, err)
}

func TestInfo(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	id, err := registry.GetPeerID(ctx)
	require.NoError(t, err)
	require.Equal(t, peerID, id)

	addresses, err := registry.GetListenAddresses(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"/ip4/127.0.0.1/tcp/9939"}, addresses)
}

func TestListSwaps(t *testing.T) {
	registry, _ := newTestRegistry(t)

	swaps, err := registry.ListSwaps(context.Background())
	require.NoError(t, err)
	require.Len(t, swaps, 1)

	swap := swaps[0]
	require.Equal(t, swapID, swap.ID)
	require.Equal(t, domain.RoleBob, swap.Role)
	require.Equal(t, domain.SwapStatusInProgress, swap.Status)
	require.Equal(t, uint64(17), swap.Parameters.BetaLedger.ChainID)
	require.Equal(t, "10000000000000000000", swap.Parameters.BetaAsset.Quantity)
	require.True(t, swap.IsNew())
	require.True(t, swap.IsOngoing())

	fund, ok := swap.FindAction(domain.ActionFund)
	require.True(t, ok)
	require.Equal(t, http.MethodGet, fund.Method)
	require.Equal(t, []domain.Field{
		{Name: "address", Kind: domain.BitcoinAddressField},
		{Name: "fee_per_wu", Kind: domain.BitcoinFeePerWUField},
		{Name: "note", Kind: domain.UnknownField},
	}, fund.Fields)
}

func TestGetSwap(t *testing.T) {
	registry, _ := newTestRegistry(t)

	swap, err := registry.GetSwap(context.Background(), "unknown")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Nil(t, swap)
}

func TestPostSwap(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	req := domain.SwapRequest{
		AlphaLedger: domain.Ledger{Name: domain.LedgerBitcoin, Network: domain.NetworkRegtest},
		BetaLedger:  domain.Ledger{Name: domain.LedgerEthereum, Network: domain.NetworkRegtest},
		AlphaAsset:  domain.Asset{Name: domain.AssetBitcoin, Quantity: "100000000"},
		BetaAsset:   domain.Asset{Name: domain.AssetEther, Quantity: "10000000000000000000"},
		AlphaExpiry: 1700007200,
		BetaExpiry:  1700003600,
		Peer:        domain.PeerInfo{PeerID: peerID},
	}
	id, err := registry.PostSwap(ctx, req)
	require.NoError(t, err)
	require.Equal(t, swapID, id)

	req.Peer.PeerID = "location"
	id, err = registry.PostSwap(ctx, req)
	require.NoError(t, err)
	require.Equal(t, swapID, id)
}

func TestExecuteAction(t *testing.T) {
	ctx := context.Background()

	t.Run("fund", func(t *testing.T) {
		registry, ts := newTestRegistry(t)
		fund := domain.Action{
			Name:   domain.ActionFund,
			Href:   "/swaps/rfc003/" + swapID + "/fund",
			Method: http.MethodGet,
			Fields: []domain.Field{
				{Name: "address", Kind: domain.BitcoinAddressField},
				{Name: "fee_per_wu", Kind: domain.BitcoinFeePerWUField},
			},
		}

		res, err := registry.ExecuteAction(ctx, fund, resolver)
		require.NoError(t, err)
		require.Equal(t, map[string]string{
			"address": btcAddress, "fee_per_wu": "150",
		}, ts.query())

		action, ok := res.LedgerAction()
		require.True(t, ok)
		require.Equal(t, domain.BitcoinSendAmountToAddress{
			To:      "bcrt1qtx8s7kxx6ezq6kqxyl0twf0dk2u4cq2rz6ah0c",
			Amount:  "100000000",
			Network: domain.NetworkRegtest,
		}, action)
	})

	t.Run("accept", func(t *testing.T) {
		registry, ts := newTestRegistry(t)
		accept := domain.Action{
			Name:   domain.ActionAccept,
			Href:   ts.URL + "/swaps/rfc003/" + swapID + "/accept",
			Method: http.MethodPost,
			Fields: []domain.Field{{Name: "beta_ledger_refund_identity", Kind: domain.BitcoinAddressField}},
		}

		res, err := registry.ExecuteAction(ctx, accept, resolver)
		require.NoError(t, err)
		_, ok := res.LedgerAction()
		require.False(t, ok)
		require.Equal(t, map[string]string{
			"beta_ledger_refund_identity": btcAddress,
		}, ts.body())
	})

	t.Run("unresolved field", func(t *testing.T) {
		registry, ts := newTestRegistry(t)
		fund := domain.Action{
			Name:   domain.ActionFund,
			Href:   "/swaps/rfc003/" + swapID + "/fund",
			Fields: []domain.Field{{Name: "note", Kind: domain.UnknownField}},
		}

		_, err := registry.ExecuteAction(ctx, fund, resolver)
		require.ErrorIs(t, err, domain.ErrUnresolvedField)
		require.Zero(t, atomic.LoadInt32(&ts.hits))
	})

	t.Run("malformed ledger action", func(t *testing.T) {
		registry, _ := newTestRegistry(t)
		redeem := domain.Action{
			Name: domain.ActionRedeem,
			Href: "/swaps/rfc003/" + swapID + "/redeem",
		}

		_, err := registry.ExecuteAction(ctx, redeem, resolver)
		require.ErrorIs(t, err, domain.ErrInvalidLedgerAction)
	})

	t.Run("registry errors", func(t *testing.T) {
		registry, _ := newTestRegistry(t)

		decline := domain.Action{
			Name:   domain.ActionDecline,
			Href:   "/swaps/rfc003/" + swapID + "/decline",
			Method: http.MethodPost,
		}
		_, err := registry.ExecuteAction(ctx, decline, resolver)
		require.ErrorContains(t, err, "swap already accepted")

		refund := domain.Action{
			Name: domain.ActionRefund,
			Href: "/swaps/rfc003/" + swapID + "/refund",
		}
		_, err = registry.ExecuteAction(ctx, refund, resolver)
		require.ErrorContains(t, err, "500")

		unknown := domain.Action{
			Name: domain.ActionRedeem,
			Href: "/swaps/rfc003/unknown/redeem",
		}
		_, err = registry.ExecuteAction(ctx, unknown, resolver)
		require.ErrorIs(t, err, domain.ErrNotFound)

		_, err = registry.ExecuteAction(ctx, domain.Action{
			Name: domain.ActionRedeem, Href: "/x", Method: "PATCH",
		}, resolver)
		require.Error(t, err)
	})
}
