package wallet_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/x402cats/testutils"
	"github.com/vitwit/x402cats/types"
	"github.com/vitwit/x402cats/wallet"
)

func TestConnectPicksFirstAvailableByPriority(t *testing.T) {
	chain := testutils.NewChain(testutils.DefaultAccount)
	other := testutils.NewChain(testutils.DefaultAccount)

	m := wallet.NewManager([]wallet.Adapter{
		wallet.StaticAdapter{AdapterName: "fallback", Rank: 5, Provider: other},
		wallet.StaticAdapter{AdapterName: "missing", Rank: 0},
		wallet.StaticAdapter{AdapterName: "primary", Rank: 1, Provider: chain},
	}, nil, nil)

	s, err := m.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "primary", s.Adapter)
	assert.Equal(t, testutils.DefaultAccount, s.Address)
	assert.Equal(t, types.BaseChainID, s.ChainID)
	assert.Equal(t, "0xf39F...2266", s.ShortAddress())
	assert.Zero(t, other.Count("eth_requestAccounts"))
}

func TestConnectNoProvider(t *testing.T) {
	m := wallet.NewManager([]wallet.Adapter{
		wallet.StaticAdapter{AdapterName: "injected"},
		wallet.RPCAdapter{},
		wallet.KeyedAdapter{},
	}, nil, nil)

	_, err := m.Connect(context.Background())

	var noProvider *wallet.NoProviderError
	require.True(t, errors.As(err, &noProvider))
	assert.ElementsMatch(t, []string{"injected", "rpc-signer", "local-key"}, noProvider.Tried)
}

func TestConnectRejected(t *testing.T) {
	chain := testutils.NewChain(testutils.DefaultAccount)
	chain.RejectNext("eth_requestAccounts")

	m := wallet.NewManager([]wallet.Adapter{wallet.StaticAdapter{AdapterName: "w", Provider: chain}}, nil, nil)

	_, err := m.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, wallet.IsUserRejected(err))
}

func connect(t *testing.T, chain *testutils.Chain) (*wallet.Manager, *wallet.Session) {
	t.Helper()
	m := wallet.NewManager([]wallet.Adapter{wallet.StaticAdapter{AdapterName: "w", Provider: chain}}, nil, nil)
	s, err := m.Connect(context.Background())
	require.NoError(t, err)
	return m, s
}

func TestEnsureChainNoop(t *testing.T) {
	chain := testutils.NewChain(testutils.DefaultAccount)
	m, s := connect(t, chain)

	require.NoError(t, m.EnsureChain(context.Background(), s, types.BaseMainnet()))
	assert.Zero(t, chain.Count("wallet_switchEthereumChain"))
}

func TestEnsureChainSwitchesKnownChain(t *testing.T) {
	chain := testutils.NewChain(testutils.DefaultAccount)
	chain.SetChain(1, true)
	m, s := connect(t, chain)
	require.Equal(t, uint64(1), s.ChainID)

	require.NoError(t, m.EnsureChain(context.Background(), s, types.BaseMainnet()))
	assert.Equal(t, types.BaseChainID, s.ChainID)
	assert.Zero(t, chain.Count("wallet_addEthereumChain"))
}

func TestEnsureChainAddsUnknownChain(t *testing.T) {
	chain := testutils.NewChain(testutils.DefaultAccount)
	chain.SetChain(1, true)
	chain.Forget(types.BaseChainID)
	m, s := connect(t, chain)

	require.NoError(t, m.EnsureChain(context.Background(), s, types.BaseMainnet()))
	assert.Equal(t, types.BaseChainID, s.ChainID)
	assert.Equal(t, 1, chain.Count("wallet_addEthereumChain"))
}

func TestEnsureChainRejected(t *testing.T) {
	chain := testutils.NewChain(testutils.DefaultAccount)
	chain.SetChain(1, true)
	chain.RejectNext("wallet_switchEthereumChain")
	m, s := connect(t, chain)

	err := m.EnsureChain(context.Background(), s, types.BaseMainnet())

	var switchErr *wallet.ChainSwitchError
	require.True(t, errors.As(err, &switchErr))
	assert.True(t, switchErr.Rejected())
	assert.Equal(t, uint64(1), switchErr.From)
	assert.Equal(t, types.BaseChainID, switchErr.To)
	assert.Equal(t, uint64(1), s.ChainID)
}

func TestEnsureChainAddRejected(t *testing.T) {
	chain := testutils.NewChain(testutils.DefaultAccount)
	chain.SetChain(1, true)
	chain.Forget(types.BaseChainID)
	chain.RejectNext("wallet_addEthereumChain")
	m, s := connect(t, chain)

	err := m.EnsureChain(context.Background(), s, types.BaseMainnet())

	var switchErr *wallet.ChainSwitchError
	require.True(t, errors.As(err, &switchErr))
	assert.True(t, switchErr.Rejected())
	assert.Equal(t, uint64(1), s.ChainID)
}
