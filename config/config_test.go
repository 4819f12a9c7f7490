package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/x402cats/types"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "base", cfg.Network)
	assert.Equal(t, int64(20), cfg.MaxPerWallet)
	assert.Equal(t, int64(5555), cfg.MaxSupply)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.StatusTTL)

	price, err := cfg.UnitPrice()
	require.NoError(t, err)
	assert.Equal(t, int64(3_000_000), price.Int64())

	m := cfg.Mint()
	assert.Equal(t, common.HexToAddress("0x86F81966e14dA17193CC3F3d6903184730F36681"), m.Collection)
	assert.Equal(t, types.BaseChainID, m.Chain.ID())
	assert.Equal(t, []string{"https://mainnet.base.org"}, m.Chain.RPCURLs)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"X402CATS_NETWORK=base-sepolia\nX402CATS_PRICE=2.5\nX402CATS_PUBLIC_RPC_URL=https://rpc.example.org\n",
	), 0o600))

	// godotenv does not override variables that are already set
	t.Setenv("X402CATS_PRICE", "4")
	t.Cleanup(func() {
		os.Unsetenv("X402CATS_NETWORK")
		os.Unsetenv("X402CATS_PUBLIC_RPC_URL")
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "base-sepolia", cfg.Network)
	price, err := cfg.UnitPrice()
	require.NoError(t, err)
	assert.Equal(t, int64(4_000_000), price.Int64())

	chain := cfg.Chain()
	assert.Equal(t, types.BaseSepoliaChainID, chain.ID())
	assert.Equal(t, []string{"https://rpc.example.org", "https://sepolia.base.org"}, chain.RPCURLs)
}

func TestLoadMissingEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"X402CATS_COLLECTION_ADDRESS": "0x1234",
		"X402CATS_MAX_PER_WALLET":     "0",
		"X402CATS_PRICE":              "three",
		"X402CATS_NETWORK":            "solana",
		"X402CATS_POLL_INTERVAL":      "soon",
		"X402CATS_PRIVATE_KEY":        "not-a-key",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)

			_, err := Load("")
			var xerr *types.Error
			require.ErrorAs(t, err, &xerr)
			assert.Equal(t, types.ErrConfigError, xerr.Code)
		})
	}
}

func TestPriceTooPrecise(t *testing.T) {
	t.Setenv("X402CATS_PRICE", "0.0000001")

	_, err := Load("")
	assert.Error(t, err)
}

func TestPriceMustBePositive(t *testing.T) {
	for _, price := range []string{"0", "0.000"} {
		t.Run(price, func(t *testing.T) {
			t.Setenv("X402CATS_PRICE", price)

			_, err := Load("")
			var xerr *types.Error
			require.ErrorAs(t, err, &xerr)
			assert.Equal(t, types.ErrConfigError, xerr.Code)
			assert.Contains(t, xerr.Message, "greater than zero")
		})
	}
}
