package types

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Network is the x402 name of a chain.
type Network string

const (
	NetworkBase        Network = "base"
	NetworkBaseSepolia Network = "base-sepolia" // testnet
)

const (
	BaseChainID        uint64 = 8453
	BaseSepoliaChainID uint64 = 84532
)

func (n Network) String() string {
	return string(n)
}

func (n Network) IsTestnet() bool {
	return n == NetworkBaseSepolia
}

// NativeCurrency is the gas token of a chain as wallets describe it.
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// ChainParams are the fixed parameters used to add a chain to a wallet
// (the wallet_addEthereumChain request object).
type ChainParams struct {
	ChainID           string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls,omitempty"`
}

// ID decodes the hex chain id. Malformed ids decode to zero.
func (c ChainParams) ID() uint64 {
	id, err := hexutil.DecodeUint64(c.ChainID)
	if err != nil {
		return 0
	}
	return id
}

// SwitchChainParams is the wallet_switchEthereumChain request object.
type SwitchChainParams struct {
	ChainID string `json:"chainId"`
}

// BaseMainnet returns the parameters wallets need to add Base.
func BaseMainnet() ChainParams {
	return ChainParams{
		ChainID:   hexutil.EncodeUint64(BaseChainID),
		ChainName: "Base",
		NativeCurrency: NativeCurrency{
			Name:     "Ethereum",
			Symbol:   "ETH",
			Decimals: 18,
		},
		RPCURLs:           []string{"https://mainnet.base.org"},
		BlockExplorerURLs: []string{"https://basescan.org"},
	}
}

// BaseSepolia returns the parameters for the Base test network.
func BaseSepolia() ChainParams {
	return ChainParams{
		ChainID:   hexutil.EncodeUint64(BaseSepoliaChainID),
		ChainName: "Base Sepolia",
		NativeCurrency: NativeCurrency{
			Name:     "Ethereum",
			Symbol:   "ETH",
			Decimals: 18,
		},
		RPCURLs:           []string{"https://sepolia.base.org"},
		BlockExplorerURLs: []string{"https://sepolia.basescan.org"},
	}
}

// ChainForNetwork maps an x402 network name onto wallet chain parameters.
func ChainForNetwork(n Network) (ChainParams, bool) {
	switch n {
	case NetworkBase:
		return BaseMainnet(), true
	case NetworkBaseSepolia:
		return BaseSepolia(), true
	default:
		return ChainParams{}, false
	}
}
