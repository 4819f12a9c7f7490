// Package config loads x402cats settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/vitwit/x402cats/mint"
	"github.com/vitwit/x402cats/types"
	"github.com/vitwit/x402cats/utils"
)

// Config is read from X402CATS_* variables. Defaults are the Base
// mainnet deployment.
type Config struct {
	Network           string        `env:"X402CATS_NETWORK" envDefault:"base" validate:"oneof=base base-sepolia"`
	PublicRPCURL      string        `env:"X402CATS_PUBLIC_RPC_URL" envDefault:"https://mainnet.base.org" validate:"url"`
	CollectionAddress string        `env:"X402CATS_COLLECTION_ADDRESS" envDefault:"0x86F81966e14dA17193CC3F3d6903184730F36681" validate:"eth_addr"`
	USDCAddress       string        `env:"X402CATS_USDC_ADDRESS" envDefault:"0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913" validate:"eth_addr"`
	Price             string        `env:"X402CATS_PRICE" envDefault:"3" validate:"numeric"`
	MaxPerWallet      int64         `env:"X402CATS_MAX_PER_WALLET" envDefault:"20" validate:"gte=1"`
	MaxSupply         int64         `env:"X402CATS_MAX_SUPPLY" envDefault:"5555" validate:"gte=1"`
	PollInterval      time.Duration `env:"X402CATS_POLL_INTERVAL" envDefault:"30s" validate:"gt=0"`
	StatusTTL         time.Duration `env:"X402CATS_STATUS_TTL" envDefault:"5s" validate:"gt=0"`
	ReceiptInterval   time.Duration `env:"X402CATS_RECEIPT_INTERVAL" envDefault:"2s" validate:"gt=0"`
	Timeout           time.Duration `env:"X402CATS_TIMEOUT" envDefault:"5m" validate:"gt=0"`

	// Wallet adapters, tried in this order when set.
	SignerURL  string `env:"X402CATS_SIGNER_URL" validate:"omitempty,url"`
	PrivateKey string `env:"X402CATS_PRIVATE_KEY" validate:"omitempty,hexadecimal"`

	ListenAddr  string `env:"X402CATS_LISTEN_ADDR" envDefault:":8080" validate:"required,hostname_port"`
	ResourceURL string `env:"X402CATS_RESOURCE_URL" envDefault:"https://x402-website.vercel.app" validate:"url"`
	LogLevel    string `env:"X402CATS_LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	// Collection metadata published in the payment schema.
	TwitterURL      string `env:"X402CATS_TWITTER_URL" envDefault:"https://x.com/Catsx402" validate:"omitempty,url"`
	MetadataURL     string `env:"X402CATS_METADATA_URL" envDefault:"https://gateway.lighthouse.storage/ipfs/bafybeig5nm7scghz5b6gjqictzqhz3soxe36f46eiir5ingjx6pflyu3ju" validate:"omitempty,url"`
	ImagePreviewURL string `env:"X402CATS_IMAGE_PREVIEW_URL" envDefault:"https://gateway.lighthouse.storage/ipfs/bafybeiaa2nnwqbbnwfansu4gevlo4zmsjxgsivutnsfeat3mbyoxenprnu/1.png" validate:"omitempty,url"`
}

// Load reads envFile when it exists, then the process environment, and
// validates the result. Variables already set take precedence over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, configError("load %s: %v", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, configError("parse env: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := utils.Validator().Struct(c); err != nil {
		return configError("validation failed: %v", err)
	}
	price, err := c.UnitPrice()
	if err != nil {
		return configError("price: %v", err)
	}
	if price.Sign() <= 0 {
		return configError("price must be greater than zero, got %s", c.Price)
	}
	return nil
}

// UnitPrice is Price in USDC base units.
func (c *Config) UnitPrice() (*big.Int, error) {
	return utils.ParseAmountWithDecimals(c.Price, mint.StablecoinDecimals)
}

// Chain returns the wallet parameters for the configured network, with
// the public RPC URL first.
func (c *Config) Chain() types.ChainParams {
	chain, ok := types.ChainForNetwork(types.Network(c.Network))
	if !ok {
		chain = types.BaseMainnet()
	}
	if c.PublicRPCURL != "" && c.PublicRPCURL != chain.RPCURLs[0] {
		chain.RPCURLs = append([]string{c.PublicRPCURL}, chain.RPCURLs...)
	}
	return chain
}

// Mint builds the workflow configuration.
func (c *Config) Mint() mint.Config {
	price, _ := c.UnitPrice()
	return mint.Config{
		Chain:           c.Chain(),
		Collection:      common.HexToAddress(c.CollectionAddress),
		Stablecoin:      common.HexToAddress(c.USDCAddress),
		UnitPrice:       price,
		MaxPerWallet:    c.MaxPerWallet,
		MaxSupply:       c.MaxSupply,
		StatusTTL:       c.StatusTTL,
		ReceiptInterval: c.ReceiptInterval,
		ConfirmTimeout:  c.Timeout,
	}
}

func configError(format string, args ...any) error {
	return &types.Error{Code: types.ErrConfigError, Message: fmt.Sprintf(format, args...)}
}
