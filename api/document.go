// Package api serves the static x402 payment-schema document that
// payment-discovery crawlers read to list the collection.
package api

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vitwit/x402cats/config"
	"github.com/vitwit/x402cats/types"
	"github.com/vitwit/x402cats/utils"
)

// NewDocument builds and validates the payment-schema document for cfg.
func NewDocument(cfg *config.Config) (*types.X402Response, error) {
	price, err := cfg.UnitPrice()
	if err != nil {
		return nil, &types.Error{Code: types.ErrInvalidSchema, Message: fmt.Sprintf("price: %v", err)}
	}

	collection, usdc := cfg.CollectionAddress, cfg.USDCAddress
	for _, addr := range []string{collection, usdc} {
		if err := utils.ValidateAddress(addr); err != nil {
			return nil, &types.Error{Code: types.ErrInvalidSchema, Message: fmt.Sprintf("%s: %v", addr, err)}
		}
	}

	doc := &types.X402Response{
		X402Version: int(types.X402Version1),
		Accepts: []types.PaymentRequirements{{
			Scheme:            string(types.SchemeExact),
			Network:           cfg.Network,
			MaxAmountRequired: price.String(),
			Resource:          cfg.ResourceURL,
			Description:       description(cfg),
			MimeType:          "application/json",
			PayTo:             collection,
			MaxTimeoutSeconds: 300,
			Asset:             "USDC",
			OutputSchema:      mintSchema(cfg.MaxPerWallet),
			Extra: map[string]interface{}{
				"website":      cfg.ResourceURL,
				"twitter":      cfg.TwitterURL,
				"contract":     collection,
				"usdcContract": usdc,
				"totalSupply":  cfg.MaxSupply,
				"maxPerWallet": cfg.MaxPerWallet,
				"pricePerNFT":  cfg.Price + " USDC",
				"blockchain":   blockchainName(types.Network(cfg.Network)),
				"metadata":     cfg.MetadataURL,
				"imagePreview": cfg.ImagePreviewURL,
			},
		}},
	}

	if err := utils.ValidateX402Response(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func description(cfg *config.Config) string {
	return fmt.Sprintf(
		"x402Cats NFT Mint - Mint unique pixel cat NFTs on %s blockchain. %s total supply, max %d per wallet. "+
			"Each cat is a randomly generated pixel art with unique traits.",
		chainLabel(types.Network(cfg.Network)), groupThousands(cfg.MaxSupply), cfg.MaxPerWallet,
	)
}

// mintSchema describes the mint request a paying client sends and the
// result it receives.
func mintSchema(maxPerWallet int64) *types.OutputSchema {
	return &types.OutputSchema{
		Input: types.InputSchema{
			Type:     "http",
			Method:   "POST",
			BodyType: "json",
			BodyFields: map[string]types.FieldSchema{
				"quantity": {
					Type:        "number",
					Required:    true,
					Description: fmt.Sprintf("Number of NFTs to mint (1-%d)", maxPerWallet),
				},
				"walletAddress": {
					Type:        "string",
					Required:    true,
					Description: "Wallet address to mint NFTs to",
				},
			},
		},
		Output: map[string]types.FieldSchema{
			"transactionHash": {Type: "string", Description: "Transaction hash of the mint operation"},
			"tokenIds":        {Type: "array", Description: "Array of minted token IDs"},
			"quantity":        {Type: "number", Description: "Number of NFTs minted"},
			"totalCost":       {Type: "string", Description: "Total cost in USDC"},
			"success":         {Type: "boolean", Description: "Whether the mint was successful"},
		},
	}
}

func chainLabel(n types.Network) string {
	if n.IsTestnet() {
		return "Base Sepolia"
	}
	return "Base"
}

func blockchainName(n types.Network) string {
	if n.IsTestnet() {
		return "Base Sepolia"
	}
	return "Base Mainnet"
}

// groupThousands renders 5555 as "5,555".
func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
