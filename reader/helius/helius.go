// Package helius reads Solana balances through the Helius RPC endpoint:
// getBalance for lamports and the DAS searchAssets method for fungible
// SPL tokens.
package helius

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"walletscope/config"
	"walletscope/internal/chain"
	"walletscope/internal/units"
	"walletscope/logger"
	"walletscope/models"
	"walletscope/reader"
)

const symbolFallbackLen = 8

// Provider reads Solana balances through Helius RPC.
type Provider struct {
	client   *reader.Client
	endpoint string
	pageSize int
	maxPages int
	log      *logger.Log
}

func New(cfg config.HeliusConfig, client *reader.Client) *Provider {
	endpoint := strings.TrimRight(cfg.URL, "/") + "/"
	if cfg.APIKey != "" {
		endpoint += "?api-key=" + url.QueryEscape(cfg.APIKey)
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	return &Provider{
		client:   client,
		endpoint: endpoint,
		pageSize: pageSize,
		maxPages: maxPages,
		log:      logger.GetLogger(),
	}
}

func (p *Provider) Name() string       { return "helius" }
func (p *Provider) Chain() chain.Chain { return chain.Solana }

func (p *Provider) NativeBalance(ctx context.Context, address string) (float64, error) {
	var res models.HeliusBalanceResult
	if err := p.client.CallRPC(ctx, p.endpoint, "getBalance", []any{address}, &res); err != nil {
		if errors.Is(err, models.ErrProviderUnavailable) {
			return 0, err
		}
		p.log.WithComponent("helius").WithError(err).Warn("malformed getBalance response")
		return 0, nil
	}
	return units.Native(res.Value.Int, chain.Solana), nil
}

type searchParams struct {
	OwnerAddress string `json:"ownerAddress"`
	TokenType    string `json:"tokenType"`
	Page         int    `json:"page"`
	Limit        int    `json:"limit"`
}

func (p *Provider) TokenBalances(ctx context.Context, address string) ([]models.RawTokenBalance, error) {
	log := p.log.WithComponent("helius").WithFields(logger.Fields{"address": address})

	var entries []models.RawTokenBalance
	for page := 1; page <= p.maxPages; page++ {
		var res models.HeliusSearchAssetsResult
		err := p.client.CallRPC(ctx, p.endpoint, "searchAssets", searchParams{
			OwnerAddress: address,
			TokenType:    "fungible",
			Page:         page,
			Limit:        p.pageSize,
		}, &res)
		if err != nil {
			if errors.Is(err, models.ErrProviderUnavailable) {
				return nil, err
			}
			log.WithError(err).WithFields(logger.Fields{"page": page}).Warn("malformed searchAssets response")
			break
		}

		for _, item := range res.Items {
			entries = append(entries, toRaw(item))
		}
		if len(res.Items) < p.pageSize {
			break
		}
		if page == p.maxPages {
			log.WithFields(logger.Fields{"pages": page}).Warn("asset list truncated at max_pages")
		}
	}
	return reader.Consolidate(chain.Solana, entries), nil
}

func toRaw(item models.HeliusAsset) models.RawTokenBalance {
	symbol := strings.TrimSpace(item.TokenInfo.Symbol)
	if symbol == "" {
		symbol = item.ID
		if len(symbol) > symbolFallbackLen {
			symbol = symbol[:symbolFallbackLen]
		}
	}
	return models.RawTokenBalance{
		Identifier: item.ID,
		Symbol:     symbol,
		Decimals:   item.TokenInfo.Decimals.IntOr(0),
		RawBalance: item.TokenInfo.Balance.Big(),
		Quote:      quoteOf(item.TokenInfo.PriceInfo),
	}
}

// quoteOf keeps only positive USD-denominated prices. Helius quotes in
// USDC, treated as USD.
func quoteOf(p *models.HeliusPriceInfo) *models.PriceQuote {
	if p == nil || p.PricePerToken <= 0 {
		return nil
	}
	switch strings.ToUpper(strings.TrimSpace(p.Currency)) {
	case "", "USD", "USDC":
	default:
		return nil
	}
	return &models.PriceQuote{USDPrice: p.PricePerToken, Change24hPercent: p.Price24hChange}
}
