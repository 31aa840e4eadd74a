// Package ethplorer reads Ethereum balances from Ethplorer's
// getAddressInfo endpoint.
package ethplorer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/sync/singleflight"

	"walletscope/config"
	"walletscope/internal/chain"
	"walletscope/internal/units"
	"walletscope/logger"
	"walletscope/models"
	"walletscope/reader"
)

const unknownSymbol = "UNKNOWN"

// Provider reads native and token balances from one getAddressInfo call.
type Provider struct {
	client  *reader.Client
	baseURL string
	apiKey  string
	log     *logger.Log

	// inflight shares one getAddressInfo fetch between the native and
	// token reads of a single report.
	inflight singleflight.Group
}

// New returns a provider using client for transport. An empty API key
// falls back to Ethplorer's public "freekey".
func New(cfg config.EndpointConfig, client *reader.Client) *Provider {
	key := cfg.APIKey
	if key == "" {
		key = "freekey"
	}
	return &Provider{
		client:  client,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  key,
		log:     logger.GetLogger(),
	}
}

func (p *Provider) Name() string       { return "ethplorer" }
func (p *Provider) Chain() chain.Chain { return chain.Ethereum }

func (p *Provider) NativeBalance(ctx context.Context, address string) (float64, error) {
	info, err := p.addressInfo(ctx, address)
	if err != nil || info == nil {
		return 0, err
	}
	if info.ETH.RawBalance.Int != nil {
		return units.Native(info.ETH.RawBalance.Int, chain.Ethereum), nil
	}
	return info.ETH.Balance, nil
}

func (p *Provider) TokenBalances(ctx context.Context, address string) ([]models.RawTokenBalance, error) {
	info, err := p.addressInfo(ctx, address)
	if err != nil || info == nil {
		return nil, err
	}

	entries := make([]models.RawTokenBalance, 0, len(info.Tokens))
	for _, t := range info.Tokens {
		symbol := strings.TrimSpace(t.TokenInfo.Symbol)
		if symbol == "" {
			symbol = unknownSymbol
		}
		entries = append(entries, models.RawTokenBalance{
			Identifier: t.TokenInfo.Address,
			Symbol:     symbol,
			Decimals:   t.TokenInfo.Decimals.IntOr(0),
			RawBalance: t.RawBalance.Big(),
		})
	}
	return reader.Consolidate(chain.Ethereum, entries), nil
}

// addressInfo returns nil without error when the body is unusable.
// Concurrent calls for the same address share one request; the result is
// read-only.
func (p *Provider) addressInfo(ctx context.Context, address string) (*models.EthplorerAddressInfo, error) {
	v, err, _ := p.inflight.Do(strings.ToLower(address), func() (interface{}, error) {
		return p.fetchAddressInfo(ctx, address)
	})
	info, _ := v.(*models.EthplorerAddressInfo)
	return info, err
}

func (p *Provider) fetchAddressInfo(ctx context.Context, address string) (*models.EthplorerAddressInfo, error) {
	log := p.log.WithComponent("ethplorer").WithFields(logger.Fields{"address": address})

	u := fmt.Sprintf("%s/getAddressInfo/%s?apiKey=%s", p.baseURL, url.PathEscape(address), url.QueryEscape(p.apiKey))
	var info models.EthplorerAddressInfo
	if err := p.client.GetJSON(ctx, u, nil, &info); err != nil {
		if errors.Is(err, models.ErrProviderUnavailable) {
			return nil, err
		}
		log.WithError(err).Warn("malformed getAddressInfo response")
		return nil, nil
	}
	if info.Error != nil {
		return nil, fmt.Errorf("ethplorer: %w: error %d: %s", models.ErrProviderUnavailable, info.Error.Code, info.Error.Message)
	}
	return &info, nil
}
