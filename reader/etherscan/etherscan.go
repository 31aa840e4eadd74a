// Package etherscan reads Ethereum balances from the Etherscan v2
// account API. Token balances are rebuilt by netting the address's
// ERC-20 transfer history.
package etherscan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"walletscope/config"
	"walletscope/internal/chain"
	"walletscope/internal/units"
	"walletscope/logger"
	"walletscope/models"
	"walletscope/reader"
)

const (
	noTransactions = "No transactions found"
	pageSize       = 10000
)

// Provider reads Ethereum balances from the Etherscan account API,
// deriving token holdings from the transfer history.
type Provider struct {
	client  *reader.Client
	baseURL string
	apiKey  string
	chainID int
	log     *logger.Log
}

func New(cfg config.EtherscanConfig, client *reader.Client) *Provider {
	id := cfg.ChainID
	if id == 0 {
		id = 1
	}
	return &Provider{
		client:  client,
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		chainID: id,
		log:     logger.GetLogger(),
	}
}

func (p *Provider) Name() string       { return "etherscan" }
func (p *Provider) Chain() chain.Chain { return chain.Ethereum }

func (p *Provider) NativeBalance(ctx context.Context, address string) (float64, error) {
	q := url.Values{}
	q.Set("action", "balance")
	q.Set("address", address)
	q.Set("tag", "latest")

	result, err := p.call(ctx, q)
	if err != nil || result == nil {
		return 0, err
	}

	var wei models.FlexInt
	if err := json.Unmarshal(result, &wei); err != nil || wei.Int == nil {
		p.log.WithComponent("etherscan").WithFields(logger.Fields{"address": address}).Warn("unexpected balance result")
		return 0, nil
	}
	return units.Native(wei.Int, chain.Ethereum), nil
}

func (p *Provider) TokenBalances(ctx context.Context, address string) ([]models.RawTokenBalance, error) {
	log := p.log.WithComponent("etherscan").WithFields(logger.Fields{"address": address})

	q := url.Values{}
	q.Set("action", "tokentx")
	q.Set("address", address)
	q.Set("startblock", "0")
	q.Set("endblock", "99999999")
	q.Set("page", "1")
	q.Set("offset", strconv.Itoa(pageSize))
	q.Set("sort", "asc")

	result, err := p.call(ctx, q)
	if err != nil || result == nil {
		return nil, err
	}

	var transfers []models.EtherscanTokenTransfer
	if err := json.Unmarshal(result, &transfers); err != nil {
		log.WithError(err).Warn("unexpected tokentx result")
		return nil, nil
	}
	if len(transfers) >= pageSize {
		log.WithFields(logger.Fields{"transfers": len(transfers)}).Warn("transfer history truncated; balances may be incomplete")
	}

	return reader.Consolidate(chain.Ethereum, netTransfers(address, transfers)), nil
}

// netTransfers turns each transfer into a signed delta for address.
// Consolidate sums the deltas per contract.
func netTransfers(address string, transfers []models.EtherscanTokenTransfer) []models.RawTokenBalance {
	deltas := make([]models.RawTokenBalance, 0, len(transfers))
	for _, tx := range transfers {
		value := tx.Value.Big()
		switch {
		case strings.EqualFold(tx.From, address) && strings.EqualFold(tx.To, address):
			continue
		case strings.EqualFold(tx.From, address):
			value.Neg(value)
		case strings.EqualFold(tx.To, address):
		default:
			continue
		}
		deltas = append(deltas, models.RawTokenBalance{
			Identifier: tx.ContractAddress,
			Symbol:     tx.TokenSymbol,
			Decimals:   tx.TokenDecimal.IntOr(0),
			RawBalance: value,
		})
	}
	return deltas
}

// call returns the raw result field, or nil when the response carries
// no usable data.
func (p *Provider) call(ctx context.Context, q url.Values) (json.RawMessage, error) {
	log := p.log.WithComponent("etherscan").WithFields(logger.Fields{"action": q.Get("action")})

	q.Set("chainid", strconv.Itoa(p.chainID))
	q.Set("module", "account")
	q.Set("apikey", p.apiKey)

	var resp models.EtherscanResponse
	if err := p.client.GetJSON(ctx, p.baseURL+"?"+q.Encode(), nil, &resp); err != nil {
		if errors.Is(err, models.ErrProviderUnavailable) {
			return nil, err
		}
		log.WithError(err).Warn("malformed response")
		return nil, nil
	}

	if resp.Status != "1" {
		if resp.Message == noTransactions {
			return nil, nil
		}
		var detail string
		_ = json.Unmarshal(resp.Result, &detail)
		if isRateLimited(detail) {
			return nil, fmt.Errorf("etherscan: %w: %s", models.ErrProviderUnavailable, detail)
		}
		log.WithFields(logger.Fields{"message": resp.Message, "result": detail}).Warn("request not ok")
		return nil, nil
	}
	return resp.Result, nil
}

func isRateLimited(detail string) bool {
	return strings.Contains(strings.ToLower(detail), "rate limit")
}
