package oracle

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"walletscope/config"
	"walletscope/internal/chain"
	"walletscope/internal/metrics"
	"walletscope/logger"
	"walletscope/models"
	"walletscope/reader"
)

// Chainbase prices EVM tokens one contract per request. It reports no
// 24h change.
type Chainbase struct {
	client  *reader.Client
	baseURL string
	header  http.Header
	chainID int
	pacer   Pacer
	log     *logger.Log
}

// NewChainbase returns a Chainbase source. ChainID defaults to Ethereum
// mainnet and a nil pacer does not wait.
func NewChainbase(cfg config.ChainbaseConfig, client *reader.Client, pacer Pacer) *Chainbase {
	header := http.Header{}
	header.Set("x-api-key", cfg.APIKey)
	id := cfg.ChainID
	if id == 0 {
		id = 1
	}
	if pacer == nil {
		pacer = NoPacer
	}
	return &Chainbase{
		client:  client,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		header:  header,
		chainID: id,
		pacer:   pacer,
		log:     logger.GetLogger(),
	}
}

func (b *Chainbase) TokenPrices(ctx context.Context, c chain.Chain, ids []string) map[string]models.PriceQuote {
	out := make(map[string]models.PriceQuote)
	log := b.log.WithComponent("chainbase").WithFields(logger.Fields{"chain": c.String()})
	if c != chain.Ethereum {
		log.Debug("chainbase only prices EVM tokens")
		return out
	}

	for _, id := range distinctValid(c, ids) {
		if err := b.pacer.Wait(ctx); err != nil {
			log.WithError(err).Warn("stopped pricing tokens")
			break
		}

		q := url.Values{}
		q.Set("chain_id", strconv.Itoa(b.chainID))
		q.Set("contract_address", id)

		var resp models.ChainbasePriceResponse
		if err := b.client.GetJSON(ctx, b.baseURL+"/v1/token/price?"+q.Encode(), b.header, &resp); err != nil {
			metrics.IncrementPriceBatch("chainbase", metrics.OutcomeError)
			log.WithError(err).WithFields(logger.Fields{"contract": id}).Warn("token price unavailable")
			continue
		}
		metrics.IncrementPriceBatch("chainbase", metrics.OutcomeOK)

		if resp.Code != 0 || resp.Data == nil {
			continue
		}
		out[id] = models.PriceQuote{USDPrice: resp.Data.Price}
	}
	return out
}
