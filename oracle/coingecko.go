package oracle

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"walletscope/config"
	"walletscope/internal/chain"
	"walletscope/internal/metrics"
	"walletscope/logger"
	"walletscope/models"
	"walletscope/reader"
)

const defaultBatchSize = 50

// CoinGecko prices native coins through /simple/price and tokens through
// /simple/token_price/{platform}, batching contract addresses.
type CoinGecko struct {
	client    *reader.Client
	baseURL   string
	header    http.Header
	batchSize int
	pacer     Pacer
	log       *logger.Log
}

func NewCoinGecko(cfg config.CoinGeckoConfig, client *reader.Client, pacer Pacer) *CoinGecko {
	header := http.Header{}
	if cfg.APIKey != "" {
		name := cfg.APIKeyHeader
		if name == "" {
			name = "x-cg-demo-api-key"
		}
		header.Set(name, cfg.APIKey)
	}
	size := cfg.BatchSize
	if size <= 0 {
		size = defaultBatchSize
	}
	if pacer == nil {
		pacer = NoPacer
	}
	return &CoinGecko{
		client:    client,
		baseURL:   strings.TrimRight(cfg.URL, "/"),
		header:    header,
		batchSize: size,
		pacer:     pacer,
		log:       logger.GetLogger(),
	}
}

func (g *CoinGecko) NativePrice(ctx context.Context, c chain.Chain) models.PriceQuote {
	log := g.log.WithComponent("coingecko").WithFields(logger.Fields{"chain": c.String()})

	id := c.CoinGeckoID()
	if id == "" {
		return models.PriceQuote{}
	}
	q := url.Values{}
	q.Set("ids", id)
	q.Set("vs_currencies", "usd")
	q.Set("include_24hr_change", "true")

	var prices models.CoinGeckoPrices
	if err := g.client.GetJSON(ctx, g.baseURL+"/simple/price?"+q.Encode(), g.header, &prices); err != nil {
		metrics.IncrementPriceBatch("coingecko", metrics.OutcomeError)
		log.WithError(err).Warn("native price unavailable")
		return models.PriceQuote{}
	}
	metrics.IncrementPriceBatch("coingecko", metrics.OutcomeOK)

	quote, ok := prices[id]
	if !ok || quote.USD == nil {
		log.Warn("no native price listed")
		return models.PriceQuote{}
	}
	return toQuote(quote)
}

func (g *CoinGecko) TokenPrices(ctx context.Context, c chain.Chain, ids []string) map[string]models.PriceQuote {
	out := make(map[string]models.PriceQuote)
	ids = distinctValid(c, ids)
	if len(ids) == 0 || c.Platform() == "" {
		return out
	}
	log := g.log.WithComponent("coingecko").WithFields(logger.Fields{"chain": c.String()})

	for start := 0; start < len(ids); start += g.batchSize {
		batch := ids[start:min(start+g.batchSize, len(ids))]
		if err := g.pacer.Wait(ctx); err != nil {
			log.WithError(err).WithFields(logger.Fields{"remaining": len(ids) - start}).Warn("stopped pricing tokens")
			break
		}

		prices, err := g.tokenBatch(ctx, c, batch)
		if err != nil {
			metrics.IncrementPriceBatch("coingecko", metrics.OutcomeError)
			log.WithError(err).WithFields(logger.Fields{"batch_size": len(batch)}).Warn("token price batch failed")
			continue
		}
		metrics.IncrementPriceBatch("coingecko", metrics.OutcomeOK)

		requested := make(map[string]struct{}, len(batch))
		for _, id := range batch {
			requested[id] = struct{}{}
		}
		for key, quote := range prices {
			key = c.CanonicalID(key)
			if _, ok := requested[key]; !ok || quote.USD == nil {
				continue
			}
			out[key] = toQuote(quote)
		}
	}
	return out
}

func (g *CoinGecko) tokenBatch(ctx context.Context, c chain.Chain, batch []string) (models.CoinGeckoPrices, error) {
	q := url.Values{}
	q.Set("contract_addresses", strings.Join(batch, ","))
	q.Set("vs_currencies", "usd")
	q.Set("include_24hr_change", "true")
	u := fmt.Sprintf("%s/simple/token_price/%s?%s", g.baseURL, c.Platform(), q.Encode())

	var prices models.CoinGeckoPrices
	if err := g.client.GetJSON(ctx, u, g.header, &prices); err != nil {
		return nil, err
	}
	return prices, nil
}

func toQuote(q models.CoinGeckoQuote) models.PriceQuote {
	quote := models.PriceQuote{Change24hPercent: q.USD24hChange}
	if q.USD != nil {
		quote.USDPrice = *q.USD
	}
	return quote
}
