package oracle

import (
	"context"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2"

	"walletscope/config"
	"walletscope/internal/chain"
	"walletscope/internal/metrics"
	"walletscope/logger"
	"walletscope/models"
	"walletscope/reader"
)

// Binance prices native coins from the USDT spot 24h ticker.
type Binance struct {
	client *binance.Client
	log    *logger.Log
}

// NewBinance returns a Binance source that sends requests through rc's
// HTTP client.
func NewBinance(cfg config.BinanceConfig, rc *reader.Client) *Binance {
	client := binance.NewClient("", "")
	client.HTTPClient = rc.HTTPClient()
	if cfg.URL != "" {
		client.BaseURL = strings.TrimRight(cfg.URL, "/")
	}
	return &Binance{client: client, log: logger.GetLogger()}
}

// NativePrice returns the last USDT price and 24h change of c's native
// coin, or an empty quote on failure.
func (b *Binance) NativePrice(ctx context.Context, c chain.Chain) models.PriceQuote {
	symbol := c.BinanceSymbol()
	log := b.log.WithComponent("binance").WithFields(logger.Fields{"chain": c.String(), "symbol": symbol})
	if symbol == "" {
		return models.PriceQuote{}
	}

	stats, err := b.client.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil || len(stats) == 0 {
		metrics.IncrementPriceBatch("binance", metrics.OutcomeError)
		log.WithError(err).Warn("native price unavailable")
		return models.PriceQuote{}
	}
	metrics.IncrementPriceBatch("binance", metrics.OutcomeOK)

	price, err := strconv.ParseFloat(stats[0].LastPrice, 64)
	if err != nil {
		log.WithError(err).Warn("unparseable lastPrice")
		return models.PriceQuote{}
	}
	quote := models.PriceQuote{USDPrice: price}
	if change, err := strconv.ParseFloat(stats[0].PriceChangePercent, 64); err == nil {
		quote.Change24hPercent = &change
	}
	return quote
}
