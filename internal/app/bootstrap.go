// Package app wires configuration into the holdings pipeline.
package app

import (
	"errors"
	"fmt"

	"walletscope/config"
	"walletscope/internal/chain"
	"walletscope/logger"
	"walletscope/models"
	"walletscope/oracle"
	"walletscope/processor"
	"walletscope/reader"
	"walletscope/reader/etherscan"
	"walletscope/reader/ethplorer"
	"walletscope/reader/helius"
)

var ErrNoChains = errors.New("no chain provider enabled")

// Bootstrap builds one aggregator per enabled chain behind a Service.
func Bootstrap(cfg *config.Config, log *logger.Log) (*processor.Service, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	l := log.WithComponent("bootstrap")

	prices, err := buildOracle(cfg)
	if err != nil {
		return nil, err
	}
	dust := processor.DustFilter{Threshold: cfg.Holdings.DustThreshold}

	var aggregators []*processor.Aggregator
	if cfg.Providers.Ethereum.Enabled {
		p, err := ethereumProvider(cfg)
		if err != nil {
			return nil, err
		}
		aggregators = append(aggregators, processor.NewAggregator(p, prices, dust, cfg.Holdings.RequestTimeout))
		l.WithFields(logger.Fields{"chain": chain.Ethereum, "provider": p.Name()}).Info("chain enabled")
	}
	if cfg.Providers.Solana.Enabled {
		p := helius.New(cfg.Providers.Solana.Helius, providerClient("helius", cfg))
		aggregators = append(aggregators, processor.NewAggregator(p, prices, dust, cfg.Holdings.RequestTimeout))
		l.WithFields(logger.Fields{"chain": chain.Solana, "provider": p.Name()}).Info("chain enabled")
	}
	if len(aggregators) == 0 {
		return nil, ErrNoChains
	}

	l.WithFields(logger.Fields{
		"native_source":  cfg.Oracle.NativeSource,
		"token_source":   cfg.Oracle.TokenSource,
		"dust_threshold": dust.Threshold,
	}).Info("price oracle configured")

	return processor.NewService(aggregators...), nil
}

func ethereumProvider(cfg *config.Config) (reader.BalanceProvider, error) {
	eth := cfg.Providers.Ethereum
	switch eth.Variant {
	case config.VariantEthplorer, "":
		return ethplorer.New(eth.Ethplorer, providerClient("ethplorer", cfg)), nil
	case config.VariantEtherscan:
		return etherscan.New(eth.Etherscan, providerClient("etherscan", cfg)), nil
	default:
		return nil, fmt.Errorf("unknown ethereum provider variant %q", eth.Variant)
	}
}

func providerClient(name string, cfg *config.Config) *reader.Client {
	return reader.NewClient(name, cfg.Reader, reader.WithSentinel(models.ErrProviderUnavailable))
}

// Price lookups are not retried: a failed quote only degrades values.
func oracleClient(name string, cfg *config.Config) *reader.Client {
	retry := cfg.Reader.Retry
	retry.MaxAttempts = 1
	return reader.NewClient(name, cfg.Reader,
		reader.WithSentinel(models.ErrPricingUnavailable),
		reader.WithRetry(retry),
	)
}

func buildOracle(cfg *config.Config) (oracle.Composite, error) {
	var coingecko *oracle.CoinGecko
	cg := func() *oracle.CoinGecko {
		if coingecko == nil {
			cgCfg := cfg.Oracle.CoinGecko
			coingecko = oracle.NewCoinGecko(cgCfg, oracleClient("coingecko", cfg), oracle.NewIntervalPacer(cgCfg.BatchDelay))
		}
		return coingecko
	}

	var composite oracle.Composite
	switch cfg.Oracle.NativeSource {
	case config.SourceCoinGecko, "":
		composite.Native = cg()
	case config.SourceBinance:
		composite.Native = oracle.NewBinance(cfg.Oracle.Binance, oracleClient("binance", cfg))
	default:
		return composite, fmt.Errorf("unknown native price source %q", cfg.Oracle.NativeSource)
	}

	switch cfg.Oracle.TokenSource {
	case config.SourceCoinGecko, "":
		composite.Tokens = cg()
	case config.SourceChainbase:
		cb := cfg.Oracle.Chainbase
		// Chainbase has no Solana prices.
		composite.Tokens = oracle.ByChain{
			chain.Ethereum: oracle.NewChainbase(cb, oracleClient("chainbase", cfg), oracle.NewIntervalPacer(cb.RequestDelay)),
			chain.Solana:   cg(),
		}
	default:
		return composite, fmt.Errorf("unknown token price source %q", cfg.Oracle.TokenSource)
	}
	return composite, nil
}
