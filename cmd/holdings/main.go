// Command holdings prints the holdings report of one address as JSON.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"walletscope/config"
	"walletscope/internal/app"
	"walletscope/internal/chain"
	"walletscope/internal/metrics"
	"walletscope/logger"
)

type report struct {
	Chain    chain.Chain `json:"chain"`
	Address  string      `json:"address"`
	Native   any         `json:"native"`
	Tokens   any         `json:"tokens"`
	TotalUSD float64     `json:"total_usd"`
}

func main() {
	log := logger.GetLogger()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", config.DefaultConfigPath, "Path to configuration file")
	chainName := flag.String("chain", "eth", "Chain to query (eth or sol)")
	addressFlag := flag.String("address", "", "Wallet address; prompted for when empty")
	flag.Parse()

	c, err := chain.Parse(*chainName)
	if err != nil {
		log.WithError(err).Error("invalid chain")
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath, c)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}
	// keep stdout clean for the JSON report
	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, "stderr", 0); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	address, ok := resolveAddress(*addressFlag, c, os.Stdin, os.Stderr)
	if !ok {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()
	service, err := app.Bootstrap(cfg, log)
	if err != nil {
		log.WithError(err).Error("failed to build holdings service")
		os.Exit(1)
	}

	res, err := service.GetHoldings(ctx, c, address)
	if err != nil {
		log.WithError(err).Error("holdings lookup failed")
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report{
		Chain:    res.Chain,
		Address:  res.Address,
		Native:   res.Native,
		Tokens:   res.Tokens,
		TotalUSD: res.TotalUSD(),
	}); err != nil {
		log.WithError(err).Error("failed to write report")
		os.Exit(1)
	}
}

// loadConfig validates only what a lookup on c needs: no dashboard
// secrets and no keys for the other chain's provider.
func loadConfig(path string, c chain.Chain) (*config.Config, error) {
	return config.LoadConfig(path, config.WithoutDashboard(), config.OnlyChain(c.String()))
}

// resolveAddress returns the flag value, or prompts for one. Empty input
// means the user wants to quit.
func resolveAddress(flagValue string, c chain.Chain, in io.Reader, prompt io.Writer) (string, bool) {
	if addr := strings.TrimSpace(flagValue); addr != "" {
		return addr, true
	}
	fmt.Fprintf(prompt, "Enter %s address (empty to exit): ", c.NativeSymbol())
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	addr := strings.TrimSpace(line)
	return addr, addr != ""
}
