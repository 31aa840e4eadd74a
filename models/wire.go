package models

import "encoding/json"

// EthplorerAddressInfo is the response of Ethplorer's getAddressInfo.
type EthplorerAddressInfo struct {
	Address string           `json:"address"`
	ETH     EthplorerBalance `json:"ETH"`
	Tokens  []EthplorerToken `json:"tokens"`
	Error   *EthplorerError  `json:"error,omitempty"`
}

type EthplorerBalance struct {
	Balance    float64 `json:"balance"`
	RawBalance FlexInt `json:"rawBalance"`
}

type EthplorerToken struct {
	TokenInfo  EthplorerTokenInfo `json:"tokenInfo"`
	Balance    float64            `json:"balance"`
	RawBalance FlexInt            `json:"rawBalance"`
}

type EthplorerTokenInfo struct {
	Address  string  `json:"address"`
	Name     string  `json:"name"`
	Symbol   string  `json:"symbol"`
	Decimals FlexInt `json:"decimals"`
}

type EthplorerError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// EtherscanResponse is the envelope shared by all Etherscan account endpoints.
type EtherscanResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// EtherscanTokenTransfer is one entry of action=tokentx.
type EtherscanTokenTransfer struct {
	Hash            string  `json:"hash"`
	From            string  `json:"from"`
	To              string  `json:"to"`
	ContractAddress string  `json:"contractAddress"`
	TokenSymbol     string  `json:"tokenSymbol"`
	TokenDecimal    FlexInt `json:"tokenDecimal"`
	Value           FlexInt `json:"value"`
}

// RPCRequest is a JSON-RPC 2.0 request.
type RPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// RPCResponse is a JSON-RPC 2.0 response with a deferred result.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// HeliusBalanceResult is the result of getBalance.
type HeliusBalanceResult struct {
	Value FlexInt `json:"value"`
}

// HeliusSearchAssetsResult is the result of searchAssets.
type HeliusSearchAssetsResult struct {
	Total int           `json:"total"`
	Limit int           `json:"limit"`
	Page  int           `json:"page"`
	Items []HeliusAsset `json:"items"`
}

type HeliusAsset struct {
	ID        string          `json:"id"`
	Interface string          `json:"interface"`
	TokenInfo HeliusTokenInfo `json:"token_info"`
}

type HeliusTokenInfo struct {
	Symbol    string           `json:"symbol"`
	Balance   FlexInt          `json:"balance"`
	Decimals  FlexInt          `json:"decimals"`
	PriceInfo *HeliusPriceInfo `json:"price_info,omitempty"`
}

// HeliusPriceInfo is the per-token price Helius attaches to some assets.
type HeliusPriceInfo struct {
	PricePerToken  float64  `json:"price_per_token"`
	Price24hChange *float64 `json:"price_24h_change,omitempty"`
	Currency       string   `json:"currency"`
}

// CoinGeckoPrices is the response of /simple/price and
// /simple/token_price, keyed by coin id or contract address.
type CoinGeckoPrices map[string]CoinGeckoQuote

type CoinGeckoQuote struct {
	USD          *float64 `json:"usd"`
	USD24hChange *float64 `json:"usd_24h_change"`
}

// ChainbasePriceResponse is the response of Chainbase /v1/token/price.
type ChainbasePriceResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    *struct {
		Price     float64 `json:"price"`
		Symbol    string  `json:"symbol"`
		Decimals  int     `json:"decimals"`
		UpdatedAt string  `json:"updated_at"`
	} `json:"data"`
}
