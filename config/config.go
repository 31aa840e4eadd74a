package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultConfigPath = "config/config.yml"

type Config struct {
	App       AppConfig       `yaml:"app"`
	Logging   LoggingConfig   `yaml:"logging"`
	Holdings  HoldingsConfig  `yaml:"holdings"`
	Reader    ReaderConfig    `yaml:"reader"`
	Providers ProvidersConfig `yaml:"providers"`
	Oracle    OracleConfig    `yaml:"oracle"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Audit     AuditConfig     `yaml:"audit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type HoldingsConfig struct {
	DustThreshold  float64       `yaml:"dust_threshold"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type ReaderConfig struct {
	Timeout        time.Duration        `yaml:"timeout"`
	UserAgent      string               `yaml:"user_agent"`
	Retry          RetryConfig          `yaml:"retry"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
}

type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	BaseDelay         time.Duration `yaml:"base_delay"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	BackoffMultiplier int           `yaml:"backoff_multiplier"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

type ProvidersConfig struct {
	Ethereum EthereumProviderConfig `yaml:"ethereum"`
	Solana   SolanaProviderConfig   `yaml:"solana"`
}

// EthereumProviderConfig selects one of the EVM balance sources.
type EthereumProviderConfig struct {
	Enabled   bool            `yaml:"enabled"`
	Variant   string          `yaml:"variant"`
	Ethplorer EndpointConfig  `yaml:"ethplorer"`
	Etherscan EtherscanConfig `yaml:"etherscan"`
}

type SolanaProviderConfig struct {
	Enabled bool         `yaml:"enabled"`
	Helius  HeliusConfig `yaml:"helius"`
}

type EndpointConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

type EtherscanConfig struct {
	URL     string `yaml:"url"`
	APIKey  string `yaml:"api_key"`
	ChainID int    `yaml:"chain_id"`
}

type HeliusConfig struct {
	URL      string `yaml:"url"`
	APIKey   string `yaml:"api_key"`
	PageSize int    `yaml:"page_size"`
	MaxPages int    `yaml:"max_pages"`
}

type OracleConfig struct {
	NativeSource string          `yaml:"native_source"`
	TokenSource  string          `yaml:"token_source"`
	CoinGecko    CoinGeckoConfig `yaml:"coingecko"`
	Chainbase    ChainbaseConfig `yaml:"chainbase"`
	Binance      BinanceConfig   `yaml:"binance"`
}

type CoinGeckoConfig struct {
	URL          string        `yaml:"url"`
	APIKey       string        `yaml:"api_key"`
	APIKeyHeader string        `yaml:"api_key_header"`
	BatchSize    int           `yaml:"batch_size"`
	BatchDelay   time.Duration `yaml:"batch_delay"`
}

type ChainbaseConfig struct {
	URL          string        `yaml:"url"`
	APIKey       string        `yaml:"api_key"`
	ChainID      int           `yaml:"chain_id"`
	RequestDelay time.Duration `yaml:"request_delay"`
}

type BinanceConfig struct {
	URL string `yaml:"url"`
}

type DashboardConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Address       string        `yaml:"address"`
	Password      string        `yaml:"password"`
	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	SecureCookie  bool          `yaml:"secure_cookie"`
}

type AuditConfig struct {
	DBPath string `yaml:"db_path"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
	Dashboard string `yaml:"dashboard"`
}

const (
	VariantEthplorer = "ethplorer"
	VariantEtherscan = "etherscan"

	SourceCoinGecko = "coingecko"
	SourceChainbase = "chainbase"
	SourceBinance   = "binance"
)

// Default returns the configuration used for every key the YAML file
// leaves unset.
func Default() Config {
	return Config{
		App: AppConfig{Name: "walletscope", Version: "dev"},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Holdings: HoldingsConfig{
			DustThreshold:  1.00,
			RequestTimeout: 30 * time.Second,
		},
		Reader: ReaderConfig{
			Timeout:   12 * time.Second,
			UserAgent: "walletscope/1.0",
			Retry: RetryConfig{
				MaxAttempts:       3,
				BaseDelay:         250 * time.Millisecond,
				MaxDelay:          2 * time.Second,
				BackoffMultiplier: 2,
			},
			ConnectionPool: ConnectionPoolConfig{
				MaxIdleConns:    16,
				MaxConnsPerHost: 8,
				IdleConnTimeout: 90 * time.Second,
			},
		},
		Providers: ProvidersConfig{
			Ethereum: EthereumProviderConfig{
				Enabled: true,
				Variant: VariantEthplorer,
				Ethplorer: EndpointConfig{
					URL:    "https://api.ethplorer.io",
					APIKey: "freekey",
				},
				Etherscan: EtherscanConfig{
					URL:     "https://api.etherscan.io/v2/api",
					ChainID: 1,
				},
			},
			Solana: SolanaProviderConfig{
				Enabled: true,
				Helius: HeliusConfig{
					URL:      "https://mainnet.helius-rpc.com",
					PageSize: 1000,
					MaxPages: 10,
				},
			},
		},
		Oracle: OracleConfig{
			NativeSource: SourceCoinGecko,
			TokenSource:  SourceCoinGecko,
			CoinGecko: CoinGeckoConfig{
				URL:          "https://api.coingecko.com/api/v3",
				APIKeyHeader: "x-cg-demo-api-key",
				BatchSize:    50,
				BatchDelay:   time.Second,
			},
			Chainbase: ChainbaseConfig{
				URL:          "https://api.chainbase.online",
				ChainID:      1,
				RequestDelay: 200 * time.Millisecond,
			},
			Binance: BinanceConfig{URL: "https://api.binance.com"},
		},
		Dashboard: DashboardConfig{
			Enabled:    true,
			Address:    ":8080",
			SessionTTL: 12 * time.Hour,
		},
		Audit: AuditConfig{DBPath: "data/users.db"},
		Metrics: MetricsConfig{
			CloudWatch: CloudWatchConfig{Namespace: "walletscope", Dashboard: "walletscope"},
		},
	}
}

// LoadOption adjusts a loaded configuration before it is validated.
type LoadOption func(*Config)

// WithoutDashboard disables the dashboard, so its secrets are not required.
func WithoutDashboard() LoadOption {
	return func(c *Config) { c.Dashboard.Enabled = false }
}

// OnlyChain enables the provider of one chain ("eth" or "sol") and
// disables the other, so only that provider's settings are validated.
func OnlyChain(name string) LoadOption {
	return func(c *Config) {
		name = strings.ToLower(strings.TrimSpace(name))
		c.Providers.Ethereum.Enabled = name == "eth"
		c.Providers.Solana.Enabled = name == "sol"
	}
}

// LoadConfig reads the YAML file at path (or its APP_ENV specific
// variant), applies environment overrides and opts, and validates the
// result.
func LoadConfig(path string, opts ...LoadOption) (*Config, error) {
	path = resolveEnvSpecificPath(path, DefaultConfigPath, map[string]string{
		environmentProduction: "config/config.production.yml",
		environmentStaging:    "config/config.staging.yml",
	})

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := applyEnvOverrides(&config); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(&config)
	}
	normalize(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// applyEnvOverrides lets secrets live outside the YAML file.
func applyEnvOverrides(cfg *Config) error {
	overrides := []struct {
		env string
		dst *string
	}{
		{"ETHPLORER_API_KEY", &cfg.Providers.Ethereum.Ethplorer.APIKey},
		{"ETHERSCAN_API_KEY", &cfg.Providers.Ethereum.Etherscan.APIKey},
		{"HELIUS_API_KEY", &cfg.Providers.Solana.Helius.APIKey},
		{"COINGECKO_API_KEY", &cfg.Oracle.CoinGecko.APIKey},
		{"CHAINBASE_API_KEY", &cfg.Oracle.Chainbase.APIKey},
		{"DASHBOARD_PASSWORD", &cfg.Dashboard.Password},
		{"SESSION_SECRET", &cfg.Dashboard.SessionSecret},
		{"ETH_PROVIDER", &cfg.Providers.Ethereum.Variant},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			*o.dst = v
		}
	}

	if v := strings.TrimSpace(os.Getenv("DUST_THRESHOLD")); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid DUST_THRESHOLD %q: %w", v, err)
		}
		cfg.Holdings.DustThreshold = threshold
	}
	return nil
}

// normalize lower-cases the enumerated settings so every consumer can
// compare against the Variant and Source constants directly.
func normalize(cfg *Config) {
	for _, s := range []*string{
		&cfg.Providers.Ethereum.Variant,
		&cfg.Oracle.NativeSource,
		&cfg.Oracle.TokenSource,
	} {
		*s = strings.ToLower(strings.TrimSpace(*s))
	}
}

func validateConfig(cfg *Config) error {
	if cfg.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	if cfg.Holdings.DustThreshold < 0 {
		return fmt.Errorf("holdings.dust_threshold must not be negative")
	}
	if cfg.Holdings.RequestTimeout <= 0 {
		return fmt.Errorf("holdings.request_timeout must be greater than 0")
	}

	if cfg.Reader.Timeout <= 0 {
		return fmt.Errorf("reader.timeout must be greater than 0")
	}
	if cfg.Reader.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("reader.retry.max_attempts must be greater than 0")
	}

	if !cfg.Providers.Ethereum.Enabled && !cfg.Providers.Solana.Enabled {
		return fmt.Errorf("at least one of providers.ethereum or providers.solana must be enabled")
	}

	if cfg.Providers.Ethereum.Enabled {
		switch cfg.Providers.Ethereum.Variant {
		case VariantEthplorer:
			if err := validateURL("providers.ethereum.ethplorer.url", cfg.Providers.Ethereum.Ethplorer.URL); err != nil {
				return err
			}
		case VariantEtherscan:
			if err := validateURL("providers.ethereum.etherscan.url", cfg.Providers.Ethereum.Etherscan.URL); err != nil {
				return err
			}
			if cfg.Providers.Ethereum.Etherscan.APIKey == "" {
				return fmt.Errorf("providers.ethereum.etherscan.api_key is required for the etherscan variant")
			}
		default:
			return fmt.Errorf("providers.ethereum.variant '%s' is invalid", cfg.Providers.Ethereum.Variant)
		}
	}

	if cfg.Providers.Solana.Enabled {
		if err := validateURL("providers.solana.helius.url", cfg.Providers.Solana.Helius.URL); err != nil {
			return err
		}
		if cfg.Providers.Solana.Helius.APIKey == "" {
			return fmt.Errorf("providers.solana.helius.api_key is required when solana is enabled")
		}
	}

	switch cfg.Oracle.NativeSource {
	case SourceCoinGecko, SourceBinance:
	default:
		return fmt.Errorf("oracle.native_source '%s' is invalid", cfg.Oracle.NativeSource)
	}
	switch cfg.Oracle.TokenSource {
	case SourceCoinGecko:
	case SourceChainbase:
		if cfg.Oracle.Chainbase.APIKey == "" {
			return fmt.Errorf("oracle.chainbase.api_key is required when token_source is chainbase")
		}
	default:
		return fmt.Errorf("oracle.token_source '%s' is invalid", cfg.Oracle.TokenSource)
	}
	if cfg.Oracle.CoinGecko.BatchSize <= 0 {
		return fmt.Errorf("oracle.coingecko.batch_size must be greater than 0")
	}
	if cfg.Oracle.CoinGecko.BatchDelay < 0 {
		return fmt.Errorf("oracle.coingecko.batch_delay must not be negative")
	}

	if cfg.Dashboard.Enabled {
		if cfg.Dashboard.Password == "" {
			return fmt.Errorf("dashboard.password is required when the dashboard is enabled")
		}
		if len(cfg.Dashboard.SessionSecret) < 16 {
			return fmt.Errorf("dashboard.session_secret must be at least 16 characters")
		}
		if cfg.Dashboard.SessionTTL <= 0 {
			return fmt.Errorf("dashboard.session_ttl must be greater than 0")
		}
	}

	return nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s '%s' is not a valid URL", key, raw)
	}
	return nil
}
