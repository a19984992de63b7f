// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Transports accepted by messaging.transport.
const (
	TransportZMQ       = "zmq"
	TransportWebSocket = "websocket"
)

// Config holds all application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Ethereum   EthereumConfig   `mapstructure:"ethereum"`
	Contracts  ContractsConfig  `mapstructure:"contracts"`
	Pricing    PricingConfig    `mapstructure:"pricing"`
	Broker     BrokerConfig     `mapstructure:"broker"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Messaging  MessagingConfig  `mapstructure:"messaging"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Health     HealthConfig     `mapstructure:"health"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	Debug       bool   `mapstructure:"debug"`
}

// EffectiveLogLevel folds the debug toggle into the log level.
func (c *AppConfig) EffectiveLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}

// EthereumConfig holds Ethereum node configuration.
type EthereumConfig struct {
	HTTPURL           string        `mapstructure:"http_url"`
	ChainID           uint64        `mapstructure:"chain_id"`
	RPCTimeout        time.Duration `mapstructure:"rpc_timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// ContractsConfig holds the on-chain contract addresses.
type ContractsConfig struct {
	PriceFeedAddress string `mapstructure:"price_feed_address"`
	AtolaAddress     string `mapstructure:"atola_address"`
	TokenAddress     string `mapstructure:"token_address"`
}

// PriceFeedAddressHex returns the price feed address as common.Address.
func (c *ContractsConfig) PriceFeedAddressHex() common.Address {
	return common.HexToAddress(c.PriceFeedAddress)
}

// AtolaAddressHex returns the settlement contract address as common.Address.
func (c *ContractsConfig) AtolaAddressHex() common.Address {
	return common.HexToAddress(c.AtolaAddress)
}

// TokenAddressHex returns the pool token address as common.Address.
func (c *ContractsConfig) TokenAddressHex() common.Address {
	return common.HexToAddress(c.TokenAddress)
}

// PricingConfig holds the operator fee and ticker settings.
type PricingConfig struct {
	OperatorFeeBps int64         `mapstructure:"operator_fee_bps"`
	TickerInterval time.Duration `mapstructure:"ticker_interval"`
}

// OperatorFeeDecimal returns the fee as a fraction (120 bps -> 0.012).
func (c *PricingConfig) OperatorFeeDecimal() decimal.Decimal {
	return decimal.NewFromInt(c.OperatorFeeBps).Shift(-4)
}

// BrokerConfig holds order broker timeouts.
type BrokerConfig struct {
	HealthTimeout     time.Duration `mapstructure:"health_timeout"`
	SettlementTimeout time.Duration `mapstructure:"settlement_timeout"`
	StatusInterval    time.Duration `mapstructure:"status_interval"`
	SlippagePrecheck  bool          `mapstructure:"slippage_precheck"`
}

// SettlementConfig holds the machine account and transaction settings.
type SettlementConfig struct {
	MachineAddress      string        `mapstructure:"machine_address"`
	PrivateKey          string        `mapstructure:"private_key"`
	ReceiptPollInterval time.Duration `mapstructure:"receipt_poll_interval"`
	GasLimit            uint64        `mapstructure:"gas_limit"`
}

// LocalSigning reports whether transactions are signed in-process.
func (c *SettlementConfig) LocalSigning() bool {
	return c.PrivateKey != ""
}

// MessagingConfig holds the transport endpoints.
type MessagingConfig struct {
	Transport     string `mapstructure:"transport"`
	URLPubPrice   string `mapstructure:"url_pub_price"`
	URLPubStatus  string `mapstructure:"url_pub_status"`
	URLReplier    string `mapstructure:"url_replier"`
	WebSocketAddr string `mapstructure:"websocket_addr"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// HealthConfig holds the health server settings.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("SWAPBOX")
	v.AutomaticEnv()

	// Bind env vars to config keys
	bindEnvVars(v)

	// Set defaults
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "SWAPBOX_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "SWAPBOX_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "SWAPBOX_LOG_LEVEL", "LOG_LEVEL")
	v.BindEnv("app.debug", "SWAPBOX_DEBUG")

	// Ethereum
	v.BindEnv("ethereum.http_url", "SWAPBOX_ETH_HTTP_URL", "ETH_HTTP_URL")
	v.BindEnv("ethereum.chain_id", "SWAPBOX_ETH_CHAIN_ID", "ETH_CHAIN_ID")

	// Contracts
	v.BindEnv("contracts.price_feed_address", "SWAPBOX_PRICE_FEED")
	v.BindEnv("contracts.atola_address", "SWAPBOX_ATOLA")
	v.BindEnv("contracts.token_address", "SWAPBOX_TOKEN")

	// Settlement
	v.BindEnv("settlement.machine_address", "SWAPBOX_MACHINE_ADDRESS")
	v.BindEnv("settlement.private_key", "SWAPBOX_PRIVATE_KEY")

	// Messaging
	v.BindEnv("messaging.transport", "SWAPBOX_TRANSPORT")
	v.BindEnv("messaging.url_pub_price", "SWAPBOX_URL_PUB_PRICE")
	v.BindEnv("messaging.url_pub_status", "SWAPBOX_URL_PUB_STATUS")
	v.BindEnv("messaging.url_replier", "SWAPBOX_URL_REPLIER")
	v.BindEnv("messaging.websocket_addr", "SWAPBOX_WS_ADDR")

	// Telemetry
	v.BindEnv("telemetry.enabled", "SWAPBOX_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "SWAPBOX_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "SWAPBOX_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "swapbox")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.debug", false)

	// Ethereum defaults
	v.SetDefault("ethereum.http_url", "http://127.0.0.1:8545")
	v.SetDefault("ethereum.chain_id", 1)
	v.SetDefault("ethereum.rpc_timeout", "10s")
	v.SetDefault("ethereum.requests_per_minute", 600)

	// Contract defaults
	v.SetDefault("contracts.token_address", "0xB4272071eCAdd69d933AdcD19cA99fe80664fc08") // XCHF

	// Pricing defaults
	v.SetDefault("pricing.operator_fee_bps", 120) // 1.2%
	v.SetDefault("pricing.ticker_interval", "15s")

	// Broker defaults
	v.SetDefault("broker.health_timeout", "5s")
	v.SetDefault("broker.settlement_timeout", "3m")
	v.SetDefault("broker.status_interval", "10s")
	v.SetDefault("broker.slippage_precheck", false)

	// Settlement defaults
	v.SetDefault("settlement.receipt_poll_interval", "2s")
	v.SetDefault("settlement.gas_limit", 200000)

	// Messaging defaults
	v.SetDefault("messaging.transport", TransportZMQ)
	v.SetDefault("messaging.url_pub_price", "tcp://*:5556")
	v.SetDefault("messaging.url_pub_status", "tcp://*:5557")
	v.SetDefault("messaging.url_replier", "tcp://*:5555")
	v.SetDefault("messaging.websocket_addr", ":8090")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "swapbox")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)

	// Health defaults
	v.SetDefault("health.port", 8081)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ethereum.HTTPURL == "" {
		return fmt.Errorf("ethereum.http_url is required")
	}
	if !common.IsHexAddress(c.Contracts.PriceFeedAddress) {
		return fmt.Errorf("invalid contracts.price_feed_address: %q", c.Contracts.PriceFeedAddress)
	}
	if !common.IsHexAddress(c.Contracts.AtolaAddress) {
		return fmt.Errorf("invalid contracts.atola_address: %q", c.Contracts.AtolaAddress)
	}
	if c.Contracts.TokenAddress != "" && !common.IsHexAddress(c.Contracts.TokenAddress) {
		return fmt.Errorf("invalid contracts.token_address: %q", c.Contracts.TokenAddress)
	}
	if c.Settlement.MachineAddress != "" && !common.IsHexAddress(c.Settlement.MachineAddress) {
		return fmt.Errorf("invalid settlement.machine_address: %q", c.Settlement.MachineAddress)
	}
	if c.Settlement.PrivateKey != "" {
		if _, err := crypto.HexToECDSA(trimHexPrefix(c.Settlement.PrivateKey)); err != nil {
			return fmt.Errorf("invalid settlement.private_key: %w", err)
		}
	}
	if c.Pricing.OperatorFeeBps < 0 || c.Pricing.OperatorFeeBps >= 10000 {
		return fmt.Errorf("pricing.operator_fee_bps must be in [0, 10000): %d", c.Pricing.OperatorFeeBps)
	}
	if c.Pricing.TickerInterval <= 0 || c.Broker.StatusInterval <= 0 {
		return fmt.Errorf("pricing.ticker_interval and broker.status_interval must be positive")
	}
	if c.Broker.HealthTimeout <= 0 || c.Broker.SettlementTimeout <= 0 {
		return fmt.Errorf("broker timeouts must be positive")
	}

	switch c.Messaging.Transport {
	case TransportZMQ:
		if c.Messaging.URLPubPrice == "" || c.Messaging.URLPubStatus == "" || c.Messaging.URLReplier == "" {
			return fmt.Errorf("messaging: zmq transport needs url_pub_price, url_pub_status and url_replier")
		}
	case TransportWebSocket:
		if c.Messaging.WebSocketAddr == "" {
			return fmt.Errorf("messaging.websocket_addr is required for the websocket transport")
		}
	default:
		return fmt.Errorf("unknown messaging.transport: %q", c.Messaging.Transport)
	}
	return nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// PrivateKeyHex returns the configured key without a 0x prefix.
func (c *SettlementConfig) PrivateKeyHex() string {
	return trimHexPrefix(c.PrivateKey)
}
