// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	TelegramToken string   `mapstructure:"telegram_token"`
	RPCList       []string `mapstructure:"rpc_list"`
	ChainID       string   `mapstructure:"chain_id"`

	DexWallet       string `mapstructure:"dex_wallet"`
	DepositAddress  string `mapstructure:"deposit_address"`
	ContractAddress string `mapstructure:"contract_address"`
	Passcode        string `mapstructure:"passcode"`
	GraphicPath     string `mapstructure:"graphic_path"`

	LogChannelID   int64 `mapstructure:"log_channel_id"`
	BackendGroupID int64 `mapstructure:"backend_group_id"`
	AdminGroupID   int64 `mapstructure:"admin_group_id"`

	AlertInterval     time.Duration `mapstructure:"alert_interval"`
	CounterInterval   time.Duration `mapstructure:"counter_interval"`
	KeepaliveInterval time.Duration `mapstructure:"keepalive_interval"`
	CounterSeed       int64         `mapstructure:"counter_seed"`
	CounterStep       int64         `mapstructure:"counter_step"`

	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	SpotTimeout     time.Duration `mapstructure:"spot_timeout"`
	PriceCacheTTL   time.Duration `mapstructure:"price_cache_ttl"`
	SpotFallbackUSD float64       `mapstructure:"spot_fallback_usd"`

	MaxRestarts  int           `mapstructure:"max_restarts"`
	RestartDelay time.Duration `mapstructure:"restart_delay"`
	HealthPort   int           `mapstructure:"health_port"`

	LogFile      string `mapstructure:"log_file"`
	DebugLogging bool   `mapstructure:"debug_logging"`
}

const (
	DefaultRPCURL          = "https://api.mainnet-beta.solana.com"
	DefaultDexWallet       = "5h2rm7GxxAbEP8cHKY1eLZ54Wb8SLF7u2SmbK7gG3J4W"
	DefaultDepositAddress  = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	DefaultContractAddress = "A6AAdHfv2Vx288VDPZMJRXb58wRH5FbMReNpAbudRZZv"
	DefaultPasscode        = "RICHMINDSET"
	DefaultHealthPort      = 9090
)

const envPrefix = "SOLANA_BOT"

// historical variable names accepted next to the prefixed ones
var envAliases = map[string]string{
	"telegram_token":   "TELEGRAM_BOT_TOKEN",
	"rpc_list":         "SOLANA_RPC_URL",
	"log_channel_id":   "LOG_CHANNEL_ID",
	"backend_group_id": "BACKEND_GROUP_ID",
	"admin_group_id":   "ADMIN_GROUP_ID",
	"health_port":      "PORT",
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"telegram_token":     "",
		"rpc_list":           []string{DefaultRPCURL},
		"chain_id":           "solana",
		"dex_wallet":         DefaultDexWallet,
		"deposit_address":    DefaultDepositAddress,
		"contract_address":   DefaultContractAddress,
		"passcode":           DefaultPasscode,
		"graphic_path":       "Solanavm.jpg",
		"log_channel_id":     0,
		"backend_group_id":   0,
		"admin_group_id":     0,
		"alert_interval":     60 * time.Second,
		"counter_interval":   30 * time.Minute,
		"keepalive_interval": 600 * time.Second,
		"counter_seed":       72847,
		"counter_step":       2,
		"request_timeout":    10 * time.Second,
		"spot_timeout":       5 * time.Second,
		"price_cache_ttl":    15 * time.Second,
		"spot_fallback_usd":  160.36,
		"max_restarts":       10,
		"restart_delay":      5 * time.Second,
		"health_port":        DefaultHealthPort,
		"log_file":           "logs/bot.log",
		"debug_logging":      false,
	}
}

// LoadConfig reads defaults, the optional config file at path and the
// environment, in increasing order of precedence. A .env file in envFile is
// loaded first when it exists; variables already set are not overridden.
func LoadConfig(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := bindEnvironment(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.RPCList = cleanList(cfg.RPCList)

	return &cfg, validateConfig(&cfg)
}

func bindEnvironment(v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, alias := range envAliases {
		prefixed := envPrefix + "_" + strings.ToUpper(key)
		if err := v.BindEnv(key, prefixed, alias); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// cleanList splits comma separated entries and drops blanks.
func cleanList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if clean := strings.TrimSpace(part); clean != "" {
				out = append(out, clean)
			}
		}
	}
	return out
}

func validateConfig(cfg *Config) error {
	if cfg.TelegramToken == "" {
		return errors.New("missing telegram_token (TELEGRAM_BOT_TOKEN)")
	}
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	if _, err := solana.PublicKeyFromBase58(cfg.DexWallet); err != nil {
		return errors.New("invalid dex_wallet address")
	}
	if err := validateNumericParams(cfg); err != nil {
		return err
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	if cfg.AlertInterval <= 0 {
		return errors.New("invalid alert_interval")
	}
	if cfg.CounterInterval <= 0 {
		return errors.New("invalid counter_interval")
	}
	if cfg.KeepaliveInterval <= 0 {
		return errors.New("invalid keepalive_interval")
	}
	if cfg.RequestTimeout <= 0 || cfg.SpotTimeout <= 0 {
		return errors.New("invalid request timeout")
	}
	if cfg.CounterStep < 0 {
		return errors.New("invalid counter_step")
	}
	if cfg.MaxRestarts < 0 {
		return errors.New("invalid max_restarts")
	}
	if cfg.RestartDelay <= 0 {
		return errors.New("invalid restart_delay")
	}
	if cfg.HealthPort <= 0 || cfg.HealthPort > 65535 {
		return errors.New("invalid health_port")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}
