package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	DefaultTelegramApiUrl = "https://api.telegram.org"
	DefaultPriceApiUrl    = "https://api.coingecko.com/api/v3/simple/price?ids=ethereum&vs_currencies=usd"
	DefaultExplorerUrl    = "https://etherscan.io"
)

type Config struct {
	LogZapMode                     string `mapstructure:"LOG_ZAP_MODE"`
	PrintConfigurationToLogs       string `mapstructure:"PRINT_CONFIGURATION_TO_LOGS"`
	AlchemyUrl                     string `mapstructure:"ALCHEMY_URL"`
	TelegramBotToken               string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	TelegramChatId                 string `mapstructure:"TELEGRAM_CHAT_ID"`
	TelegramApiUrl                 string `mapstructure:"TELEGRAM_API_URL"`
	PriceApiUrl                    string `mapstructure:"PRICE_API_URL"`
	PriceCoinId                    string `mapstructure:"PRICE_COIN_ID"`
	HttpTimeoutSeconds             int    `mapstructure:"HTTP_TIMEOUT_SECONDS"`
	NativeThreshold                string `mapstructure:"NATIVE_THRESHOLD"`
	TokenThreshold                 string `mapstructure:"TOKEN_THRESHOLD"`
	TokenDecimals                  int    `mapstructure:"TOKEN_DECIMALS"`
	ExplorerUrl                    string `mapstructure:"EXPLORER_URL"`
	FeedReconnectMaxBackoffSeconds int    `mapstructure:"FEED_RECONNECT_MAX_BACKOFF_SECONDS"`
	RPCPort                        int    `mapstructure:"RPC_PORT"`
	KafkaBrokers                   string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic                     string `mapstructure:"KAFKA_TOPIC"`
}

var defaults = map[string]any{
	"TELEGRAM_API_URL":                   DefaultTelegramApiUrl,
	"PRICE_API_URL":                      DefaultPriceApiUrl,
	"PRICE_COIN_ID":                      "ethereum",
	"HTTP_TIMEOUT_SECONDS":               10,
	"NATIVE_THRESHOLD":                   "50",
	"TOKEN_THRESHOLD":                    "10000",
	"TOKEN_DECIMALS":                     18,
	"EXPLORER_URL":                       DefaultExplorerUrl,
	"FEED_RECONNECT_MAX_BACKOFF_SECONDS": 30,
	"RPC_PORT":                           0,
	"KAFKA_TOPIC":                        "whale-alerts",
}

var once sync.Once
var config *Config

var Get = get

func get() Config {
	once.Do(func() {
		c := loadConfig()
		config = &c
	})
	return *config
}

func loadConfig() Config {
	loadDotEnv()
	viperAddConfigFile()
	viperAddDefaults()
	viperAddEnv()
	cfg := initializeCfg()
	debugConfig(cfg)
	return cfg
}

// loadDotEnv copies a local .env file into the process environment. Values
// already present in the environment are left untouched.
func loadDotEnv() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(fmt.Sprintf("fatal error reading .env file: %v", err))
	}
}

func viperAddConfigFile() {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("env")
}

func viperAddDefaults() {
	for key, val := range defaults {
		viper.SetDefault(key, val)
	}
}

func viperAddEnv() {
	viper.AutomaticEnv()
	// This makes sure that all envs are binded even if they are not represented in config file (https://github.com/spf13/viper/issues/584)
	fieldsOfConfig := reflect.TypeOf(Config{})
	for i := 0; i < fieldsOfConfig.NumField(); i++ {
		mapStructureVal := fieldsOfConfig.Field(i).Tag.Get("mapstructure")
		err := viper.BindEnv(mapStructureVal)
		if err != nil {
			panic(fmt.Sprintf("Error binding env val '%v': %v", mapStructureVal, err))
		}
	}
}

func initializeCfg() Config {
	var cfg Config
	err := viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(fmt.Sprintf("fatal error reading config file: %v", err))
		}
	}

	err = viper.Unmarshal(&cfg)
	if err != nil {
		panic(fmt.Sprintf("error unmarshaling config: %v", err))
	}
	return cfg
}

func debugConfig(cfg Config) {
	if cfg.PrintConfigurationToLogs == "true" {
		if cfg.TelegramBotToken != "" {
			cfg.TelegramBotToken = "[REDACTED]"
		}
		b, err := json.Marshal(cfg)
		var result string
		if err != nil {
			result = "[FAILED TO CONVERT CONF TO STRING]"
		} else {
			result = string(b)
		}
		log.Printf("[APP CONFIGURATION]: %v\n", result)
	}
}

// Validate reports every required value that is missing.
func (c Config) Validate() error {
	var missing []string
	if c.AlchemyUrl == "" {
		missing = append(missing, "ALCHEMY_URL")
	}
	if c.TelegramBotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if c.TelegramChatId == "" {
		missing = append(missing, "TELEGRAM_CHAT_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Thresholds parses the native and token alert thresholds.
func (c Config) Thresholds() (native decimal.Decimal, token decimal.Decimal, err error) {
	native, err = decimal.NewFromString(c.NativeThreshold)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("invalid NATIVE_THRESHOLD %q: %w", c.NativeThreshold, err)
	}
	token, err = decimal.NewFromString(c.TokenThreshold)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("invalid TOKEN_THRESHOLD %q: %w", c.TokenThreshold, err)
	}
	return native, token, nil
}

func (c Config) HttpTimeout() time.Duration {
	return time.Duration(c.HttpTimeoutSeconds) * time.Second
}

func (c Config) ReconnectMaxBackoff() time.Duration {
	return time.Duration(c.FeedReconnectMaxBackoffSeconds) * time.Second
}

// KafkaBrokerList splits KAFKA_BROKERS on commas, dropping blanks.
func (c Config) KafkaBrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
