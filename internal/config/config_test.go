package config

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var managedKeys = []string{
	"LOG_ZAP_MODE",
	"PRINT_CONFIGURATION_TO_LOGS",
	"ALCHEMY_URL",
	"TELEGRAM_BOT_TOKEN",
	"TELEGRAM_CHAT_ID",
	"HTTP_TIMEOUT_SECONDS",
	"NATIVE_THRESHOLD",
	"KAFKA_BROKERS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range managedKeys {
		os.Unsetenv(key)
	}
	t.Cleanup(func() {
		for _, key := range managedKeys {
			os.Unsetenv(key)
		}
	})
}

func TestGet(t *testing.T) {
	viper.Reset()
	clearEnv(t)
	os.Setenv("LOG_ZAP_MODE", "test_mode")
	os.Setenv("ALCHEMY_URL", "wss://feed.example/v2/key")
	os.Setenv("PRINT_CONFIGURATION_TO_LOGS", "true")

	cfg := Get()

	assert.Equal(t, "test_mode", cfg.LogZapMode)
	assert.Equal(t, "wss://feed.example/v2/key", cfg.AlchemyUrl)
	assert.Equal(t, "true", cfg.PrintConfigurationToLogs)

	// Test singleton behavior
	cfg2 := Get()
	assert.Equal(t, cfg, cfg2)
}

func TestLoadConfigWithEnvVars(t *testing.T) {
	viper.Reset()
	clearEnv(t)
	os.Setenv("LOG_ZAP_MODE", "debug")
	os.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	os.Setenv("HTTP_TIMEOUT_SECONDS", "3")
	os.Setenv("NATIVE_THRESHOLD", "12.5")

	cfg := loadConfig()

	assert.Equal(t, "debug", cfg.LogZapMode)
	assert.Equal(t, "123:abc", cfg.TelegramBotToken)
	assert.Equal(t, 3*time.Second, cfg.HttpTimeout())
	assert.Equal(t, "12.5", cfg.NativeThreshold)
}

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()
	clearEnv(t)

	cfg := loadConfig()

	assert.Equal(t, DefaultTelegramApiUrl, cfg.TelegramApiUrl)
	assert.Equal(t, DefaultPriceApiUrl, cfg.PriceApiUrl)
	assert.Equal(t, DefaultExplorerUrl, cfg.ExplorerUrl)
	assert.Equal(t, "ethereum", cfg.PriceCoinId)
	assert.Equal(t, 10*time.Second, cfg.HttpTimeout())
	assert.Equal(t, 30*time.Second, cfg.ReconnectMaxBackoff())
	assert.Equal(t, 18, cfg.TokenDecimals)
	assert.Equal(t, 0, cfg.RPCPort)
	assert.Equal(t, "whale-alerts", cfg.KafkaTopic)
	assert.Empty(t, cfg.KafkaBrokerList())

	native, token, err := cfg.Thresholds()
	require.NoError(t, err)
	assert.True(t, native.Equal(decimal.NewFromInt(50)))
	assert.True(t, token.Equal(decimal.NewFromInt(10000)))
}

func TestLoadConfigWithConfigFile(t *testing.T) {
	viper.Reset()
	clearEnv(t)

	content := []byte(`
LOG_ZAP_MODE=prod
ALCHEMY_URL=wss://file.example
PRINT_CONFIGURATION_TO_LOGS=true
TELEGRAM_BOT_TOKEN=secret
`)
	err := os.WriteFile("config.env", content, 0644)
	require.NoError(t, err)
	defer os.Remove("config.env")

	cfg := loadConfig()

	assert.Equal(t, "prod", cfg.LogZapMode)
	assert.Equal(t, "wss://file.example", cfg.AlchemyUrl)
	assert.Equal(t, "true", cfg.PrintConfigurationToLogs)
	assert.Equal(t, "secret", cfg.TelegramBotToken)
}

func TestEnvOverridesConfigFile(t *testing.T) {
	viper.Reset()
	clearEnv(t)

	content := []byte(`
LOG_ZAP_MODE=prod
ALCHEMY_URL=wss://file.example
`)
	err := os.WriteFile("config.env", content, 0644)
	require.NoError(t, err)
	defer os.Remove("config.env")

	os.Setenv("LOG_ZAP_MODE", "env_override")

	cfg := loadConfig()

	assert.Equal(t, "env_override", cfg.LogZapMode)
	assert.Equal(t, "wss://file.example", cfg.AlchemyUrl)
}

func TestDotEnvFileIsLoaded(t *testing.T) {
	viper.Reset()
	clearEnv(t)

	err := os.WriteFile(".env", []byte("TELEGRAM_CHAT_ID=-100123\nKAFKA_BROKERS=k1:9092, ,k2:9092\n"), 0644)
	require.NoError(t, err)
	defer os.Remove(".env")

	cfg := loadConfig()

	assert.Equal(t, "-100123", cfg.TelegramChatId)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokerList())
}

func TestMissingConfigFile(t *testing.T) {
	viper.Reset()
	clearEnv(t)
	os.Remove("config.env")
	os.Setenv("LOG_ZAP_MODE", "fallback")

	cfg := loadConfig()

	assert.Equal(t, "fallback", cfg.LogZapMode)
}

func TestValidate(t *testing.T) {
	complete := Config{
		AlchemyUrl:       "wss://feed",
		TelegramBotToken: "token",
		TelegramChatId:   "chat",
	}
	assert.NoError(t, complete.Validate())

	err := Config{TelegramBotToken: "token"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALCHEMY_URL")
	assert.Contains(t, err.Error(), "TELEGRAM_CHAT_ID")
	assert.NotContains(t, err.Error(), "TELEGRAM_BOT_TOKEN")
}

func TestThresholdsInvalid(t *testing.T) {
	_, _, err := Config{NativeThreshold: "fifty", TokenThreshold: "1"}.Thresholds()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NATIVE_THRESHOLD")

	_, _, err = Config{NativeThreshold: "50", TokenThreshold: ""}.Thresholds()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOKEN_THRESHOLD")
}

func TestMain(m *testing.M) {
	code := m.Run()

	os.Remove("config.env")
	os.Remove(".env")

	os.Exit(code)
}
