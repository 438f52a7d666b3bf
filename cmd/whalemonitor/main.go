package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/6529-Collections/whale-monitor/internal/alert"
	"github.com/6529-Collections/whale-monitor/internal/classify"
	"github.com/6529-Collections/whale-monitor/internal/config"
	"github.com/6529-Collections/whale-monitor/internal/eth"
	"github.com/6529-Collections/whale-monitor/internal/feed"
	"github.com/6529-Collections/whale-monitor/internal/price"
	"github.com/6529-Collections/whale-monitor/internal/rpc"
	"github.com/6529-Collections/whale-monitor/pkg/tokens"
	"go.uber.org/zap"
)

var Version = "dev" // Overridden by release build script

func init() {
	logger := zap.Must(zap.NewProduction())
	if config.Get().LogZapMode == "development" {
		logger = zap.Must(zap.NewDevelopment())
	}
	zap.ReplaceGlobals(logger)
}

type monitor struct {
	subscriber *feed.Subscriber
	closers    []func() error
}

func (m *monitor) close() {
	for _, c := range m.closers {
		if err := c(); err != nil {
			zap.L().Warn("Error closing alert sink", zap.Error(err))
		}
	}
}

func buildMonitor(cfg config.Config) (*monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	nativeThreshold, tokenThreshold, err := cfg.Thresholds()
	if err != nil {
		return nil, err
	}

	m := &monitor{}
	sink, err := buildSink(cfg, m)
	if err != nil {
		return nil, err
	}

	registry := tokens.DefaultRegistry()
	oracle := price.NewClient(cfg.PriceApiUrl, cfg.PriceCoinId, cfg.HttpTimeout())
	engine := classify.NewEngine(oracle, registry, classify.Rules{
		NativeThreshold: nativeThreshold,
		TokenThreshold:  tokenThreshold,
		Decimals:        int32(cfg.TokenDecimals),
	})

	m.subscriber = feed.NewSubscriber(
		cfg.AlchemyUrl,
		eth.NewDefaultTransactionDecoder(),
		engine,
		alert.NewFormatter(cfg.ExplorerUrl),
		sink,
		cfg.ReconnectMaxBackoff(),
	)
	zap.L().Info("Whale monitor configured",
		zap.Int("trackedTokens", registry.Len()),
		zap.String("nativeThreshold", nativeThreshold.String()),
		zap.String("tokenThreshold", tokenThreshold.String()),
	)
	return m, nil
}

func buildSink(cfg config.Config, m *monitor) (alert.Sink, error) {
	telegram := alert.NewTelegramSink(cfg.TelegramApiUrl, cfg.TelegramBotToken, cfg.TelegramChatId, cfg.HttpTimeout())

	brokers := cfg.KafkaBrokerList()
	if len(brokers) == 0 {
		return telegram, nil
	}
	kafka, err := alert.NewKafkaSink(brokers, cfg.KafkaTopic, nil)
	if err != nil {
		return nil, fmt.Errorf("kafka sink: %w", err)
	}
	m.closers = append(m.closers, kafka.Close)
	zap.L().Info("Publishing alerts to Kafka", zap.Strings("brokers", brokers), zap.String("topic", cfg.KafkaTopic))
	return alert.MultiSink{telegram, kafka}, nil
}

func main() {
	zap.L().Info("Starting whale monitor...", zap.String("Version", Version))

	m, err := buildMonitor(config.Get())
	if err != nil {
		zap.L().Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.subscriber.Announce(ctx)

	closeRpcServer := func() {}
	if port := config.Get().RPCPort; port > 0 {
		closeRpcServer = rpc.StartRPCServer(ctx, port, m.subscriber)
	}

	// Catch up to two signals: first for graceful, second to force
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		zap.L().Info("Received shutdown signal, initiating graceful shutdown...")
		cancel()

		<-sigCh
		zap.L().Error("Received second signal, forcing shutdown")
		os.Exit(1)
	}()

	if err := m.subscriber.Run(ctx); err != nil {
		zap.L().Error("Feed subscriber stopped", zap.Error(err))
	}

	closeRpcServer()
	m.close()

	zap.L().Info("Shutdown complete", zap.Any("stats", m.subscriber.Stats()))
	_ = zap.L().Sync()
}
