package di

import (
	"context"
	"fmt"
	"strings"
	"time"

	"CoinMentor/internal/advisor"
	"CoinMentor/internal/conversation"
	"CoinMentor/internal/domain/models"
	"CoinMentor/internal/domain/repository"
	"CoinMentor/internal/handler/api"
	"CoinMentor/internal/indicators"
	mid "CoinMentor/internal/middleware"
	"CoinMentor/internal/proposal"
	internalrepo "CoinMentor/internal/repository"
	"CoinMentor/internal/service/binance"
	"CoinMentor/internal/usecase"
	"CoinMentor/pkg/cache"
	pkgch "CoinMentor/pkg/clickhouse"
	"CoinMentor/pkg/config"
	xhttp "CoinMentor/pkg/http"
	pkgkafka "CoinMentor/pkg/kafka"
	applogger "CoinMentor/pkg/logger"
	"CoinMentor/pkg/metrics"
	"CoinMentor/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache creates the cache service. Redis (layered with an in-process
// L1) when enabled, otherwise pure in-memory.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(rc), nil
}

// ProvideClickHouseClient creates a ClickHouse client. Table schemas are
// owned by the repositories that use them.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when no brokers are
// configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideTradeStorage creates ClickHouse trade storage and ensures its
// schema.
func ProvideTradeStorage(chClient *pkgch.Client, l *applogger.Logger) (repository.Storage, error) {
	store := internalrepo.NewClickHouseStorage(chClient, "trades", l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// ProvideTradePublisher creates the Kafka trade publisher.
func ProvideTradePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.CandlesTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer when the streaming backend
// is kafka; nil otherwise.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != "kafka" || len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideTradesHandler registers the handler for the trades topic.
func ProvideTradesHandler(store repository.Storage, m repository.Metrics, cfg *config.Config) *usecase.KafkaTradesHandler {
	return usecase.NewKafkaTradesHandler(cfg.Kafka.CandlesTopic, store, m)
}

// ProvideMarketStream creates the Binance WebSocket stream.
func ProvideMarketStream(cfg *config.Config) repository.MarketStream {
	return binance.New(
		cfg.Binance.WebSocketURL,
		cfg.Binance.Symbols,
		cfg.Binance.ReconnectDelay,
		cfg.Binance.PingInterval,
	)
}

// ProvideTradeProcessor creates the trade routing processor.
func ProvideTradeProcessor(
	pub repository.Publisher,
	store repository.Storage,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.TradeProcessor {
	return usecase.NewTradeProcessor(
		pub,
		store,
		m,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvideMarketCollector creates the market data collector with its
// validation and throttling pipeline.
func ProvideMarketCollector(
	stream repository.MarketStream,
	processor *usecase.TradeProcessor,
	m repository.Metrics,
) *usecase.MarketCollector {
	pipe := mid.NewRealtimePipeline(processor, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
		mid.WithTransform(normalizeTrade),
	)
	return usecase.NewMarketCollector(stream, processor, m, pipe)
}

// normalizeTrade brings exchange trades into canonical form before
// processing: upper-case symbols and millisecond timestamps scaled down
// to seconds.
func normalizeTrade(t *models.Trade) *models.Trade {
	t.Symbol = strings.ToUpper(t.Symbol)
	if t.Timestamp > 1e11 {
		t.Timestamp /= 1000
	}
	return t
}

// ProvideConversationStore creates per-advisor history storage.
func ProvideConversationStore(cfg *config.Config, c cache.Service) repository.ConversationStore {
	if cfg.Advisory.HistoryBackend == "redis" {
		return conversation.NewCacheStore(c, 0)
	}
	return conversation.NewMemoryStore()
}

// ProvideExtractor creates the trade proposal extractor.
func ProvideExtractor(l *applogger.Logger) *proposal.Extractor {
	return proposal.NewExtractor(l)
}

// ProvideProposalSink creates the proposal sink and ensures its archive
// schema.
func ProvideProposalSink(producer *pkgkafka.Producer, chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) (repository.ProposalSink, error) {
	sink := internalrepo.NewAdvisorySink(producer, cfg.Kafka.ProposalsTopic, chClient, "advisory_rounds", l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if init, ok := sink.(interface{ Init(context.Context) error }); ok {
		if err := init.Init(ctx); err != nil {
			return nil, err
		}
	}
	return sink, nil
}

// ProvideOrchestrator creates the advisor orchestrator and registers every
// configured advisor. An advisor whose credential is missing is skipped
// with a warning rather than failing startup.
func ProvideOrchestrator(
	store repository.ConversationStore,
	extractor *proposal.Extractor,
	sink repository.ProposalSink,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.Orchestrator {
	orch := usecase.NewOrchestrator(store, extractor, m, l,
		usecase.WithProposalSink(sink),
	)
	for _, ac := range cfg.Advisory.Advisors {
		client, err := advisor.NewClient(ac)
		if err != nil {
			l.Warn("advisor not registered",
				applogger.String("advisor", ac.Name),
				applogger.String("provider", ac.Provider),
				applogger.String("kind", string(models.KindOf(err))),
				applogger.Error(err),
			)
			continue
		}
		orch.RegisterAdvisor(client)
	}
	return orch
}

// ProvideSnapshotUseCase creates the market snapshot use case.
func ProvideSnapshotUseCase(
	store repository.Storage,
	m repository.Metrics,
	c cache.Service,
	cfg *config.Config,
) *usecase.SnapshotUseCase {
	params := indicators.DefaultParams()
	if cfg.Indicators.EMAShort > 0 {
		params = indicators.Params{
			EMAShort:        cfg.Indicators.EMAShort,
			EMALong:         cfg.Indicators.EMALong,
			RSIPeriod:       cfg.Indicators.RSIPeriod,
			ATRPeriod:       cfg.Indicators.ATRPeriod,
			ADXPeriod:       cfg.Indicators.ADXPeriod,
			VolumeMAPeriod:  cfg.Indicators.VolumeMAPeriod,
			BollingerPeriod: cfg.Indicators.BollingerPeriod,
			BollingerStd:    cfg.Indicators.BollingerStd,
		}
	}
	thresh := indicators.DefaultThresholds()
	if cfg.Regime.ADXTrending > 0 {
		thresh = indicators.Thresholds{
			ADXTrending:       cfg.Regime.ADXTrending,
			ADXStrong:         cfg.Regime.ADXStrong,
			RSIOversold:       cfg.Regime.RSIOversold,
			RSIOverbought:     cfg.Regime.RSIOverbought,
			ATRHighPercentile: cfg.Regime.ATRHighPercentile,
		}
	}
	return usecase.NewSnapshotUseCase(store, m, c, cfg.Advisory.SnapshotTTL, params, thresh)
}

// ProvideCandlesUseCase creates the candle query use case.
func ProvideCandlesUseCase(store repository.Storage) *usecase.CandlesUseCase {
	return usecase.NewCandlesUseCase(store)
}

// ProvideHTTPHandler assembles all route handlers.
func ProvideHTTPHandler(
	l *applogger.Logger,
	orch *usecase.Orchestrator,
	snap *usecase.SnapshotUseCase,
	candles *usecase.CandlesUseCase,
	store repository.Storage,
) xhttp.Handler {
	return xhttp.MultiHandler{
		api.NewAdvisoryEchoHandler(l, orch, snap),
		api.NewMarketEchoHandler(l, snap, candles, store),
	}
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.MarketCollector,
	consumer *pkgkafka.Consumer,
	th *usecase.KafkaTradesHandler,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	processor *usecase.TradeProcessor,
	handler xhttp.Handler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	if producer != nil && cfg.Kafka.OpsLogTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.OpsLogTopic,
			Publisher:      producer,
		})
	}
	return server.New(cfg, l, collector, consumer, th, chClient, producer, processor, handler)
}
