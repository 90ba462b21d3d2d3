package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"CoinMentor/internal/usecase"
	pkgch "CoinMentor/pkg/clickhouse"
	"CoinMentor/pkg/config"
	xhttp "CoinMentor/pkg/http"
	pkgkafka "CoinMentor/pkg/kafka"
	applogger "CoinMentor/pkg/logger"
)

// App encapsulates the application lifecycle: market data collection, the
// optional Kafka ingest path, and the HTTP API.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	collector  *usecase.MarketCollector
	consumer   *pkgkafka.Consumer
	th         *usecase.KafkaTradesHandler
	chClient   *pkgch.Client
	producer   *pkgkafka.Producer
	processor  *usecase.TradeProcessor
	handler    xhttp.Handler
	httpServer *xhttp.Server
}

// New creates an App with all its dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	collector *usecase.MarketCollector,
	consumer *pkgkafka.Consumer,
	th *usecase.KafkaTradesHandler,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	processor *usecase.TradeProcessor,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:       cfg,
		logger:    logger,
		collector: collector,
		consumer:  consumer,
		th:        th,
		chClient:  chClient,
		producer:  producer,
		processor: processor,
		handler:   handler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	go func() {
		if err := a.collector.Start(ctx); err != nil {
			a.logger.Error("collector error", applogger.Error(err))
		}
	}()
	a.logger.Info("market collector started",
		applogger.Strings("symbols", a.cfg.Binance.Symbols),
		applogger.String("backend", a.cfg.Backend.Type),
	)

	if a.consumer != nil && a.th != nil {
		a.consumer.RegisterHandler(a.th)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.logger.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.logger.Info("kafka consumer started", applogger.String("topic", a.th.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("http server listening", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

func (a *App) shutdown(ctx context.Context) error {
	if err := a.collector.Shutdown(ctx); err != nil {
		a.logger.Warn("collector stop error", applogger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.processor != nil {
		a.processor.Close()
	}

	a.logger.RemoveCollector()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
