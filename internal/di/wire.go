//go:build wireinject
// +build wireinject

package di

import (
	"CoinMentor/pkg/config"
	"CoinMentor/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideTradeStorage,
		ProvideTradePublisher,
		ProvideMarketStream,
		ProvideConversationStore,
		ProvideProposalSink,

		// Use cases
		ProvideTradeProcessor,
		ProvideMarketCollector,
		ProvideTradesHandler,
		ProvideExtractor,
		ProvideOrchestrator,
		ProvideSnapshotUseCase,
		ProvideCandlesUseCase,

		// HTTP and application server
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
