package usecase

import (
	"context"
	"encoding/json"
	"time"

	"CoinMentor/internal/domain/models"
	domrepo "CoinMentor/internal/domain/repository"
	pkgkafka "CoinMentor/pkg/kafka"
)

// KafkaTradesHandler consumes trade messages from Kafka and writes them
// to storage. Used when the backend routes trades through Kafka first.
type KafkaTradesHandler struct {
	topic   string
	storage domrepo.Storage
	metrics domrepo.Metrics
}

func NewKafkaTradesHandler(topic string, storage domrepo.Storage, metrics domrepo.Metrics) *KafkaTradesHandler {
	return &KafkaTradesHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaTradesHandler) Topic() string { return h.topic }

func (h *KafkaTradesHandler) Handle(ctx context.Context, b []byte) error {
	var t models.Trade
	if err := json.Unmarshal(b, &t); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if t.Timestamp > 1e11 { // ms
		t.Timestamp = t.Timestamp / 1000
	}
	// E2E latency from event time to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(t.Timestamp, 0)).Seconds())

	start := time.Now()
	err := h.storage.Store(ctx, &t)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordMessageSent("clickhouse", t.Symbol)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaTradesHandler)(nil)
