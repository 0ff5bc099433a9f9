package usecase

import (
	"context"
	"encoding/json"
	"time"

	"PairLab/internal/domain/models"
	domrepo "PairLab/internal/domain/repository"
	pkgkafka "PairLab/pkg/kafka"
)

// KafkaTicksHandler consumes published ticks and queues them for storage.
type KafkaTicksHandler struct {
	topic   string
	queue   TickQueue
	metrics domrepo.Metrics
}

func NewKafkaTicksHandler(topic string, queue TickQueue, metrics domrepo.Metrics) *KafkaTicksHandler {
	return &KafkaTicksHandler{topic: topic, queue: queue, metrics: metrics}
}

func (h *KafkaTicksHandler) Topic() string { return h.topic }

// Handle decodes a {symbol, ts, price, size} message. Undecodable or invalid
// ticks are permanent failures; a full buffer is retried.
func (h *KafkaTicksHandler) Handle(_ context.Context, b []byte) error {
	var t models.Tick
	if err := json.Unmarshal(b, &t); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return pkgkafka.Permanent(err)
	}
	if err := NormalizeTick(&t); err != nil {
		h.metrics.RecordError("consumer_invalid")
		return pkgkafka.Permanent(err)
	}
	h.metrics.RecordLatency("ingest_e2e", time.Since(t.Time).Seconds())
	if err := h.queue.Enqueue(&t); err != nil {
		h.metrics.RecordError("consumer_enqueue")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaTicksHandler)(nil)
