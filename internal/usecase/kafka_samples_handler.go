package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"PQAnalyzer/internal/domain/models"
	domrepo "PQAnalyzer/internal/domain/repository"
	pkgkafka "PQAnalyzer/pkg/kafka"
)

// KafkaSamplesHandler consumes published samples and writes them to the warehouse.
type KafkaSamplesHandler struct {
	topic     string
	warehouse domrepo.SampleWarehouse
	metrics   domrepo.Metrics
}

func NewKafkaSamplesHandler(topic string, warehouse domrepo.SampleWarehouse, metrics domrepo.Metrics) *KafkaSamplesHandler {
	return &KafkaSamplesHandler{topic: topic, warehouse: warehouse, metrics: metrics}
}

func (h *KafkaSamplesHandler) Topic() string { return h.topic }

// incoming message schema: {run_id, t, v, raw}; the key repeats run_id.
func (h *KafkaSamplesHandler) Handle(ctx context.Context, key, value []byte) error {
	var s models.RawSample
	if err := json.Unmarshal(value, &s); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode sample: %w", err)
	}
	if s.RunID == "" {
		s.RunID = string(key)
	}
	if s.RunID == "" {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("sample without run id")
	}

	start := time.Now()
	err := h.warehouse.StoreBatch(ctx, []models.RawSample{s})
	h.metrics.RecordLatency("warehouse_insert", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaSamplesHandler)(nil)
