package repository

import (
	"context"

	"PQAnalyzer/internal/domain/models"
	domrepo "PQAnalyzer/internal/domain/repository"
	pkgkafka "PQAnalyzer/pkg/kafka"
)

type messageWriter interface {
	Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error
	Close() error
}

// KafkaSamplePublisher keys every sample by run id so a run stays on one partition.
type KafkaSamplePublisher struct {
	w     messageWriter
	topic string
}

func NewKafkaSamplePublisher(p *pkgkafka.Producer, topic string) *KafkaSamplePublisher {
	return &KafkaSamplePublisher{w: p, topic: topic}
}

func (p *KafkaSamplePublisher) Topic() string { return p.topic }

func (p *KafkaSamplePublisher) PublishBatch(ctx context.Context, samples []models.RawSample) error {
	if len(samples) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(samples))
	for i, s := range samples {
		msgs[i] = pkgkafka.Message{Key: []byte(s.RunID), Value: s}
	}
	return p.w.Publish(ctx, p.topic, msgs...)
}

func (p *KafkaSamplePublisher) Close() error { return p.w.Close() }

var _ domrepo.SamplePublisher = (*KafkaSamplePublisher)(nil)
