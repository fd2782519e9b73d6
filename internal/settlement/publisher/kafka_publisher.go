// Package publisher emite os eventos de liquidação no Kafka.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/bicho-settlement-engine/pkg/contracts/events"
)

// MessageWriter é o subconjunto do kafka.Writer usado aqui
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher publica BetSettled com a chave = betId (mesma partição por aposta)
type KafkaPublisher struct {
	Writer MessageWriter
	Log    *zap.Logger
}

func NewKafkaPublisher(w MessageWriter, log *zap.Logger) *KafkaPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &KafkaPublisher{Writer: w, Log: log}
}

// PublishSettled serializa o evento; é chamado só depois do commit
func (p *KafkaPublisher) PublishSettled(ctx context.Context, e events.BetSettled) error {
	if e.Ts.IsZero() {
		e.Ts = time.Now().UTC()
	}
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal bet settled: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(e.BetID),
		Value: value,
		Time:  e.Ts,
	}
	if err := p.Writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write bet settled: %w", err)
	}

	p.Log.Debug("published bet settled", zap.String("betId", e.BetID), zap.String("status", e.Status))
	return nil
}
