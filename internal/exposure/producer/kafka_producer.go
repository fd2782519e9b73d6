// Package producer publica alertas de exposição no tópico exposure_alerts.
package producer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/bicho-settlement-engine/internal/exposure"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaProducer implementa exposure.Notifier; chave = modalidade:prêmio
type KafkaProducer struct {
	w MessageWriter
}

func NewKafkaProducer(w MessageWriter) *KafkaProducer {
	return &KafkaProducer{w: w}
}

func (p *KafkaProducer) Notify(ctx context.Context, a exposure.Alert) error {
	ev := a.Event()
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%s:%d", ev.Modality, ev.Position)),
		Value: b,
		Time:  ev.Ts,
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write exposure alert: %w", err)
	}
	return nil
}
