// Package consumer lê bet_placed e roda o monitor de exposição para cada aposta.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/bicho-settlement-engine/internal/exposure"
	"github.com/radieske/bicho-settlement-engine/pkg/contracts/events"
)

// MaxAttempts antes de mandar a mensagem para a DLQ
const MaxAttempts = 3

// MessageReader é o subconjunto do kafka.Reader usado no loop
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// MessageWriter recebe as mensagens que esgotaram as tentativas
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Checker é o monitor de exposição
type Checker interface {
	CheckBet(ctx context.Context, b events.BetPlaced) ([]exposure.Result, error)
}

// Processor consome BetPlaced e confere a exposição por prêmio
type Processor struct {
	Log     *zap.Logger
	Reader  MessageReader
	DLQ     MessageWriter // opcional
	Monitor Checker
	Backoff time.Duration

	OnConsumed func()       // métricas (counter++)
	OnChecked  func(n int)  // n = posições acima do teto
	OnDLQ      func()       // métricas
	OnError    func(string) // métricas por fase
}

// Run inicia o loop de consumo; só retorna quando o contexto for cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if p.OnConsumed != nil {
			p.OnConsumed()
		}
		p.Handle(ctx, m)
	}
}

// Handle processa uma mensagem: payload inválido é descartado, falha de banco tenta de novo
func (p *Processor) Handle(ctx context.Context, m kafka.Message) {
	var ev events.BetPlaced
	if err := json.Unmarshal(m.Value, &ev); err != nil || ev.BetID == "" || ev.Modality == "" {
		p.Log.Warn("invalid bet placed message", zap.ByteString("key", m.Key), zap.Error(err))
		p.fail("decode")
		return
	}

	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		results, err := p.Monitor.CheckBet(ctx, ev)
		if err == nil {
			exceeded := 0
			for _, r := range results {
				if r.Exceeded {
					exceeded++
				}
			}
			if p.OnChecked != nil {
				p.OnChecked(exceeded)
			}
			p.Log.Debug("exposure checked", zap.String("betId", ev.BetID), zap.Int("exceeded", exceeded))
			return
		}
		lastErr = err
		p.Log.Warn("exposure check failed", zap.String("betId", ev.BetID), zap.Int("attempt", attempt), zap.Error(err))
		p.fail("check")
		if attempt < MaxAttempts && !sleepCtx(ctx, p.Backoff*time.Duration(attempt)) {
			return
		}
	}
	p.toDLQ(ctx, m, lastErr)
}

func (p *Processor) toDLQ(ctx context.Context, m kafka.Message, cause error) {
	if p.DLQ == nil {
		return
	}
	msg := kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "error", Value: []byte(cause.Error())},
			{Key: "attempts", Value: []byte(fmt.Sprint(MaxAttempts))},
		},
	}
	if err := p.DLQ.WriteMessages(ctx, msg); err != nil {
		p.Log.Error("dlq write failed", zap.ByteString("key", m.Key), zap.Error(err))
		p.fail("dlq")
		return
	}
	if p.OnDLQ != nil {
		p.OnDLQ()
	}
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
