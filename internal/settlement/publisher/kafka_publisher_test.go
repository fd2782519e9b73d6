package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/bicho-settlement-engine/pkg/contracts/events"
)

type captureWriter struct {
	msgs []kafka.Message
	err  error
}

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func TestPublishSettledKeysByBet(t *testing.T) {
	w := &captureWriter{}
	p := NewKafkaPublisher(w, nil)
	ts := time.Date(2026, 1, 14, 18, 0, 0, 0, time.UTC)

	err := p.PublishSettled(context.Background(), events.BetSettled{
		BetID: "bet-1", UserID: "u1", Status: "won", Payout: decimal.RequireFromString("180.00"), Ts: ts,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "bet-1", string(w.msgs[0].Key))
	assert.Equal(t, ts, w.msgs[0].Time)

	var got events.BetSettled
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "won", got.Status)
	assert.True(t, got.Payout.Equal(decimal.NewFromInt(180)))
}

func TestPublishSettledWrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewKafkaPublisher(&captureWriter{err: boom}, nil)

	err := p.PublishSettled(context.Background(), events.BetSettled{BetID: "bet-1"})
	assert.ErrorIs(t, err, boom)
}
