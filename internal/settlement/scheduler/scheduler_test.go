package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/radieske/bicho-settlement-engine/internal/settlement/engine"
)

type countingRunner struct {
	mu    sync.Mutex
	calls []engine.BatchRequest
	err   error
}

func (c *countingRunner) RunBatch(_ context.Context, req engine.BatchRequest) (engine.Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, req)
	return engine.Summary{RunID: "r", ProcessedCount: 2, TotalPrizePaid: decimal.Zero}, c.err
}

func TestTickRunsBatchWithoutFilters(t *testing.T) {
	r := &countingRunner{}
	s := New(r, Options{Spec: "0 * * * * *", Enabled: true}, nil)

	s.Tick(context.Background())
	require.Len(t, r.calls, 1)
	assert.Equal(t, engine.BatchRequest{}, r.calls[0])
}

func TestTickDisabledLogsOnce(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := &countingRunner{}
	s := New(r, Options{Spec: "0 * * * * *"}, zap.New(core))

	s.Tick(context.Background())
	s.Tick(context.Background())
	assert.Empty(t, r.calls)
	assert.Equal(t, 1, logs.FilterMessage("auto settlement disabled, skipping ticks").Len())
}

func TestTickLogsFailure(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := &countingRunner{err: errors.New("sources down")}
	s := New(r, Options{Enabled: true}, zap.New(core))

	s.Tick(context.Background())
	assert.Equal(t, 1, logs.FilterMessage("scheduled settlement failed").Len())
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := New(&countingRunner{}, Options{Spec: "every tuesday"}, nil)
	assert.Error(t, s.Start())

	ok := New(&countingRunner{}, Options{Spec: "0 */10 * * * *"}, nil)
	require.NoError(t, ok.Start())
	ok.Stop()
}
