// Package exposure é a "descarga": acompanha o total apostado por (modalidade, prêmio)
// contra um teto configurado e mantém um alerta aberto quando ele é ultrapassado.
package exposure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/radieske/bicho-settlement-engine/internal/settlement/rules"
	"github.com/radieske/bicho-settlement-engine/pkg/contracts/events"
)

// MaxPosition: só os cinco primeiros prêmios têm teto
const MaxPosition = 5

var (
	ErrInvalidPosition = errors.New("position must be between 1 and 5")
	ErrInvalidCeiling  = errors.New("ceiling must be positive")
	ErrAlertNotFound   = errors.New("exposure alert not found")
)

// Limit é o teto de (modalidade, prêmio)
type Limit struct {
	Modality  string          `json:"modality"`
	Position  int             `json:"position"`
	Ceiling   decimal.Decimal `json:"ceiling"`
	Active    bool            `json:"active"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Alert é o alerta aberto; existe no máximo um não resolvido por par
type Alert struct {
	ID           string          `json:"id"`
	Modality     string          `json:"modality"`
	Position     int             `json:"position"`
	CurrentTotal decimal.Decimal `json:"currentTotal"`
	Ceiling      decimal.Decimal `json:"ceiling"`
	Overage      decimal.Decimal `json:"overage"`
	Resolved     bool            `json:"resolved"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Event converte o alerta no contrato publicado
func (a Alert) Event() events.ExposureAlert {
	return events.ExposureAlert{
		AlertID:      a.ID,
		Modality:     a.Modality,
		Position:     a.Position,
		CurrentTotal: a.CurrentTotal,
		Ceiling:      a.Ceiling,
		Overage:      a.Overage,
		Ts:           a.UpdatedAt,
	}
}

// Result é a resposta de CheckAndAlert
type Result struct {
	Modality string          `json:"modality"`
	Position int             `json:"position"`
	Exceeded bool            `json:"exceeded"`
	Total    decimal.Decimal `json:"total"`
	Ceiling  decimal.Decimal `json:"ceiling"`
	Overage  decimal.Decimal `json:"overage"`
	Alert    *Alert          `json:"alert,omitempty"`
}

// Repo é o armazenamento de tetos e alertas
type Repo interface {
	Limit(ctx context.Context, modality string, position int) (Limit, bool, error)
	// excludeBetID tira do total a própria aposta quando ela já foi gravada
	PendingTotal(ctx context.Context, modality string, position int, excludeBetID string) (decimal.Decimal, error)
	UpsertAlert(ctx context.Context, a Alert) (Alert, error)
}

// Notifier avisa operadores sobre um alerta novo ou atualizado
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// Notifiers envia para todos e agrega as falhas
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, a Alert) error {
	var errs error
	for _, n := range ns {
		errs = multierr.Append(errs, n.Notify(ctx, a))
	}
	return errs
}

// Monitor calcula a exposição no momento do cadastro da aposta
type Monitor struct {
	Repo     Repo
	Notifier Notifier // opcional
	Log      *zap.Logger
	Now      func() time.Time
}

func NewMonitor(repo Repo, n Notifier, log *zap.Logger) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Monitor{Repo: repo, Notifier: n, Log: log, Now: time.Now}
}

// NormalizeModality aceita nome do enum ou nome de exibição
func NormalizeModality(m string) (string, error) {
	parsed, err := rules.ParseModality(m)
	if err != nil {
		return "", err
	}
	return string(parsed), nil
}

// ValidatePosition confere 1..5
func ValidatePosition(pos int) error {
	if pos < 1 || pos > MaxPosition {
		return fmt.Errorf("%w: %d", ErrInvalidPosition, pos)
	}
	return nil
}

// CheckAndAlert soma as pendentes que cobrem a posição com a nova aposta e compara ao teto.
// Sem teto ativo não há exposição. Acima do teto grava/atualiza o alerta aberto.
func (m *Monitor) CheckAndAlert(ctx context.Context, modality string, position int, stake decimal.Decimal) (Result, error) {
	return m.check(ctx, modality, position, stake, "")
}

func (m *Monitor) check(ctx context.Context, modality string, position int, stake decimal.Decimal, betID string) (Result, error) {
	mod, err := NormalizeModality(modality)
	if err != nil {
		return Result{}, err
	}
	if err := ValidatePosition(position); err != nil {
		return Result{}, err
	}
	res := Result{Modality: mod, Position: position}

	limit, ok, err := m.Repo.Limit(ctx, mod, position)
	if err != nil {
		return Result{}, fmt.Errorf("load limit: %w", err)
	}
	if !ok || !limit.Active {
		return res, nil
	}

	pending, err := m.Repo.PendingTotal(ctx, mod, position, betID)
	if err != nil {
		return Result{}, fmt.Errorf("pending total: %w", err)
	}
	res.Total = pending.Add(stake)
	res.Ceiling = limit.Ceiling
	if !res.Total.GreaterThan(limit.Ceiling) {
		return res, nil
	}

	res.Exceeded = true
	res.Overage = res.Total.Sub(limit.Ceiling)
	now := m.Now().UTC()
	alert, err := m.Repo.UpsertAlert(ctx, Alert{
		Modality:     mod,
		Position:     position,
		CurrentTotal: res.Total,
		Ceiling:      limit.Ceiling,
		Overage:      res.Overage,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return Result{}, fmt.Errorf("upsert alert: %w", err)
	}
	res.Alert = &alert

	m.Log.Warn("exposure ceiling exceeded",
		zap.String("modality", mod), zap.Int("position", position),
		zap.String("total", res.Total.StringFixed(2)), zap.String("overage", res.Overage.StringFixed(2)))

	if m.Notifier != nil {
		if err := m.Notifier.Notify(ctx, alert); err != nil {
			m.Log.Warn("exposure alert notify failed", zap.String("alertId", alert.ID), zap.Error(err))
		}
	}
	return res, nil
}

// CheckBet confere cada posição da faixa da aposta que tem teto possível (1..5).
// A aposta do evento já está gravada como pendente, então sai do total pendente.
func (m *Monitor) CheckBet(ctx context.Context, b events.BetPlaced) ([]Result, error) {
	from, to := b.PosFrom, b.PosTo
	if from == 0 {
		from, to = 1, 1
	}
	if to > MaxPosition {
		to = MaxPosition
	}
	var out []Result
	for pos := from; pos <= to; pos++ {
		r, err := m.check(ctx, b.Modality, pos, b.Stake, b.BetID)
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}
