package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/radieske/bicho-settlement-engine/internal/exposure"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/rules"
)

// Postgres guarda tetos e alertas de exposição
type Postgres struct {
	DB *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{DB: db} }

// SetLimit cria ou atualiza o teto de (modalidade, prêmio)
func (p *Postgres) SetLimit(ctx context.Context, l exposure.Limit) (exposure.Limit, error) {
	if err := exposure.ValidatePosition(l.Position); err != nil {
		return exposure.Limit{}, err
	}
	if !l.Ceiling.IsPositive() {
		return exposure.Limit{}, exposure.ErrInvalidCeiling
	}
	const q = `
		INSERT INTO exposure_limits (modality, position, ceiling, active, updated_at)
		VALUES ($1,$2,$3,$4,now())
		ON CONFLICT (modality, position) DO UPDATE SET
		  ceiling    = EXCLUDED.ceiling,
		  active     = EXCLUDED.active,
		  updated_at = EXCLUDED.updated_at
		RETURNING updated_at`
	err := p.DB.QueryRowContext(ctx, q, l.Modality, l.Position, l.Ceiling, l.Active).Scan(&l.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23514" {
			return exposure.Limit{}, fmt.Errorf("%w: %s", exposure.ErrInvalidPosition, pqErr.Constraint)
		}
		return exposure.Limit{}, fmt.Errorf("upsert limit: %w", err)
	}
	return l, nil
}

// Limit busca o teto; ok=false se não existir
func (p *Postgres) Limit(ctx context.Context, modality string, position int) (exposure.Limit, bool, error) {
	l := exposure.Limit{Modality: modality, Position: position}
	err := p.DB.QueryRowContext(ctx,
		`SELECT ceiling, active, updated_at FROM exposure_limits WHERE modality=$1 AND position=$2`,
		modality, position).Scan(&l.Ceiling, &l.Active, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return exposure.Limit{}, false, nil
	}
	if err != nil {
		return exposure.Limit{}, false, err
	}
	return l, true, nil
}

// Limits lista todos os tetos cadastrados
func (p *Postgres) Limits(ctx context.Context) ([]exposure.Limit, error) {
	rows, err := p.DB.QueryContext(ctx,
		`SELECT modality, position, ceiling, active, updated_at FROM exposure_limits ORDER BY modality, position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []exposure.Limit
	for rows.Next() {
		var l exposure.Limit
		if err := rows.Scan(&l.Modality, &l.Position, &l.Ceiling, &l.Active, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// PendingTotal soma as pendentes cuja faixa cobre a posição.
// Modalidade e faixa são lidas como na liquidação: qualquer nome aceito pelo
// cadastro e posição do metadado antes das colunas.
func (p *Postgres) PendingTotal(ctx context.Context, modality string, position int, excludeBetID string) (decimal.Decimal, error) {
	bets, err := p.pending(ctx, modality, position, excludeBetID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, b := range bets {
		total = total.Add(b.Stake)
	}
	return total, nil
}

// UpsertAlert usa o índice único parcial (modality, position) WHERE NOT resolved
func (p *Postgres) UpsertAlert(ctx context.Context, a exposure.Alert) (exposure.Alert, error) {
	const q = `
		INSERT INTO exposure_alerts
		  (id, modality, position, current_total, ceiling, overage, resolved, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,FALSE,$7,$7)
		ON CONFLICT (modality, position) WHERE NOT resolved DO UPDATE SET
		  current_total = EXCLUDED.current_total,
		  ceiling       = EXCLUDED.ceiling,
		  overage       = EXCLUDED.overage,
		  updated_at    = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at`
	err := p.DB.QueryRowContext(ctx, q,
		uuid.New().String(), a.Modality, a.Position, a.CurrentTotal, a.Ceiling, a.Overage, a.UpdatedAt,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return exposure.Alert{}, err
	}
	a.Resolved = false
	return a, nil
}

// Alerts lista os alertas abertos, maior excesso primeiro
func (p *Postgres) Alerts(ctx context.Context) ([]exposure.Alert, error) {
	rows, err := p.DB.QueryContext(ctx, `
		SELECT id, modality, position, current_total, ceiling, overage, resolved, created_at, updated_at
		FROM exposure_alerts
		WHERE NOT resolved
		ORDER BY overage DESC, created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []exposure.Alert
	for rows.Next() {
		var a exposure.Alert
		if err := rows.Scan(&a.ID, &a.Modality, &a.Position, &a.CurrentTotal, &a.Ceiling, &a.Overage,
			&a.Resolved, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Resolve fecha o alerta; outro alerta pode então ser aberto para o mesmo par
func (p *Postgres) Resolve(ctx context.Context, id string) error {
	res, err := p.DB.ExecContext(ctx,
		`UPDATE exposure_alerts SET resolved = TRUE, updated_at = now() WHERE id = $1 AND NOT resolved`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return exposure.ErrAlertNotFound
	}
	return nil
}

// PendingBet é a linha do relatório de apostas em risco por posição
type PendingBet struct {
	ID       string          `json:"id"`
	UserID   string          `json:"userId"`
	Stake    decimal.Decimal `json:"stake"`
	Lottery  string          `json:"lottery"`
	DrawTime string          `json:"drawTime"`
	DrawDate string          `json:"drawDate"`
	PosFrom  int             `json:"posFrom"`
	PosTo    int             `json:"posTo"`
}

// PendingBets lista as apostas pendentes que compõem o total da posição
func (p *Postgres) PendingBets(ctx context.Context, modality string, position int) ([]PendingBet, error) {
	return p.pending(ctx, modality, position, "")
}

func (p *Postgres) pending(ctx context.Context, modality string, position int, excludeBetID string) ([]PendingBet, error) {
	mod, err := rules.ParseModality(modality)
	if err != nil {
		return nil, err
	}
	rows, err := p.DB.QueryContext(ctx, `
		SELECT id, user_id, stake, modality, lottery, draw_time, to_char(draw_date, 'YYYY-MM-DD'),
		       pos_from, pos_to, metadata
		FROM bets
		WHERE status = 'pending'
		  AND regexp_replace(lower(btrim(modality)), '\s+', ' ', 'g') = ANY($1)
		  AND ($2 = '' OR id::text <> $2)
		ORDER BY stake DESC, created_at`,
		pq.Array(mod.Names()), excludeBetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []PendingBet{}
	for rows.Next() {
		var (
			b        PendingBet
			rowMod   string
			colFrom  int
			colTo    int
			metadata []byte
		)
		if err := rows.Scan(&b.ID, &b.UserID, &b.Stake, &rowMod, &b.Lottery, &b.DrawTime, &b.DrawDate,
			&colFrom, &colTo, &metadata); err != nil {
			return nil, err
		}
		if m, err := rules.ParseModality(rowMod); err != nil || m != mod {
			continue
		}
		var metaFrom, metaTo int
		if len(metadata) > 0 {
			// metadado ilegível fica com as colunas
			metaFrom, metaTo, _ = rules.DecodePosition(metadata)
		}
		b.PosFrom, b.PosTo = rules.BetRange(metaFrom, metaTo, colFrom, colTo)
		if b.PosFrom <= position && position <= b.PosTo {
			out = append(out, b)
		}
	}
	return out, rows.Err()
}
