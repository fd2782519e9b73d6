package quotation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresStore lê e grava special_quotations
type PostgresStore struct{ db *sql.DB }

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (p *PostgresStore) Find(ctx context.Context, kind Kind, number string) (Quotation, bool, error) {
	var q Quotation
	err := p.db.QueryRowContext(ctx, `
		SELECT id, kind, number, multiplier, active, updated_at
		FROM special_quotations
		WHERE kind=$1 AND number=$2`, string(kind), number).
		Scan(&q.ID, &q.Kind, &q.Number, &q.Multiplier, &q.Active, &q.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Quotation{}, false, nil
	}
	if err != nil {
		return Quotation{}, false, err
	}
	return q, true, nil
}

// ListActive lista as cotações ativas (milhares primeiro)
func (p *PostgresStore) ListActive(ctx context.Context) ([]Quotation, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, kind, number, multiplier, active, updated_at
		FROM special_quotations
		WHERE active = TRUE
		ORDER BY kind DESC, number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Quotation
	for rows.Next() {
		var q Quotation
		if err := rows.Scan(&q.ID, &q.Kind, &q.Number, &q.Multiplier, &q.Active, &q.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// Upsert cria ou atualiza a cotação de (kind, number)
func (p *PostgresStore) Upsert(ctx context.Context, q Quotation) (Quotation, error) {
	if err := q.Validate(); err != nil {
		return Quotation{}, err
	}
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO special_quotations(id, kind, number, multiplier, active, updated_at)
		VALUES($1,$2,$3,$4,$5,now())
		ON CONFLICT (kind, number)
		DO UPDATE SET multiplier = EXCLUDED.multiplier, active = EXCLUDED.active, updated_at = now()
		RETURNING id, updated_at`,
		q.ID, string(q.Kind), q.Number, q.Multiplier, q.Active).Scan(&q.ID, &q.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23514" {
			return Quotation{}, fmt.Errorf("%w: %s", ErrInvalidQuotation, pqErr.Message)
		}
		return Quotation{}, err
	}
	return q, nil
}
