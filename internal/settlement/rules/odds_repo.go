package rules

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OddsRepo lê os ajustes de odds configurados pela banca
type OddsRepo struct {
	db  *sql.DB
	log *zap.Logger
}

func NewOddsRepo(db *sql.DB, log *zap.Logger) *OddsRepo { return &OddsRepo{db: db, log: log} }

// Apply carrega odds_overrides ativos sobre a tabela e devolve quantos aplicou.
// Modalidades desconhecidas são ignoradas com aviso.
func (r *OddsRepo) Apply(ctx context.Context, t *OddsTable) (int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT modality, pos_from, pos_to, multiplier
		FROM odds_overrides
		WHERE active = TRUE
		ORDER BY modality, pos_from, pos_to`)
	if err != nil {
		return 0, fmt.Errorf("query odds overrides: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var (
			name     string
			from, to int
			mult     decimal.Decimal
		)
		if err := rows.Scan(&name, &from, &to, &mult); err != nil {
			return n, fmt.Errorf("scan odds override: %w", err)
		}
		m, err := ParseModality(name)
		if err != nil {
			r.log.Warn("skipping odds override", zap.String("modality", name), zap.Error(err))
			continue
		}
		t.Set(m, from, to, mult)
		n++
	}
	return n, rows.Err()
}
