package bet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Postgres implementa a leitura de apostas em banco Postgres
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório de apostas
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

const selectBet = `
	SELECT id, user_id, modality, stake, lottery, draw_time, to_char(draw_date, 'YYYY-MM-DD'),
	       pos_from, pos_to, status, payout, metadata, snapshot, created_at, settled_at
	FROM bets`

func scanBet(row interface{ Scan(...any) error }) (Bet, error) {
	var (
		b        Bet
		meta     []byte
		snapshot []byte
		settled  sql.NullTime
	)
	err := row.Scan(&b.ID, &b.UserID, &b.Modality, &b.Stake, &b.Lottery, &b.DrawTime, &b.DrawDate,
		&b.PosFrom, &b.PosTo, &b.Status, &b.Payout, &meta, &snapshot, &b.CreatedAt, &settled)
	if err != nil {
		return Bet{}, err
	}
	b.Metadata = meta
	b.Snapshot = snapshot
	if settled.Valid {
		t := settled.Time
		b.SettledAt = &t
	}
	return b, nil
}

func (p *Postgres) list(ctx context.Context, where string, args ...any) ([]Bet, error) {
	rows, err := p.db.QueryContext(ctx, selectBet+" WHERE "+where+" ORDER BY created_at, id", args...)
	if err != nil {
		return nil, fmt.Errorf("list bets: %w", err)
	}
	defer rows.Close()

	var out []Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListPending lista apostas pendentes; filtros vazios não restringem
func (p *Postgres) ListPending(ctx context.Context, f Filter) ([]Bet, error) {
	conds := []string{"status = 'pending'"}
	var args []any
	add := func(cond, v string) {
		if v == "" {
			return
		}
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	add("lottery = $%d", f.Lottery)
	add("draw_date = $%d::date", f.Date)
	add("draw_time = $%d", f.Time)
	return p.list(ctx, strings.Join(conds, " AND "), args...)
}

// ListPendingExact lista as pendentes da tripla informada no modo manual
func (p *Postgres) ListPendingExact(ctx context.Context, f ManualFilter) ([]Bet, error) {
	return p.list(ctx, `status = 'pending'
		AND (upper(lottery) LIKE '%' || upper($1) || '%' OR lottery = ANY($2))
		AND draw_date = $3::date
		AND draw_time = $4`,
		f.Lottery, pq.Array(f.LotteryIDs), f.Date, f.Time)
}

// Get busca a aposta pelo id
func (p *Postgres) Get(ctx context.Context, id string) (Bet, error) {
	b, err := scanBet(p.db.QueryRowContext(ctx, selectBet+" WHERE id=$1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Bet{}, ErrNotFound
	}
	return b, err
}

// Stats conta apostas por status e soma os prêmios pagos
func (p *Postgres) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	var paid decimal.NullDecimal
	err := p.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'won'),
			COUNT(*) FILTER (WHERE status = 'lost'),
			COUNT(*),
			SUM(payout) FILTER (WHERE status = 'won')
		FROM bets`).Scan(&s.Pending, &s.Won, &s.Lost, &s.Total, &paid)
	if err != nil {
		return Stats{}, fmt.Errorf("bet stats: %w", err)
	}
	s.PaidTotal = paid.Decimal
	return s, nil
}
