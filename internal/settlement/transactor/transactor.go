// Package transactor grava a liquidação de uma aposta: status, crédito na carteira e auditoria.
package transactor

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/bet"
	"github.com/radieske/bicho-settlement-engine/internal/shared/db"
	"github.com/shopspring/decimal"
)

var (
	ErrAlreadySettled = errors.New("bet already settled")
	ErrWalletNotFound = errors.New("wallet not found")
)

// Outcome é o resultado final de uma aposta a ser persistido
type Outcome struct {
	Won      bool
	Payout   decimal.Decimal // já arredondado em 2 casas
	RunID    string
	Snapshot json.RawMessage // resultado usado na apuração
}

// Status devolve o status final correspondente
func (o Outcome) Status() bet.Status {
	if o.Won {
		return bet.StatusWon
	}
	return bet.StatusLost
}

// Postgres liquida apostas numa única transação por aposta
type Postgres struct {
	db  *sql.DB
	Now func() time.Time
}

func NewPostgres(conn *sql.DB) *Postgres {
	return &Postgres{db: conn, Now: time.Now}
}

// Settle troca pending -> won|lost; se ganhou, credita a carteira e registra no ledger.
// A aposta só é liquidada uma vez: a segunda chamada devolve ErrAlreadySettled sem efeito.
func (p *Postgres) Settle(ctx context.Context, b bet.Bet, out Outcome) error {
	payout := out.Payout.Round(2)
	// bets.payout só é preenchido quando a aposta ganha; perdida fica NULL
	betPayout := decimal.NullDecimal{}
	if out.Won {
		betPayout = decimal.NewNullDecimal(payout)
	} else {
		payout = decimal.Zero
	}
	var snapshot any
	if len(out.Snapshot) > 0 {
		snapshot = []byte(out.Snapshot)
	}
	now := p.Now().UTC()

	return db.WithTx(ctx, p.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE bets
			SET status = $2, payout = $3, snapshot = $4, settled_at = $5
			WHERE id = $1 AND status = 'pending'`,
			b.ID, string(out.Status()), betPayout, snapshot, now)
		if err != nil {
			return fmt.Errorf("update bet: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update bet: %w", err)
		}
		if n == 0 {
			return ErrAlreadySettled
		}

		if out.Won && payout.IsPositive() {
			// crédito atômico, sem ler o saldo antes
			var walletID string
			err := tx.QueryRowContext(ctx, `
				UPDATE wallets SET balance = balance + $1, version = version + 1, updated_at = $3
				WHERE user_id = $2
				RETURNING id`, payout, b.UserID, now).Scan(&walletID)
			if errors.Is(err, sql.ErrNoRows) {
				return ErrWalletNotFound
			}
			if err != nil {
				return fmt.Errorf("credit wallet: %w", err)
			}

			if _, err = tx.ExecContext(ctx, `
				INSERT INTO wallet_ledger(id, wallet_id, operation_type, amount, description, related_bet_id, created_at)
				VALUES($1,$2,'PRIZE',$3,$4,$5,$6)`,
				uuid.New().String(), walletID, payout, "prize:"+b.ID, b.ID, now); err != nil {
				return fmt.Errorf("insert ledger: %w", err)
			}
		}

		if _, err = tx.ExecContext(ctx, `
			INSERT INTO bet_transactions(id, bet_id, run_id, status, payout, created_at)
			VALUES($1,$2,$3,$4,$5,$6)`,
			uuid.New().String(), b.ID, out.RunID, string(out.Status()), payout, now); err != nil {
			return fmt.Errorf("insert bet transaction: %w", err)
		}
		return nil
	})
}
