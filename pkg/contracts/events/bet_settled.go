package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Evento emitido após o commit da liquidação de uma aposta.
type BetSettled struct {
	BetID    string          `json:"betId"`
	UserID   string          `json:"userId"`
	RunID    string          `json:"runId"`
	Trigger  string          `json:"trigger"` // "batch" | "manual"
	Status   string          `json:"status"`  // "won" | "lost"
	Payout   decimal.Decimal `json:"payout"`
	Lottery  string          `json:"lottery"`
	DrawTime string          `json:"drawTime"`
	DrawDate string          `json:"drawDate"`
	Ts       time.Time       `json:"ts"`
}
