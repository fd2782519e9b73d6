// Package bet é o repositório de apostas lido pela apuração.
package bet

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("bet not found")
	ErrMalformedMetadata = errors.New("malformed bet metadata")
)

// Status da aposta; só muda pending -> won|lost
type Status string

const (
	StatusPending Status = "pending"
	StatusWon     Status = "won"
	StatusLost    Status = "lost"
)

// Bet é o modelo persistido no Postgres.
type Bet struct {
	ID        string              `json:"id"`
	UserID    string              `json:"userId"`
	Modality  string              `json:"modality"`
	Stake     decimal.Decimal     `json:"stake"`
	Lottery   string              `json:"lottery"` // id da extração ou nome
	DrawTime  string              `json:"drawTime"`
	DrawDate  string              `json:"drawDate"` // YYYY-MM-DD
	PosFrom   int                 `json:"posFrom"`
	PosTo     int                 `json:"posTo"`
	Status    Status              `json:"status"`
	Payout    decimal.NullDecimal `json:"payout"`
	Metadata  json.RawMessage     `json:"metadata,omitempty"`
	Snapshot  json.RawMessage     `json:"snapshot,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
	SettledAt *time.Time          `json:"settledAt,omitempty"`
}

// Filter é o filtro opcional da liquidação em lote
type Filter struct {
	Lottery string
	Date    string
	Time    string
}

// ManualFilter seleciona as apostas de uma extração informada pelo operador.
// Lottery casa por contenção no nome; LotteryIDs cobre apostas gravadas pelo id da extração.
type ManualFilter struct {
	Lottery    string
	LotteryIDs []string
	Date       string
	Time       string
}

// Stats resume as apostas por status
type Stats struct {
	Pending   int             `json:"pending"`
	Won       int             `json:"won"`
	Lost      int             `json:"lost"`
	Total     int             `json:"total"`
	PaidTotal decimal.Decimal `json:"paidTotal"`
}
