package events

import "github.com/shopspring/decimal"

// Evento publicado pela plataforma ao registrar uma aposta (consumido pelo exposure-worker)
type BetPlaced struct {
	BetID    string          `json:"bet_id"`
	UserID   string          `json:"user_id"`
	Modality string          `json:"modality"`
	PosFrom  int             `json:"pos_from"`
	PosTo    int             `json:"pos_to"`
	Stake    decimal.Decimal `json:"stake"`
	Lottery  string          `json:"lottery"`
	DrawTime string          `json:"draw_time"`
	DrawDate string          `json:"draw_date"` // YYYY-MM-DD
	TsUnixMs int64           `json:"ts_unix_ms"`
}
