package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Alerta de descarga: total pendente de (modalidade, prêmio) passou do teto
type ExposureAlert struct {
	AlertID      string          `json:"alertId"`
	Modality     string          `json:"modality"`
	Position     int             `json:"position"`
	CurrentTotal decimal.Decimal `json:"currentTotal"`
	Ceiling      decimal.Decimal `json:"ceiling"`
	Overage      decimal.Decimal `json:"overage"`
	Ts           time.Time       `json:"ts"`
}
