package topics

const (
	// Apostas
	BetPlaced  = "bet_placed"
	BetSettled = "bet_settled"

	// Resultados e risco
	DrawResults    = "draw_results"
	ExposureAlerts = "exposure_alerts"

	// DLQs
	BetPlacedDLQ = "bet_placed_dlq"
)
