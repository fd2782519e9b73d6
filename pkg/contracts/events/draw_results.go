package events

import "time"

// Prêmio de um sorteio normalizado
type DrawPrize struct {
	Position int    `json:"position"`
	Number   string `json:"number"` // 4 dígitos
	Group    int    `json:"group"`
}

type DrawResult struct {
	Lottery  string      `json:"lottery"`
	DrawTime string      `json:"drawTime"`
	Date     string      `json:"date"`
	Prizes   []DrawPrize `json:"prizes"`
}

// Evento publicado pelo draw-ingest a cada coleta bem-sucedida
type DrawResultsFetched struct {
	Date    string       `json:"date"`
	Source  string       `json:"source"`
	Results []DrawResult `json:"results"`
	Ts      time.Time    `json:"ts"`
}
