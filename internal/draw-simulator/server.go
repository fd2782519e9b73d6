package simulator

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/bicho-settlement-engine/internal/bicho"
	"github.com/radieske/bicho-settlement-engine/pkg/contracts/events"
)

// FeedPrize / FeedDraw seguem o formato agrupado lido pelo feed JSON
type FeedPrize struct {
	Posicao int    `json:"posicao"`
	Milhar  string `json:"milhar"`
	Grupo   int    `json:"grupo"`
	Bicho   string `json:"bicho"`
}

type FeedDraw struct {
	Loteria string      `json:"loteria"`
	Horario string      `json:"horario"`
	Data    string      `json:"data"`
	Premios []FeedPrize `json:"premios"`
}

type FeedResponse struct {
	Resultados []FeedDraw `json:"resultados"`
}

func toFeed(d Draw) FeedDraw {
	fd := FeedDraw{Loteria: d.Lottery, Horario: d.Time, Data: d.Date}
	for i, n := range d.Result.Prizes {
		fd.Premios = append(fd.Premios, FeedPrize{
			Posicao: i + 1, Milhar: n, Grupo: d.Result.Groups[i], Bicho: bicho.AnimalName(d.Result.Groups[i]),
		})
	}
	return fd
}

// ToEvent converte o sorteio no contrato publicado no Kafka e no WebSocket
func ToEvent(d Draw) events.DrawResult {
	ev := events.DrawResult{Lottery: d.Lottery, DrawTime: d.Time, Date: d.Date}
	for i, n := range d.Result.Prizes {
		ev.Prizes = append(ev.Prizes, events.DrawPrize{Position: i + 1, Number: n, Group: d.Result.Groups[i]})
	}
	return ev
}

type Server struct {
	Gen *Generator
	Hub *Hub
	Log *zap.Logger

	announced map[string]bool
}

func NewServer(g *Generator, h *Hub, log *zap.Logger) *Server {
	return &Server{Gen: g, Hub: h, Log: log, announced: map[string]bool{}}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/resultados", s.results)
	r.Get("/ws", s.Hub.HandleWS)
	return r
}

func (s *Server) results(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = s.Gen.Now().In(s.Gen.Loc).Format("2006-01-02")
	}
	draws, err := s.Gen.Draws(date)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "date must be YYYY-MM-DD"})
		return
	}
	resp := FeedResponse{Resultados: make([]FeedDraw, 0, len(draws))}
	for _, d := range draws {
		resp.Resultados = append(resp.Resultados, toFeed(d))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// Announce publica no WebSocket as extrações de hoje que ainda não foram anunciadas
func (s *Server) Announce() int {
	today := s.Gen.Now().In(s.Gen.Loc).Format("2006-01-02")
	draws, err := s.Gen.Draws(today)
	if err != nil {
		s.Log.Warn("simulator draws failed", zap.Error(err))
		return 0
	}
	n := 0
	for _, d := range draws {
		key := d.Date + "|" + d.Lottery + "|" + d.Time
		if s.announced[key] {
			continue
		}
		s.announced[key] = true
		s.Hub.Broadcast(ToEvent(d))
		n++
	}
	if n > 0 {
		s.Log.Info("draws announced", zap.Int("count", n))
	}
	return n
}

// Run anuncia a cada intervalo até o contexto acabar
func (s *Server) Run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		s.Announce()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
