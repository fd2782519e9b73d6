// Package httpapi expõe a apuração e a descarga para operadores (chi).
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/bicho-settlement-engine/internal/exposure"
	"github.com/radieske/bicho-settlement-engine/internal/exposure/repo"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/bet"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/engine"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/quotation"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/rules"
)

// Runner são os dois pontos de entrada da apuração
type Runner interface {
	RunBatch(ctx context.Context, req engine.BatchRequest) (engine.Summary, error)
	RunManual(ctx context.Context, req engine.ManualRequest) (engine.Summary, error)
}

type BetReader interface {
	Get(ctx context.Context, id string) (bet.Bet, error)
	Stats(ctx context.Context) (bet.Stats, error)
}

type ExposureStore interface {
	SetLimit(ctx context.Context, l exposure.Limit) (exposure.Limit, error)
	Limits(ctx context.Context) ([]exposure.Limit, error)
	Alerts(ctx context.Context) ([]exposure.Alert, error)
	Resolve(ctx context.Context, id string) error
	PendingBets(ctx context.Context, modality string, position int) ([]repo.PendingBet, error)
}

type ExposureChecker interface {
	CheckAndAlert(ctx context.Context, modality string, position int, stake decimal.Decimal) (exposure.Result, error)
}

type QuotationStore interface {
	Upsert(ctx context.Context, q quotation.Quotation) (quotation.Quotation, error)
	ListActive(ctx context.Context) ([]quotation.Quotation, error)
}

// API agrupa as dependências dos handlers
type API struct {
	Log        *zap.Logger
	Runner     Runner
	Bets       BetReader
	Exposure   ExposureStore
	Checker    ExposureChecker
	Quotations QuotationStore
	// chamado após gravar uma cotação (invalidação do cache)
	OnQuotationSaved func(ctx context.Context, q quotation.Quotation)
	AlertsWS         http.Handler // opcional
}

// Router monta as rotas REST e o WebSocket de alertas
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/settlements/manual", a.settleManual)
		r.Post("/settlements/batch", a.settleBatch)
		r.Get("/settlements/stats", a.stats)
		r.Get("/bets/{id}", a.getBet)

		r.Put("/exposure/limits", a.putLimit)
		r.Get("/exposure/limits", a.listLimits)
		r.Post("/exposure/check", a.check)
		r.Get("/exposure/alerts", a.listAlerts)
		r.Post("/exposure/alerts/{id}/resolve", a.resolveAlert)
		r.Get("/exposure/bets", a.pendingBets)

		r.Put("/quotations", a.putQuotation)
		r.Get("/quotations/active", a.activeQuotations)
	})
	if a.AlertsWS != nil {
		r.Handle("/ws/alerts", a.AlertsWS)
	}
	return r
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// decode lê o corpo e roda as tags de validação; já responde 400 em caso de erro
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid payload", Fields: fieldErrors(err)})
		return false
	}
	return true
}

// statusOf mapeia erros de domínio para o status HTTP
func statusOf(err error) int {
	switch {
	case errors.Is(err, engine.ErrSourcesUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, engine.ErrInvalidRequest),
		errors.Is(err, exposure.ErrInvalidPosition),
		errors.Is(err, exposure.ErrInvalidCeiling),
		errors.Is(err, rules.ErrUnknownModality),
		errors.Is(err, quotation.ErrInvalidQuotation):
		return http.StatusBadRequest
	case errors.Is(err, bet.ErrNotFound), errors.Is(err, exposure.ErrAlertNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) fail(w http.ResponseWriter, op string, err error) {
	status := statusOf(err)
	switch {
	case status == http.StatusBadGateway:
		// detalhe das fontes fica só no log
		a.Log.Error(op+" failed", zap.Error(err))
		writeError(w, status, engine.ErrSourcesUnavailable.Error())
	case status >= 500:
		a.Log.Error(op+" failed", zap.Error(err))
		writeError(w, status, http.StatusText(status))
	default:
		writeError(w, status, err.Error())
	}
}

func (a *API) settleManual(w http.ResponseWriter, r *http.Request) {
	var req ManualSettlementRequest
	if !decode(w, r, &req) {
		return
	}
	sum, err := a.Runner.RunManual(r.Context(), engine.ManualRequest{
		Lottery: req.Lottery, Date: req.Date, Time: req.Time, Prizes: req.Prizes,
	})
	if err != nil {
		a.fail(w, "manual settlement", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (a *API) settleBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchSettlementRequest
	if r.ContentLength != 0 {
		if !decode(w, r, &req) {
			return
		}
	}
	sum, err := a.Runner.RunBatch(r.Context(), engine.BatchRequest{Lottery: req.Lottery, Date: req.Date, Time: req.Time})
	if err != nil {
		a.fail(w, "batch settlement", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (a *API) stats(w http.ResponseWriter, r *http.Request) {
	st, err := a.Bets.Stats(r.Context())
	if err != nil {
		a.fail(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) getBet(w http.ResponseWriter, r *http.Request) {
	b, err := a.Bets.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, "get bet", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (a *API) putLimit(w http.ResponseWriter, r *http.Request) {
	var req LimitRequest
	if !decode(w, r, &req) {
		return
	}
	mod, err := exposure.NormalizeModality(req.Modality)
	if err != nil {
		a.fail(w, "set limit", err)
		return
	}
	ceiling, err := decimal.NewFromString(req.Ceiling)
	if err != nil || !ceiling.IsPositive() {
		a.fail(w, "set limit", exposure.ErrInvalidCeiling)
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	l, err := a.Exposure.SetLimit(r.Context(), exposure.Limit{Modality: mod, Position: req.Position, Ceiling: ceiling, Active: active})
	if err != nil {
		a.fail(w, "set limit", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (a *API) listLimits(w http.ResponseWriter, r *http.Request) {
	ls, err := a.Exposure.Limits(r.Context())
	if err != nil {
		a.fail(w, "list limits", err)
		return
	}
	if ls == nil {
		ls = []exposure.Limit{}
	}
	writeJSON(w, http.StatusOK, ls)
}

func (a *API) check(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if !decode(w, r, &req) {
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsNegative() {
		writeError(w, http.StatusBadRequest, "amount must be a non-negative number")
		return
	}
	res, err := a.Checker.CheckAndAlert(r.Context(), req.Modality, req.Position, amount)
	if err != nil {
		a.fail(w, "exposure check", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) listAlerts(w http.ResponseWriter, r *http.Request) {
	as, err := a.Exposure.Alerts(r.Context())
	if err != nil {
		a.fail(w, "list alerts", err)
		return
	}
	if as == nil {
		as = []exposure.Alert{}
	}
	writeJSON(w, http.StatusOK, as)
}

func (a *API) resolveAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Exposure.Resolve(r.Context(), id); err != nil {
		a.fail(w, "resolve alert", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "resolved": true})
}

func (a *API) pendingBets(w http.ResponseWriter, r *http.Request) {
	mod, err := exposure.NormalizeModality(r.URL.Query().Get("modality"))
	if err != nil {
		a.fail(w, "pending bets", err)
		return
	}
	pos, err := strconv.Atoi(r.URL.Query().Get("position"))
	if err != nil {
		pos = 0
	}
	if err := exposure.ValidatePosition(pos); err != nil {
		a.fail(w, "pending bets", err)
		return
	}
	bets, err := a.Exposure.PendingBets(r.Context(), mod, pos)
	if err != nil {
		a.fail(w, "pending bets", err)
		return
	}
	if bets == nil {
		bets = []repo.PendingBet{}
	}
	writeJSON(w, http.StatusOK, bets)
}

func (a *API) putQuotation(w http.ResponseWriter, r *http.Request) {
	var req QuotationRequest
	if !decode(w, r, &req) {
		return
	}
	q := quotation.Quotation{Kind: quotation.Kind(req.Kind), Number: req.Number, Active: true, UpdatedAt: time.Now()}
	if req.Active != nil {
		q.Active = *req.Active
	}
	if req.Multiplier != nil {
		m, err := decimal.NewFromString(*req.Multiplier)
		if err != nil {
			a.fail(w, "upsert quotation", quotation.ErrInvalidQuotation)
			return
		}
		q.Multiplier = decimal.NewNullDecimal(m)
	}
	saved, err := a.Quotations.Upsert(r.Context(), q)
	if err != nil {
		a.fail(w, "upsert quotation", err)
		return
	}
	if a.OnQuotationSaved != nil {
		a.OnQuotationSaved(r.Context(), saved)
	}
	writeJSON(w, http.StatusOK, saved)
}

func (a *API) activeQuotations(w http.ResponseWriter, r *http.Request) {
	qs, err := a.Quotations.ListActive(r.Context())
	if err != nil {
		a.fail(w, "list quotations", err)
		return
	}
	if qs == nil {
		qs = []quotation.Quotation{}
	}
	writeJSON(w, http.StatusOK, qs)
}
