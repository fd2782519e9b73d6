package httpapi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ManualSettlementRequest é o resultado digitado pelo operador
type ManualSettlementRequest struct {
	Lottery string   `json:"lottery" validate:"required"`
	Date    string   `json:"date" validate:"required,datetime=2006-01-02"`
	Time    string   `json:"time" validate:"required,datetime=15:04"`
	Prizes  []string `json:"prizes" validate:"required,min=1,max=7,dive,required,numeric,max=4"`
}

type BatchSettlementRequest struct {
	Lottery string `json:"lottery"`
	Date    string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time    string `json:"time" validate:"omitempty,datetime=15:04"`
}

type LimitRequest struct {
	Modality string `json:"modality" validate:"required"`
	Position int    `json:"position" validate:"required,min=1,max=5"`
	Ceiling  string `json:"ceiling" validate:"required,numeric"`
	Active   *bool  `json:"active"`
}

type CheckRequest struct {
	Modality string `json:"modality" validate:"required"`
	Position int    `json:"position" validate:"required,min=1,max=5"`
	Amount   string `json:"amount" validate:"required,numeric"`
}

type QuotationRequest struct {
	Kind       string  `json:"kind" validate:"required,oneof=milhar centena"`
	Number     string  `json:"number" validate:"required,numeric,min=3,max=4"`
	Multiplier *string `json:"multiplier" validate:"omitempty,numeric"`
	Active     *bool   `json:"active"`
}

// ErrorResponse é o corpo de erro padrão da API
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

var validate = validator.New()

// fieldErrors traduz validator.ValidationErrors em mensagens por campo (json em minúsculas)
func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"body": "invalid request format"}
	}
	out := make(map[string]string, len(verrs))
	for _, e := range verrs {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			out[field] = "required"
		case "datetime":
			out[field] = fmt.Sprintf("must match %s", e.Param())
		case "min", "max":
			out[field] = fmt.Sprintf("%s %s", e.Tag(), e.Param())
		case "oneof":
			out[field] = "must be one of: " + e.Param()
		default:
			out[field] = "invalid value"
		}
	}
	return out
}
