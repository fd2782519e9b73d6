// Package rules implementa a conferência e o cálculo de prêmio por modalidade.
package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnknownModality = errors.New("unknown modality")
	ErrNoOdds          = errors.New("no odds for modality/range")
	ErrInvalidGuess    = errors.New("invalid guess")
)

// Modality é a modalidade de aposta
type Modality string

const (
	Grupo            Modality = "GRUPO"
	DuplaGrupo       Modality = "DUPLA_GRUPO"
	TernoGrupo       Modality = "TERNO_GRUPO"
	QuadraGrupo      Modality = "QUADRA_GRUPO"
	QuinaGrupo       Modality = "QUINA_GRUPO"
	TernoGrupoSeco   Modality = "TERNO_GRUPO_SECO"
	Passe            Modality = "PASSE"
	PasseVaiEVem     Modality = "PASSE_VAI_E_VEM"
	Dezena           Modality = "DEZENA"
	Centena          Modality = "CENTENA"
	Milhar           Modality = "MILHAR"
	DezenaInvertida  Modality = "DEZENA_INVERTIDA"
	CentenaInvertida Modality = "CENTENA_INVERTIDA"
	MilharInvertida  Modality = "MILHAR_INVERTIDA"
	MilharCentena    Modality = "MILHAR_CENTENA"
	DuqueDezena      Modality = "DUQUE_DEZENA"
	TernoDezena      Modality = "TERNO_DEZENA"
	QuadraDezena     Modality = "QUADRA_DEZENA"
	DuqueDezenaEMD   Modality = "DUQUE_DEZENA_EMD"
	TernoDezenaEMD   Modality = "TERNO_DEZENA_EMD"
	Dezeninha        Modality = "DEZENINHA"
)

// Modalities lista todas as modalidades suportadas
var Modalities = []Modality{
	Grupo, DuplaGrupo, TernoGrupo, QuadraGrupo, QuinaGrupo, TernoGrupoSeco,
	Passe, PasseVaiEVem,
	Dezena, Centena, Milhar, DezenaInvertida, CentenaInvertida, MilharInvertida, MilharCentena,
	DuqueDezena, TernoDezena, QuadraDezena, DuqueDezenaEMD, TernoDezenaEMD, Dezeninha,
}

// Family agrupa modalidades pelo tipo de palpite
type Family int

const (
	FamilyGroup Family = iota + 1
	FamilyNumber
	FamilyDezena
)

func (f Family) String() string {
	switch f {
	case FamilyGroup:
		return "group"
	case FamilyNumber:
		return "number"
	case FamilyDezena:
		return "dezena"
	}
	return "unknown"
}

// Family devolve a família da modalidade (0 se desconhecida)
func (m Modality) Family() Family {
	s, ok := registry[m]
	if !ok {
		return 0
	}
	return s.family
}

// Valid informa se a modalidade está registrada
func (m Modality) Valid() bool {
	_, ok := registry[m]
	return ok
}

// Quotable informa se a modalidade está sujeita a cotação especial
func (m Modality) Quotable() bool {
	return m == Milhar || m == Centena || m == MilharCentena
}

// nomes de exibição usados no cadastro das apostas
var displayNames = map[string]Modality{
	"grupo":                 Grupo,
	"dupla de grupo":        DuplaGrupo,
	"terno de grupo":        TernoGrupo,
	"quadra de grupo":       QuadraGrupo,
	"quina de grupo":        QuinaGrupo,
	"terno de grupo seco":   TernoGrupoSeco,
	"passe":                 Passe,
	"passe vai":             Passe,
	"passe vai e vem":       PasseVaiEVem,
	"dezena":                Dezena,
	"centena":               Centena,
	"milhar":                Milhar,
	"dezena invertida":      DezenaInvertida,
	"centena invertida":     CentenaInvertida,
	"milhar invertida":      MilharInvertida,
	"milhar/centena":        MilharCentena,
	"milhar e centena":      MilharCentena,
	"duque de dezena":       DuqueDezena,
	"terno de dezena":       TernoDezena,
	"quadra de dezena":      QuadraDezena,
	"duque de dezena (emd)": DuqueDezenaEMD,
	"terno de dezena (emd)": TernoDezenaEMD,
	"dezeninha":             Dezeninha,
}

// ParseModality aceita o nome do enum ("MILHAR_CENTENA") ou o de exibição ("Milhar/Centena")
func ParseModality(s string) (Modality, error) {
	s = strings.TrimSpace(s)
	if m := Modality(strings.ToUpper(s)); m.Valid() {
		return m, nil
	}
	if m, ok := displayNames[strings.ToLower(strings.Join(strings.Fields(s), " "))]; ok {
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownModality, s)
}

// Names devolve, em minúsculas, todos os nomes que ParseModality aceita para m
func (m Modality) Names() []string {
	enum := strings.ToLower(string(m))
	var extra []string
	for name, dm := range displayNames {
		if dm == m && name != enum {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append([]string{enum}, extra...)
}

// Division é a regra de divisão do valor apostado entre os palpites
type Division string

const (
	SplitEvenly Division = "split-evenly"
	PerGuess    Division = "per-guess"
)

// ParseDivision aceita também os valores legados "all"/"each"
func ParseDivision(s string) (Division, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "split-evenly", "all":
		return SplitEvenly, nil
	case "per-guess", "each":
		return PerGuess, nil
	}
	return "", fmt.Errorf("invalid division %q", s)
}
