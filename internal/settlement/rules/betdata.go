package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/radieske/bicho-settlement-engine/internal/bicho"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Placement são os dados de cadastro da aposta já validados
type Placement struct {
	Modality Modality
	Guesses  []Guess
	PosFrom  int // zero quando o metadado não traz posição
	PosTo    int
	Stake    decimal.Decimal
	Division Division
}

// DecodeBetData lê o metadado gravado no cadastro ({"betData": {...}} ou o objeto direto).
// Se m for vazio, a modalidade vem de modalityName/modality do próprio metadado.
func DecodeBetData(m Modality, raw []byte) (Placement, error) {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return Placement{}, fmt.Errorf("%w: metadata is not valid json", ErrInvalidGuess)
	}
	root := gjson.ParseBytes(raw)
	if bd := root.Get("betData"); bd.IsObject() {
		root = bd
	}

	if m == "" {
		name := root.Get("modalityName").String()
		if name == "" {
			name = root.Get("modality").String()
		}
		parsed, err := ParseModality(name)
		if err != nil {
			return Placement{}, err
		}
		m = parsed
	}
	s, ok := registry[m]
	if !ok {
		return Placement{}, fmt.Errorf("%w: %s", ErrUnknownModality, m)
	}

	p := Placement{Modality: m}

	div, err := ParseDivision(root.Get("divisionType").String())
	if err != nil {
		return Placement{}, fmt.Errorf("%w: %v", ErrInvalidGuess, err)
	}
	p.Division = div

	if amt := root.Get("amount"); amt.Exists() {
		p.Stake, err = decimal.NewFromString(amt.String())
		if err != nil {
			return Placement{}, fmt.Errorf("%w: amount %q", ErrInvalidGuess, amt.String())
		}
	}

	if label := positionLabel(root); label != "" {
		if p.PosFrom, p.PosTo, err = ParsePosition(label); err != nil {
			return Placement{}, err
		}
	}

	switch s.family {
	case FamilyGroup:
		p.Guesses, err = decodeAnimalBets(root.Get("animalBets"))
	case FamilyNumber:
		p.Guesses, err = decodeNumberBets(m, numberInputs(root))
	case FamilyDezena:
		p.Guesses, err = decodeDezenaBets(numberInputs(root))
	}
	if err != nil {
		return Placement{}, err
	}
	if len(p.Guesses) == 0 {
		return Placement{}, fmt.Errorf("%w: no guesses in metadata", ErrInvalidGuess)
	}
	for _, g := range p.Guesses {
		if err := Validate(m, g); err != nil {
			return Placement{}, err
		}
	}
	return p, nil
}

// customPositionValue vence position quando customPosition é verdadeiro
func positionLabel(root gjson.Result) string {
	label := root.Get("position").String()
	if root.Get("customPosition").Bool() {
		if v := strings.TrimSpace(root.Get("customPositionValue").String()); v != "" {
			label = v
		}
	}
	return label
}

// DecodePosition lê só a faixa de prêmios do metadado; (0, 0) quando ausente.
func DecodePosition(raw []byte) (int, int, error) {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return 0, 0, fmt.Errorf("%w: metadata is not valid json", ErrInvalidGuess)
	}
	root := gjson.ParseBytes(raw)
	if bd := root.Get("betData"); bd.IsObject() {
		root = bd
	}
	label := positionLabel(root)
	if label == "" {
		return 0, 0, nil
	}
	return ParsePosition(label)
}

// BetRange: a posição do metadado vence as colunas; sem nenhuma, só o 1º prêmio
func BetRange(metaFrom, metaTo, colFrom, colTo int) (int, int) {
	if metaFrom > 0 {
		return metaFrom, metaTo
	}
	if colFrom > 0 {
		return colFrom, colTo
	}
	return 1, 1
}

func numberInputs(root gjson.Result) []string {
	var out []string
	for _, v := range root.Get("numberBets").Array() {
		if s := strings.TrimSpace(v.String()); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		if s := strings.TrimSpace(root.Get("numeroApostado").String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// animalBets: lista de palpites, cada um uma lista de ids de bicho
func decodeAnimalBets(v gjson.Result) ([]Guess, error) {
	var out []Guess
	for _, bet := range v.Array() {
		var groups []int
		for _, id := range bet.Array() {
			a, ok := bicho.AnimalByID(int(id.Int()))
			if !ok {
				return nil, fmt.Errorf("%w: animal %s", ErrInvalidGuess, id.Raw)
			}
			groups = append(groups, a.Group)
		}
		out = append(out, GroupGuess{Groups: groups})
	}
	return out, nil
}

func decodeNumberBets(m Modality, inputs []string) ([]Guess, error) {
	out := make([]Guess, 0, len(inputs))
	for _, in := range inputs {
		g, err := NormalizeNumber(m, in)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func decodeDezenaBets(inputs []string) ([]Guess, error) {
	out := make([]Guess, 0, len(inputs))
	for _, in := range inputs {
		ds, err := ParseDezenas(in)
		if err != nil {
			return nil, err
		}
		out = append(out, DezenaGuess{Dezenas: ds})
	}
	return out, nil
}

// ParsePosition lê rótulos de posição: "1st", "1-5", "1º-5º", "7º", "3"
func ParsePosition(label string) (int, int, error) {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.NewReplacer("º", "", "°", "", " ", "", "ao", "-", "a", "-").Replace(s)
	for _, suf := range []string{"st", "nd", "rd", "th"} {
		s = strings.ReplaceAll(s, suf, "")
	}

	parts := strings.Split(s, "-")
	if len(parts) > 2 {
		return 0, 0, fmt.Errorf("%w: position %q", ErrInvalidGuess, label)
	}
	from, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: position %q", ErrInvalidGuess, label)
	}
	to := from
	if len(parts) == 2 {
		if to, err = strconv.Atoi(parts[1]); err != nil {
			return 0, 0, fmt.Errorf("%w: position %q", ErrInvalidGuess, label)
		}
	}
	if err := ValidateRange(from, to); err != nil {
		return 0, 0, err
	}
	return from, to, nil
}
