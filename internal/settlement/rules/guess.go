package rules

import (
	"fmt"
	"strconv"
	"strings"
)

// Guess é o palpite de uma aposta; cada família tem sua variante
type Guess interface {
	Family() Family
	String() string
}

// GroupGuess: um ou mais grupos 1..25
type GroupGuess struct {
	Groups []int
}

func (GroupGuess) Family() Family { return FamilyGroup }

func (g GroupGuess) String() string { return joinInts(g.Groups, "-", "%02d") }

// NumberGuess: número de 2 a 4 dígitos, já com zeros à esquerda
type NumberGuess struct {
	Digits string
}

func (NumberGuess) Family() Family { return FamilyNumber }

func (g NumberGuess) String() string { return g.Digits }

// DezenaGuess: conjunto de dezenas 00..99
type DezenaGuess struct {
	Dezenas []int
}

func (DezenaGuess) Family() Family { return FamilyDezena }

func (g DezenaGuess) String() string { return joinInts(g.Dezenas, ",", "%02d") }

func joinInts(v []int, sep, format string) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = fmt.Sprintf(format, n)
	}
	return strings.Join(parts, sep)
}

// Validate confere o palpite contra a aridade da modalidade
func Validate(m Modality, g Guess) error {
	s, ok := registry[m]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModality, m)
	}
	if g == nil || g.Family() != s.family {
		return fmt.Errorf("%w: %s expects a %s guess", ErrInvalidGuess, m, s.family)
	}

	switch v := g.(type) {
	case GroupGuess:
		if len(v.Groups) != s.arity {
			return fmt.Errorf("%w: %s expects %d groups, got %d", ErrInvalidGuess, m, s.arity, len(v.Groups))
		}
		seen := map[int]bool{}
		for _, gr := range v.Groups {
			if gr < 1 || gr > 25 {
				return fmt.Errorf("%w: group %d out of 1..25", ErrInvalidGuess, gr)
			}
			if seen[gr] {
				return fmt.Errorf("%w: repeated group %d", ErrInvalidGuess, gr)
			}
			seen[gr] = true
		}
	case NumberGuess:
		if len(v.Digits) != s.arity {
			return fmt.Errorf("%w: %s expects %d digits, got %q", ErrInvalidGuess, m, s.arity, v.Digits)
		}
		if !allDigits(v.Digits) {
			return fmt.Errorf("%w: %q is not numeric", ErrInvalidGuess, v.Digits)
		}
	case DezenaGuess:
		if len(v.Dezenas) < s.arity || len(v.Dezenas) > s.maxArity {
			return fmt.Errorf("%w: %s expects %d..%d dezenas, got %d", ErrInvalidGuess, m, s.arity, s.maxArity, len(v.Dezenas))
		}
		seen := map[int]bool{}
		for _, d := range v.Dezenas {
			if d < 0 || d > 99 {
				return fmt.Errorf("%w: dezena %d out of 00..99", ErrInvalidGuess, d)
			}
			if seen[d] {
				return fmt.Errorf("%w: repeated dezena %02d", ErrInvalidGuess, d)
			}
			seen[d] = true
		}
	}
	return nil
}

// só 0-9; sinal e espaço não contam como algarismo
func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NormalizeNumber limpa e completa um número apostado com a largura da modalidade
func NormalizeNumber(m Modality, raw string) (NumberGuess, error) {
	s, ok := registry[m]
	if !ok {
		return NumberGuess{}, fmt.Errorf("%w: %s", ErrUnknownModality, m)
	}
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" || len(digits) > s.arity {
		return NumberGuess{}, fmt.Errorf("%w: %q for %s", ErrInvalidGuess, raw, m)
	}
	return NumberGuess{Digits: strings.Repeat("0", s.arity-len(digits)) + digits}, nil
}

// ParseDezenas lê dezenas em "12,23 34" ou em pares contíguos "122334"
func ParseDezenas(raw string) ([]int, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' || r == '-' || r == ';' })
	if len(fields) == 1 && len(fields[0]) > 2 {
		s := fields[0]
		if len(s)%2 != 0 {
			return nil, fmt.Errorf("%w: dezenas %q", ErrInvalidGuess, raw)
		}
		fields = fields[:0]
		for i := 0; i < len(s); i += 2 {
			fields = append(fields, s[i:i+2])
		}
	}
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		if !allDigits(f) || len(f) > 2 {
			return nil, fmt.Errorf("%w: dezena %q", ErrInvalidGuess, f)
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: dezena %q", ErrInvalidGuess, f)
		}
		out = append(out, n)
	}
	return out, nil
}
