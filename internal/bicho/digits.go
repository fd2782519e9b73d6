package bicho

import (
	"sort"
	"strconv"
	"strings"
)

// Pad4 limpa não-dígitos e devolve a milhar canônica de 4 dígitos (últimos 4).
func Pad4(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return "", false
	}
	if len(s) < 4 {
		s = strings.Repeat("0", 4-len(s)) + s
	}
	return s[len(s)-4:], true
}

// Suffix devolve os últimos width dígitos de uma milhar canônica.
func Suffix(number string, width int) string {
	if width >= len(number) {
		return number
	}
	return number[len(number)-width:]
}

// DistinctPermutations gera as permutações distintas dos dígitos, ordenadas.
func DistinctPermutations(digits string) []string {
	seen := make(map[string]struct{})
	b := []byte(digits)
	var permute func(start int)
	permute = func(start int) {
		if start == len(b) {
			seen[string(b)] = struct{}{}
			return
		}
		used := make(map[byte]bool)
		for i := start; i < len(b); i++ {
			if used[b[i]] {
				continue
			}
			used[b[i]] = true
			b[start], b[i] = b[i], b[start]
			permute(start + 1)
			b[start], b[i] = b[i], b[start]
		}
	}
	permute(0)

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// EMD extrai as três dezenas sobrepostas de uma milhar: esquerda (0-1), meio (1-2) e direita (2-3).
// Ex.: 1234 -> [12 23 34].
func EMD(number string) [3]int {
	n, _ := Pad4(number)
	var out [3]int
	for i := 0; i < 3; i++ {
		v, _ := strconv.Atoi(n[i : i+2])
		out[i] = v
	}
	return out
}

// Dezena devolve a dezena clássica (últimos dois dígitos).
func Dezena(number string) int {
	return lastTwo(number)
}
