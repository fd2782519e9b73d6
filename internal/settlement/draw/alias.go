package draw

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/radieske/bicho-settlement-engine/internal/lottery"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Rank indica qual regra do alias resolveu o nome (menor = mais forte)
type Rank int

const (
	RankNone Rank = iota
	RankExact
	RankContains
	RankTokens
	RankKeyword
)

func (r Rank) String() string {
	switch r {
	case RankExact:
		return "exact"
	case RankContains:
		return "contains"
	case RankTokens:
		return "tokens"
	case RankKeyword:
		return "keyword"
	}
	return "none"
}

// Alias descreve os nomes conhecidos de uma loteria
type Alias struct {
	Canonical string
	Names     []string // variações completas ("pt-sp/bandeirantes")
	Keywords  []string // palavras que sozinhas identificam a loteria
}

type aliasEntry struct {
	canonical string
	names     []string // já normalizados
	tokens    [][]string
	keywords  []string
}

// AliasTable resolve nomes de fontes externas para o nome canônico
type AliasTable struct {
	entries []aliasEntry
}

// tokens que não diferenciam loterias
var stopTokens = map[string]bool{
	"loteria": true, "resultado": true, "resultados": true, "jogo": true, "bicho": true,
	"das": true, "dos": true, "para": true,
}

func NewAliasTable(aliases []Alias) *AliasTable {
	t := &AliasTable{}
	for _, a := range aliases {
		e := aliasEntry{canonical: a.Canonical}
		for _, n := range append([]string{a.Canonical}, a.Names...) {
			f := Fold(n)
			if f == "" {
				continue
			}
			e.names = append(e.names, f)
			e.tokens = append(e.tokens, significantTokens(f))
		}
		for _, k := range a.Keywords {
			e.keywords = append(e.keywords, Fold(k))
		}
		t.entries = append(t.entries, e)
	}
	// ordem estável para desempate
	sort.SliceStable(t.entries, func(i, j int) bool { return t.entries[i].canonical < t.entries[j].canonical })
	return t
}

// DefaultAliases cobre as loterias do catálogo e os apelidos usados pelas fontes
func DefaultAliases() *AliasTable {
	return NewAliasTable([]Alias{
		{Canonical: "PT RIO", Names: []string{"pt rio de janeiro", "pt-rio", "pt-rio de janeiro", "mpt-rio", "mpt rio", "rio de janeiro"}, Keywords: []string{"mpt", "carioca"}},
		{Canonical: "PT BAHIA", Names: []string{"pt-ba", "maluca bahia", "bahia"}, Keywords: []string{"bahia", "maluca"}},
		{Canonical: "PT SP", Names: []string{"pt-sp", "pt sp bandeirantes", "pt-sp/bandeirantes", "pt sp (band)", "sao paulo"}, Keywords: []string{"bandeirantes", "band"}},
		{Canonical: "LOOK", Names: []string{"look goias"}, Keywords: []string{"look"}},
		{Canonical: "LOTEP", Names: []string{"pt paraiba/lotep", "pt paraiba", "pt-pb", "paraiba"}, Keywords: []string{"lotep", "paraiba"}},
		{Canonical: "LOTECE", Names: []string{"pt ceara", "ceara"}, Keywords: []string{"lotece", "ceara"}},
		{Canonical: "NACIONAL", Names: []string{"loteria nacional"}, Keywords: []string{"nacional"}},
		{Canonical: "FEDERAL", Names: []string{"loteria federal"}, Keywords: []string{"federal"}},
		{Canonical: "PARA TODOS", Names: []string{"paratodos"}, Keywords: []string{"todos"}},
		{Canonical: "BOA SORTE", Names: []string{"boa sorte goias"}, Keywords: []string{"sorte"}},
	})
}

// LotteryName traduz a referência gravada na aposta (id do catálogo ou nome livre)
// para o nome canônico; sem alias conhecido devolve o nome em maiúsculas.
func LotteryName(aliases *AliasTable, catalog *lottery.Catalog, ref string) string {
	name := strings.TrimSpace(ref)
	if catalog != nil {
		if _, err := strconv.Atoi(name); err == nil {
			if e, ok := catalog.Resolve(name); ok {
				name = e.Name
			}
		}
	}
	if aliases != nil {
		if c, _, ok := aliases.Resolve(name); ok {
			return c
		}
	}
	return strings.ToUpper(name)
}

// Canonicals lista os nomes canônicos conhecidos
func (t *AliasTable) Canonicals() []string {
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.canonical
	}
	return out
}

// Resolve aplica, em ordem: igualdade, contenção (nos dois sentidos),
// >=2 tokens significativos em comum e palavra-chave distintiva.
// Empate entre loterias diferentes na mesma regra passa para a próxima.
func (t *AliasTable) Resolve(name string) (string, Rank, bool) {
	f := Fold(name)
	if f == "" {
		return "", RankNone, false
	}

	for _, e := range t.entries {
		for _, n := range e.names {
			if n == f {
				return e.canonical, RankExact, true
			}
		}
	}

	if c, ok := t.best(func(e aliasEntry) int {
		score := 0
		for _, n := range e.names {
			if strings.Contains(f, n) || (len(f) >= 3 && strings.Contains(n, f)) {
				if len(n) > score {
					score = len(n)
				}
			}
		}
		return score
	}); ok {
		return c, RankContains, true
	}

	ft := significantTokens(f)
	if c, ok := t.best(func(e aliasEntry) int {
		score := 0
		for _, toks := range e.tokens {
			if shared := countShared(ft, toks); shared >= 2 && shared > score {
				score = shared
			}
		}
		return score
	}); ok {
		return c, RankTokens, true
	}

	words := strings.Fields(f)
	if c, ok := t.best(func(e aliasEntry) int {
		for _, k := range e.keywords {
			for _, w := range words {
				if w == k {
					return 1
				}
			}
		}
		return 0
	}); ok {
		return c, RankKeyword, true
	}

	return "", RankNone, false
}

// best escolhe a entrada de maior score; empate entre canônicos diferentes não resolve
func (t *AliasTable) best(score func(aliasEntry) int) (string, bool) {
	top, winner, tied := 0, "", false
	for _, e := range t.entries {
		s := score(e)
		switch {
		case s > top:
			top, winner, tied = s, e.canonical, false
		case s == top && s > 0 && e.canonical != winner:
			tied = true
		}
	}
	if top == 0 || tied {
		return "", false
	}
	return winner, true
}

func countShared(a, b []string) int {
	n := 0
	for _, x := range a {
		for _, y := range b {
			if x == y {
				n++
				break
			}
		}
	}
	return n
}

func significantTokens(folded string) []string {
	var out []string
	for _, w := range strings.Fields(folded) {
		if len(w) > 2 && !stopTokens[w] {
			out = append(out, w)
		}
	}
	return out
}

// Fold normaliza para comparação: minúsculas, sem acentos, só letras/dígitos separados por espaço
func Fold(s string) string {
	tr := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(tr, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(out)
	out = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, out)
	return strings.Join(strings.Fields(out), " ")
}
