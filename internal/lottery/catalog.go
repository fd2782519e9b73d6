// Package lottery mantém o catálogo de extrações (loteria + horário) com
// horário real de apuração e dias de sorteio.
package lottery

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// RealWindow é a largura da janela real de apuração antes do fechamento.
const RealWindow = 30 * time.Minute

// Extraction descreve uma extração do catálogo
type Extraction struct {
	ID            int
	Name          string // ex: "PT RIO"
	Time          string // horário interno "HH:MM"
	RealCloseTime string // horário real em que o resultado sai "HH:MM"
	Days          string // dias COM sorteio ("Seg, Ter, Qua" / "Todos")
	Active        bool
}

// Catalog indexa extrações por id e nome
type Catalog struct {
	items []Extraction
	byID  map[int]Extraction
}

func NewCatalog(items []Extraction) *Catalog {
	c := &Catalog{byID: make(map[int]Extraction, len(items))}
	for _, e := range items {
		c.items = append(c.items, e)
		c.byID[e.ID] = e
	}
	return c
}

// DefaultCatalog semeia as extrações conhecidas
func DefaultCatalog() *Catalog {
	return NewCatalog([]Extraction{
		{1, "PT RIO", "09:20", "09:30", "Todos", true},
		{2, "PT RIO", "11:20", "11:30", "Todos", true},
		{3, "PT RIO", "14:20", "14:30", "Todos", true},
		{4, "PT RIO", "16:20", "16:30", "Todos", true},
		{5, "PT RIO", "18:20", "18:30", "Seg, Ter, Qua, Qui, Sex, Sáb", true},
		{6, "PT RIO", "21:20", "21:30", "Seg, Ter, Qua, Qui, Sex, Sáb", true},
		{7, "PT SP", "10:20", "10:30", "Todos", true},
		{8, "PT SP", "13:20", "13:30", "Todos", true},
		{9, "PT SP", "15:20", "15:30", "Todos", true},
		{10, "PT SP", "17:20", "17:30", "Todos", true},
		{11, "PT SP", "20:20", "20:30", "Seg, Ter, Qua, Qui, Sex, Sáb", true},
		{12, "LOOK", "07:20", "07:30", "Todos", true},
		{13, "LOOK", "09:20", "09:30", "Todos", true},
		{14, "LOOK", "11:20", "11:30", "Todos", true},
		{15, "LOOK", "14:20", "14:30", "Todos", true},
		{16, "LOOK", "16:20", "16:30", "Todos", true},
		{17, "LOOK", "18:20", "18:30", "Todos", true},
		{18, "LOOK", "21:20", "21:30", "Todos", true},
		{19, "LOTEP", "10:45", "10:50", "Seg, Ter, Qua, Qui, Sex, Sáb", true},
		{20, "LOTEP", "12:45", "12:50", "Seg, Ter, Qua, Qui, Sex, Sáb", true},
		{21, "LOTEP", "15:45", "15:50", "Seg, Ter, Qua, Qui, Sex, Sáb", true},
		{22, "LOTEP", "18:05", "18:10", "Seg, Ter, Qua, Qui, Sex, Sáb", true},
		{23, "LOTECE", "11:00", "11:10", "Seg, Ter, Qua, Qui, Sex, Sáb", true},
		{24, "LOTECE", "14:00", "14:10", "Seg, Ter, Qua, Qui, Sex, Sáb", true},
		{25, "LOTECE", "19:00", "19:10", "Seg, Ter, Qua, Qui, Sex, Sáb", true},
		{26, "PT BAHIA", "10:20", "10:30", "Seg, Ter, Qua, Qui, Sex, Sáb", true},
		{27, "PT BAHIA", "12:20", "12:30", "Seg, Ter, Qua, Qui, Sex, Sáb", true},
		{28, "PT BAHIA", "15:20", "15:30", "Seg, Ter, Qua, Qui, Sex, Sáb", true},
		{29, "PT BAHIA", "19:00", "19:10", "Seg, Ter, Qua, Qui, Sex, Sáb", true},
		{30, "NACIONAL", "02:00", "02:10", "Todos", true},
		{31, "NACIONAL", "08:00", "08:10", "Todos", true},
		{32, "NACIONAL", "12:00", "12:10", "Todos", true},
		{33, "NACIONAL", "15:00", "15:10", "Todos", true},
		{34, "NACIONAL", "17:00", "17:10", "Todos", true},
		{35, "NACIONAL", "21:00", "21:10", "Todos", true},
		{36, "FEDERAL", "19:55", "20:05", "Qua, Sáb", true},
		{37, "PARA TODOS", "09:45", "09:50", "Todos", true},
		{38, "PARA TODOS", "13:45", "13:50", "Todos", true},
		{39, "PARA TODOS", "20:45", "20:50", "Todos", true},
		{40, "BOA SORTE", "09:20", "09:30", "Seg, Ter, Qua, Qui, Sex, Sáb", true},
		{41, "BOA SORTE", "14:20", "14:30", "Seg, Ter, Qua, Qui, Sex, Sáb", true},
		{42, "BOA SORTE", "19:20", "19:30", "Seg, Ter, Qua, Qui, Sex, Sáb", true},
	})
}

// All devolve as extrações na ordem de cadastro
func (c *Catalog) All() []Extraction {
	out := make([]Extraction, len(c.items))
	copy(out, c.items)
	return out
}

// Resolve aceita id numérico ou nome (case-insensitive) e devolve a primeira extração ativa
func (c *Catalog) Resolve(ref string) (Extraction, bool) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.Atoi(ref); err == nil {
		e, ok := c.byID[id]
		return e, ok
	}
	name := strings.ToUpper(ref)
	for _, e := range c.items {
		if e.Active && strings.ToUpper(e.Name) == name {
			return e, true
		}
	}
	return Extraction{}, false
}

// ByNameAndTime busca pela dupla nome + horário interno
func (c *Catalog) ByNameAndTime(name, hhmm string) (Extraction, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	hhmm = strings.TrimSpace(hhmm)
	for _, e := range c.items {
		if strings.ToUpper(e.Name) == name && e.Time == hhmm {
			return e, true
		}
	}
	return Extraction{}, false
}

// ByName lista todas as extrações ativas de uma loteria
func (c *Catalog) ByName(name string) []Extraction {
	name = strings.ToUpper(strings.TrimSpace(name))
	var out []Extraction
	for _, e := range c.items {
		if e.Active && strings.ToUpper(e.Name) == name {
			out = append(out, e)
		}
	}
	return out
}

// ActiveNames lista nomes distintos de loterias ativas, ordenados
func (c *Catalog) ActiveNames() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, e := range c.items {
		if !e.Active {
			continue
		}
		if _, ok := seen[e.Name]; ok {
			continue
		}
		seen[e.Name] = struct{}{}
		out = append(out, e.Name)
	}
	sort.Strings(out)
	return out
}

// Window devolve a janela real [close-30min, close] em minutos do dia
func Window(e Extraction) (start, end int, err error) {
	end, err = Minutes(e.RealCloseTime)
	if err != nil {
		return 0, 0, err
	}
	start = end - int(RealWindow/time.Minute)
	if start < 0 {
		start = 0
	}
	return start, end, nil
}

// Minutes converte "HH:MM" (ou "HHhMM") em minutos desde 00:00
func Minutes(hhmm string) (int, error) {
	s := strings.ReplaceAll(strings.TrimSpace(strings.ToLower(hhmm)), "h", ":")
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("invalid time %q", hhmm)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid time %q", hhmm)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q", hhmm)
	}
	return h*60 + m, nil
}

// FormatMinutes é o inverso de Minutes
func FormatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

var weekdayPrefixes = []struct {
	prefix string
	day    time.Weekday
}{
	{"dom", time.Sunday},
	{"seg", time.Monday},
	{"ter", time.Tuesday},
	{"qua", time.Wednesday},
	{"qui", time.Thursday},
	{"sex", time.Friday},
	{"sab", time.Saturday},
	{"sáb", time.Saturday},
}

// BlackoutDays devolve os dias da semana SEM sorteio.
// Days lista os dias com sorteio; "Todos", traço ou vazio significa todos os dias.
func BlackoutDays(e Extraction) []time.Weekday {
	days := strings.TrimSpace(e.Days)
	if days == "" || days == "-" || days == "\u2014" || strings.EqualFold(days, "todos") {
		return nil
	}

	drawing := map[time.Weekday]bool{}
	for _, d := range strings.Split(strings.ToLower(days), ",") {
		d = strings.TrimSpace(d)
		for _, wp := range weekdayPrefixes {
			if strings.HasPrefix(d, wp.prefix) {
				drawing[wp.day] = true
				break
			}
		}
	}
	if len(drawing) == 0 {
		return nil
	}

	var out []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if !drawing[d] {
			out = append(out, d)
		}
	}
	return out
}

// DrawsOn informa se a extração tem sorteio no dia da semana
func DrawsOn(e Extraction, d time.Weekday) bool {
	for _, b := range BlackoutDays(e) {
		if b == d {
			return false
		}
	}
	return true
}
