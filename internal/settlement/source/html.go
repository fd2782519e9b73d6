package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/draw"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// DefaultCodes mapeia o código da fonte HTML para a loteria canônica
func DefaultCodes() map[string]string {
	return map[string]string{
		"rj":  "PT RIO",
		"sp":  "PT SP",
		"ba":  "PT BAHIA",
		"pb":  "LOTEP",
		"lce": "LOTECE",
		"lk":  "LOOK",
		"bs":  "BOA SORTE",
		"fd":  "FEDERAL",
		"ln":  "NACIONAL",
	}
}

var (
	reTitleTime = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	reMilhar    = regexp.MustCompile(`\b(\d{4})\b`)
	reCentena   = regexp.MustCompile(`\b(\d{3})\b`)
	reSuper5    = regexp.MustCompile(`(?i)super\s*5`)
)

// HTMLSource é a fonte de fallback: um POST por código de loteria, com o HTML
// de cada horário em div[id^=div_display_] e a tabela table_<n>.
type HTMLSource struct {
	URL     string
	Session string            // PHPSESSID opcional (histórico)
	Codes   map[string]string // código -> loteria
	HTTP    *http.Client
	Limiter *rate.Limiter
	Log     *zap.Logger
	// Parallel limita as requisições simultâneas
	Parallel int
}

func NewHTMLSource(u, session string, rps float64, log *zap.Logger) *HTMLSource {
	if log == nil {
		log = zap.NewNop()
	}
	if rps <= 0 {
		rps = 2
	}
	return &HTMLSource{
		URL:      u,
		Session:  session,
		Codes:    DefaultCodes(),
		HTTP:     &http.Client{Timeout: 20 * time.Second},
		Limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		Log:      log,
		Parallel: 4,
	}
}

func (h *HTMLSource) Name() string { return "html" }

// Fetch consulta todos os códigos em paralelo; falha de um código não derruba os outros
func (h *HTMLSource) Fetch(ctx context.Context, date string) ([]draw.RawResult, error) {
	codes := make([]string, 0, len(h.Codes))
	for c := range h.Codes {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	var (
		mu       sync.Mutex
		out      []draw.RawResult
		failures int
		lastErr  error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(h.Parallel, 1))
	for _, code := range codes {
		g.Go(func() error {
			rows, err := h.fetchCode(gctx, code, date)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				lastErr = err
				h.Log.Debug("html source code failed", zap.String("code", code), zap.Error(err))
				return nil
			}
			out = append(out, rows...)
			return nil
		})
	}
	_ = g.Wait()

	if len(out) == 0 && failures == len(codes) && lastErr != nil {
		return nil, fmt.Errorf("all %d lottery codes failed: %w", failures, lastErr)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Lottery != out[j].Lottery {
			return out[i].Lottery < out[j].Lottery
		}
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (h *HTMLSource) fetchCode(ctx context.Context, code, date string) ([]draw.RawResult, error) {
	if h.Limiter != nil {
		if err := h.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	form := url.Values{}
	form.Set("l", code)
	form.Set("d", date)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if h.Session != "" {
		req.AddCookie(&http.Cookie{Name: "PHPSESSID", Value: h.Session})
	}
	res, err := h.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("html source http %d", res.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return ParseHTML(doc, h.Codes[code], date, h.Name()), nil
}

// ParseHTML lê cada bloco de horário; linhas "SUPER 5" e sem posição/número são ignoradas
func ParseHTML(doc *goquery.Document, lottery, date, sourceName string) []draw.RawResult {
	var out []draw.RawResult
	doc.Find(`div[id^="div_display_"]`).Each(func(_ int, div *goquery.Selection) {
		id, _ := div.Attr("id")
		n := strings.TrimPrefix(id, "div_display_")

		title := strings.TrimSpace(div.Find("h5").First().Text())
		hhmm := n + ":00"
		if m := reTitleTime.FindStringSubmatch(title); m != nil {
			h, _ := strconv.Atoi(m[1])
			hhmm = fmt.Sprintf("%02d:%s", h, m[2])
		}

		table := div.Find("table#table_" + n)
		if table.Length() == 0 {
			table = doc.Find("table#table_" + n)
		}

		seen := map[int]bool{}
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			if reSuper5.MatchString(tr.Text()) {
				return
			}
			var cells []string
			tr.Find("td").Each(func(_ int, td *goquery.Selection) {
				if s := strings.TrimSpace(td.Text()); s != "" {
					cells = append(cells, s)
				}
			})
			if len(cells) < 3 {
				return
			}
			pos := leadingInt(cells[0])
			if pos < 1 || seen[pos] {
				return
			}
			number := pickNumber(cells)
			if number == "" {
				return
			}
			seen[pos] = true
			out = append(out, draw.RawResult{
				Lottery:  lottery,
				Time:     hhmm,
				Date:     date,
				Position: pos,
				Number:   number,
				Source:   sourceName,
			})
		})
	})
	return out
}

// pickNumber: primeira milhar da linha; sem milhar, a primeira centena com zero à esquerda
func pickNumber(cells []string) string {
	for _, c := range cells {
		if m := reMilhar.FindStringSubmatch(c); m != nil {
			return m[1]
		}
	}
	for _, c := range cells {
		if m := reCentena.FindStringSubmatch(c); m != nil {
			return "0" + m[1]
		}
	}
	return ""
}
