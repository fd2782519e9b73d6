package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/radieske/bicho-settlement-engine/internal/settlement/draw"
	"github.com/tidwall/gjson"
)

// nomes alternativos usados pelos feeds para o mesmo campo
var (
	listPaths     = []string{"results", "resultados", "data.results", "data"}
	lotteryFields = []string{"loteria", "nomeLoteria", "concurso", "lottery"}
	numberFields  = []string{"milhar", "numero", "milharNumero", "valor", "number"}
	posFields     = []string{"position", "premio", "colocacao", "posicao"}
	timeFields    = []string{"horario", "drawTime", "time"}
	dateFields    = []string{"date", "data", "dataExtracao"}
)

// JSONFeed lê o feed primário: GET <url>?date=YYYY-MM-DD
type JSONFeed struct {
	URL  string
	HTTP *http.Client
}

func NewJSONFeed(u string) *JSONFeed {
	return &JSONFeed{URL: u, HTTP: &http.Client{Timeout: 15 * time.Second}}
}

func (f *JSONFeed) Name() string { return "json-feed" }

func (f *JSONFeed) Fetch(ctx context.Context, date string) ([]draw.RawResult, error) {
	u, err := url.Parse(f.URL)
	if err != nil {
		return nil, fmt.Errorf("parse feed url: %w", err)
	}
	q := u.Query()
	q.Set("date", date)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	res, err := f.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("feed http %d", res.StatusCode)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("feed returned invalid json")
	}
	return ParseFeed(body, date, f.Name()), nil
}

// ParseFeed extrai as linhas do payload; linhas sem loteria ou número são ignoradas
func ParseFeed(body []byte, date, sourceName string) []draw.RawResult {
	doc := gjson.ParseBytes(body)
	list := doc
	if !doc.IsArray() {
		for _, p := range listPaths {
			if v := doc.Get(p); v.IsArray() {
				list = v
				break
			}
		}
	}
	if !list.IsArray() {
		return nil
	}

	var out []draw.RawResult
	list.ForEach(func(_, item gjson.Result) bool {
		lottery := first(item, lotteryFields)
		hhmm := first(item, timeFields)
		day := first(item, dateFields)
		if day == "" {
			day = date
		}

		// formato agrupado: {loteria, horario, premios:[{posicao, milhar}]}
		if prizes := item.Get("premios"); prizes.IsArray() {
			prizes.ForEach(func(i, p gjson.Result) bool {
				out = appendRow(out, lottery, hhmm, day, p, int(i.Int())+1, sourceName)
				return true
			})
			return true
		}
		out = appendRow(out, lottery, hhmm, day, item, 0, sourceName)
		return true
	})
	return out
}

func appendRow(out []draw.RawResult, lottery, hhmm, day string, item gjson.Result, defPos int, sourceName string) []draw.RawResult {
	number := first(item, numberFields)
	if lottery == "" || number == "" {
		return out
	}
	pos := defPos
	if p := first(item, posFields); p != "" {
		pos = leadingInt(p)
	}
	return append(out, draw.RawResult{
		Lottery:  lottery,
		Time:     hhmm,
		Date:     day,
		Position: pos,
		Number:   number,
		Source:   sourceName,
	})
}

func first(item gjson.Result, fields []string) string {
	for _, f := range fields {
		if v := item.Get(f); v.Exists() && v.Type != gjson.Null {
			if s := strings.TrimSpace(v.String()); s != "" {
				return s
			}
		}
	}
	return ""
}

// leadingInt lê "1", "1º", "1o premio"
func leadingInt(s string) int {
	n := 0
	for _, r := range strings.TrimSpace(s) {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
	}
	return n
}
