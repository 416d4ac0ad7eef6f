// Package relay is the stateless pass-through that fetches live quotes for a
// batch of security codes on behalf of the client.
package relay

import (
	"encoding/json"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/yuya-0906/investment-watchlist/internal/quote"
)

// maxBatchSize caps one request to keep upstream load down.
const maxBatchSize = 10

var fourDigits = regexp.MustCompile(`^\d{4}$`)

// NormalizeCode converts a security code to a fully-qualified ticker: a code
// already tagged with the domestic-market suffix stays as-is, a bare 4-digit
// code gets the Tokyo suffix, anything else passes through (foreign tickers).
func NormalizeCode(code string) string {
	if strings.HasSuffix(code, ".T") {
		return code
	}
	if fourDigits.MatchString(code) {
		return code + ".T"
	}
	return code
}

// CodeResult is the typed per-code outcome: either a quote or a failure.
type CodeResult struct {
	Quote *quote.Quote
	Err   error
}

// MarshalJSON renders the wire shape: quote metadata on success, a short
// localized error marker on failure.
func (r CodeResult) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		return json.Marshal(map[string]string{"error": "取得失敗"})
	}
	return json.Marshal(struct {
		Price         float64 `json:"price"`
		PreviousClose float64 `json:"previousClose"`
		Currency      string  `json:"currency"`
		Name          string  `json:"name"`
		MarketTime    int64   `json:"marketTime"`
	}{
		Price:         r.Quote.Price,
		PreviousClose: r.Quote.PreviousClose,
		Currency:      r.Quote.Currency,
		Name:          r.Quote.Name,
		MarketTime:    r.Quote.MarketTime.Unix(),
	})
}

type batchResponse struct {
	Success   bool                  `json:"success"`
	Data      map[string]CodeResult `json:"data"`
	FetchedAt string                `json:"fetchedAt"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves GET /api/stock-price?codes=7203,6758 with a best-effort
// sequential pass over the batch: one code failing never aborts the rest.
type Handler struct {
	fetcher quote.Fetcher
	now     func() time.Time
}

func NewHandler(fetcher quote.Fetcher) *Handler {
	return &Handler{fetcher: fetcher, now: time.Now}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Open CORS, GET only.
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET")

	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "GET のみ対応しています"})
		return
	}

	raw := r.URL.Query().Get("codes")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "codes パラメータが必要です"})
		return
	}

	var codes []string
	for _, c := range strings.Split(raw, ",") {
		if c = strings.TrimSpace(c); c != "" {
			codes = append(codes, c)
		}
	}
	if len(codes) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "有効な証券コードがありません"})
		return
	}
	if len(codes) > maxBatchSize {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "一度に取得できるのは10銘柄までです"})
		return
	}

	results := make(map[string]CodeResult, len(codes))
	for _, code := range codes {
		ticker := NormalizeCode(code)
		key := strings.TrimSuffix(ticker, ".T")
		q, err := h.fetcher.FetchQuote(r.Context(), ticker)
		if err != nil {
			log.Printf("[WARN] quote fetch %s: %v", ticker, err)
			results[key] = CodeResult{Err: err}
			continue
		}
		results[key] = CodeResult{Quote: q}
	}

	writeJSON(w, http.StatusOK, batchResponse{
		Success:   true,
		Data:      results,
		FetchedAt: h.now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[ERROR] encode relay response: %v", err)
	}
}
