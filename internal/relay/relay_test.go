package relay

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuya-0906/investment-watchlist/internal/quote"
)

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"7203", "7203.T"},   // bare domestic code gets the suffix
		{"7203.T", "7203.T"}, // already tagged, unchanged
		{"AAPL", "AAPL"},     // foreign ticker passes through
		{"720", "720"},       // not 4 digits
		{"72030", "72030"},   // not 4 digits
		{"7203X", "7203X"},   // not numeric
		{"^GSPC", "^GSPC"},   // index symbol passes through
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeCode(tt.in), "NormalizeCode(%q)", tt.in)
	}
}

func doRequest(h *Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func testFetcher() *quote.MockFetcher {
	return &quote.MockFetcher{Quotes: map[string]*quote.Quote{
		"7203.T": {Price: 2800, PreviousClose: 2750, Currency: "JPY", Name: "トヨタ自動車",
			MarketTime: time.Unix(1756600200, 0)},
		"6758.T": {Price: 3100, PreviousClose: 3150, Currency: "JPY", Name: "ソニーグループ",
			MarketTime: time.Unix(1756600200, 0)},
	}}
}

func TestHandler_BatchSuccess(t *testing.T) {
	h := NewHandler(testFetcher())
	rec := doRequest(h, "/api/stock-price?codes=7203,6758")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var body struct {
		Success   bool                       `json:"success"`
		Data      map[string]json.RawMessage `json:"data"`
		FetchedAt string                     `json:"fetchedAt"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.Len(t, body.Data, 2)
	require.Contains(t, body.Data, "7203")
	require.Contains(t, body.Data, "6758")

	var result struct {
		Price         float64 `json:"price"`
		PreviousClose float64 `json:"previousClose"`
		Currency      string  `json:"currency"`
		Name          string  `json:"name"`
		MarketTime    int64   `json:"marketTime"`
	}
	require.NoError(t, json.Unmarshal(body.Data["7203"], &result))
	assert.Equal(t, 2800.0, result.Price)
	assert.Equal(t, 2750.0, result.PreviousClose)
	assert.Equal(t, "JPY", result.Currency)
	assert.Equal(t, "トヨタ自動車", result.Name)
	assert.Equal(t, int64(1756600200), result.MarketTime)

	_, err := time.Parse(time.RFC3339, body.FetchedAt)
	assert.NoError(t, err, "fetchedAt must be ISO-8601")
}

func TestHandler_MissingCodesParam(t *testing.T) {
	h := NewHandler(testFetcher())
	rec := doRequest(h, "/api/stock-price")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec), "error")
}

func TestHandler_OnlyEmptyCodes(t *testing.T) {
	h := NewHandler(testFetcher())
	rec := doRequest(h, "/api/stock-price?codes=,%20%20,")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec), "error")
}

func TestHandler_TooManyCodes(t *testing.T) {
	codes := make([]string, 11)
	for i := range codes {
		codes[i] = "7203"
	}
	h := NewHandler(testFetcher())
	rec := doRequest(h, "/api/stock-price?codes="+strings.Join(codes, ","))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_TenCodesAccepted(t *testing.T) {
	codes := make([]string, 10)
	for i := range codes {
		codes[i] = "7203"
	}
	h := NewHandler(testFetcher())
	rec := doRequest(h, "/api/stock-price?codes="+strings.Join(codes, ","))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_PartialFailure(t *testing.T) {
	f := testFetcher()
	delete(f.Quotes, "6758.T") // this ticker's upstream call fails

	h := NewHandler(f)
	rec := doRequest(h, "/api/stock-price?codes=7203,6758")
	require.Equal(t, http.StatusOK, rec.Code, "one failure must not abort the batch")

	var body struct {
		Data map[string]map[string]json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Contains(t, body.Data["7203"], "price")
	assert.JSONEq(t, `"取得失敗"`, string(body.Data["6758"]["error"]))
}

func TestHandler_AllFailuresStill200(t *testing.T) {
	h := NewHandler(&quote.MockFetcher{Err: errors.New("upstream down")})
	rec := doRequest(h, "/api/stock-price?codes=7203")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_TrimsAndKeysByOriginalCode(t *testing.T) {
	h := NewHandler(testFetcher())
	rec := doRequest(h, "/api/stock-price?codes=%207203%20,,6758.T")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Data, "7203")
	assert.Contains(t, body.Data, "6758", "suffixed input is keyed by the bare code")
}

func TestHandler_RejectsNonGET(t *testing.T) {
	h := NewHandler(testFetcher())
	req := httptest.NewRequest(http.MethodPost, "/api/stock-price?codes=7203", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
