// Package api is the HTTP surface: it translates requests into store calls
// and mounts the quote relay. It renders short localized error messages,
// never raw internals.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/yuya-0906/investment-watchlist/internal/model"
	"github.com/yuya-0906/investment-watchlist/internal/store"
)

// request body cap, enough for any imported list
const maxBodySize = 4 << 20

// Server routes watchlist and relay requests.
type Server struct {
	store *store.Store
	relay http.Handler
	mux   *http.ServeMux
}

// NewServer wires all routes.
func NewServer(st *store.Store, relayHandler http.Handler) *Server {
	s := &Server{store: st, relay: relayHandler, mux: http.NewServeMux()}

	s.mux.HandleFunc("GET /api/watchlist", s.handleList)
	s.mux.HandleFunc("POST /api/watchlist", s.handleCreate)
	s.mux.HandleFunc("GET /api/watchlist/export", s.handleExport)
	s.mux.HandleFunc("POST /api/watchlist/import", s.handleImport)
	s.mux.HandleFunc("PUT /api/watchlist/{id}", s.handleUpdate)
	s.mux.HandleFunc("PATCH /api/watchlist/{id}/price", s.handleUpdatePrice)
	s.mux.HandleFunc("DELETE /api/watchlist/{id}", s.handleDelete)
	s.mux.HandleFunc("GET /api/notifications", s.handleNotifications)
	s.mux.HandleFunc("DELETE /api/notifications", s.handleDismissAll)
	s.mux.HandleFunc("DELETE /api/notifications/{id}", s.handleDismiss)
	s.mux.Handle("GET /api/stock-price", relayHandler)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type listResponse struct {
	Entries   []model.WatchEntry `json:"entries"`
	Total     int                `json:"total"`
	Triggered int                `json:"triggered"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries := s.store.List(store.ListOptions{
		Filter: q.Get("filter"),
		Sort:   store.SortKey(q.Get("sort")),
		Query:  q.Get("q"),
	})
	writeJSON(w, http.StatusOK, listResponse{
		Entries:   entries,
		Total:     s.store.Count(),
		Triggered: s.store.TriggeredCount(),
	})
}

type createRequest struct {
	Name         string   `json:"name"`
	Code         string   `json:"code"`
	TargetPrice  *float64 `json:"targetPrice"`
	CurrentPrice *float64 `json:"currentPrice"`
	Memo         string   `json:"memo"`
	Priority     string   `json:"priority"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !decodeBody(w, r, &req) {
		return
	}
	entry, err := s.store.Create(r.Context(), model.NewEntry{
		Name:         req.Name,
		Code:         req.Code,
		TargetPrice:  req.TargetPrice,
		CurrentPrice: req.CurrentPrice,
		Memo:         req.Memo,
		Priority:     model.Priority(req.Priority),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

type updateRequest struct {
	Name              *string  `json:"name"`
	Code              *string  `json:"code"`
	TargetPrice       *float64 `json:"targetPrice"`
	CurrentPrice      *float64 `json:"currentPrice"`
	Memo              *string  `json:"memo"`
	Priority          *string  `json:"priority"`
	ClearTargetPrice  bool     `json:"clearTargetPrice"`
	ClearCurrentPrice bool     `json:"clearCurrentPrice"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	change := model.EntryChange{
		Name:              req.Name,
		Code:              req.Code,
		TargetPrice:       req.TargetPrice,
		CurrentPrice:      req.CurrentPrice,
		Memo:              req.Memo,
		ClearTargetPrice:  req.ClearTargetPrice,
		ClearCurrentPrice: req.ClearCurrentPrice,
	}
	if req.Priority != nil {
		p := model.Priority(*req.Priority)
		change.Priority = &p
	}
	entry, err := s.store.Update(r.Context(), r.PathValue("id"), change)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type priceRequest struct {
	Price *float64 `json:"price"`
}

func (s *Server) handleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Price == nil {
		writeMessage(w, http.StatusBadRequest, "price が必要です")
		return
	}
	entry, err := s.store.UpdatePrice(r.Context(), r.PathValue("id"), *req.Price)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.store.Export()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", store.ExportFilename(time.Now())))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("[ERROR] write export: %v", err)
	}
}

type importResponse struct {
	Imported int `json:"imported"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "ファイルの読み込みに失敗しました")
		return
	}
	n, err := s.store.Import(r.Context(), data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{Imported: n})
}

func (s *Server) handleNotifications(w http.ResponseWriter, _ *http.Request) {
	notifications := s.store.Notifications()
	if notifications == nil {
		notifications = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	s.store.Dismiss(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDismissAll(w http.ResponseWriter, _ *http.Request) {
	s.store.DismissAll()
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "リクエスト本文が正しくありません")
		return false
	}
	return true
}

// writeError maps store errors to user-facing responses. Internals stay in
// the log.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrValidation):
		writeMessage(w, http.StatusBadRequest, "入力内容が正しくありません")
	case errors.Is(err, store.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "銘柄が見つかりません")
	default:
		log.Printf("[ERROR] watchlist request failed: %v", err)
		writeMessage(w, http.StatusBadGateway, "保存に失敗しました。時間をおいて再度お試しください")
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[ERROR] encode response: %v", err)
	}
}
