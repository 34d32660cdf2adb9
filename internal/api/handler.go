package api

import (
	"LogSpectra/internal/model"
	"LogSpectra/internal/query"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

const defaultLimit = 50

// Streamer answers a prompt chunk by chunk.
type Streamer interface {
	AnalyzeStream(ctx context.Context, prompt string, sendChunk func(string) error) error
}

// RequestObserver records served requests.
type RequestObserver interface {
	ObserveRequest(route string, code int)
}

// Handler holds the dependencies for API handlers.
type Handler struct {
	querier  query.Querier
	streamer Streamer
	observer RequestObserver
}

// NewHandler creates the API handler. streamer and observer may be nil.
func NewHandler(querier query.Querier, streamer Streamer, observer RequestObserver) *Handler {
	return &Handler{querier: querier, streamer: streamer, observer: observer}
}

// NewRouter registers the API routes. metrics is mounted at /metrics when not nil.
func NewRouter(h *Handler, metrics http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(h.observe)

	r.HandleFunc("/api/v1/reports", h.listReportsHandler).Methods("GET")
	r.HandleFunc("/api/v1/reports/{date}/endpoints", h.endpointsHandler).Methods("GET")
	r.HandleFunc("/api/v1/reports/{date}/ask", h.askHandler).Methods("POST")
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods("GET")
	}
	return r
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// observe counts requests by route template and status code.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		if h.observer == nil {
			return
		}
		route := "unknown"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		h.observer.ObserveRequest(route, rec.code)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Warning: failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// queryError maps querier errors to status codes.
func queryError(w http.ResponseWriter, err error) {
	if errors.Is(err, query.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to query reports: %v", err))
}

// listReportsHandler returns every stored report, newest first.
func (h *Handler) listReportsHandler(w http.ResponseWriter, r *http.Request) {
	reports, err := h.querier.ListReports(r.Context())
	if err != nil {
		queryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// endpointsHandler returns the slowest endpoints of one report.
func (h *Handler) endpointsHandler(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]
	if _, err := query.ParseDate(date); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := defaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit '%s'", s))
			return
		}
		limit = n
	}

	rows, err := h.querier.Endpoints(r.Context(), date, limit)
	if err != nil {
		queryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

type askRequest struct {
	Question string `json:"question"`
}

// askHandler streams an AI answer about one report as plain text.
func (h *Handler) askHandler(w http.ResponseWriter, r *http.Request) {
	if h.streamer == nil {
		writeError(w, http.StatusNotImplemented, "AI analysis is not configured")
		return
	}
	date := mux.Vars(r)["date"]
	if _, err := query.ParseDate(date); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "request body must be {\"question\": \"...\"}")
		return
	}

	rows, err := h.querier.Endpoints(r.Context(), date, 20)
	if err != nil {
		queryError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	err = h.streamer.AnalyzeStream(r.Context(), buildPrompt(date, rows, req.Question), func(chunk string) error {
		if _, err := w.Write([]byte(chunk)); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	if err != nil {
		log.Printf("ERROR: streaming answer for %s: %v", date, err)
	}
}

func buildPrompt(date string, rows []model.EndpointRow, question string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a senior site reliability engineer. Below are the slowest endpoints of the nginx access log for %s, "+
		"ordered by total request time.\n\n", date)
	sb.WriteString("url | count | count_perc | time_sum | time_perc | time_avg | time_max | time_med\n")
	for _, row := range rows {
		fmt.Fprintf(&sb, "%s | %d | %.3f | %.3f | %.3f | %.3f | %.3f | %.3f\n",
			row.URL, row.Count, row.CountPerc, row.TimeSum, row.TimePerc, row.TimeAvg, row.TimeMax, row.TimeMed)
	}
	fmt.Fprintf(&sb, "\nQuestion: %s\n", question)
	return sb.String()
}
