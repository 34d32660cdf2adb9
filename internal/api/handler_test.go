package api

import (
	"LogSpectra/internal/model"
	"LogSpectra/internal/query"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeQuerier struct {
	reports   []query.ReportInfo
	rows      []model.EndpointRow
	err       error
	lastLimit int
}

func (f *fakeQuerier) ListReports(context.Context) ([]query.ReportInfo, error) {
	return f.reports, f.err
}

func (f *fakeQuerier) Endpoints(_ context.Context, date string, limit int) ([]model.EndpointRow, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

type fakeStreamer struct{ prompt string }

func (f *fakeStreamer) AnalyzeStream(_ context.Context, prompt string, send func(string) error) error {
	f.prompt = prompt
	for _, c := range []string{"It is ", "/api/slow."} {
		if err := send(c); err != nil {
			return err
		}
	}
	return nil
}

type fakeObserver struct{ seen map[string]int }

func (f *fakeObserver) ObserveRequest(route string, code int) {
	if f.seen == nil {
		f.seen = map[string]int{}
	}
	f.seen[route] = code
}

func serve(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestListReports(t *testing.T) {
	q := &fakeQuerier{reports: []query.ReportInfo{{Date: "2017-06-30", ID: "x", Endpoints: 20}}}
	obs := &fakeObserver{}
	router := NewRouter(NewHandler(q, nil, obs), nil)

	rec := serve(t, router, "GET", "/api/v1/reports", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got []query.ReportInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got) != 1 || got[0].Endpoints != 20 {
		t.Errorf("Unexpected body: %s", rec.Body.String())
	}
	if obs.seen["/api/v1/reports"] != http.StatusOK {
		t.Errorf("Request was not observed: %v", obs.seen)
	}
}

func TestEndpoints(t *testing.T) {
	q := &fakeQuerier{rows: []model.EndpointRow{{URL: "/api/slow", Count: 2, TimePerc: 83.333}}}
	router := NewRouter(NewHandler(q, nil, nil), nil)

	rec := serve(t, router, "GET", "/api/v1/reports/2017-06-30/endpoints?limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if q.lastLimit != 5 {
		t.Errorf("expected limit 5, got %d", q.lastLimit)
	}
	if !strings.Contains(rec.Body.String(), `"time_perc":83.333`) {
		t.Errorf("Unexpected body: %s", rec.Body.String())
	}

	serve(t, router, "GET", "/api/v1/reports/2017-06-30/endpoints", "")
	if q.lastLimit != defaultLimit {
		t.Errorf("expected default limit %d, got %d", defaultLimit, q.lastLimit)
	}
}

func TestEndpoints_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		code   int
	}{
		{"bad date", "/api/v1/reports/30.06.2017/endpoints", nil, http.StatusBadRequest},
		{"bad limit", "/api/v1/reports/2017-06-30/endpoints?limit=-1", nil, http.StatusBadRequest},
		{"not found", "/api/v1/reports/2017-06-30/endpoints", query.ErrNotFound, http.StatusNotFound},
		{"backend down", "/api/v1/reports/2017-06-30/endpoints", errors.New("dial tcp"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(NewHandler(&fakeQuerier{err: tt.err}, nil, nil), nil)
			if rec := serve(t, router, "GET", tt.target, ""); rec.Code != tt.code {
				t.Errorf("expected %d, got %d: %s", tt.code, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAsk(t *testing.T) {
	q := &fakeQuerier{rows: []model.EndpointRow{{URL: "/api/slow", Count: 2}}}
	s := &fakeStreamer{}
	router := NewRouter(NewHandler(q, s, nil), nil)

	rec := serve(t, router, "POST", "/api/v1/reports/2017-06-30/ask", `{"question":"what is slow?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "It is /api/slow." {
		t.Errorf("Unexpected streamed body: %q", rec.Body.String())
	}
	if !strings.Contains(s.prompt, "/api/slow | 2 |") || !strings.Contains(s.prompt, "Question: what is slow?") {
		t.Errorf("Unexpected prompt: %s", s.prompt)
	}

	if rec := serve(t, router, "POST", "/api/v1/reports/2017-06-30/ask", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an empty question, got %d", rec.Code)
	}

	noAI := NewRouter(NewHandler(q, nil, nil), nil)
	if rec := serve(t, noAI, "POST", "/api/v1/reports/2017-06-30/ask", `{"question":"x"}`); rec.Code != http.StatusNotImplemented {
		t.Errorf("expected 501 without a streamer, got %d", rec.Code)
	}
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("logspectra_up 1\n"))
	})
	router := NewRouter(NewHandler(&fakeQuerier{}, nil, nil), metrics)
	rec := serve(t, router, "GET", "/metrics", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "logspectra_up 1\n" {
		t.Errorf("Unexpected /metrics response: %d %q", rec.Code, rec.Body.String())
	}
}
