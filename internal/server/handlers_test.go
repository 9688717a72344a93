package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/bookrec/internal/catalog"
	"github.com/hyperjump/bookrec/internal/config"
	"github.com/hyperjump/bookrec/internal/loader"
	"github.com/hyperjump/bookrec/internal/models"
	"github.com/hyperjump/bookrec/internal/vsm"
	"go.uber.org/zap"
)

func testBooks() []models.Book {
	return []models.Book{
		{ID: "item1", Title: "Machine Learning Basics", Price: models.Float(29.99), Text: "machine learning basics"},
		{ID: "item2", Title: "Cooking Recipes", Text: "cooking recipes"},
		{ID: "item3", Title: "Deep Learning with Python", ReviewSummary: models.String("hands on"), Text: "deep learning with python"},
	}
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Model.Path = ""
	cfg.Catalog.DatabasePath = ""
	return cfg
}

func newTestServer(t *testing.T, withModel bool, store catalog.Store) http.Handler {
	t.Helper()
	holder := loader.NewHolder(loader.Source{})
	if withModel {
		m, err := vsm.Build(testBooks())
		if err != nil {
			t.Fatal(err)
		}
		holder = loader.NewStaticHolder(m)
	}
	return NewServer(holder, store, testConfig(), zap.NewNop()).Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, http.NoBody)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHandleRecommendations(t *testing.T) {
	h := newTestServer(t, true, nil)
	w := do(t, h, http.MethodPost, "/api/v1/recommendations",
		`{"domain": "computer science", "modules": ["machine learning", "python"], "limit": 2}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var resp models.RecommendationResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "success" || resp.Count != 2 || len(resp.Recommendations) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Recommendations[0].ItemID != "item1" || resp.Recommendations[1].ItemID != "item3" {
		t.Errorf("order = %s, %s", resp.Recommendations[0].ItemID, resp.Recommendations[1].ItemID)
	}
	if resp.Recommendations[0].Score != 0.6122 || resp.Recommendations[0].Rank != 1 {
		t.Errorf("first = %+v", resp.Recommendations[0])
	}
	if p := resp.Recommendations[0].Price; p == nil || *p != 29.99 {
		t.Errorf("price = %v", p)
	}
}

func TestHandleRecommendations_LimitRequired(t *testing.T) {
	h := newTestServer(t, true, nil)
	w := do(t, h, http.MethodPost, "/api/v1/recommendations", `{"domain": "cooking", "modules": ["recipes"]}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d, want 422", w.Code)
	}
	var out map[string]string
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["field"] != "limit" || out["error"] == "" {
		t.Errorf("body = %v", out)
	}

	// Above the corpus size the limit is clamped.
	w = do(t, h, http.MethodPost, "/api/v1/recommendations", `{"domain": "cooking", "modules": ["recipes"], "limit": 5}`)
	var resp models.RecommendationResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 3 || resp.Recommendations[0].ItemID != "item2" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandleRecommendations_BadRequest(t *testing.T) {
	h := newTestServer(t, true, nil)
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"malformed json", `{"domain": `, ""},
		{"wrong type", `{"domain": "cs", "modules": "python", "limit": 1}`, ""},
		{"empty modules", `{"domain": "cs", "modules": [], "limit": 1}`, "modules"},
		{"missing modules", `{"domain": "cs", "limit": 1}`, "modules"},
		{"zero limit", `{"domain": "cs", "modules": ["go"], "limit": 0}`, "limit"},
		{"negative limit", `{"domain": "cs", "modules": ["go"], "limit": -3}`, "limit"},
		{"limit over max", `{"domain": "cs", "modules": ["go"], "limit": 21}`, "limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/api/v1/recommendations", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want 400", w.Code)
			}
			var out map[string]string
			if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
				t.Fatal(err)
			}
			if out["error"] == "" {
				t.Error("error message should be set")
			}
			if out["field"] != tt.wantField {
				t.Errorf("field = %q, want %q", out["field"], tt.wantField)
			}
		})
	}
}

func TestHandleRecommendations_NoModel(t *testing.T) {
	h := newTestServer(t, false, nil)
	w := do(t, h, http.MethodPost, "/api/v1/recommendations", `{"domain": "cs", "modules": ["go"], "limit": 1}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", w.Code)
	}
	// Validation still runs before availability.
	w = do(t, h, http.MethodPost, "/api/v1/recommendations", `{"domain": "cs", "modules": [], "limit": 1}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleGetBook(t *testing.T) {
	store, err := catalog.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if err := store.ReplaceAll(context.Background(), []models.Book{{ID: "archived", Title: "Old Book", Text: "old"}}); err != nil {
		t.Fatal(err)
	}

	h := newTestServer(t, true, store)
	tests := []struct {
		id        string
		wantCode  int
		wantTitle string
	}{
		{"item3", http.StatusOK, "Deep Learning with Python"},
		{"archived", http.StatusOK, "Old Book"},
		{"missing", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		w := do(t, h, http.MethodGet, "/api/v1/books/"+tt.id, "")
		if w.Code != tt.wantCode {
			t.Errorf("%s: status %d, want %d", tt.id, w.Code, tt.wantCode)
			continue
		}
		if tt.wantTitle == "" {
			continue
		}
		var b models.Book
		if err := json.NewDecoder(w.Body).Decode(&b); err != nil {
			t.Fatal(err)
		}
		if b.Title != tt.wantTitle {
			t.Errorf("%s: title %q, want %q", tt.id, b.Title, tt.wantTitle)
		}
	}

	if w := do(t, newTestServer(t, false, nil), http.MethodGet, "/api/v1/books/item1", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("no model, no catalog: status %d, want 503", w.Code)
	}
	if w := do(t, newTestServer(t, true, nil), http.MethodGet, "/api/v1/books/missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("model only: status %d, want 404", w.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	for _, loaded := range []bool{true, false} {
		w := do(t, newTestServer(t, loaded, nil), http.MethodGet, "/health", "")
		if w.Code != http.StatusOK {
			t.Errorf("status: got %d", w.Code)
		}
		var out map[string]interface{}
		if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
			t.Fatal(err)
		}
		if out["status"] != "ok" || out["model_loaded"] != loaded {
			t.Errorf("health = %v", out)
		}
	}
}

func TestHandleStatus(t *testing.T) {
	store, err := catalog.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if err := store.ReplaceAll(context.Background(), testBooks()); err != nil {
		t.Fatal(err)
	}

	w := do(t, newTestServer(t, true, store), http.MethodGet, "/api/v1/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		Model struct {
			Loaded         bool   `json:"loaded"`
			Items          int    `json:"items"`
			VocabularySize int    `json:"vocabulary_size"`
			Source         string `json:"source"`
		} `json:"model"`
		CatalogBooks int64 `json:"catalog_books"`
		Config       struct {
			MaxLimit int `json:"max_limit"`
		} `json:"config"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if !out.Model.Loaded || out.Model.Items != 3 || out.Model.VocabularySize != 8 || out.Model.Source != "static" {
		t.Errorf("model = %+v", out.Model)
	}
	if out.CatalogBooks != 3 || out.Config.MaxLimit != 20 {
		t.Errorf("status = %+v", out)
	}
}

func TestMiddleware_CORSAndRequestID(t *testing.T) {
	h := newTestServer(t, true, nil)
	r := httptest.NewRequest(http.MethodOptions, "/api/v1/recommendations", http.NoBody)
	r.Header.Set("Origin", "https://learn.example.com")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}

	w = do(t, h, http.MethodGet, "/health", "")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID should be set")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, true, nil)
	_ = do(t, h, http.MethodPost, "/api/v1/recommendations", `{"domain": "cs", "modules": ["go"], "limit": 1}`)
	w := do(t, h, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("bookrec_recommendations_total")) {
		t.Error("metrics output should include bookrec_recommendations_total")
	}
}

// slowBody delays the first read so request decoding takes measurable time.
type slowBody struct {
	r     io.Reader
	delay time.Duration
	slept bool
}

func (b *slowBody) Read(p []byte) (int, error) {
	if !b.slept {
		b.slept = true
		time.Sleep(b.delay)
	}
	return b.r.Read(p)
}

func rankingSecondsSum(t *testing.T, h http.Handler) float64 {
	t.Helper()
	w := do(t, h, http.MethodGet, "/metrics", "")
	for _, line := range strings.Split(w.Body.String(), "\n") {
		if rest, ok := strings.CutPrefix(line, "bookrec_ranking_duration_seconds_sum "); ok {
			v, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
			if err != nil {
				t.Fatalf("parse %q: %v", line, err)
			}
			return v
		}
	}
	return 0
}

func TestRankingDuration_ExcludesRequestDecoding(t *testing.T) {
	h := newTestServer(t, true, nil)
	before := rankingSecondsSum(t, h)

	body := &slowBody{
		r:     strings.NewReader(`{"domain": "cs", "modules": ["machine learning"], "limit": 1}`),
		delay: 300 * time.Millisecond,
	}
	r := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations", body)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}

	if delta := rankingSecondsSum(t, h) - before; delta < 0 || delta >= 0.25 {
		t.Errorf("ranking duration grew by %vs, want only the ranking time", delta)
	}
}

func TestJSONRecoverer(t *testing.T) {
	h := jsonRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "internal error") {
		t.Errorf("body = %s", w.Body.String())
	}
}
