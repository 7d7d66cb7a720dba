package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/hyperjump/kaimono/internal/config"
	"github.com/hyperjump/kaimono/internal/models"
	"github.com/hyperjump/kaimono/internal/recommend"
	"github.com/hyperjump/kaimono/internal/storage"
	"go.uber.org/zap"
)

type countingTrigger struct {
	n atomic.Int32
}

func (c *countingTrigger) Trigger() { c.n.Add(1) }

type mockWatchService struct {
	dirs []string
}

func (m *mockWatchService) Directories() []string {
	return append([]string(nil), m.dirs...)
}

func newTestServer(t *testing.T, products []*models.Product, opts ...Option) (*Server, storage.Storage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	if len(products) > 0 {
		if err := store.BatchUpsertProducts(context.Background(), products); err != nil {
			t.Fatal(err)
		}
	}
	cfg := config.Default()
	cfg.Storage.DatabasePath = ":memory:"
	engine := recommend.NewEngine(store, cfg, recommend.WithLogger(zap.NewNop()))
	t.Cleanup(func() { engine.Close() })
	return NewServer(engine, store, cfg, zap.NewNop(), opts...), store
}

func catalog() []*models.Product {
	return []*models.Product{
		{ID: "A", Name: "red shoes", IsActive: true},
		{ID: "B", Name: "red shoes", IsActive: true},
		{ID: "C", Name: "blue hat", IsActive: true},
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHandleRecommendCart(t *testing.T) {
	srv, _ := newTestServer(t, catalog())
	h := srv.Handler()

	for _, path := range []string{"/recommendations/cart", "/api/v1/recommendations/cart"} {
		t.Run(path, func(t *testing.T) {
			w := do(t, h, http.MethodPost, path, `{"productIds":["A"],"limit":2}`)
			if w.Code != http.StatusOK {
				t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
			}
			var resp models.RecommendationResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if !resp.Success || resp.Data == nil {
				t.Fatalf("response: %+v", resp)
			}
			if resp.Data.Total != 2 || len(resp.Data.Recommendations) != 2 {
				t.Fatalf("total: got %d", resp.Data.Total)
			}
			first := resp.Data.Recommendations[0]
			if first.ProductID != "B" || first.Score != 1.0 {
				t.Errorf("first: got %s %.4f, want B 1.0000", first.ProductID, first.Score)
			}
			if first.Product == nil || first.Product.ID != "B" {
				t.Errorf("product metadata missing: %+v", first.Product)
			}
			if resp.Data.Generation == "" {
				t.Error("generation id missing")
			}
		})
	}
}

func TestHandleRecommendCart_UnknownCartIsEmpty(t *testing.T) {
	srv, _ := newTestServer(t, catalog())
	w := do(t, srv.Handler(), http.MethodPost, "/recommendations/cart", `{"productIds":["nope"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var resp models.RecommendationResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.Total != 0 || len(resp.Data.Recommendations) != 0 {
		t.Errorf("got %d recommendations, want 0", resp.Data.Total)
	}
}

func TestHandleRecommendCart_BadRequest(t *testing.T) {
	srv, _ := newTestServer(t, catalog())
	h := srv.Handler()
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"productIds":`},
		{"missing productIds", `{"limit":3}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/recommendations/cart", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", w.Code)
			}
		})
	}
}

func TestHandleRecommendCart_NotReady(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	w := do(t, srv.Handler(), http.MethodPost, "/recommendations/cart", `{"productIds":["A"]}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want 503", w.Code)
	}
	var out map[string]string
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["error"] != "recommender not ready" {
		t.Errorf("error: got %q", out["error"])
	}
}

func TestHandleRetrain(t *testing.T) {
	srv, store := newTestServer(t, nil)
	h := srv.Handler()

	w := do(t, h, http.MethodPost, "/api/v1/retrain", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("empty catalog retrain: got %d, want 503", w.Code)
	}

	if err := store.BatchUpsertProducts(context.Background(), catalog()); err != nil {
		t.Fatal(err)
	}
	w = do(t, h, http.MethodPost, "/api/v1/retrain", "")
	if w.Code != http.StatusOK {
		t.Fatalf("retrain: got %d, body %s", w.Code, w.Body.String())
	}
	var st recommend.Status
	if err := json.NewDecoder(w.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.State != "ready" || st.Products != 3 {
		t.Errorf("status: got %+v", st)
	}
}

func TestHandleStatus(t *testing.T) {
	srv, _ := newTestServer(t, catalog(), WithWatchService(&mockWatchService{dirs: []string{"/tmp/catalog"}}))
	w := do(t, srv.Handler(), http.MethodGet, "/api/v1/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		Engine  recommend.Status `json:"engine"`
		Catalog map[string]int64 `json:"catalog"`
		Config  map[string]any   `json:"config"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Engine.State != "uninitialized" {
		t.Errorf("state: got %q", out.Engine.State)
	}
	if out.Catalog["products"] != 3 || out.Catalog["active"] != 3 {
		t.Errorf("catalog: got %v", out.Catalog)
	}
	if dirs, ok := out.Config["import_directories"].([]any); !ok || len(dirs) != 1 {
		t.Errorf("import_directories: got %v", out.Config["import_directories"])
	}
}

func TestHandleProducts(t *testing.T) {
	trigger := &countingTrigger{}
	srv, store := newTestServer(t, nil, WithRetrainTrigger(trigger))
	h := srv.Handler()

	w := do(t, h, http.MethodPost, "/api/v1/products",
		`[{"_id":"X1","name":"Trail Runner","brand":"Acme","tags":["running"]},{"name":"Rain Jacket","brand":"Acme"}]`)
	if w.Code != http.StatusCreated {
		t.Fatalf("upsert: got %d, body %s", w.Code, w.Body.String())
	}
	var created struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if len(created.IDs) != 2 || created.IDs[0] != "X1" || !strings.HasPrefix(created.IDs[1], "sku:") {
		t.Fatalf("ids: got %v", created.IDs)
	}
	if trigger.n.Load() != 1 {
		t.Errorf("retrain triggers: got %d, want 1", trigger.n.Load())
	}

	w = do(t, h, http.MethodGet, "/api/v1/products/X1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: got %d", w.Code)
	}
	var p models.Product
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatal(err)
	}
	if p.Name != "Trail Runner" || !p.IsActive || p.Source != apiSource {
		t.Errorf("product: got %+v", p)
	}

	w = do(t, h, http.MethodDelete, "/api/v1/products/X1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete: got %d", w.Code)
	}
	if _, err := store.GetProduct(context.Background(), "X1"); err == nil {
		t.Error("product still present after delete")
	}
	if trigger.n.Load() != 2 {
		t.Errorf("retrain triggers: got %d, want 2", trigger.n.Load())
	}

	if w := do(t, h, http.MethodGet, "/api/v1/products/X1", ""); w.Code != http.StatusNotFound {
		t.Errorf("get missing: got %d, want 404", w.Code)
	}
	if w := do(t, h, http.MethodDelete, "/api/v1/products/X1", ""); w.Code != http.StatusNotFound {
		t.Errorf("delete missing: got %d, want 404", w.Code)
	}
	if w := do(t, h, http.MethodPost, "/api/v1/products", `[]`); w.Code != http.StatusBadRequest {
		t.Errorf("empty upsert: got %d, want 400", w.Code)
	}
}

func TestHandleWatchDirectories(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	if w := do(t, srv.Handler(), http.MethodGet, "/api/v1/watch/directories", ""); w.Code != http.StatusNotImplemented {
		t.Errorf("status: got %d, want 501", w.Code)
	}

	srv, _ = newTestServer(t, nil, WithWatchService(&mockWatchService{dirs: []string{"/tmp/catalog"}}))
	w := do(t, srv.Handler(), http.MethodGet, "/api/v1/watch/directories", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		Directories []string `json:"directories"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Directories) != 1 || out.Directories[0] != "/tmp/catalog" {
		t.Errorf("directories: got %v", out.Directories)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()
	if w := do(t, h, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Errorf("health: got %d", w.Code)
	}
	w := do(t, h, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "kaimono_") {
		t.Error("metrics output missing kaimono collectors")
	}
}
