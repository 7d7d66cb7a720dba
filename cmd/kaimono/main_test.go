package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/kaimono/internal/config"
	"github.com/hyperjump/kaimono/internal/importer"
	"github.com/hyperjump/kaimono/internal/models"
	"github.com/hyperjump/kaimono/internal/storage"
	"go.uber.org/zap"
)

func TestReorderArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after ids are moved first",
			args:     []string{"A", "B", "-limit", "3"},
			expected: []string{"-limit", "3", "A", "B"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-limit", "3", "A"},
			expected: []string{"-limit", "3", "A"},
		},
		{
			name:     "ids only returns unchanged",
			args:     []string{"A", "B"},
			expected: []string{"A", "B"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reorderArgs(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("reorderArgs() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCartFromArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{"separate args", []string{"A", "B"}, []string{"A", "B"}},
		{"comma separated", []string{"A,B,C"}, []string{"A", "B", "C"}},
		{"quoted with spaces", []string{"A B", "C"}, []string{"A", "B", "C"}},
		{"stray commas", []string{",A,,", " "}, []string{"A"}},
		{"empty", []string{}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cartFromArgs(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("cartFromArgs(%v) = %v, want %v", tt.args, got, tt.expected)
			}
		})
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8000
storage:
  database_path: "./catalog.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s (canon %s), want %s (canon %s)", resolved, resolvedCanon, configPath, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "./catalog.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath != filepath.Join(dir, "catalog.db") {
		t.Errorf("database path = %s, want it resolved against the config dir", cfg.Storage.DatabasePath)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := writeDefaultConfig(path, false); err != nil {
		t.Fatal(err)
	}
	if err := writeDefaultConfig(path, false); err == nil {
		t.Error("expected error when file exists without --force")
	}
	if err := writeDefaultConfig(path, true); err != nil {
		t.Errorf("force overwrite: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Recommend.DefaultLimit != 8 || cfg.Featurizer.MaxFeatures != 20000 {
		t.Errorf("defaults not round-tripped: %+v", cfg.Recommend)
	}
	if cfg.Storage.DatabasePath != filepath.Join(dir, "data", "catalog.db") {
		t.Errorf("database path = %s", cfg.Storage.DatabasePath)
	}
}

func TestImportPath(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"shoes.json":       `[{"_id":"A","name":"red shoes"},{"_id":"B","name":"red shoes"}]`,
		"nested/hats.csv":  "id,name\nC,blue hat\n",
		"nested/notes.txt": "not a catalog",
	}
	for name, content := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	loader := importer.NewLoader(store, nil, zap.NewNop())
	ctx := context.Background()

	nFiles, nProducts, err := importPath(ctx, loader, dir, config.Default().Catalog.Extensions)
	if err != nil {
		t.Fatal(err)
	}
	if nFiles != 2 || nProducts != 3 {
		t.Errorf("imported %d files / %d products, want 2 / 3", nFiles, nProducts)
	}

	p, err := store.GetProduct(ctx, "C")
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(p.Source) || !strings.HasSuffix(p.Source, filepath.Join("nested", "hats.csv")) {
		t.Errorf("source = %q, want absolute path to hats.csv", p.Source)
	}

	nFiles, nProducts, err = importPath(ctx, loader, filepath.Join(dir, "shoes.json"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if nFiles != 1 || nProducts != 2 {
		t.Errorf("single file: %d / %d, want 1 / 2", nFiles, nProducts)
	}
	if n, _ := store.CountActiveProducts(ctx); n != 3 {
		t.Errorf("active products = %d, want 3 after re-import", n)
	}

	if _, _, err := importPath(ctx, loader, filepath.Join(dir, "missing.json"), nil); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestRecommendViaHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/recommendations/cart" {
			http.NotFound(w, r)
			return
		}
		var req models.CartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		if len(req.ProductIDs) == 1 && req.ProductIDs[0] == "cold" {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"recommender not ready"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(&models.RecommendationResponse{
			Success: true,
			Data: &models.RecommendationData{
				Recommendations: []*models.Recommendation{{ProductID: "B", Score: 1}},
				Total:           1,
				Generation:      "gen-1",
			},
		})
	}))
	defer srv.Close()

	data, err := recommendViaHTTP(srv.URL+"/", &models.CartRequest{ProductIDs: []string{"A"}, Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if data.Total != 1 || data.Recommendations[0].ProductID != "B" || data.Generation != "gen-1" {
		t.Errorf("data: %+v", data)
	}

	_, err = recommendViaHTTP(srv.URL, &models.CartRequest{ProductIDs: []string{"cold"}})
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("expected 503 error, got %v", err)
	}
}

func TestHasExtension(t *testing.T) {
	exts := []string{".json", ".CSV"}
	tests := []struct {
		path string
		want bool
	}{
		{"a.json", true},
		{"a.JSON", true},
		{"a.csv", true},
		{"a.txt", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := hasExtension(tt.path, exts); got != tt.want {
			t.Errorf("hasExtension(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
	if !hasExtension("a.txt", nil) {
		t.Error("empty extension list should accept everything")
	}
}
