package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/kaimono/internal/importer"
	"github.com/hyperjump/kaimono/internal/models"
	"github.com/hyperjump/kaimono/internal/recommend"
	"github.com/hyperjump/kaimono/internal/storage"
	"go.uber.org/zap"
)

// apiSource tags products written through the HTTP API.
const apiSource = "api"

const maxProductBody = 8 << 20

func (s *Server) handleRecommendCart(w http.ResponseWriter, r *http.Request) {
	var req models.CartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("recommend request", zap.Int("cart_size", len(req.ProductIDs)), zap.Int("limit", req.Limit))
	data, err := s.engine.RecommendCart(r.Context(), &req)
	if err != nil {
		if errors.Is(err, recommend.ErrNotReady) {
			s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error":  recommend.ErrNotReady.Error(),
				"detail": err.Error(),
				"state":  s.engine.State().String(),
			})
			return
		}
		s.logger.Error("recommend failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, &models.RecommendationResponse{Success: true, Data: data})
}

func (s *Server) handleRetrain(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("retrain requested")
	if _, err := s.engine.Train(r.Context()); err != nil {
		s.logger.Error("retrain failed", zap.Error(err))
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"error":  err.Error(),
			"status": s.engine.Status(),
		})
		return
	}
	s.respondJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handleUpsertProducts(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxProductBody))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := importer.NewImporter().ImportBytes(body, ".json", apiSource)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(res.Products) == 0 {
		s.respondError(w, http.StatusBadRequest, "no products in request body")
		return
	}
	if err := s.storage.BatchUpsertProducts(r.Context(), res.Products); err != nil {
		s.logger.Error("upsert products failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.retrain != nil {
		s.retrain.Trigger()
	}
	ids := make([]string, 0, len(res.Products))
	for _, p := range res.Products {
		ids = append(ids, p.ID)
	}
	s.logger.Debug("upserted products", zap.Int("count", len(ids)), zap.Int("skipped", res.Skipped))
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"ids":     ids,
		"skipped": res.Skipped,
		"status":  "stored",
	})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := s.storage.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			s.respondError(w, http.StatusNotFound, "product not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete product request", zap.String("id", id))
	if err := s.storage.DeleteProduct(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			s.respondError(w, http.StatusNotFound, "product not found")
			return
		}
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.retrain != nil {
		s.retrain.Trigger()
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	total, err := s.storage.CountProducts(ctx)
	if err != nil {
		s.logger.Error("status: count products failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	active, err := s.storage.CountActiveProducts(ctx)
	if err != nil {
		s.logger.Error("status: count active products failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"engine": s.engine.Status(),
		"catalog": map[string]int64{
			"products": total,
			"active":   active,
		},
	}

	configInfo := map[string]interface{}{
		"storage_driver": s.config.Storage.Driver,
		"index_type":     s.config.Index.Type,
		"max_features":   s.config.Featurizer.MaxFeatures,
		"max_neighbors":  s.config.Index.MaxNeighbors,
		"default_limit":  s.config.Recommend.DefaultLimit,
		"max_limit":      s.config.Recommend.MaxLimit,
	}
	if s.config.Storage.Driver == "" || s.config.Storage.Driver == "sqlite" {
		configInfo["database_path"] = s.config.Storage.DatabasePath
		if diskBytes, err := storage.SQLiteDiskUsage(s.config.Storage.DatabasePath); err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
	}
	if s.watch != nil {
		configInfo["import_directories"] = s.watch.Directories()
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectories(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
