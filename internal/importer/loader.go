package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kaimono/internal/metrics"
	"github.com/hyperjump/kaimono/internal/models"
)

// Store is the part of the catalog store the loader writes to.
type Store interface {
	BatchUpsertProducts(ctx context.Context, products []*models.Product) error
	DeactivateBySource(ctx context.Context, source string) (int64, error)
	DeactivateUnder(ctx context.Context, dir string) (int64, error)
}

// Loader imports catalog files into a store and signals catalog changes.
// It satisfies watcher.Handler.
type Loader struct {
	importer *Importer
	store    Store
	onChange func()
	logger   *zap.Logger
}

// NewLoader creates a loader. onChange, if non-nil, is called after every successful change.
func NewLoader(store Store, onChange func(), logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{importer: NewImporter(), store: store, onChange: onChange, logger: logger}
}

// LoadFile imports path, replacing whatever an earlier import of the same file produced.
// Rows that disappeared from the file are deactivated.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Result, error) {
	res, err := l.importer.ImportFile(path)
	if err != nil {
		return nil, err
	}
	if _, err := l.store.DeactivateBySource(ctx, path); err != nil {
		return nil, fmt.Errorf("deactivate previous import of %s: %w", path, err)
	}
	if err := l.store.BatchUpsertProducts(ctx, res.Products); err != nil {
		return nil, fmt.Errorf("store products from %s: %w", path, err)
	}
	metrics.ImportedProductsTotal.WithLabelValues(strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")).
		Add(float64(len(res.Products)))
	l.logger.Info("catalog file imported",
		zap.String("path", path), zap.Int("products", len(res.Products)), zap.Int("skipped", res.Skipped))
	l.changed()
	return res, nil
}

// UnloadFile deactivates every product imported from path.
func (l *Loader) UnloadFile(ctx context.Context, path string) (int64, error) {
	n, err := l.store.DeactivateBySource(ctx, path)
	if err != nil {
		return 0, err
	}
	l.logger.Info("catalog file removed", zap.String("path", path), zap.Int64("deactivated", n))
	if n > 0 {
		l.changed()
	}
	return n, nil
}

// UnloadDirectory deactivates every product imported from a file inside dir.
func (l *Loader) UnloadDirectory(ctx context.Context, dir string) (int64, error) {
	n, err := l.store.DeactivateUnder(ctx, dir)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		l.logger.Info("catalog directory removed", zap.String("path", dir), zap.Int64("deactivated", n))
		l.changed()
	}
	return n, nil
}

// FileChanged imports path, logging failures.
func (l *Loader) FileChanged(ctx context.Context, path string) {
	if _, err := l.LoadFile(ctx, path); err != nil {
		l.logger.Warn("catalog import failed", zap.String("path", path), zap.Error(err))
	}
}

// FileRemoved deactivates path's products, logging failures.
func (l *Loader) FileRemoved(ctx context.Context, path string) {
	if _, err := l.UnloadFile(ctx, path); err != nil {
		l.logger.Warn("catalog deactivate failed", zap.String("path", path), zap.Error(err))
	}
}

// DirectoryRemoved deactivates the products of every file that was inside dir, logging failures.
func (l *Loader) DirectoryRemoved(ctx context.Context, dir string) {
	if _, err := l.UnloadDirectory(ctx, dir); err != nil {
		l.logger.Warn("catalog deactivate failed", zap.String("path", dir), zap.Error(err))
	}
}

func (l *Loader) changed() {
	if l.onChange != nil {
		l.onChange()
	}
}
