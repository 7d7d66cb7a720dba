// Package storage defines the persistence interface for the product catalog.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kaimono/internal/config"
	"github.com/hyperjump/kaimono/internal/models"
)

// ErrProductNotFound is returned when a product ID is not in the store.
var ErrProductNotFound = errors.New("product not found")

// Storage defines catalog persistence operations.
type Storage interface {
	// Product operations
	UpsertProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	ListProducts(ctx context.Context, offset, limit int) ([]*models.Product, error)

	// ListActiveProducts returns every active product in first-insertion order.
	ListActiveProducts(ctx context.Context) ([]*models.Product, error)

	// Batch operations
	BatchUpsertProducts(ctx context.Context, products []*models.Product) error
	// DeactivateBySource marks every product imported from source inactive.
	DeactivateBySource(ctx context.Context, source string) (int64, error)
	// DeactivateUnder marks every product whose source lies inside dir inactive.
	DeactivateUnder(ctx context.Context, dir string) (int64, error)

	// Stats
	CountProducts(ctx context.Context) (int64, error)
	CountActiveProducts(ctx context.Context) (int64, error)

	Close() error
}

// Open returns the store selected by cfg.Driver.
func Open(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLiteStorage(cfg.DatabasePath)
	case "postgres":
		return NewPostgresStorage(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s (supported: sqlite, postgres)", cfg.Driver)
	}
}

// dirPrefix returns dir with exactly one trailing separator, so "/a/b" never matches "/a/bc/x.json".
func dirPrefix(dir string) string {
	return strings.TrimRight(filepath.Clean(dir), string(filepath.Separator)) + string(filepath.Separator)
}
