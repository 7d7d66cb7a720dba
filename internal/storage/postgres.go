package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/hyperjump/kaimono/internal/models"
)

// productRecord is the gorm row for a product. JSON-valued fields are stored as text.
type productRecord struct {
	Seq          int64  `gorm:"autoIncrement;uniqueIndex"`
	ID           string `gorm:"primaryKey"`
	Name         string
	Brand        string
	Category     string
	Description  string
	Tags         string
	Price        *string
	Images       *string
	Ratings      *string
	Inventory    *string
	BusinessType string
	IsActive     bool   `gorm:"index"`
	Source       string `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (productRecord) TableName() string { return "products" }

func toRecord(p *models.Product) (*productRecord, error) {
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}
	return &productRecord{
		ID:           p.ID,
		Name:         p.Name,
		Brand:        p.Brand,
		Category:     p.Category,
		Description:  p.Description,
		Tags:         string(tags),
		Price:        rawToPtr(p.Price),
		Images:       rawToPtr(p.Images),
		Ratings:      rawToPtr(p.Ratings),
		Inventory:    rawToPtr(p.Inventory),
		BusinessType: p.BusinessType,
		IsActive:     p.IsActive,
		Source:       p.Source,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}, nil
}

func (r *productRecord) toProduct() (*models.Product, error) {
	p := &models.Product{
		ID:           r.ID,
		Name:         r.Name,
		Brand:        r.Brand,
		Category:     r.Category,
		Description:  r.Description,
		Price:        ptrToRaw(r.Price),
		Images:       ptrToRaw(r.Images),
		Ratings:      ptrToRaw(r.Ratings),
		Inventory:    ptrToRaw(r.Inventory),
		BusinessType: r.BusinessType,
		IsActive:     r.IsActive,
		Source:       r.Source,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.Tags != "" {
		if err := json.Unmarshal([]byte(r.Tags), &p.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags for %s: %w", r.ID, err)
		}
	}
	return p, nil
}

// PostgresStorage implements Storage on PostgreSQL through gorm.
type PostgresStorage struct {
	db *gorm.DB
}

// NewPostgresStorage connects to dsn and migrates the products table.
func NewPostgresStorage(dsn string) (*PostgresStorage, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres_dsn is required for the postgres driver")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return newGormStorage(db)
}

func newGormStorage(db *gorm.DB) (*PostgresStorage, error) {
	if err := db.AutoMigrate(&productRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &PostgresStorage{db: db}, nil
}

var upsertClause = clause.OnConflict{
	Columns: []clause.Column{{Name: "id"}},
	DoUpdates: clause.AssignmentColumns([]string{
		"name", "brand", "category", "description", "tags", "price", "images", "ratings",
		"inventory", "business_type", "is_active", "source", "updated_at",
	}),
}

func (s *PostgresStorage) upsert(db *gorm.DB, p *models.Product, now time.Time) error {
	if p.ID == "" {
		return fmt.Errorf("product id is required")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	rec, err := toRecord(p)
	if err != nil {
		return err
	}
	return db.Clauses(upsertClause).Omit("seq").Create(rec).Error
}

// UpsertProduct inserts p or replaces the stored product with the same ID.
func (s *PostgresStorage) UpsertProduct(ctx context.Context, p *models.Product) error {
	return s.upsert(s.db.WithContext(ctx), p, time.Now())
}

// BatchUpsertProducts upserts products in a single transaction.
func (s *PostgresStorage) BatchUpsertProducts(ctx context.Context, products []*models.Product) error {
	now := time.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range products {
			if err := s.upsert(tx, p, now); err != nil {
				return fmt.Errorf("upsert %s: %w", p.ID, err)
			}
		}
		return nil
	})
}

// GetProduct returns a product by ID.
func (s *PostgresStorage) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var rec productRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return rec.toProduct()
}

// DeleteProduct removes a product by ID.
func (s *PostgresStorage) DeleteProduct(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&productRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return nil
}

// ListProducts returns products in insertion order with offset and limit.
func (s *PostgresStorage) ListProducts(ctx context.Context, offset, limit int) ([]*models.Product, error) {
	return s.find(s.db.WithContext(ctx).Order("seq").Offset(offset).Limit(limit))
}

// ListActiveProducts returns every active product in insertion order.
func (s *PostgresStorage) ListActiveProducts(ctx context.Context) ([]*models.Product, error) {
	return s.find(s.db.WithContext(ctx).Where("is_active = ?", true).Order("seq"))
}

// DeactivateBySource marks products imported from source inactive.
func (s *PostgresStorage) DeactivateBySource(ctx context.Context, source string) (int64, error) {
	result := s.db.WithContext(ctx).Model(&productRecord{}).
		Where("source = ? AND is_active = ?", source, true).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now()})
	return result.RowsAffected, result.Error
}

// DeactivateUnder marks products imported from files inside dir inactive.
func (s *PostgresStorage) DeactivateUnder(ctx context.Context, dir string) (int64, error) {
	result := s.db.WithContext(ctx).Model(&productRecord{}).
		Where("is_active = ? AND starts_with(source, ?)", true, dirPrefix(dir)).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now()})
	return result.RowsAffected, result.Error
}

// CountProducts returns the total number of products.
func (s *PostgresStorage) CountProducts(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&productRecord{}).Count(&count).Error
	return count, err
}

// CountActiveProducts returns the number of active products.
func (s *PostgresStorage) CountActiveProducts(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&productRecord{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}

// Close closes the underlying connection pool.
func (s *PostgresStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *PostgresStorage) find(q *gorm.DB) ([]*models.Product, error) {
	var recs []productRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	products := make([]*models.Product, 0, len(recs))
	for i := range recs {
		p, err := recs[i].toProduct()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func rawToPtr(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	s := string(raw)
	return &s
}

func ptrToRaw(s *string) json.RawMessage {
	if s == nil || *s == "" {
		return nil
	}
	return json.RawMessage(*s)
}
