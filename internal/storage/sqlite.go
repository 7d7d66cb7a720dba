package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kaimono/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. ":memory:" opens a private in-memory database.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	memory := dbPath == ":memory:"
	if !memory {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if memory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		brand TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		tags TEXT,
		price TEXT,
		images TEXT,
		ratings TEXT,
		inventory TEXT,
		business_type TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1,
		source TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_products_active ON products(is_active);
	CREATE INDEX IF NOT EXISTS idx_products_source ON products(source);
	`
	_, err := db.Exec(schema)
	return err
}

const productColumns = `id, name, brand, category, description, tags, price, images, ratings, inventory,
	business_type, is_active, source, created_at, updated_at`

const upsertProductSQL = `INSERT INTO products (` + productColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		brand = excluded.brand,
		category = excluded.category,
		description = excluded.description,
		tags = excluded.tags,
		price = excluded.price,
		images = excluded.images,
		ratings = excluded.ratings,
		inventory = excluded.inventory,
		business_type = excluded.business_type,
		is_active = excluded.is_active,
		source = excluded.source,
		updated_at = excluded.updated_at`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, e execer, p *models.Product, now time.Time) error {
	if p.ID == "" {
		return fmt.Errorf("product id is required")
	}
	tagsJSON, err := json.Marshal(p.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err = e.ExecContext(ctx, upsertProductSQL,
		p.ID, p.Name, p.Brand, p.Category, p.Description, string(tagsJSON),
		rawOrNull(p.Price), rawOrNull(p.Images), rawOrNull(p.Ratings), rawOrNull(p.Inventory),
		p.BusinessType, p.IsActive, p.Source, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// UpsertProduct inserts p or replaces the stored product with the same ID.
// The original insertion position and created_at are preserved on replace.
func (s *SQLiteStorage) UpsertProduct(ctx context.Context, p *models.Product) error {
	return upsert(ctx, s.db, p, time.Now())
}

// BatchUpsertProducts upserts products in a single transaction.
func (s *SQLiteStorage) BatchUpsertProducts(ctx context.Context, products []*models.Product) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	for _, p := range products {
		if err := upsert(ctx, tx, p, now); err != nil {
			return fmt.Errorf("upsert %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// GetProduct returns a product by ID.
func (s *SQLiteStorage) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteProduct removes a product by ID.
func (s *SQLiteStorage) DeleteProduct(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return nil
}

// ListProducts returns products in insertion order with offset and limit.
func (s *SQLiteStorage) ListProducts(ctx context.Context, offset, limit int) ([]*models.Product, error) {
	return s.query(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY rowid LIMIT ? OFFSET ?`,
		limit, offset,
	)
}

// ListActiveProducts returns every active product in insertion order.
func (s *SQLiteStorage) ListActiveProducts(ctx context.Context) ([]*models.Product, error) {
	return s.query(ctx, `SELECT `+productColumns+` FROM products WHERE is_active = 1 ORDER BY rowid`)
}

// DeactivateBySource marks products imported from source inactive.
func (s *SQLiteStorage) DeactivateBySource(ctx context.Context, source string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE products SET is_active = 0, updated_at = ? WHERE source = ? AND is_active = 1`,
		time.Now(), source,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeactivateUnder marks products imported from files inside dir inactive.
func (s *SQLiteStorage) DeactivateUnder(ctx context.Context, dir string) (int64, error) {
	prefix := dirPrefix(dir)
	result, err := s.db.ExecContext(ctx,
		`UPDATE products SET is_active = 0, updated_at = ? WHERE is_active = 1 AND substr(source, 1, ?) = ?`,
		time.Now(), utf8.RuneCountInString(prefix), prefix,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CountProducts returns the total number of products.
func (s *SQLiteStorage) CountProducts(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&count)
	return count, err
}

// CountActiveProducts returns the number of active products.
func (s *SQLiteStorage) CountActiveProducts(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE is_active = 1`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) query(ctx context.Context, q string, args ...any) ([]*models.Product, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(sc scanner) (*models.Product, error) {
	var p models.Product
	var tags, price, images, ratings, inventory sql.NullString
	if err := sc.Scan(
		&p.ID, &p.Name, &p.Brand, &p.Category, &p.Description, &tags,
		&price, &images, &ratings, &inventory,
		&p.BusinessType, &p.IsActive, &p.Source, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &p.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags for %s: %w", p.ID, err)
		}
	}
	p.Price = nullToRaw(price)
	p.Images = nullToRaw(images)
	p.Ratings = nullToRaw(ratings)
	p.Inventory = nullToRaw(inventory)
	return &p, nil
}

func rawOrNull(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func nullToRaw(s sql.NullString) json.RawMessage {
	if !s.Valid || s.String == "" {
		return nil
	}
	return json.RawMessage(s.String)
}
