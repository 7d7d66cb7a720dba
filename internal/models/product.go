// Package models defines core data structures for products, cart requests, and recommendations.
package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// Product is a catalog entry. Textual fields feed the featurizer; display fields
// (Price, Images, Ratings, Inventory, BusinessType) are opaque and passed through unmodified.
type Product struct {
	ID           string          `json:"id" db:"id"`
	Name         string          `json:"name,omitempty" db:"name"`
	Brand        string          `json:"brand,omitempty" db:"brand"`
	Category     string          `json:"category,omitempty" db:"category"`
	Description  string          `json:"description,omitempty" db:"description"`
	Tags         []string        `json:"tags,omitempty" db:"tags"`
	Price        json.RawMessage `json:"price,omitempty" db:"price"`
	Images       json.RawMessage `json:"images,omitempty" db:"images"`
	Ratings      json.RawMessage `json:"ratings,omitempty" db:"ratings"`
	Inventory    json.RawMessage `json:"inventory,omitempty" db:"inventory"`
	BusinessType string          `json:"businessType,omitempty" db:"business_type"`
	IsActive     bool            `json:"isActive" db:"is_active"`
	Source       string          `json:"source,omitempty" db:"source"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"`
}

// ProductSummary is the metadata projection attached to a recommendation:
// identity and display fields only.
type ProductSummary struct {
	ID           string          `json:"_id"`
	Name         string          `json:"name,omitempty"`
	Brand        string          `json:"brand,omitempty"`
	Category     string          `json:"category,omitempty"`
	BusinessType string          `json:"businessType,omitempty"`
	Price        json.RawMessage `json:"price,omitempty"`
	Images       json.RawMessage `json:"images,omitempty"`
	Ratings      json.RawMessage `json:"ratings,omitempty"`
	Inventory    json.RawMessage `json:"inventory,omitempty"`
	Description  string          `json:"description,omitempty"`
}

// Summary returns the display projection of p.
func (p *Product) Summary() *ProductSummary {
	return &ProductSummary{
		ID:           p.ID,
		Name:         p.Name,
		Brand:        p.Brand,
		Category:     p.Category,
		BusinessType: p.BusinessType,
		Price:        bytes.Clone(p.Price),
		Images:       bytes.Clone(p.Images),
		Ratings:      bytes.Clone(p.Ratings),
		Inventory:    bytes.Clone(p.Inventory),
		Description:  p.Description,
	}
}

// Clone returns a deep copy of s.
func (s *ProductSummary) Clone() *ProductSummary {
	if s == nil {
		return nil
	}
	c := *s
	c.Price = bytes.Clone(s.Price)
	c.Images = bytes.Clone(s.Images)
	c.Ratings = bytes.Clone(s.Ratings)
	c.Inventory = bytes.Clone(s.Inventory)
	return &c
}
