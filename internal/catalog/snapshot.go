// Package catalog provides the immutable, index-aligned catalog snapshot a model generation is built from.
package catalog

import (
	"strings"

	"github.com/hyperjump/kaimono/internal/models"
)

// Snapshot is an ordered, immutable view of the active catalog.
// Products[i] corresponds to IDs[i]; every ID is unique.
type Snapshot struct {
	products []*models.Product
	ids      []string
	index    map[string]int
	dropped  int
}

// NewSnapshot builds a snapshot from products in catalog order.
// Products with an empty ID are skipped; when an ID repeats, the first occurrence wins.
func NewSnapshot(products []*models.Product) *Snapshot {
	s := &Snapshot{
		products: make([]*models.Product, 0, len(products)),
		ids:      make([]string, 0, len(products)),
		index:    make(map[string]int, len(products)),
	}
	for _, p := range products {
		if p == nil || p.ID == "" {
			s.dropped++
			continue
		}
		if _, dup := s.index[p.ID]; dup {
			s.dropped++
			continue
		}
		s.index[p.ID] = len(s.ids)
		s.ids = append(s.ids, p.ID)
		s.products = append(s.products, p)
	}
	return s
}

// Len returns the number of products.
func (s *Snapshot) Len() int {
	return len(s.ids)
}

// Dropped returns how many input records were skipped (missing or duplicate IDs).
func (s *Snapshot) Dropped() int {
	return s.dropped
}

// Product returns the product at catalog index i.
func (s *Snapshot) Product(i int) *models.Product {
	return s.products[i]
}

// ID returns the product ID at catalog index i.
func (s *Snapshot) ID(i int) string {
	return s.ids[i]
}

// IDs returns a copy of the ID list.
func (s *Snapshot) IDs() []string {
	return append([]string(nil), s.ids...)
}

// IndexOf returns the catalog index of id.
func (s *Snapshot) IndexOf(id string) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

// Resolve maps ids to catalog indices, dropping unknown IDs and repeats.
func (s *Snapshot) Resolve(ids []string) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		i, ok := s.index[id]
		if !ok {
			continue
		}
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	return out
}

// Corpus returns one document per product, index-aligned with the snapshot.
func (s *Snapshot) Corpus() []string {
	corpus := make([]string, len(s.products))
	for i, p := range s.products {
		corpus[i] = Document(p)
	}
	return corpus
}

// Document concatenates name, brand, category, description and space-joined tags,
// skipping empty fields, and lower-cases the result.
func Document(p *models.Product) string {
	parts := make([]string, 0, 5)
	for _, field := range []string{p.Name, p.Brand, p.Category, p.Description} {
		if strings.TrimSpace(field) != "" {
			parts = append(parts, field)
		}
	}
	if len(p.Tags) > 0 {
		if tags := strings.Join(p.Tags, " "); strings.TrimSpace(tags) != "" {
			parts = append(parts, tags)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}
