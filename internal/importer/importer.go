// Package importer reads product catalogs from JSON, YAML, CSV and Excel files.
package importer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kaimono/internal/models"
)

// ErrUnsupportedFormat is returned for file extensions the importer cannot read.
var ErrUnsupportedFormat = errors.New("unsupported catalog format")

// Result is the outcome of importing one file.
type Result struct {
	Products []*models.Product
	// Skipped counts rows with neither an ID nor any identifying text.
	Skipped int
}

// Importer converts catalog files into products.
type Importer struct{}

// NewImporter returns a new Importer.
func NewImporter() *Importer {
	return &Importer{}
}

// Supported reports whether path has an extension the importer can read.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml", ".csv", ".xlsx":
		return true
	}
	return false
}

// ImportFile reads the file at path. Every product's Source is set to path.
func (im *Importer) ImportFile(path string) (*Result, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return im.ImportBytes(content, strings.ToLower(filepath.Ext(path)), path)
}

// ImportBytes parses content according to ext (with leading dot) and tags products with source.
func (im *Importer) ImportBytes(content []byte, ext, source string) (*Result, error) {
	var (
		records []record
		err     error
	)
	switch ext {
	case ".json":
		records, err = decodeJSON(content)
	case ".yaml", ".yml":
		records, err = decodeYAML(content)
	case ".csv":
		records, err = decodeCSV(content)
	case ".xlsx":
		records, err = decodeExcel(content)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}

	res := &Result{Products: make([]*models.Product, 0, len(records))}
	for _, rec := range records {
		p, ok := rec.product(source)
		if !ok {
			res.Skipped++
			continue
		}
		res.Products = append(res.Products, p)
	}
	return res, nil
}
