package importer

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/hyperjump/kaimono/internal/models"
	"github.com/hyperjump/kaimono/internal/productid"
)

// record is one decoded catalog row keyed by normalized field name.
type record map[string]any

// normalizeKey folds "_id", "businessType" and "business_type" style keys to one form.
func normalizeKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(k)
}

// newRecord folds the keys of m. When several keys fold together the lexically
// last one wins, except that "_id" always supplies the id.
func newRecord(m map[string]any) record {
	r := make(record, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		r[normalizeKey(k)] = m[k]
	}
	if v, ok := m["_id"]; ok {
		r["id"] = v
	}
	return r
}

func (r record) text(key string) string {
	return scalarText(r[key])
}

// scalarText renders a field value as text. Extended JSON wrappers such as
// {"$oid": "..."} or {"$numberLong": "..."} are unwrapped to their value.
func scalarText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case map[string]any:
		if len(t) == 1 {
			for k, inner := range t {
				if strings.HasPrefix(k, "$") {
					return scalarText(inner)
				}
			}
		}
		return fmt.Sprint(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func (r record) tags() []string {
	switch t := r["tags"].(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, v := range t {
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		fields := strings.FieldsFunc(t, func(c rune) bool { return c == ';' || c == '|' || c == ',' })
		out := make([]string, 0, len(fields))
		for _, f := range fields {
			if s := strings.TrimSpace(f); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// display returns a pass-through field as raw JSON. Strings that already hold
// valid JSON (as CSV and Excel cells do) are kept verbatim.
func (r record) display(key string) json.RawMessage {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		if json.Valid([]byte(s)) {
			return json.RawMessage(s)
		}
		v = s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

func (r record) active() bool {
	switch t := r["isactive"].(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "false", "0", "no", "n", "inactive":
			return false
		}
	}
	return true
}

// product converts r, deriving an ID when none is present. ok is false when
// the row carries nothing to identify it.
func (r record) product(source string) (*models.Product, bool) {
	p := &models.Product{
		ID:           r.text("id"),
		Name:         r.text("name"),
		Brand:        r.text("brand"),
		Category:     r.text("category"),
		Description:  r.text("description"),
		Tags:         r.tags(),
		Price:        r.display("price"),
		Images:       r.display("images"),
		Ratings:      r.display("ratings"),
		Inventory:    r.display("inventory"),
		BusinessType: r.text("businesstype"),
		IsActive:     r.active(),
		Source:       source,
	}
	if p.ID == "" {
		if p.Name == "" && p.Brand == "" && p.Category == "" {
			return nil, false
		}
		p.ID = productid.Derive(p.Name, p.Brand, p.Category)
	}
	return p, true
}
