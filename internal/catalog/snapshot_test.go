package catalog

import (
	"reflect"
	"testing"

	"github.com/hyperjump/kaimono/internal/models"
)

func TestNewSnapshot_IndexAligned(t *testing.T) {
	s := NewSnapshot([]*models.Product{
		{ID: "a", Name: "Red Shoes"},
		{ID: "b", Name: "Blue Hat"},
		{ID: "a", Name: "Duplicate"},
		{ID: "", Name: "No ID"},
		nil,
		{ID: "c", Name: "Green Scarf"},
	})
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	if s.Dropped() != 3 {
		t.Errorf("Dropped() = %d, want 3", s.Dropped())
	}
	if !reflect.DeepEqual(s.IDs(), []string{"a", "b", "c"}) {
		t.Errorf("IDs() = %v", s.IDs())
	}
	for i := 0; i < s.Len(); i++ {
		if s.Product(i).ID != s.ID(i) {
			t.Errorf("product %d id %s does not match ids[%d]=%s", i, s.Product(i).ID, i, s.ID(i))
		}
	}
	if s.Product(0).Name != "Red Shoes" {
		t.Errorf("first occurrence should win, got %q", s.Product(0).Name)
	}
	if i, ok := s.IndexOf("c"); !ok || i != 2 {
		t.Errorf("IndexOf(c) = %d, %v", i, ok)
	}
	if _, ok := s.IndexOf("zzz"); ok {
		t.Error("IndexOf(unknown) should be false")
	}
}

func TestSnapshot_Resolve(t *testing.T) {
	s := NewSnapshot([]*models.Product{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	got := s.Resolve([]string{"c", "missing", "a", "c", ""})
	want := []int{2, 0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}
	if got := s.Resolve([]string{"x", "y"}); len(got) != 0 {
		t.Errorf("Resolve(unknown) = %v, want empty", got)
	}
}

func TestDocument(t *testing.T) {
	tests := []struct {
		name string
		p    *models.Product
		want string
	}{
		{
			name: "all fields in order",
			p: &models.Product{
				Name: "Red Shoes", Brand: "Acme", Category: "Footwear",
				Description: "Comfy Running", Tags: []string{"Sport", "Summer"},
			},
			want: "red shoes acme footwear comfy running sport summer",
		},
		{
			name: "empty fields skipped",
			p:    &models.Product{Name: "Blue Hat", Category: "Hats"},
			want: "blue hat hats",
		},
		{
			name: "no text",
			p:    &models.Product{ID: "x"},
			want: "",
		},
		{
			name: "blank tags skipped",
			p:    &models.Product{Name: "Mug", Tags: []string{""}},
			want: "mug",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Document(tt.p); got != tt.want {
				t.Errorf("Document() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSnapshot_Corpus(t *testing.T) {
	s := NewSnapshot([]*models.Product{{ID: "a", Name: "A"}, {ID: "b", Brand: "B"}})
	if got := s.Corpus(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Corpus() = %v", got)
	}
}
