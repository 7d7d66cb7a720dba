package vector

import "testing"

func TestNewVectorIndex(t *testing.T) {
	tests := []struct {
		indexType string
		wantType  string
		wantErr   bool
	}{
		{"", "memory", false},
		{"memory", "memory", false},
		{"parallel", "parallel", false},
		{"faiss", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.indexType, func(t *testing.T) {
			idx, err := NewVectorIndex(tt.indexType, 2)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error for unknown index type")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			defer idx.Close()
			if idx.Type() != tt.wantType {
				t.Errorf("Type() = %s, want %s", idx.Type(), tt.wantType)
			}
			if idx.Size() != 0 {
				t.Errorf("Size() = %d, want 0", idx.Size())
			}
		})
	}
}
