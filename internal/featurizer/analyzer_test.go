package featurizer

import (
	"reflect"
	"testing"
)

func TestAnalyzer_Tokens(t *testing.T) {
	a := NewAnalyzer(1, 1, 2)
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"lowercases and strips punctuation", "Red Running, SHOES!", []string{"red", "running", "shoes"}},
		{"drops short tokens", "a b cd", []string{"cd"}},
		{"empty", "", nil},
		{"punctuation only", "!!! ...", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Tokens(tt.text)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokens(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestAnalyzer_Terms(t *testing.T) {
	a := NewAnalyzer(1, 2, 2)
	got := a.Terms("red running shoe")
	want := []string{"red", "running", "shoe", "red running", "running shoe"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Terms = %v, want %v", got, want)
	}

	bigramsOnly := NewAnalyzer(2, 2, 2)
	got = bigramsOnly.Terms("red running shoe")
	want = []string{"red running", "running shoe"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("bigram Terms = %v, want %v", got, want)
	}

	if terms := a.Terms("x"); terms != nil {
		t.Errorf("expected nil terms, got %v", terms)
	}
}

func TestNewAnalyzer_FixesBounds(t *testing.T) {
	a := NewAnalyzer(0, 0, 0)
	if a.ngramMin != 1 || a.ngramMax != 1 || a.minTokenLength != 1 {
		t.Errorf("bounds not fixed: %+v", a)
	}
}
