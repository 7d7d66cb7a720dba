package featurizer

import (
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

// Analyzer splits text into word tokens and expands them into n-gram terms.
type Analyzer struct {
	tokenizer      analysis.Tokenizer
	lower          analysis.TokenFilter
	ngramMin       int
	ngramMax       int
	minTokenLength int
}

// NewAnalyzer returns an analyzer producing n-grams for n in [ngramMin, ngramMax].
// Tokens shorter than minTokenLength runes are discarded before n-grams are formed.
func NewAnalyzer(ngramMin, ngramMax, minTokenLength int) *Analyzer {
	if ngramMin < 1 {
		ngramMin = 1
	}
	if ngramMax < ngramMin {
		ngramMax = ngramMin
	}
	if minTokenLength < 1 {
		minTokenLength = 1
	}
	return &Analyzer{
		tokenizer:      unicode.NewUnicodeTokenizer(),
		lower:          lowercase.NewLowerCaseFilter(),
		ngramMin:       ngramMin,
		ngramMax:       ngramMax,
		minTokenLength: minTokenLength,
	}
}

// Tokens returns the lower-cased word tokens of text in order.
func (a *Analyzer) Tokens(text string) []string {
	if text == "" {
		return nil
	}
	stream := a.lower.Filter(a.tokenizer.Tokenize([]byte(text)))
	tokens := make([]string, 0, len(stream))
	for _, tok := range stream {
		if utf8.RuneCount(tok.Term) < a.minTokenLength {
			continue
		}
		tokens = append(tokens, string(tok.Term))
	}
	return tokens
}

// Terms returns every n-gram of text's tokens, shortest n first, each joined by a single space.
func (a *Analyzer) Terms(text string) []string {
	tokens := a.Tokens(text)
	if len(tokens) == 0 {
		return nil
	}
	var terms []string
	if a.ngramMin == 1 {
		terms = append(terms, tokens...)
	}
	for n := max(a.ngramMin, 2); n <= a.ngramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			terms = append(terms, strings.Join(tokens[i:i+n], " "))
		}
	}
	return terms
}
