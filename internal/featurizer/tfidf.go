package featurizer

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kaimono/pkg/utils"
)

// Options configures a Vectorizer.
type Options struct {
	MaxFeatures    int
	NGramMin       int
	NGramMax       int
	MinTokenLength int
	// Workers bounds parallel analysis; 0 means GOMAXPROCS.
	Workers int
}

// Vectorizer is a TF-IDF model. It is fitted once and immutable afterwards,
// so a fitted Vectorizer is safe for concurrent Transform calls.
type Vectorizer struct {
	opts       Options
	analyzer   *Analyzer
	vocabulary map[string]int
	terms      []string
	idf        []float64
	fitted     bool
}

var _ Featurizer = (*Vectorizer)(nil)

// NewVectorizer returns an unfitted vectorizer.
func NewVectorizer(opts Options) *Vectorizer {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Vectorizer{
		opts:     opts,
		analyzer: NewAnalyzer(opts.NGramMin, opts.NGramMax, opts.MinTokenLength),
	}
}

// FitTransform learns the vocabulary and idf weights from corpus and returns
// one L2-normalized vector per document, in corpus order.
func (v *Vectorizer) FitTransform(ctx context.Context, corpus []string) ([]SparseVector, error) {
	if v.fitted {
		return nil, ErrAlreadyFitted
	}
	if len(corpus) == 0 {
		return nil, ErrEmptyCorpus
	}

	docTerms, err := v.analyzeAll(ctx, corpus)
	if err != nil {
		return nil, err
	}

	df := make(map[string]int)
	tf := make(map[string]int)
	for _, terms := range docTerms {
		seen := make(map[string]struct{}, len(terms))
		for _, t := range terms {
			tf[t]++
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				df[t]++
			}
		}
	}
	if len(df) == 0 {
		return nil, ErrDegenerateCorpus
	}

	selected := make([]string, 0, len(df))
	for t := range df {
		selected = append(selected, t)
	}
	if v.opts.MaxFeatures > 0 && len(selected) > v.opts.MaxFeatures {
		sort.Slice(selected, func(i, j int) bool {
			if tf[selected[i]] != tf[selected[j]] {
				return tf[selected[i]] > tf[selected[j]]
			}
			return selected[i] < selected[j]
		})
		selected = selected[:v.opts.MaxFeatures]
	}
	sort.Strings(selected)

	n := float64(len(corpus))
	v.terms = selected
	v.vocabulary = make(map[string]int, len(selected))
	v.idf = make([]float64, len(selected))
	for i, t := range selected {
		v.vocabulary[t] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}
	v.fitted = true

	out := make([]SparseVector, len(docTerms))
	for i, terms := range docTerms {
		out[i] = v.weigh(terms)
	}
	return out, nil
}

// Transform maps a single document into the fitted vocabulary space.
// Terms outside the vocabulary are ignored.
func (v *Vectorizer) Transform(doc string) (SparseVector, error) {
	if !v.fitted {
		return SparseVector{}, ErrNotFitted
	}
	return v.weigh(v.analyzer.Terms(doc)), nil
}

// TransformAll maps docs in parallel, preserving order.
func (v *Vectorizer) TransformAll(ctx context.Context, docs []string) ([]SparseVector, error) {
	if !v.fitted {
		return nil, ErrNotFitted
	}
	docTerms, err := v.analyzeAll(ctx, docs)
	if err != nil {
		return nil, err
	}
	out := make([]SparseVector, len(docTerms))
	for i, terms := range docTerms {
		out[i] = v.weigh(terms)
	}
	return out, nil
}

// Dimensions returns the vocabulary size, or 0 before fitting.
func (v *Vectorizer) Dimensions() int {
	return len(v.terms)
}

// Term returns the vocabulary term at index i.
func (v *Vectorizer) Term(i int) string {
	if i < 0 || i >= len(v.terms) {
		return ""
	}
	return v.terms[i]
}

// Index returns the vocabulary index of term.
func (v *Vectorizer) Index(term string) (int, bool) {
	i, ok := v.vocabulary[term]
	return i, ok
}

// IDF returns the idf weight at vocabulary index i.
func (v *Vectorizer) IDF(i int) float64 {
	if i < 0 || i >= len(v.idf) {
		return 0
	}
	return v.idf[i]
}

func (v *Vectorizer) weigh(terms []string) SparseVector {
	counts := make(map[int]float64, len(terms))
	for _, t := range terms {
		if idx, ok := v.vocabulary[t]; ok {
			counts[idx]++
		}
	}
	vec := fromCounts(counts)
	for i, idx := range vec.Indices {
		vec.Values[i] *= v.idf[idx]
	}
	utils.NormalizeL2(vec.Values)
	return vec
}

func (v *Vectorizer) analyzeAll(ctx context.Context, docs []string) ([][]string, error) {
	out := make([][]string, len(docs))
	workers := min(v.opts.Workers, len(docs))
	if workers <= 1 {
		for i, d := range docs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out[i] = v.analyzer.Terms(d)
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	chunk := (len(docs) + workers - 1) / workers
	for start := 0; start < len(docs); start += chunk {
		end := min(start+chunk, len(docs))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				out[i] = v.analyzer.Terms(docs[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analyze corpus: %w", err)
	}
	return out, nil
}
