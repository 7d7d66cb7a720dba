// Package recommend trains model generations over the catalog and answers cart recommendation requests.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hyperjump/kaimono/internal/config"
	"github.com/hyperjump/kaimono/internal/featurizer"
	"github.com/hyperjump/kaimono/internal/metrics"
	"github.com/hyperjump/kaimono/internal/models"
	"github.com/hyperjump/kaimono/pkg/utils"
)

// CatalogSource provides the active catalog for training.
type CatalogSource interface {
	ListActiveProducts(ctx context.Context) ([]*models.Product, error)
}

// Engine owns the active model generation and serves recommendations from it.
// Readers load the generation pointer once per request; training publishes a
// fully built generation with a single store.
type Engine struct {
	source  CatalogSource
	config  *config.Config
	current atomic.Pointer[Generation]
	flight  singleflight.Group
	cache   *ResultCache
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	state    State
	lastErr  error
	failedAt time.Time

	runMu   sync.Mutex
	running *trainRun
	pending *trainRun
}

// trainRun is one training pass; done closes once gen and err are set.
type trainRun struct {
	done chan struct{}
	gen  *Generation
	err  error
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithClock replaces time.Now for retry backoff decisions.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine in the uninitialized state. cfg must have defaults applied.
func NewEngine(source CatalogSource, cfg *config.Config, opts ...EngineOption) *Engine {
	e := &Engine{
		source: source,
		config: cfg,
		cache:  NewResultCache(cfg.Recommend.CacheSize),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Generation returns the active generation, or nil before the first successful train.
func (e *Engine) Generation() *Generation {
	return e.current.Load()
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Train rebuilds the model from the catalog. A call made while a run is in
// flight waits for a follow-up run that reads the catalog after the current one
// finishes; all calls queued behind the same run share it.
// The run continues if ctx is cancelled; only the wait is abandoned.
func (e *Engine) Train(ctx context.Context) (*Generation, error) {
	return e.wait(ctx, e.schedule(true))
}

// coldStart trains when no generation exists yet. Concurrent callers share one
// run, and an in-flight run is joined rather than queued behind.
func (e *Engine) coldStart(ctx context.Context) (*Generation, error) {
	ch := e.flight.DoChan("cold-start", func() (any, error) {
		if g := e.current.Load(); g != nil {
			return g, nil
		}
		run := e.schedule(false)
		<-run.done
		return run.gen, run.err
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Generation), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Engine) wait(ctx context.Context, run *trainRun) (*Generation, error) {
	select {
	case <-run.done:
		return run.gen, run.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// schedule returns the run a caller should wait on. With fresh set, a caller
// arriving mid-run gets the queued follow-up run instead of the in-flight one.
func (e *Engine) schedule(fresh bool) *trainRun {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.running == nil {
		e.running = &trainRun{done: make(chan struct{})}
		go e.execute(e.running)
		return e.running
	}
	if !fresh {
		return e.running
	}
	if e.pending == nil {
		e.pending = &trainRun{done: make(chan struct{})}
	}
	return e.pending
}

func (e *Engine) execute(run *trainRun) {
	for run != nil {
		run.gen, run.err = e.train(context.Background())
		close(run.done)

		e.runMu.Lock()
		run, e.pending = e.pending, nil
		e.running = run
		e.runMu.Unlock()
	}
}

func (e *Engine) train(ctx context.Context) (*Generation, error) {
	e.mu.Lock()
	e.state = StateTraining
	e.mu.Unlock()

	start := time.Now()
	gen, err := e.build(ctx)
	metrics.TrainingDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TrainingRunsTotal.WithLabelValues("failure").Inc()
		e.fail(err)
		return nil, err
	}
	metrics.TrainingRunsTotal.WithLabelValues("success").Inc()
	e.publish(gen)
	return gen, nil
}

func (e *Engine) build(ctx context.Context) (*Generation, error) {
	products, err := e.source.ListActiveProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	gen, err := BuildGeneration(ctx, products, BuildOptions{
		Featurizer: featurizer.Options{
			MaxFeatures:    e.config.Featurizer.MaxFeatures,
			NGramMin:       e.config.Featurizer.NGramMin,
			NGramMax:       e.config.Featurizer.NGramMax,
			MinTokenLength: e.config.Featurizer.MinTokenLength,
			Workers:        e.config.Featurizer.Workers,
		},
		IndexType:    e.config.Index.Type,
		IndexWorkers: e.config.Index.Workers,
	})
	if err != nil {
		return nil, err
	}
	if n := gen.Snapshot.Dropped(); n > 0 {
		e.logger.Warn("catalog rows dropped (missing or duplicate id)", zap.Int("dropped", n))
	}
	return gen, nil
}

func (e *Engine) publish(gen *Generation) {
	e.current.Store(gen)
	e.cache.Purge()

	e.mu.Lock()
	e.state = StateReady
	e.lastErr = nil
	e.mu.Unlock()

	metrics.GenerationProducts.Set(float64(gen.Snapshot.Len()))
	metrics.GenerationVocabulary.Set(float64(gen.Vectorizer.Dimensions()))
	e.logger.Info("model generation published",
		zap.String("generation", gen.ID),
		zap.Int("products", gen.Snapshot.Len()),
		zap.Int("vocabulary", gen.Vectorizer.Dimensions()),
		zap.Duration("duration", gen.Duration),
	)
}

func (e *Engine) fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastErr = err
	e.failedAt = e.now()
	if e.current.Load() != nil {
		e.state = StateReady
		e.logger.Warn("retrain failed; keeping previous generation", zap.Error(err))
		return
	}
	e.state = StateFailed
	e.logger.Error("training failed", zap.Error(err))
}

// ensureGeneration returns the active generation, training on cold start when allowed.
func (e *Engine) ensureGeneration(ctx context.Context) (*Generation, error) {
	if g := e.current.Load(); g != nil {
		return g, nil
	}
	if !e.config.Recommend.LazyTrainOrDefault() {
		return nil, fmt.Errorf("%w: no trained model", ErrNotReady)
	}

	e.mu.Lock()
	state, lastErr, failedAt := e.state, e.lastErr, e.failedAt
	e.mu.Unlock()
	if state == StateFailed && e.now().Sub(failedAt) < e.config.Recommend.RetryBackoff {
		return nil, fmt.Errorf("%w: %w", ErrNotReady, lastErr)
	}

	g, err := e.coldStart(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	return g, nil
}

// Recommend returns up to limit catalog products most similar to the cart, excluding cart items.
// Unknown cart IDs are ignored; a cart with no known IDs yields an empty result.
func (e *Engine) Recommend(ctx context.Context, cartProductIDs []string, limit int) ([]*models.Recommendation, error) {
	recs, _, err := e.recommend(ctx, cartProductIDs, limit)
	return recs, err
}

// RecommendCart answers a cart request with response metadata attached.
func (e *Engine) RecommendCart(ctx context.Context, req *models.CartRequest) (*models.RecommendationData, error) {
	start := time.Now()
	recs, gen, err := e.recommend(ctx, req.ProductIDs, req.Limit)
	if err != nil {
		return nil, err
	}
	data := &models.RecommendationData{
		Recommendations: recs,
		Total:           len(recs),
		QueryTime:       time.Since(start).Milliseconds(),
	}
	if gen != nil {
		data.Generation = gen.ID
	}
	return data, nil
}

func (e *Engine) recommend(ctx context.Context, cartProductIDs []string, limit int) (recs []*models.Recommendation, gen *Generation, err error) {
	start := time.Now()
	defer func() {
		metrics.RecommendDuration.Observe(time.Since(start).Seconds())
		result := "ok"
		switch {
		case errors.Is(err, ErrNotReady):
			result = "not_ready"
		case err != nil:
			result = "error"
		case len(recs) == 0:
			result = "empty"
		}
		metrics.RecommendRequestsTotal.WithLabelValues(result).Inc()
	}()

	limit = e.clampLimit(limit)
	cart := utils.DedupeStrings(cartProductIDs)

	gen, err = e.ensureGeneration(ctx)
	if err != nil {
		return nil, nil, err
	}
	recs, err = e.recommendFrom(ctx, gen, cart, limit)
	return recs, gen, err
}

func (e *Engine) recommendFrom(ctx context.Context, gen *Generation, cart []string, limit int) ([]*models.Recommendation, error) {
	snapshot := gen.Snapshot
	if snapshot.Len() == 0 {
		return []*models.Recommendation{}, nil
	}
	resolved := snapshot.Resolve(cart)
	if len(resolved) == 0 {
		return []*models.Recommendation{}, nil
	}
	slices.Sort(resolved)

	key := cacheKey(gen.ID, resolved, limit)
	if cached, ok := e.cache.Get(key); ok {
		metrics.ResultCacheTotal.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.ResultCacheTotal.WithLabelValues("miss").Inc()

	cartVectors := make([]featurizer.SparseVector, len(resolved))
	inCart := make(map[int]struct{}, len(resolved))
	for i, idx := range resolved {
		cartVectors[i] = gen.Vectors[idx]
		inCart[idx] = struct{}{}
	}
	query := featurizer.Mean(cartVectors)

	k := min(e.config.Index.MaxNeighbors, snapshot.Len())
	neighbors, err := gen.Index.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	recs := make([]*models.Recommendation, 0, min(limit, len(neighbors)))
	for _, n := range neighbors {
		if _, skip := inCart[n.Index]; skip {
			continue
		}
		p := snapshot.Product(n.Index)
		recs = append(recs, &models.Recommendation{
			ProductID: p.ID,
			Score:     utils.Round(1-n.Distance, 4),
			Reason:    e.config.Recommend.Reason,
			Product:   p.Summary(),
		})
		if len(recs) == limit {
			break
		}
	}
	e.cache.Set(key, recs)
	return recs, nil
}

func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 {
		return e.config.Recommend.DefaultLimit
	}
	return min(limit, e.config.Recommend.MaxLimit)
}

func cacheKey(generation string, resolved []int, limit int) string {
	var b strings.Builder
	b.WriteString(generation)
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(limit))
	for _, idx := range resolved {
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(idx))
	}
	return b.String()
}

// Status is a point-in-time view of the engine for operators.
type Status struct {
	State            string        `json:"state"`
	Generation       string        `json:"generation,omitempty"`
	TrainedAt        time.Time     `json:"trained_at"`
	TrainingDuration time.Duration `json:"training_duration_ns,omitempty"`
	Products         int           `json:"products"`
	Vocabulary       int           `json:"vocabulary"`
	IndexType        string        `json:"index_type"`
	LastError        string        `json:"last_error,omitempty"`
	CachedResults    int           `json:"cached_results"`
}

// Status reports the lifecycle state and the active generation's shape.
func (e *Engine) Status() Status {
	e.mu.Lock()
	st := Status{State: e.state.String(), IndexType: e.config.Index.Type}
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	e.mu.Unlock()

	if g := e.current.Load(); g != nil {
		st.Generation = g.ID
		st.TrainedAt = g.TrainedAt
		st.TrainingDuration = g.Duration
		st.Products = g.Snapshot.Len()
		st.Vocabulary = g.Vectorizer.Dimensions()
		st.IndexType = g.Index.Type()
	}
	st.CachedResults = e.cache.Len()
	return st
}

// Close releases the active generation.
func (e *Engine) Close() error {
	if g := e.current.Swap(nil); g != nil {
		return g.Index.Close()
	}
	return nil
}
