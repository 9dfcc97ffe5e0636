// Package search is the embeddable search engine: register model
// descriptors, index documents, and query them with boolean, phrase, range
// and wildcard syntax ranked by BM25, with facets, highlighting, spelling
// suggestions and more-like-this retrieval.
//
// An Engine is safe for concurrent use. Writes are serialised; searches
// run concurrently against a consistent view of the index.
package search

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/schema"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/spelling"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/searchcore/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/metrics"
)

type Engine struct {
	cfg config.Config
	// id scopes cache keys to this engine instance.
	id  string
	idx *index.MemoryIndex

	// writeMu serialises Register, Update, Remove, Clear and Persist.
	writeMu sync.Mutex

	mu       sync.RWMutex
	descs    map[string]Descriptor
	docField string
	table    *schema.Table

	speller    *spelling.Speller
	cacheStore cache.Store
	cache      *cache.QueryCache
	writer     *segment.Writer
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New creates an empty engine.
func New(cfg config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, "invalid config: %v", err)
	}
	e := &Engine{
		cfg:    cfg,
		id:     uuid.NewString(),
		idx:    index.NewMemoryIndex(),
		descs:  make(map[string]Descriptor),
		writer: segment.NewWriter(cfg.Engine.DataDir),
		logger: slog.Default().With("component", "search-engine"),
	}
	for _, opt := range opts {
		opt(e)
	}

	speller, err := spelling.New(cfg.Spelling.MaxEditDistance, cfg.Spelling.CacheSize, e.metrics, e.logger)
	if err != nil {
		return nil, err
	}
	e.speller = speller

	if e.cacheStore == nil {
		switch cfg.Cache.Backend {
		case "memory":
			e.cacheStore = cache.NewMemoryStore(cfg.Cache.Size, cfg.Cache.TTL)
		case "redis":
			return nil, apperrors.New(apperrors.ErrInvalidInput, "cache.backend redis needs a store passed with WithCache")
		}
	}
	if e.cacheStore != nil {
		e.cache = cache.New(e.cacheStore, cfg.Cache, e.metrics, e.logger)
	}

	e.logger.Info("engine created",
		"engine_id", e.id,
		"cache", cfg.Cache.Backend,
		"spelling", cfg.Spelling.Enabled,
	)
	return e, nil
}

// Open creates an engine and loads the newest snapshot in engine.dataDir,
// if there is one.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*Engine, error) {
	e, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := e.load(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// Register adds or replaces model descriptors and rebuilds the schema from
// every registered model. On error nothing changes.
func (e *Engine) Register(descs ...Descriptor) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	return e.registerLocked(descs...)
}

func (e *Engine) registerLocked(descs ...Descriptor) error {
	plan, err := e.planSchema(descs...)
	if err != nil {
		return err
	}
	e.commitSchema(plan)
	return nil
}

// schemaPlan is a rebuilt schema that has not been published yet.
type schemaPlan struct {
	descs    map[string]Descriptor
	docField string
	table    *schema.Table
	changed  bool
}

// planSchema merges descs into the registered descriptors and builds the
// resulting table without touching engine state.
func (e *Engine) planSchema(descs ...Descriptor) (*schemaPlan, error) {
	e.mu.RLock()
	plan := &schemaPlan{
		descs:    make(map[string]Descriptor, len(e.descs)+len(descs)),
		docField: e.docField,
		table:    e.table,
	}
	for model, d := range e.descs {
		plan.descs[model] = d
	}
	e.mu.RUnlock()

	for _, d := range descs {
		if d.Model == "" {
			return nil, apperrors.SchemaError("descriptor needs a model name")
		}
		if prev, ok := plan.descs[d.Model]; !ok || !prev.equal(d) {
			plan.changed = true
		}
		plan.descs[d.Model] = d
	}
	if !plan.changed {
		return plan, nil
	}

	var defs []schema.Definition
	for _, model := range sortedKeys(plan.descs) {
		defs = append(defs, plan.descs[model].Fields...)
	}
	docField, table, err := BuildSchema(defs)
	if err != nil {
		return nil, err
	}
	plan.docField, plan.table = docField, table
	return plan, nil
}

func (e *Engine) commitSchema(plan *schemaPlan) {
	if !plan.changed {
		return
	}
	e.mu.Lock()
	e.descs = plan.descs
	e.docField = plan.docField
	e.table = plan.table
	e.mu.Unlock()

	e.logger.Info("schema rebuilt",
		"models", len(plan.descs),
		"document_field", plan.docField,
		"columns", plan.table.Len(),
	)
}

// BuildSchema assigns slots to a set of field definitions: "id" at slot 0,
// then every indexed field by ascending name.
func BuildSchema(defs []schema.Definition) (string, *schema.Table, error) {
	return schema.Build(defs)
}

// Schema returns the current document field and slot table. Both are empty
// before the first Register.
func (e *Engine) Schema() (string, *schema.Table) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.docField, e.table
}

// Models lists the registered model names.
func (e *Engine) Models() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return sortedKeys(e.descs)
}

// ParseQuery parses s against the current schema and index vocabulary.
func (e *Engine) ParseQuery(s string) (query.Query, error) {
	_, table := e.Schema()
	if table == nil {
		return nil, apperrors.SchemaError("no models registered")
	}
	var q query.Query
	err := e.idx.View(func(v *index.View) error {
		var err error
		q, err = e.parser(table, v).Parse(s)
		return err
	})
	return q, err
}

func (e *Engine) parser(table *schema.Table, v *index.View) *parser.Parser {
	return parser.New(table, v, parser.Options{
		WildcardOperator: e.cfg.Search.WildcardOperator,
		MaxExpansion:     e.cfg.Search.MaxWildcardExpansion,
	})
}

// DocumentCount is the number of indexed documents.
func (e *Engine) DocumentCount() int {
	return e.idx.DocumentCount()
}

// Close writes a snapshot when engine.snapshotOnClose is set.
func (e *Engine) Close() error {
	if !e.cfg.Engine.SnapshotOnClose {
		return nil
	}
	_, err := e.Persist(context.Background())
	return err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
