package search

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/schema"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/searchcore/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/logger"
)

// Update indexes docs as instances of desc, registering desc when it is
// new or changed. Every document is prepared against the new schema before
// the schema is published or any document applied, so a failing document
// leaves both the schema and the index untouched. Existing documents with the
// same primary key are replaced.
func (e *Engine) Update(ctx context.Context, desc Descriptor, docs []Document) error {
	start := time.Now()
	log := logger.FromContext(ctx).With("component", "search-engine", "model", desc.Model)

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	plan, err := e.planSchema(desc)
	if err != nil {
		e.countBatch("error")
		return err
	}
	table := plan.table

	batch := make([]*index.Doc, 0, len(docs))
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		d, err := index.Prepare(table, index.Document{Model: desc.Model, PK: doc.PK, Fields: doc.Fields})
		if err != nil {
			e.countBatch("error")
			log.Warn("batch rejected", "document", i, "pk", doc.PK, "error", err)
			return fmt.Errorf("document %d (pk %q): %w", i, doc.PK, err)
		}
		batch = append(batch, d)
	}

	e.commitSchema(plan)
	added, replaced := e.idx.Update(batch)
	e.invalidate(ctx)

	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.WithLabelValues(desc.Model).Add(float64(added + replaced))
		e.metrics.DocumentCount.Set(float64(e.idx.DocumentCount()))
		e.metrics.OperationLatency.WithLabelValues("update").Observe(time.Since(start).Seconds())
	}
	e.countBatch("ok")
	log.Debug("batch indexed",
		"added", added,
		"replaced", replaced,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Remove deletes one document. Removing an unknown document is a no-op.
func (e *Engine) Remove(ctx context.Context, model, pk string) error {
	if model == "" || pk == "" {
		return apperrors.New(apperrors.ErrInvalidInput, "remove needs a model and a primary key")
	}
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	removed := e.idx.Remove(index.GlobalID(model, pk))
	if removed > 0 {
		e.invalidate(ctx)
	}
	if e.metrics != nil {
		e.metrics.DocsRemovedTotal.WithLabelValues(model).Add(float64(removed))
		e.metrics.DocumentCount.Set(float64(e.idx.DocumentCount()))
	}
	logger.FromContext(ctx).Debug("document removed",
		"component", "search-engine",
		"id", index.GlobalID(model, pk),
		"found", removed > 0,
	)
	return nil
}

// Clear removes every document, or only the documents of models.
func (e *Engine) Clear(ctx context.Context, models ...string) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	removed := e.idx.Clear(models...)
	e.invalidate(ctx)
	if e.metrics != nil {
		label := "*"
		if len(models) == 1 {
			label = models[0]
		}
		e.metrics.DocsRemovedTotal.WithLabelValues(label).Add(float64(removed))
		e.metrics.DocumentCount.Set(float64(e.idx.DocumentCount()))
	}
	e.logger.Info("index cleared", "models", models, "removed", removed)
	return nil
}

// invalidate drops cached pages. Keys carry the index generation, so this
// only reclaims space; a failure is logged and ignored.
func (e *Engine) invalidate(ctx context.Context) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Invalidate(ctx); err != nil {
		e.logger.Warn("cache invalidation failed", "error", err)
	}
}

func (e *Engine) countBatch(status string) {
	if e.metrics != nil {
		e.metrics.IndexBatchesTotal.WithLabelValues(status).Inc()
	}
}

// Persist writes a snapshot of every registered model and document into
// engine.dataDir and prunes old snapshots beyond engine.keepSnapshots.
func (e *Engine) Persist(ctx context.Context) (string, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	snap, err := e.snapshot()
	if err != nil {
		e.countSnapshot("write", "error")
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := e.writer.Write(snap)
	if err != nil {
		e.countSnapshot("write", "error")
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	e.countSnapshot("write", "ok")

	if keep := e.cfg.Engine.KeepSnapshots; keep > 0 {
		pruned, err := segment.Prune(e.cfg.Engine.DataDir, keep)
		if err != nil {
			e.logger.Warn("pruning snapshots failed", "error", err)
		} else if pruned > 0 {
			e.logger.Debug("old snapshots pruned", "count", pruned)
		}
	}
	e.logger.Info("snapshot written",
		"path", path,
		"documents", len(snap.Records),
		"generation", snap.Generation,
	)
	return path, nil
}

func (e *Engine) snapshot() (*segment.Snapshot, error) {
	e.mu.RLock()
	snap := &segment.Snapshot{}
	for _, model := range sortedKeys(e.descs) {
		d := e.descs[model]
		snap.Descriptors = append(snap.Descriptors, segment.Descriptor{Model: d.Model, Fields: d.Fields})
	}
	table := e.table
	e.mu.RUnlock()

	err := e.idx.View(func(v *index.View) error {
		snap.Generation = v.Generation()
		var err error
		v.Each(func(_ uint32, d *index.Doc) bool {
			rec := segment.Record{Model: d.Model, PK: d.PK, Fields: make(map[string][][]byte, len(d.Fields))}
			for name, value := range d.Fields {
				def, ok := table.Definition(name)
				if !ok {
					err = apperrors.UnknownField(name)
					return false
				}
				encoded, merr := def.Marshal(value)
				if merr != nil {
					err = merr
					return false
				}
				raw := make([][]byte, len(encoded))
				for i, enc := range encoded {
					raw[i] = []byte(enc)
				}
				rec.Fields[name] = raw
			}
			snap.Records = append(snap.Records, rec)
			return true
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("building snapshot: %w", err)
	}
	return snap, nil
}

func (e *Engine) load(ctx context.Context) error {
	snap, path, err := segment.Latest(e.cfg.Engine.DataDir)
	if err != nil {
		e.countSnapshot("load", "error")
		return fmt.Errorf("loading snapshot %s: %w", path, err)
	}
	if snap == nil {
		e.logger.Info("no snapshot found, starting empty", "dir", e.cfg.Engine.DataDir)
		return nil
	}

	descs := make(map[string]Descriptor, len(snap.Descriptors))
	for _, d := range snap.Descriptors {
		descs[d.Model] = Descriptor{Model: d.Model, Fields: d.Fields}
		if err := e.Register(descs[d.Model]); err != nil {
			e.countSnapshot("load", "error")
			return fmt.Errorf("registering %s from snapshot: %w", d.Model, err)
		}
	}
	_, table := e.Schema()

	// Consecutive records of one model go in one batch so document numbers
	// keep their original order.
	var (
		model string
		batch []Document
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		desc, ok := descs[model]
		if !ok {
			return apperrors.SchemaError("snapshot has documents of unregistered model %q", model)
		}
		err := e.Update(ctx, desc, batch)
		batch = nil
		return err
	}
	for _, rec := range snap.Records {
		doc, err := decodeRecord(table, rec)
		if err != nil {
			e.countSnapshot("load", "error")
			return fmt.Errorf("decoding %s.%s: %w", rec.Model, rec.PK, err)
		}
		if rec.Model != model {
			if err := flush(); err != nil {
				e.countSnapshot("load", "error")
				return err
			}
			model = rec.Model
		}
		batch = append(batch, doc)
	}
	if err := flush(); err != nil {
		e.countSnapshot("load", "error")
		return err
	}
	e.countSnapshot("load", "ok")
	e.logger.Info("snapshot loaded",
		"path", path,
		"models", len(descs),
		"documents", len(snap.Records),
	)
	return nil
}

func decodeRecord(table *schema.Table, rec segment.Record) (Document, error) {
	doc := Document{PK: rec.PK, Fields: make(map[string]any, len(rec.Fields))}
	for name, raw := range rec.Fields {
		def, ok := table.Definition(name)
		if !ok {
			return Document{}, apperrors.UnknownField(name)
		}
		encoded := make([]string, len(raw))
		for i, b := range raw {
			encoded[i] = string(b)
		}
		v, err := def.Unmarshal(encoded)
		if err != nil {
			return Document{}, err
		}
		doc.Fields[name] = v
	}
	return doc, nil
}

func (e *Engine) countSnapshot(op, status string) {
	if e.metrics != nil {
		e.metrics.SnapshotsTotal.WithLabelValues(op, status).Inc()
	}
}
