package index

import (
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// MemoryIndex is the document store: postings, per-term and per-model doc
// sets, stored documents and a sorted lexicon. One writer applies prepared
// batches under the write lock; readers work inside View.
type MemoryIndex struct {
	mu          sync.RWMutex
	docs        map[uint32]*Doc
	byID        map[string]uint32
	nextDoc     uint32
	terms       map[string]*termEntry
	lexicon     []string
	stale       bool
	live        *roaring.Bitmap
	models      map[string]*roaring.Bitmap
	totalLength float64
	generation  uint64
}

func NewMemoryIndex() *MemoryIndex {
	m := &MemoryIndex{}
	m.resetLocked()
	return m
}

func (m *MemoryIndex) resetLocked() {
	m.docs = make(map[uint32]*Doc)
	m.byID = make(map[string]uint32)
	m.nextDoc = 0
	m.terms = make(map[string]*termEntry)
	m.lexicon = nil
	m.stale = false
	m.live = roaring.New()
	m.models = make(map[string]*roaring.Bitmap)
	m.totalLength = 0
}

// Update applies a batch of prepared documents. A document whose ID is
// already present is replaced in place and keeps its document number.
// It returns how many documents were new and how many replaced.
func (m *MemoryIndex) Update(batch []*Doc) (added, replaced int) {
	if len(batch) == 0 {
		return 0, 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range batch {
		num, exists := m.byID[d.ID]
		if exists {
			m.removeLocked(num)
			replaced++
		} else {
			num = m.nextDoc
			m.nextDoc++
			added++
		}
		m.insertLocked(num, d)
	}
	m.commitLocked()
	return added, replaced
}

// Remove deletes documents by global ID. Unknown IDs are ignored.
func (m *MemoryIndex) Remove(ids ...string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for _, id := range ids {
		if num, ok := m.byID[id]; ok {
			m.removeLocked(num)
			removed++
		}
	}
	if removed > 0 {
		m.commitLocked()
	}
	return removed
}

// Clear removes every document, or only those of the given models.
func (m *MemoryIndex) Clear(models ...string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(models) == 0 {
		n := len(m.docs)
		m.resetLocked()
		m.generation++
		return n
	}
	removed := 0
	for _, model := range models {
		bm, ok := m.models[model]
		if !ok {
			continue
		}
		for _, num := range bm.ToArray() {
			m.removeLocked(num)
			removed++
		}
	}
	if removed > 0 {
		m.commitLocked()
	}
	return removed
}

func (m *MemoryIndex) DocumentCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// Generation increases with every committed change.
func (m *MemoryIndex) Generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation
}

// View runs fn with the read lock held. Everything reachable from the View
// is only valid inside fn.
func (m *MemoryIndex) View(fn func(v *View) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&View{m: m})
}

func (m *MemoryIndex) insertLocked(num uint32, d *Doc) {
	for term, hit := range d.Terms {
		te, ok := m.terms[term]
		if !ok {
			te = &termEntry{
				kind:     hit.Kind,
				field:    hit.Field,
				postings: make(map[uint32]*Posting),
				docs:     roaring.New(),
			}
			m.terms[term] = te
			m.stale = true
		}
		te.postings[num] = &Posting{Doc: num, Weight: hit.Weight, Positions: hit.Positions}
		te.docs.Add(num)
	}
	m.docs[num] = d
	m.byID[d.ID] = num
	m.live.Add(num)
	bm, ok := m.models[d.Model]
	if !ok {
		bm = roaring.New()
		m.models[d.Model] = bm
	}
	bm.Add(num)
	m.totalLength += d.Length
}

func (m *MemoryIndex) removeLocked(num uint32) {
	d, ok := m.docs[num]
	if !ok {
		return
	}
	for term := range d.Terms {
		te, ok := m.terms[term]
		if !ok {
			continue
		}
		delete(te.postings, num)
		te.docs.Remove(num)
		if len(te.postings) == 0 {
			delete(m.terms, term)
			m.stale = true
		}
	}
	delete(m.docs, num)
	delete(m.byID, d.ID)
	m.live.Remove(num)
	if bm, ok := m.models[d.Model]; ok {
		bm.Remove(num)
		if bm.IsEmpty() {
			delete(m.models, d.Model)
		}
	}
	m.totalLength -= d.Length
}

func (m *MemoryIndex) commitLocked() {
	if m.stale {
		lexicon := make([]string, 0, len(m.terms))
		for term := range m.terms {
			lexicon = append(lexicon, term)
		}
		sort.Strings(lexicon)
		m.lexicon = lexicon
		m.stale = false
	}
	m.generation++
}
