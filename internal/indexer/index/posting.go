package index

import "github.com/RoaringBitmap/roaring/v2"

// Kind classifies a term by how it was generated.
type Kind uint8

const (
	// KindWord is an unprefixed lower-cased word.
	KindWord Kind = iota
	// KindStem is "Z" + stem of a word.
	KindStem
	// KindField is a field-scoped word or encoded value, "X<FIELD>...".
	KindField
	// KindFieldStem is "ZX<FIELD>" + stem.
	KindFieldStem
	// KindIdentifier covers Q<id>, XID<pk> and XCONTENTTYPE<model>.
	KindIdentifier
)

const (
	StemPrefix       = "Z"
	IDTermPrefix     = "Q"
	PKTermPrefix     = "XID"
	ModelTermPrefix  = "XCONTENTTYPE"
	fieldPositionGap = 100
)

// Posting records one document's occurrences of a term. Weight is the sum
// of the field boosts of every occurrence.
type Posting struct {
	Doc       uint32
	Weight    float64
	Positions []uint32
}

// TermHit is a term's contribution from a single document.
type TermHit struct {
	Kind      Kind
	Field     string
	Weight    float64
	Positions []uint32
}

type termEntry struct {
	kind     Kind
	field    string
	postings map[uint32]*Posting
	docs     *roaring.Bitmap
}
