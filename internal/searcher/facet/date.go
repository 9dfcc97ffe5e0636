package facet

import (
	"context"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/marshal"
	apperrors "github.com/Adithya-Monish-Kumar-K/searchcore/pkg/errors"
)

// LabelLayout formats date bucket labels.
const LabelLayout = "2006-01-02T15:04:05"

// DateFacet buckets Field into gaps of GapAmount GapBy units from Start
// up to End.
type DateFacet struct {
	Field     string
	Start     time.Time
	End       time.Time
	GapBy     string
	GapAmount int
}

// DateBucket counts matches dated in [Start, End).
type DateBucket struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Count int       `json:"count"`
}

func (df DateFacet) step(t time.Time) time.Time {
	n := df.GapAmount
	if n <= 0 {
		n = 1
	}
	switch df.GapBy {
	case "year":
		return t.AddDate(n, 0, 0)
	case "month":
		return t.AddDate(0, n, 0)
	case "day":
		return t.AddDate(0, 0, n)
	case "hour":
		return t.Add(time.Duration(n) * time.Hour)
	case "minute":
		return t.Add(time.Duration(n) * time.Minute)
	}
	return t.Add(time.Duration(n) * time.Second)
}

func (df DateFacet) validate() error {
	switch df.GapBy {
	case "year", "month", "day", "hour", "minute", "second":
	default:
		return apperrors.Newf(apperrors.ErrInvalidInput, "date facet %q: gap must be year, month, day, hour, minute or second, got %q", df.Field, df.GapBy)
	}
	if df.GapAmount < 0 {
		return apperrors.Newf(apperrors.ErrInvalidInput, "date facet %q: negative gap amount", df.Field)
	}
	if !df.End.After(df.Start) {
		return apperrors.Newf(apperrors.ErrInvalidInput, "date facet %q: end must be after start", df.Field)
	}
	return nil
}

// Buckets lays out the empty buckets in ascending order. The last bucket
// is clipped at End.
func (df DateFacet) Buckets() []DateBucket {
	var buckets []DateBucket
	start, end := df.Start.UTC(), df.End.UTC()
	for t := start; t.Before(end); {
		next := df.step(t)
		if next.After(end) {
			next = end
		}
		buckets = append(buckets, DateBucket{Label: t.Format(LabelLayout), Start: t, End: next})
		t = next
	}
	return buckets
}

func (c *Counter) dateFacet(ctx context.Context, v *index.View, matches *roaring.Bitmap, df DateFacet) ([]DateBucket, error) {
	buckets := df.Buckets()
	it := matches.Iterator()
	for n := 1; it.HasNext(); n++ {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		d, ok := v.Doc(it.Next())
		if !ok {
			continue
		}
		for _, enc := range d.Value(df.Field) {
			value, err := marshal.Unmarshal(enc, marshal.Date)
			if err != nil {
				return nil, err
			}
			if i := bucketOf(buckets, value.(time.Time)); i >= 0 {
				buckets[i].Count++
			}
		}
	}
	for i, j := 0, len(buckets)-1; i < j; i, j = i+1, j-1 {
		buckets[i], buckets[j] = buckets[j], buckets[i]
	}
	return buckets, nil
}

func bucketOf(buckets []DateBucket, t time.Time) int {
	for i, b := range buckets {
		if !t.Before(b.Start) && t.Before(b.End) {
			return i
		}
	}
	return -1
}
