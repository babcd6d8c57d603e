package forecast

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"GapCast/internal/domain/models"
	domrepo "GapCast/internal/domain/repository"
	"GapCast/pkg/util"
)

// Base feature column names; auxiliary index sources carry an idx_<CODE>_ prefix.
var featureColNames = []string{
	"news_count", "pos_count", "neg_count", "neu_count", "mean_sent", "sum_sent",
}

// FeatureBuilder turns raw time-stamped news records into daily aggregated
// sentiment features per symbol and per auxiliary market index.
type FeatureBuilder struct {
	news domrepo.NewsStore
}

func NewFeatureBuilder(news domrepo.NewsStore) *FeatureBuilder {
	return &FeatureBuilder{news: news}
}

// BuildNewsFeatures returns a frame with one row per ICT calendar day in
// [startTs, endTs]. Days with no news hold explicit zero rows (when
// reindexFull), never absent rows, and the column schema is stable even when
// no records match at all.
func (b *FeatureBuilder) BuildNewsFeatures(ctx context.Context, symbol string, startTs, endTs int64, addIndex []string, reindexFull bool) (*Frame, error) {
	sym := strings.ToUpper(symbol)

	recs, err := b.news.ScrollBySymbol(ctx, sym, startTs, endTs)
	if err != nil {
		return nil, fmt.Errorf("scroll news for %s: %w", sym, err)
	}
	out := aggByDay(recs, "")

	for _, code := range addIndex {
		code = strings.ToUpper(code)
		idxRecs, err := b.news.ScrollByIndex(ctx, code, startTs, endTs)
		if err != nil {
			return nil, fmt.Errorf("scroll index news for %s: %w", code, err)
		}
		idxFrame := aggByDay(idxRecs, "idx_"+code+"_")
		out = outerJoin(out, idxFrame)
	}

	if reindexFull {
		out = out.Reindex(util.DayRange(startTs, endTs))
	}
	return out, nil
}

// aggByDay deduplicates by (day, rootID) keep-first, then aggregates counts
// and sentiment per day. Sentiment is clamped to [-1, 1] before aggregation.
func aggByDay(recs []models.NewsRecord, prefix string) *Frame {
	type dayAgg struct {
		count, pos, neg, neu float64
		sumSent              float64
	}
	seen := make(map[string]struct{})
	aggs := make(map[int64]*dayAgg)
	dayByKey := make(map[int64]time.Time)

	for _, r := range recs {
		if r.TimeTs == 0 {
			continue
		}
		day := r.Day(util.ICT)
		key := dayKey(day)
		if r.RootID != "" {
			dedupKey := fmt.Sprintf("%d|%s", key, r.RootID)
			if _, dup := seen[dedupKey]; dup {
				continue
			}
			seen[dedupKey] = struct{}{}
		}

		a, ok := aggs[key]
		if !ok {
			a = &dayAgg{}
			aggs[key] = a
			dayByKey[key] = day
		}
		a.count++
		switch r.Label {
		case models.LabelPos:
			a.pos++
		case models.LabelNeg:
			a.neg++
		default:
			a.neu++
		}
		a.sumSent += clampPM1(r.Sentiment)
	}

	keys := make([]int64, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	dates := make([]time.Time, len(keys))
	cols := map[string][]float64{}
	for _, name := range featureColNames {
		cols[name] = make([]float64, len(keys))
	}
	for i, k := range keys {
		a := aggs[k]
		dates[i] = dayByKey[k]
		cols["news_count"][i] = a.count
		cols["pos_count"][i] = a.pos
		cols["neg_count"][i] = a.neg
		cols["neu_count"][i] = a.neu
		cols["mean_sent"][i] = a.sumSent / a.count
		cols["sum_sent"][i] = a.sumSent
	}

	f := NewFrame(dates)
	for _, name := range featureColNames {
		f.SetCol(prefix+name, cols[name])
	}
	return f
}

// outerJoin unions two frames on their day index; days absent from one side
// contribute zeros for that side's columns.
func outerJoin(a, b *Frame) *Frame {
	union := make(map[int64]time.Time, a.Len()+b.Len())
	for _, d := range a.Dates {
		union[dayKey(d)] = d
	}
	for _, d := range b.Dates {
		union[dayKey(d)] = d
	}
	keys := make([]int64, 0, len(union))
	for k := range union {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	dates := make([]time.Time, len(keys))
	for i, k := range keys {
		dates[i] = union[k]
	}

	ra := a.Reindex(dates)
	rb := b.Reindex(dates)
	for _, c := range rb.Cols() {
		ra.SetCol(c, rb.Col(c))
	}
	return ra
}

func clampPM1(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}
