package forecast

import (
	"context"
	"testing"
	"time"

	"GapCast/internal/domain/models"
	"GapCast/pkg/util"

	"github.com/stretchr/testify/require"
)

type fakeNewsStore struct {
	bySymbol map[string][]models.NewsRecord
	byIndex  map[string][]models.NewsRecord
}

func (f *fakeNewsStore) ScrollBySymbol(_ context.Context, symbol string, _, _ int64) ([]models.NewsRecord, error) {
	return f.bySymbol[symbol], nil
}

func (f *fakeNewsStore) ScrollByIndex(_ context.Context, code string, _, _ int64) ([]models.NewsRecord, error) {
	return f.byIndex[code], nil
}

func epoch(s string, hh int) int64 {
	d, _ := time.ParseInLocation("2006-01-02", s, util.ICT)
	return d.Add(time.Duration(hh) * time.Hour).Unix()
}

func TestBuildNewsFeaturesAggregation(t *testing.T) {
	store := &fakeNewsStore{bySymbol: map[string][]models.NewsRecord{
		"VNM": {
			{TimeTs: epoch("2026-01-05", 9), Label: models.LabelPos, Sentiment: 0.8, RootID: "a"},
			{TimeTs: epoch("2026-01-05", 10), Label: models.LabelNeg, Sentiment: -0.4, RootID: "b"},
			// syndicated copy of "a" on the same day, must not double count
			{TimeTs: epoch("2026-01-05", 15), Label: models.LabelPos, Sentiment: 0.8, RootID: "a"},
			// out-of-range sentiment clamps to 1
			{TimeTs: epoch("2026-01-07", 11), Label: models.LabelPos, Sentiment: 3.5, RootID: "c"},
		},
	}}
	b := NewFeatureBuilder(store)

	f, err := b.BuildNewsFeatures(context.Background(), "vnm",
		epoch("2026-01-05", 0), epoch("2026-01-07", 23), nil, true)
	require.NoError(t, err)

	// reindexFull gives an explicit row per calendar day
	require.Equal(t, 3, f.Len())

	require.Equal(t, 2.0, f.At(0, "news_count"))
	require.Equal(t, 1.0, f.At(0, "pos_count"))
	require.Equal(t, 1.0, f.At(0, "neg_count"))
	require.InDelta(t, 0.4, f.At(0, "sum_sent"), 1e-12)
	require.InDelta(t, 0.2, f.At(0, "mean_sent"), 1e-12)

	// empty middle day holds explicit zeros
	require.Equal(t, 0.0, f.At(1, "news_count"))

	// clamped single record day
	require.Equal(t, 1.0, f.At(2, "news_count"))
	require.InDelta(t, 1.0, f.At(2, "sum_sent"), 1e-12)
}

func TestBuildNewsFeaturesIndexPrefix(t *testing.T) {
	store := &fakeNewsStore{
		bySymbol: map[string][]models.NewsRecord{
			"FPT": {{TimeTs: epoch("2026-01-05", 9), Label: models.LabelNeu, Sentiment: 0, RootID: "x"}},
		},
		byIndex: map[string][]models.NewsRecord{
			"VNINDEX": {{TimeTs: epoch("2026-01-06", 9), Label: models.LabelPos, Sentiment: 0.5, RootID: "y"}},
		},
	}
	b := NewFeatureBuilder(store)

	f, err := b.BuildNewsFeatures(context.Background(), "FPT",
		epoch("2026-01-05", 0), epoch("2026-01-06", 23), []string{"vnindex"}, true)
	require.NoError(t, err)

	require.True(t, f.Has("news_count"))
	require.True(t, f.Has("idx_VNINDEX_news_count"))

	// index news lands on its own day, zero elsewhere
	require.Equal(t, 0.0, f.At(0, "idx_VNINDEX_news_count"))
	require.Equal(t, 1.0, f.At(1, "idx_VNINDEX_news_count"))
	// symbol news does not bleed into the index columns
	require.Equal(t, 1.0, f.At(0, "news_count"))
	require.Equal(t, 0.0, f.At(1, "news_count"))
}

func TestBuildNewsFeaturesStableSchemaWhenEmpty(t *testing.T) {
	b := NewFeatureBuilder(&fakeNewsStore{})

	f, err := b.BuildNewsFeatures(context.Background(), "HPG",
		epoch("2026-01-05", 0), epoch("2026-01-06", 23), nil, true)
	require.NoError(t, err)

	// no records at all, but the column schema is still there
	for _, c := range []string{"news_count", "pos_count", "neg_count", "neu_count", "mean_sent", "sum_sent"} {
		require.True(t, f.Has(c), "missing column %s", c)
	}
	require.Equal(t, 0.0, f.AbsSum())
}

func TestDedupKeepsRecordsAcrossDays(t *testing.T) {
	// the same root_id republished on a different day is a separate observation
	store := &fakeNewsStore{bySymbol: map[string][]models.NewsRecord{
		"VNM": {
			{TimeTs: epoch("2026-01-05", 9), Label: models.LabelPos, Sentiment: 0.3, RootID: "a"},
			{TimeTs: epoch("2026-01-06", 9), Label: models.LabelPos, Sentiment: 0.3, RootID: "a"},
		},
	}}
	b := NewFeatureBuilder(store)

	f, err := b.BuildNewsFeatures(context.Background(), "VNM",
		epoch("2026-01-05", 0), epoch("2026-01-06", 23), nil, true)
	require.NoError(t, err)
	require.Equal(t, 1.0, f.At(0, "news_count"))
	require.Equal(t, 1.0, f.At(1, "news_count"))
}
