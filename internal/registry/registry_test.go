package registry

import (
	"os"
	"path/filepath"
	"testing"

	"GapCast/internal/domain/models"
	"GapCast/internal/forecast"

	"github.com/stretchr/testify/require"
)

func sampleModel() *forecast.Model {
	return &forecast.Model{
		Order:  [3]int{1, 0, 1},
		Trend:  forecast.TrendConst,
		Params: forecast.Params{Const: 0.001, Phi: []float64{0.42}, Theta: []float64{-0.1}},
		Sigma2: 2.5e-4,
		AIC:    -812.3,
		N:      240,
		YTail:  []float64{0.004},
		ETail:  []float64{-0.002},
		Dates:  []string{"2026-03-03", "2026-03-04"},
	}
}

func sampleMeta() *models.ModelMeta {
	return &models.ModelMeta{
		Symbol:      "VNM",
		Order:       [3]int{1, 0, 1},
		Trend:       "c",
		UseExog:     true,
		FeatureCols: []string{"news_count", "ret_lag1"},
		Scaler: map[string]models.ScalerStat{
			"news_count": {Mu: 2.1, Sd: 1.4},
			"ret_lag1":   {Mu: 0.0003, Sd: 0.011},
		},
		TrainLen: 240,
		Target:   "gap_ret",
	}
}

func TestFileRegistryRoundTrip(t *testing.T) {
	reg, err := NewFileRegistry(t.TempDir(), nil, nil)
	require.NoError(t, err)

	mpath, jpath, err := reg.Save("vnm", "gap", sampleModel(), sampleMeta())
	require.NoError(t, err)
	require.Equal(t, "VNM_gap.model.json", filepath.Base(mpath))
	require.Equal(t, "VNM_gap.json", filepath.Base(jpath))

	raw, meta, err := reg.Load("VNM", "gap")
	require.NoError(t, err)

	got, ok := raw.(*forecast.Model)
	require.True(t, ok)
	require.Equal(t, sampleModel(), got)
	require.Equal(t, sampleMeta(), meta)
}

func TestFileRegistrySymbolCaseInsensitive(t *testing.T) {
	reg, err := NewFileRegistry(t.TempDir(), nil, nil)
	require.NoError(t, err)

	_, _, err = reg.Save("fpt", "gap", sampleModel(), sampleMeta())
	require.NoError(t, err)

	raw, _, err := reg.Load("fpt", "gap")
	require.NoError(t, err)
	require.NotNil(t, raw)
}

func TestFileRegistryAbsenceIsNotAnError(t *testing.T) {
	reg, err := NewFileRegistry(t.TempDir(), nil, nil)
	require.NoError(t, err)

	raw, meta, err := reg.Load("HPG", "gap")
	require.NoError(t, err)
	require.Nil(t, raw)
	require.Nil(t, meta)
}

func TestFileRegistryMissingMetaIsAbsence(t *testing.T) {
	dir := t.TempDir()
	reg, err := NewFileRegistry(dir, nil, nil)
	require.NoError(t, err)

	_, jpath, err := reg.Save("VNM", "gap", sampleModel(), sampleMeta())
	require.NoError(t, err)
	require.NoError(t, os.Remove(jpath))

	raw, meta, err := reg.Load("VNM", "gap")
	require.NoError(t, err)
	require.Nil(t, raw)
	require.Nil(t, meta)
}

func TestFileRegistryCorruptBlobErrors(t *testing.T) {
	dir := t.TempDir()
	reg, err := NewFileRegistry(dir, nil, nil)
	require.NoError(t, err)

	mpath, _, err := reg.Save("VNM", "gap", sampleModel(), sampleMeta())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(mpath, []byte("{not json"), 0o644))

	_, _, err = reg.Load("VNM", "gap")
	require.Error(t, err)
}

func TestJSONModelSerializerRejectsForeignTypes(t *testing.T) {
	_, err := JSONModelSerializer{}.Serialize("not a model")
	require.Error(t, err)
}
