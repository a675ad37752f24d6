package reading_test

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/wres/internal/adapters/reading"
	"github.com/okian/wres/internal/domain/timeseries"
	"github.com/okian/wres/pkg/logger"
)

func newReader(t *testing.T) *reading.CSV {
	t.Helper()
	require.NoError(t, logger.InitWithWriter(&bytes.Buffer{}))
	return reading.NewCSV()
}

const forecasts = `feature,variable,unit,reference_time,valid_time,value
DRRC2,QINE,CMS,2021-03-01T12:00:00Z,2021-03-01T18:00:00Z,3.5
DRRC2,QINE,CMS,2021-03-01T12:00:00Z,2021-03-01T13:00:00Z,2
DRRC2,QINE,CMS,2021-03-02T12:00:00Z,2021-03-02T13:00:00Z,
FAKE2,QINE,CMS,2021-03-01T12:00:00Z,2021-03-01T13:00:00Z,7
`

func TestCSV_ReadSingleValued(t *testing.T) {
	r := newReader(t)
	series, err := r.ReadSingleValued(context.Background(), strings.NewReader(forecasts), "fc.csv")
	require.NoError(t, err)
	require.Len(t, series, 3)

	first := series[0]
	meta := first.Metadata()
	assert.Equal(t, "DRRC2", meta.Feature)
	assert.Equal(t, "QINE", meta.Variable)
	assert.Equal(t, "CMS", meta.Unit)
	ref, ok := meta.ReferenceTime(timeseries.T0)
	require.True(t, ok)
	assert.Equal(t, time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC), ref)

	events := first.Events()
	require.Len(t, events, 2)
	assert.Equal(t, 2.0, events[0].Value, "events should be sorted by valid time")
	assert.Equal(t, 3.5, events[1].Value)

	assert.True(t, math.IsNaN(series[1].Events()[0].Value), "an empty value should read as NaN")
	assert.Equal(t, "FAKE2", series[2].Metadata().Feature)
}

func TestCSV_Observations(t *testing.T) {
	r := newReader(t)
	in := "feature,variable,unit,reference_time,valid_time,value\n" +
		"DRRC2,QINE,CMS,,2021-03-01T13:00:00Z,1\n" +
		"DRRC2,QINE,CMS,,2021-03-01T14:00:00Z,2\n"
	series, err := r.ReadSingleValued(context.Background(), strings.NewReader(in), "obs")
	require.NoError(t, err)
	require.Len(t, series, 1)
	_, ok := series[0].Metadata().ReferenceTime(timeseries.T0)
	assert.False(t, ok)
	assert.Equal(t, 2, series[0].Len())
}

func TestCSV_ReadEnsemble(t *testing.T) {
	r := newReader(t)
	in := "feature,variable,unit,reference_time,valid_time,1981,1982,1983\n" +
		"DRRC2,QINE,CMS,2021-03-01T12:00:00Z,2021-03-01T13:00:00Z,1,2,3\n" +
		"DRRC2,QINE,CMS,2021-03-01T12:00:00Z,2021-03-01T14:00:00Z,4,,6\n"
	series, err := r.ReadEnsemble(context.Background(), strings.NewReader(in), "ens")
	require.NoError(t, err)
	require.Len(t, series, 1)

	events := series[0].Events()
	require.Len(t, events, 2)
	assert.Equal(t, []string{"1981", "1982", "1983"}, events[0].Value.Labels())
	assert.Equal(t, []float64{1, 2, 3}, events[0].Value.Members())
	m, ok := events[1].Value.Member("1982")
	require.True(t, ok)
	assert.True(t, math.IsNaN(m))
}

func TestCSV_Errors(t *testing.T) {
	r := newReader(t)
	ctx := context.Background()
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "reading header"},
		{"no value column", "feature,variable,unit,reference_time,valid_time\n", "at least one value column"},
		{"wrong header", "site,variable,unit,reference_time,valid_time,value\n", `column 1 is "site"`},
		{"bad time", "feature,variable,unit,reference_time,valid_time,value\nA,Q,CMS,,yesterday,1\n", "valid_time"},
		{"bad value", "feature,variable,unit,reference_time,valid_time,value\nA,Q,CMS,,2021-03-01T13:00:00Z,x\n", "value column 1"},
		{"empty feature", "feature,variable,unit,reference_time,valid_time,value\n,Q,CMS,,2021-03-01T13:00:00Z,1\n", "empty feature"},
		{"duplicate time", "feature,variable,unit,reference_time,valid_time,value\n" +
			"A,Q,CMS,,2021-03-01T13:00:00Z,1\nA,Q,CMS,,2021-03-01T13:00:00Z,2\n", "duplicate event time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.ReadSingleValued(ctx, strings.NewReader(tt.input), "src")
			require.ErrorIs(t, err, reading.ErrRead)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("ensemble columns as single-valued", func(t *testing.T) {
		in := "feature,variable,unit,reference_time,valid_time,a,b\nA,Q,CMS,,2021-03-01T13:00:00Z,1,2\n"
		_, err := r.ReadSingleValued(ctx, strings.NewReader(in), "src")
		require.ErrorIs(t, err, reading.ErrRead)
		assert.Contains(t, err.Error(), "expected one value column")
	})
}

func TestCSV_Files(t *testing.T) {
	r := newReader(t)
	path := filepath.Join(t.TempDir(), "fc.csv")
	require.NoError(t, os.WriteFile(path, []byte(forecasts), 0o600))

	series, err := r.SingleValuedFile(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, series, 3)

	_, err = r.EnsembleFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	require.ErrorIs(t, err, reading.ErrRead)
	require.ErrorIs(t, err, os.ErrNotExist)
}
