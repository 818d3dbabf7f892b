package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/snowpack-etl/internal/domain"
	"github.com/couchcryptid/snowpack-etl/internal/pipeline"
)

const tahoeReport = `# Reporting Frequency: Monthly
#
Date,Station Id,Station Name,State Code,Elevation (ft),Latitude,Longitude,Snow Water Equivalent (mm) Start of Month Values
Jan 2018,1051,Echo Peak,CA,7800,38.85,-120.08,310.0
Jan 2018,615,Marlette Lake,NV,8000,39.16,-119.9,120.4
Jan 2018,848,Rubicon #2,CA,7620,38.99,-120.13,
`

func reportFor(t *testing.T, region domain.Region) domain.RawReport {
	t.Helper()
	rng, err := domain.ParseDateRange("2018-01-01", "2018-12-31")
	require.NoError(t, err)
	reqs, err := domain.NewRequests(region, rng, 12, nil)
	require.NoError(t, err)
	return domain.RawReport{Request: reqs[0], Body: []byte(tahoeReport)}
}

func TestReportTransformer_DropsOtherStates(t *testing.T) {
	tfm := pipeline.NewTransformer(domain.RegionFilter{State: "CA"}, slog.Default())

	batch, err := tfm.Transform(context.Background(), reportFor(t, domain.DefaultRegions[0]))
	require.NoError(t, err)

	require.Len(t, batch.Rows, 2)
	assert.Equal(t, "1051", batch.Rows[0].Station.StationID)
	assert.Equal(t, "848", batch.Rows[1].Station.StationID)
	assert.Equal(t, 1, batch.Filtered)
}

func TestReportTransformer_StateRequestKeepsAll(t *testing.T) {
	tfm := pipeline.NewTransformer(domain.RegionFilter{State: "CA"}, slog.Default())

	batch, err := tfm.Transform(context.Background(), reportFor(t, domain.Region{Type: domain.RegionState, Code: "CA"}))
	require.NoError(t, err)

	assert.Len(t, batch.Rows, 3)
	assert.Zero(t, batch.Filtered)
	assert.Nil(t, batch.Rows[2].Observation.SnowWaterEquivMM)
}

func TestReportTransformer_ZeroFilter(t *testing.T) {
	tfm := pipeline.NewTransformer(domain.RegionFilter{}, slog.Default())

	batch, err := tfm.Transform(context.Background(), reportFor(t, domain.DefaultRegions[1]))
	require.NoError(t, err)
	assert.Len(t, batch.Rows, 3)
}

func TestReportTransformer_Malformed(t *testing.T) {
	tfm := pipeline.NewTransformer(domain.RegionFilter{State: "CA"}, slog.Default())

	raw := reportFor(t, domain.DefaultRegions[0])
	raw.Body = []byte("Station Name,State Code\nEcho Peak,CA\n")
	_, err := tfm.Transform(context.Background(), raw)
	assert.ErrorIs(t, err, domain.ErrMalformedReport)
}

func TestFanout(t *testing.T) {
	a, b := &mockLoader{}, &mockLoader{}
	loader := pipeline.NewFanout(a, nil, b)

	rows := []domain.Row{{Station: domain.Station{StationID: "1051"}}}
	res, err := loader.LoadBatch(context.Background(), rows)
	require.NoError(t, err)

	assert.Len(t, a.batches, 1)
	assert.Len(t, b.batches, 1)
	assert.Equal(t, pipeline.LoadResult{StationsCreated: 2, ObservationsCreated: 2}, res)
}

func TestFanout_StopsOnError(t *testing.T) {
	boom := errors.New("broker down")
	a, b := &mockLoader{err: boom}, &mockLoader{}

	_, err := pipeline.NewFanout(a, b).LoadBatch(context.Background(), nil)
	require.ErrorIs(t, err, boom)
	assert.Empty(t, b.batches)
}

func TestNewFanout_Collapses(t *testing.T) {
	assert.Nil(t, pipeline.NewFanout())
	assert.Nil(t, pipeline.NewFanout(nil, nil))

	only := &mockLoader{}
	assert.Same(t, only, pipeline.NewFanout(nil, only))
}
