package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `#------------------------------------------------- WARNING --------------------------------------------
# The data you have obtained from this automated Natural Resources Conservation Service
# database are subject to revision regardless of indicated Quality Assurance level.
#------------------------------------------------------------------------------------------------------
#
# Reporting Frequency: Monthly; Date Range: 2017-04-01 to 2018-03-31
#
Date,Station Id,Station Name,State Code,Elevation (ft),Latitude,Longitude,Air Temperature Observed (degC) Start of Month Values,Air Temperature Average (degC),Reservoir Storage Volume (dam^3) Start of Month Values,Precipitation Accumulation (mm) Start of Month Values,Snow Depth (cm) Start of Month Values,Snow Density (pct) Start of Month Values,Snow Water Equivalent (mm) Start of Month Values,Snow Rain Ratio (unitless)
Apr 2017,1051,Echo Peak,CA,7800,38.85,-120.08,-1.2,2.4,,1524.0,287,38,1090.2,
Apr 2017,615,Marlette Lake,NV,8000,39.16,-119.9,0.5,3.1,,889.0,,,,0.4
May 2017,1051,Echo Peak,CA,7800,38.85,-120.08,3.0,6.2,,1620.6,241,45,1084.6,
`

func TestParseReport(t *testing.T) {
	rows, err := ParseReport(strings.NewReader(sampleReport))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	echo := rows[0]
	assert.Equal(t, Station{
		StationID:   "1051",
		Name:        "Echo Peak",
		State:       "CA",
		ElevationFt: 7800,
		Latitude:    38.85,
		Longitude:   -120.08,
	}, echo.Station)

	obs := echo.Observation
	assert.Equal(t, "1051", obs.StationID)
	assert.Equal(t, time.Date(2017, time.April, 1, 0, 0, 0, 0, time.UTC), obs.Date)
	assert.Equal(t, ObservationKey("1051", obs.Date), obs.Key)
	require.NotNil(t, obs.AirTempObsC)
	assert.InDelta(t, -1.2, *obs.AirTempObsC, 1e-9)
	require.NotNil(t, obs.SnowWaterEquivMM)
	assert.InDelta(t, 1090.2, *obs.SnowWaterEquivMM, 1e-9)
	assert.Nil(t, obs.ReservoirVolumeDam3, "blank cell must be nil, not zero")
	assert.Nil(t, obs.SnowRainRatio)

	marlette := rows[1].Observation
	assert.Nil(t, marlette.SnowDepthCM)
	require.NotNil(t, marlette.SnowRainRatio)
	assert.InDelta(t, 0.4, *marlette.SnowRainRatio, 1e-9)

	assert.NotEqual(t, rows[0].Observation.Key, rows[2].Observation.Key)
}

func TestParseReport_CommentsOnly(t *testing.T) {
	rows, err := ParseReport(strings.NewReader("# no data for the selected stations\n#\n"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseReport_ISODatesAndUnknownColumns(t *testing.T) {
	body := "Date,Station Id,State Code,Extra Column\n2020-01-01,301,NV,x\n2020-02,301,NV,y\n"
	rows, err := ParseReport(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, time.Date(2020, time.February, 1, 0, 0, 0, 0, time.UTC), rows[1].Observation.Date)
	assert.Equal(t, "NV", rows[0].Station.State)
	assert.Nil(t, rows[0].Observation.AirTempAvgC, "absent column yields nil")
}

func TestParseReport_Errors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing station column",
			body: "Date,Station Name\nApr 2017,Echo Peak\n",
			want: `missing column "station_id"`,
		},
		{
			name: "bad number",
			body: "Date,Station Id,Snow Depth (cm) Start of Month Values\nApr 2017,1051,deep\n",
			want: "line 2",
		},
		{
			name: "bad date",
			body: "Date,Station Id\nsometime,1051\n",
			want: "unrecognized date",
		},
		{
			name: "empty station id",
			body: "Date,Station Id\nApr 2017,\n",
			want: "station_id: empty",
		},
		{
			name: "ragged record",
			body: "Date,Station Id\nApr 2017,1051,extra\n",
			want: "malformed report",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseReport(strings.NewReader(tc.body))
			require.ErrorIs(t, err, ErrMalformedReport)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestNormalizeHeader(t *testing.T) {
	got := NormalizeHeader([]string{"\ufeffDate", " Station Id ", "Snow Rain Ratio (unitless)", "Custom"})
	assert.Equal(t, []string{"date", "station_id", "snow_rain_ratio", "Custom"}, got)
	assert.Len(t, ColumnNameMap, 15)
}

func TestObservationKey(t *testing.T) {
	d := time.Date(2017, time.April, 1, 0, 0, 0, 0, time.UTC)
	k := ObservationKey("1051", d)
	assert.Equal(t, k, ObservationKey("1051", d.In(time.FixedZone("PST", -8*3600))))
	assert.NotEqual(t, k, ObservationKey("1052", d))
	assert.NotEqual(t, k, ObservationKey("1051", d.AddDate(0, 1, 0)))
	assert.True(t, strings.HasPrefix(k, "obs-"))
}

func TestRow_Edge(t *testing.T) {
	d := time.Date(2017, time.April, 1, 0, 0, 0, 0, time.UTC)
	row := Row{
		Station:     Station{StationID: "1051"},
		Observation: Observation{Key: ObservationKey("1051", d), StationID: "1051", Date: d},
	}

	e := row.Edge()
	assert.Equal(t, "edge-"+row.Observation.Key, e.Key)
	assert.Equal(t, "observations/"+row.Observation.Key, e.From)
	assert.Equal(t, "stations/1051", e.To)
	assert.Equal(t, d, e.Date)
}
