package domain

import "strings"

// Normalized column names.
const (
	ColDate             = "date"
	ColStationID        = "station_id"
	ColStationName      = "station_name"
	ColState            = "state"
	ColElevationFt      = "elevation_ft"
	ColLatitude         = "latitude"
	ColLongitude        = "longitude"
	ColAirTempObsC      = "air_temp_obs_c"
	ColAirTempAvgC      = "air_temp_avg_c"
	ColReservoirVolume  = "reservoir_volume_dam3"
	ColPrecipitationMM  = "precipitation_mm"
	ColSnowDepthCM      = "snow_depth_cm"
	ColSnowDensityPct   = "snow_density_pct"
	ColSnowWaterEquivMM = "snow_water_equiv_mm"
	ColSnowRainRatio    = "snow_rain_ratio"
)

// ColumnNameMap maps report generator CSV headers to normalized names.
var ColumnNameMap = map[string]string{
	"Date":           ColDate,
	"Station Id":     ColStationID,
	"Station Name":   ColStationName,
	"State Code":     ColState,
	"Elevation (ft)": ColElevationFt,
	"Latitude":       ColLatitude,
	"Longitude":      ColLongitude,
	"Air Temperature Observed (degC) Start of Month Values":  ColAirTempObsC,
	"Air Temperature Average (degC)":                         ColAirTempAvgC,
	"Reservoir Storage Volume (dam^3) Start of Month Values": ColReservoirVolume,
	"Precipitation Accumulation (mm) Start of Month Values":  ColPrecipitationMM,
	"Snow Depth (cm) Start of Month Values":                  ColSnowDepthCM,
	"Snow Density (pct) Start of Month Values":               ColSnowDensityPct,
	"Snow Water Equivalent (mm) Start of Month Values":       ColSnowWaterEquivMM,
	"Snow Rain Ratio (unitless)":                             ColSnowRainRatio,
}

// NormalizeColumn returns the normalized name for a CSV header. Headers not in
// ColumnNameMap are returned trimmed but otherwise unchanged.
func NormalizeColumn(header string) string {
	header = strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
	if name, ok := ColumnNameMap[header]; ok {
		return name
	}
	return header
}

// NormalizeHeader renames every column of a header row.
func NormalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = NormalizeColumn(h)
	}
	return out
}
