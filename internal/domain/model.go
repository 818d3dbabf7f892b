package domain

import "time"

// Collection names of the document store.
const (
	StationCollection     = "stations"
	ObservationCollection = "observations"
	EdgeCollection        = "edges"
)

// Station is a SNOTEL or climate site. Stations are created once per
// StationID and never updated.
type Station struct {
	StationID   string  `json:"station_id"`
	Name        string  `json:"name"`
	State       string  `json:"state"`
	ElevationFt float64 `json:"elevation_ft"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// Observation is one station's start-of-month measurement bundle. A nil
// measurement means the station does not report that element.
type Observation struct {
	Key       string    `json:"key"`
	StationID string    `json:"station_id"`
	Date      time.Time `json:"date"`

	AirTempObsC         *float64 `json:"air_temp_obs_c,omitempty"`
	AirTempAvgC         *float64 `json:"air_temp_avg_c,omitempty"`
	ReservoirVolumeDam3 *float64 `json:"reservoir_volume_dam3,omitempty"`
	PrecipitationMM     *float64 `json:"precipitation_mm,omitempty"`
	SnowDepthCM         *float64 `json:"snow_depth_cm,omitempty"`
	SnowDensityPct      *float64 `json:"snow_density_pct,omitempty"`
	SnowWaterEquivMM    *float64 `json:"snow_water_equiv_mm,omitempty"`
	SnowRainRatio       *float64 `json:"snow_rain_ratio,omitempty"`

	RunID    string    `json:"run_id,omitempty"`
	LoadedAt time.Time `json:"loaded_at,omitzero"`
}

// Edge links an observation to its station, dated like the observation.
type Edge struct {
	Key  string    `json:"key"`
	From string    `json:"from"`
	To   string    `json:"to"`
	Date time.Time `json:"date"`
}

// Row is one normalized CSV record.
type Row struct {
	Station     Station     `json:"station"`
	Observation Observation `json:"observation"`
}

// Edge returns the edge document linking the row's observation to its station.
func (r Row) Edge() Edge {
	return Edge{
		Key:  EdgeKey(r.Observation.Key),
		From: ObservationHandle(r.Observation.Key),
		To:   StationHandle(r.Station.StationID),
		Date: r.Observation.Date,
	}
}

// RawReport is an unparsed CSV response for one request.
type RawReport struct {
	Request   Request
	URL       string
	Body      []byte
	FetchedAt time.Time
}

// Batch is the transformed content of one report.
type Batch struct {
	Request Request
	Rows    []Row
	// Filtered counts rows dropped by the region filter.
	Filtered int
}
