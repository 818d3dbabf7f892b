package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/couchcryptid/snowpack-etl/internal/domain"
)

// stationDoc is the stations collection row.
type stationDoc struct {
	StationID   string    `gorm:"column:station_id;primaryKey;type:varchar(32)"`
	Name        string    `gorm:"column:name;type:varchar(255)"`
	State       string    `gorm:"column:state;type:varchar(2);index"`
	ElevationFt float64   `gorm:"column:elevation_ft"`
	Latitude    float64   `gorm:"column:latitude"`
	Longitude   float64   `gorm:"column:longitude"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
}

func (stationDoc) TableName() string { return domain.StationCollection }

// observationDoc is the observations collection row. Measurements are
// nullable.
type observationDoc struct {
	Key                 string    `gorm:"column:doc_key;primaryKey;type:varchar(32)"`
	StationID           string    `gorm:"column:station_id;type:varchar(32);not null;index"`
	ObservedOn          time.Time `gorm:"column:observed_on;type:date;not null;index"`
	AirTempObsC         *float64  `gorm:"column:air_temp_obs_c"`
	AirTempAvgC         *float64  `gorm:"column:air_temp_avg_c"`
	ReservoirVolumeDam3 *float64  `gorm:"column:reservoir_volume_dam3"`
	PrecipitationMM     *float64  `gorm:"column:precipitation_mm"`
	SnowDepthCM         *float64  `gorm:"column:snow_depth_cm"`
	SnowDensityPct      *float64  `gorm:"column:snow_density_pct"`
	SnowWaterEquivMM    *float64  `gorm:"column:snow_water_equiv_mm"`
	SnowRainRatio       *float64  `gorm:"column:snow_rain_ratio"`
	RunID               string    `gorm:"column:run_id;type:varchar(36);index"`
	LoadedAt            time.Time `gorm:"column:loaded_at;not null"`
}

func (observationDoc) TableName() string { return domain.ObservationCollection }

// edgeDoc links an observation handle to a station handle.
type edgeDoc struct {
	Key        string    `gorm:"column:doc_key;primaryKey;type:varchar(40)"`
	From       string    `gorm:"column:from_handle;type:varchar(64);not null;index"`
	To         string    `gorm:"column:to_handle;type:varchar(64);not null;index"`
	ObservedOn time.Time `gorm:"column:observed_on;type:date;not null"`
}

func (edgeDoc) TableName() string { return domain.EdgeCollection }

// collections lists the models migrated by EnsureCollections.
func collections() []any {
	return []any{&stationDoc{}, &observationDoc{}, &edgeDoc{}}
}

// EnsureCollections creates the stations, observations and edges tables
// when they do not exist. Existing tables are left as they are apart from
// missing columns and indexes.
func (s *Store) EnsureCollections(ctx context.Context) error {
	if s.pool == nil {
		return ErrNotConnected
	}

	// Closing db returns its connections to the pool; the pool stays open.
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	gormDB, err := gorm.Open(
		gormpg.New(gormpg.Config{Conn: db}),
		&gorm.Config{Logger: logger.Discard},
	)
	if err != nil {
		return SchemaError(err)
	}

	if err := gormDB.WithContext(ctx).AutoMigrate(collections()...); err != nil {
		return SchemaError(err)
	}
	s.logger.Info("collections ready",
		"collections", []string{domain.StationCollection, domain.ObservationCollection, domain.EdgeCollection})
	return nil
}

func toStationDoc(st domain.Station, createdAt time.Time) stationDoc {
	return stationDoc{
		StationID:   st.StationID,
		Name:        st.Name,
		State:       st.State,
		ElevationFt: st.ElevationFt,
		Latitude:    st.Latitude,
		Longitude:   st.Longitude,
		CreatedAt:   createdAt,
	}
}

func (d stationDoc) station() domain.Station {
	return domain.Station{
		StationID:   d.StationID,
		Name:        d.Name,
		State:       d.State,
		ElevationFt: d.ElevationFt,
		Latitude:    d.Latitude,
		Longitude:   d.Longitude,
	}
}

func toObservationDoc(o domain.Observation) observationDoc {
	return observationDoc{
		Key:                 o.Key,
		StationID:           o.StationID,
		ObservedOn:          o.Date,
		AirTempObsC:         o.AirTempObsC,
		AirTempAvgC:         o.AirTempAvgC,
		ReservoirVolumeDam3: o.ReservoirVolumeDam3,
		PrecipitationMM:     o.PrecipitationMM,
		SnowDepthCM:         o.SnowDepthCM,
		SnowDensityPct:      o.SnowDensityPct,
		SnowWaterEquivMM:    o.SnowWaterEquivMM,
		SnowRainRatio:       o.SnowRainRatio,
		RunID:               o.RunID,
		LoadedAt:            o.LoadedAt,
	}
}

func toEdgeDoc(e domain.Edge) edgeDoc {
	return edgeDoc{
		Key:        e.Key,
		From:       e.From,
		To:         e.To,
		ObservedOn: e.Date,
	}
}
