// Package postgres stores stations, observations and edges as documents in
// PostgreSQL tables, one table per collection.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/snowpack-etl/internal/config"
	"github.com/couchcryptid/snowpack-etl/internal/domain"
	"github.com/couchcryptid/snowpack-etl/internal/observability"
	"github.com/couchcryptid/snowpack-etl/internal/pipeline"
)

// maintenanceDB is connected to when the target database must be created.
const maintenanceDB = "postgres"

// Store implements pipeline.BatchLoader on a pgx pool.
type Store struct {
	pool    *pgxpool.Pool
	known   *knownStations
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewStore wraps an open pool. cacheSize bounds the known-station cache.
func NewStore(pool *pgxpool.Pool, cacheSize int, logger *slog.Logger, metrics *observability.Metrics) *Store {
	return &Store{
		pool:    pool,
		known:   newKnownStations(cacheSize),
		logger:  logger,
		metrics: metrics,
	}
}

// DSN renders cfg as a postgres:// URL for database name.
func DSN(cfg config.DatabaseConfig, database string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + database,
		RawQuery: url.Values{"sslmode": {cfg.SSLMode}}.Encode(),
	}
	return u.String()
}

// Connect ensures the configured database exists, then opens and pings a
// connection pool to it.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if err := ensureDatabase(ctx, cfg); err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(DSN(cfg, cfg.Name))
	if err != nil {
		return nil, ConnectionError(cfg.Host, cfg.Port, cfg.Name, cfg.User, err)
	}
	// Writes are sequential; a small pool is enough.
	poolConfig.MaxConns = 4
	poolConfig.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, ConnectionError(cfg.Host, cfg.Port, cfg.Name, cfg.User, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, ConnectionError(cfg.Host, cfg.Port, cfg.Name, cfg.User, err)
	}
	return pool, nil
}

// ensureDatabase creates cfg.Name through the maintenance database when it
// is missing.
func ensureDatabase(ctx context.Context, cfg config.DatabaseConfig) error {
	if cfg.Name == maintenanceDB {
		return nil
	}

	conn, err := pgx.Connect(ctx, DSN(cfg, maintenanceDB))
	if err != nil {
		return ConnectionError(cfg.Host, cfg.Port, maintenanceDB, cfg.User, err)
	}
	defer conn.Close(ctx)

	var exists bool
	err = conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, cfg.Name,
	).Scan(&exists)
	if err != nil {
		return CreateDatabaseError(cfg.Name, err)
	}
	if exists {
		return nil
	}

	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{cfg.Name}.Sanitize()); err != nil {
		return CreateDatabaseError(cfg.Name, err)
	}
	slog.Info("database created", "database", cfg.Name)
	return nil
}

// Close releases all database connections.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Pool returns the underlying pool.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// CheckHealth pings the database.
func (s *Store) CheckHealth(ctx context.Context) error {
	if s.pool == nil {
		return ErrNotConnected
	}
	return s.pool.Ping(ctx)
}

const insertStation = `
	INSERT INTO stations (station_id, name, state, elevation_ft, latitude, longitude, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (station_id) DO NOTHING`

const selectStation = `
	SELECT station_id, name, state, elevation_ft, latitude, longitude, created_at
	FROM stations WHERE station_id = $1`

// UpsertStation creates st unless a station with the same id exists, and
// returns the stored station. created is false when the station already
// existed, in which case the stored attributes win.
func (s *Store) UpsertStation(ctx context.Context, st domain.Station) (stored domain.Station, created bool, err error) {
	if cached, ok := s.known.lookup(st.StationID); ok {
		s.metrics.StationCache.WithLabelValues("hit").Inc()
		return cached, false, nil
	}
	s.metrics.StationCache.WithLabelValues("miss").Inc()
	if s.pool == nil {
		return domain.Station{}, false, ErrNotConnected
	}

	doc := toStationDoc(st, domain.Now())
	tag, err := s.pool.Exec(ctx, insertStation,
		doc.StationID, doc.Name, doc.State, doc.ElevationFt, doc.Latitude, doc.Longitude, doc.CreatedAt)
	if err != nil {
		return domain.Station{}, false, WriteError(domain.StationCollection, st.StationID, err)
	}

	if tag.RowsAffected() == 1 {
		s.known.remember(st)
		s.metrics.StationsWritten.WithLabelValues("created").Inc()
		return st, true, nil
	}

	existing, err := s.FindStation(ctx, st.StationID)
	if err != nil {
		return domain.Station{}, false, err
	}
	s.known.remember(existing)
	s.metrics.StationsWritten.WithLabelValues("existing").Inc()
	return existing, false, nil
}

// FindStation reads a station by id.
func (s *Store) FindStation(ctx context.Context, stationID string) (domain.Station, error) {
	if s.pool == nil {
		return domain.Station{}, ErrNotConnected
	}
	var d stationDoc
	err := s.pool.QueryRow(ctx, selectStation, stationID).Scan(
		&d.StationID, &d.Name, &d.State, &d.ElevationFt, &d.Latitude, &d.Longitude, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Station{}, NotFoundError(domain.StationCollection, stationID)
	}
	if err != nil {
		return domain.Station{}, fmt.Errorf("read %s/%s: %w", domain.StationCollection, stationID, err)
	}
	return d.station(), nil
}

const insertObservation = `
	INSERT INTO observations (
		doc_key, station_id, observed_on,
		air_temp_obs_c, air_temp_avg_c, reservoir_volume_dam3, precipitation_mm,
		snow_depth_cm, snow_density_pct, snow_water_equiv_mm, snow_rain_ratio,
		run_id, loaded_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (doc_key) DO NOTHING`

const insertEdge = `
	INSERT INTO edges (doc_key, from_handle, to_handle, observed_on)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (doc_key) DO NOTHING`

// InsertObservation writes the row's observation and its edge in one
// transaction. created is false when an observation with the same key is
// already stored; nothing is written in that case.
func (s *Store) InsertObservation(ctx context.Context, row domain.Row) (created bool, err error) {
	if s.pool == nil {
		return false, ErrNotConnected
	}
	obs := toObservationDoc(row.Observation)
	if obs.LoadedAt.IsZero() {
		obs.LoadedAt = domain.Now()
	}
	edge := toEdgeDoc(row.Edge())

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, insertObservation,
			obs.Key, obs.StationID, obs.ObservedOn,
			obs.AirTempObsC, obs.AirTempAvgC, obs.ReservoirVolumeDam3, obs.PrecipitationMM,
			obs.SnowDepthCM, obs.SnowDensityPct, obs.SnowWaterEquivMM, obs.SnowRainRatio,
			obs.RunID, obs.LoadedAt)
		if err != nil {
			return WriteError(domain.ObservationCollection, obs.Key, err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		created = true

		if _, err := tx.Exec(ctx, insertEdge, edge.Key, edge.From, edge.To, edge.ObservedOn); err != nil {
			return WriteError(domain.EdgeCollection, edge.Key, err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	if created {
		s.metrics.ObservationsWritten.WithLabelValues("created").Inc()
	} else {
		s.metrics.ObservationsWritten.WithLabelValues("duplicate").Inc()
	}
	return created, nil
}

// LoadBatch writes every row: station first, then observation and edge.
// It stops at the first failure.
func (s *Store) LoadBatch(ctx context.Context, rows []domain.Row) (pipeline.LoadResult, error) {
	var res pipeline.LoadResult
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		_, created, err := s.UpsertStation(ctx, row.Station)
		if err != nil {
			return res, err
		}
		if created {
			res.StationsCreated++
		} else {
			res.StationsExisting++
		}

		created, err = s.InsertObservation(ctx, row)
		if err != nil {
			return res, err
		}
		if created {
			res.ObservationsCreated++
		} else {
			res.ObservationsDuplicate++
			s.logger.Debug("observation already stored",
				"key", row.Observation.Key,
				"station_id", row.Station.StationID,
				"date", row.Observation.Date.Format(domain.DateLayout),
			)
		}
	}
	return res, nil
}
