package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/snowpack-etl/internal/domain"
)

// Config holds all run settings, populated from environment variables.
type Config struct {
	// Report generator.
	ReportBaseURL    string        `validate:"required,url"`
	ReportTimeout    time.Duration `validate:"gt=0"`
	ReportMaxRetries int           `validate:"gte=0,lte=10"`
	RequestDelay     time.Duration `validate:"gte=0"`

	// Request plan.
	DateRange   domain.DateRange
	SliceMonths int `validate:"gte=1,lte=12"`
	Regions     []domain.Region `validate:"min=1,dive"`
	FilterState string          `validate:"omitempty,alpha,len=2"`

	Database         DatabaseConfig
	WriteToDB        bool
	StationCacheSize int `validate:"gte=1"`

	// Optional observation event stream; disabled when KafkaBrokers is empty.
	KafkaBrokers []string
	KafkaTopic   string `validate:"required_with=KafkaBrokers"`

	// Optional status listener; disabled when empty.
	HTTPAddr        string
	LogLevel        string `validate:"oneof=debug info warn warning error"`
	LogFormat       string `validate:"oneof=json text"`
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds the document store connection settings. An empty
// Password is resolved by prompting at startup.
type DatabaseConfig struct {
	Host     string `validate:"required"`
	Port     int    `validate:"gte=1,lte=65535"`
	User     string `validate:"required"`
	Password string
	Name     string `validate:"required"`
	SSLMode  string `validate:"oneof=disable allow prefer require verify-ca verify-full"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration from environment variables, applying defaults where
// unset. Variables in a .env file in the working directory are loaded first;
// variables already present in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("ignoring unreadable .env file", "error", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	reportTimeout, err := parseDuration("WCIS_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}
	requestDelay, err := parseDuration("WCIS_REQUEST_DELAY", "2s")
	if err != nil {
		return nil, err
	}
	maxRetries, err := parseInt("WCIS_MAX_RETRIES", 0)
	if err != nil {
		return nil, err
	}
	sliceMonths, err := parseInt("SLICE_MONTHS", domain.MaxSliceMonths)
	if err != nil {
		return nil, err
	}
	dbPort, err := parseInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseInt("STATION_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	writeToDB, err := parseBool("DB_WRITE", true)
	if err != nil {
		return nil, err
	}

	dateRange, err := domain.ParseDateRange(
		sharedcfg.EnvOrDefault("DATE_RANGE_START", domain.DefaultDateRange.Start.Format(domain.DateLayout)),
		sharedcfg.EnvOrDefault("DATE_RANGE_END", domain.DefaultDateRange.End.Format(domain.DateLayout)),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid DATE_RANGE_START/DATE_RANGE_END: %w", err)
	}

	regions, err := domain.ParseRegions(sharedcfg.EnvOrDefault("REGIONS", domain.FormatRegions(domain.DefaultRegions)))
	if err != nil {
		return nil, fmt.Errorf("invalid REGIONS: %w", err)
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		ReportBaseURL:    sharedcfg.EnvOrDefault("WCIS_BASE_URL", domain.DefaultReportBaseURL),
		ReportTimeout:    reportTimeout,
		ReportMaxRetries: maxRetries,
		RequestDelay:     requestDelay,

		DateRange:   dateRange,
		SliceMonths: sliceMonths,
		Regions:     regions,
		FilterState: strings.ToUpper(sharedcfg.EnvOrDefault("FILTER_STATE", "CA")),

		Database: DatabaseConfig{
			Host:     sharedcfg.EnvOrDefault("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     sharedcfg.EnvOrDefault("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     sharedcfg.EnvOrDefault("DB_NAME", "snowpack"),
			SSLMode:  sharedcfg.EnvOrDefault("DB_SSL_MODE", "disable"),
		},
		WriteToDB:        writeToDB,
		StationCacheSize: cacheSize,

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "snowpack-observations"),

		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		LogLevel:        strings.ToLower(sharedcfg.EnvOrDefault("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(sharedcfg.EnvOrDefault("LOG_FORMAT", "json")),
		ShutdownTimeout: shutdownTimeout,
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Requests expands the configured regions and date range into the request plan.
func (c *Config) Requests() ([]domain.Request, error) {
	return domain.DefineRequests(c.Regions, c.DateRange, c.SliceMonths, nil)
}

// RegionFilter returns the filter for the configured FILTER_STATE.
func (c *Config) RegionFilter() domain.RegionFilter {
	return domain.RegionFilter{State: c.FilterState}
}

// KafkaEnabled reports whether observation events are published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
