package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the configuration settings for a batch run.
//
// Fields:
// - Env: The current environment (local, development, production), selects the log handler.
// - Input: Path of the links file.
// - OutputDir: Directory receiving the CSV report and the failed links file.
// - Workers: The number of concurrent workers processing links.
// - LinkDelay: Minimum pause between two links, shared by all workers.
// - HTTPTimeout: Timeout of a single outgoing HTTP request.
// - MaxRetries: Retries of transient HTTP failures.
// - Provider: Reverse geocoding provider settings.
// - Overpass: Nearby POI lookup settings.
// - MetricsPort: Port of the monitoring server, 0 disables it.
// - Redis: Reverse geocoding cache settings.
// - Database: Optional PostgreSQL results sink.
type Config struct {
	Env         string
	Input       string
	OutputDir   string
	Workers     int
	LinkDelay   time.Duration
	HTTPTimeout time.Duration
	MaxRetries  int
	Provider    ProviderConfig
	Overpass    OverpassConfig
	MetricsPort int
	Redis       RedisConfig
	Database    PostgresConfig
}

// ProviderConfig selects and tunes the reverse geocoder.
type ProviderConfig struct {
	Type         string // nominatim, google or none
	APIKey       string // Google Maps API key
	UserAgent    string // Contact User-Agent required by OpenStreetMap services
	NominatimURL string // Nominatim reverse endpoint
}

// OverpassConfig holds the nearby POI lookup settings.
type OverpassConfig struct {
	URL    string  // Overpass interpreter endpoint, empty disables the lookup
	Radius float64 // Search radius in meters
}

// RedisConfig holds the cache connection. An empty Addr selects the in-memory cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
// An empty Host disables the results sink.
type PostgresConfig struct {
	Host     string // Host is the database server address.
	Port     string // Port is the database server port.
	User     string // User is the database user.
	Password string // Password is the database user's password.
	Name     string // Name is the name of the database.
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"input":      "input",
	"output-dir": "output_dir",
	"workers":    "workers",
	"provider":   "provider_type",
}

func defaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("input", "input/links.txt")
	v.SetDefault("output_dir", "output")
	v.SetDefault("workers", "1")
	v.SetDefault("link_delay", "250ms")
	v.SetDefault("http_timeout", "12s")
	v.SetDefault("max_retries", "2")
	v.SetDefault("provider_type", "nominatim")
	v.SetDefault("provider_key", "")
	v.SetDefault("user_agent", "Waypoint/1.0 (https://github.com/UnknownOlympus/waypoint)")
	v.SetDefault("nominatim_url", "https://nominatim.openstreetmap.org/reverse")
	v.SetDefault("overpass_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("poi_radius", "120")
	v.SetDefault("metrics_port", "0")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", "0")
	v.SetDefault("cache_ttl", "24h")
	v.SetDefault("db_port", "5432")
}

// MustLoad reads the configuration from the environment (and a .env file when present),
// letting the given command line flags override it. flags may be nil.
// It panics when a value cannot be parsed.
func MustLoad(flags *pflag.FlagSet) *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("WAYPOINT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	defaults(v)

	for _, key := range []string{"host", "port", "username", "password", "name"} {
		_ = v.BindEnv("db_"+key, "DB_"+strings.ToUpper(key))
	}

	if flags != nil {
		for flag, key := range flagKeys {
			if f := flags.Lookup(flag); f != nil {
				_ = v.BindPFlag(key, f)
			}
		}
	}

	workers, err := strconv.Atoi(v.GetString("workers"))
	if err != nil || workers < 1 {
		panic("failed to parse workers from configuration, must be a positive integer")
	}

	linkDelay, err := time.ParseDuration(v.GetString("link_delay"))
	if err != nil {
		panic("failed to parse link delay from configuration")
	}

	httpTimeout, err := time.ParseDuration(v.GetString("http_timeout"))
	if err != nil {
		panic("failed to parse http timeout from configuration")
	}

	maxRetries, err := strconv.Atoi(v.GetString("max_retries"))
	if err != nil || maxRetries < 0 {
		panic("failed to parse max retries from configuration")
	}

	poiRadius, err := strconv.ParseFloat(v.GetString("poi_radius"), 64)
	if err != nil {
		panic("failed to parse POI radius from configuration")
	}

	metricsPort, err := strconv.Atoi(v.GetString("metrics_port"))
	if err != nil {
		panic("failed to parse port for monitoring server from configuration")
	}

	redisDB, err := strconv.Atoi(v.GetString("redis_db"))
	if err != nil {
		panic("failed to parse redis database from configuration")
	}

	cacheTTL, err := time.ParseDuration(v.GetString("cache_ttl"))
	if err != nil {
		panic("failed to parse cache ttl from configuration")
	}

	return &Config{
		Env:         v.GetString("env"),
		Input:       v.GetString("input"),
		OutputDir:   v.GetString("output_dir"),
		Workers:     workers,
		LinkDelay:   linkDelay,
		HTTPTimeout: httpTimeout,
		MaxRetries:  maxRetries,
		Provider: ProviderConfig{
			Type:         v.GetString("provider_type"),
			APIKey:       v.GetString("provider_key"),
			UserAgent:    v.GetString("user_agent"),
			NominatimURL: v.GetString("nominatim_url"),
		},
		Overpass: OverpassConfig{
			URL:    v.GetString("overpass_url"),
			Radius: poiRadius,
		},
		MetricsPort: metricsPort,
		Redis: RedisConfig{
			Addr:     v.GetString("redis_addr"),
			Password: v.GetString("redis_password"),
			DB:       redisDB,
			TTL:      cacheTTL,
		},
		Database: PostgresConfig{
			Host:     v.GetString("db_host"),
			Port:     v.GetString("db_port"),
			User:     v.GetString("db_username"),
			Password: v.GetString("db_password"),
			Name:     v.GetString("db_name"),
		},
	}
}
