package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime configuration of the hangr service.
type Config struct {
	HTTPPort      int    `yaml:"http_port"`
	SQLitePath    string `yaml:"sqlite_path"`
	PublicBaseURL string `yaml:"public_base_url"`
	TimeZone      string `yaml:"time_zone"`
	LogLevel      string `yaml:"log_level"`

	SessionTTL time.Duration `yaml:"session_ttl"`
	ChatTTL    time.Duration `yaml:"chat_ttl"`

	GeoapifyAPIKey     string        `yaml:"geoapify_api_key"`
	NominatimURL       string        `yaml:"nominatim_url"`
	NominatimUserAgent string        `yaml:"nominatim_user_agent"`
	GeocodeCacheSize   int           `yaml:"geocode_cache_size"`
	GeocodeCacheTTL    time.Duration `yaml:"geocode_cache_ttl"`

	GeolocationTimeout time.Duration `yaml:"geolocation_timeout"`
	GeolocationMaxAge  time.Duration `yaml:"geolocation_max_age"`
	LocationMaxClients int           `yaml:"location_max_clients"`
	LocationIdleTTL    time.Duration `yaml:"location_idle_ttl"`

	Emojis []string `yaml:"emojis"`

	ChatPurgeSchedule     string `yaml:"chat_purge_schedule"`
	SessionPurgeSchedule  string `yaml:"session_purge_schedule"`
	LocationPruneSchedule string `yaml:"location_prune_schedule"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		HTTPPort:              8080,
		SQLitePath:            "hangr.db",
		PublicBaseURL:         "http://localhost:8080",
		TimeZone:              "Europe/Madrid",
		LogLevel:              "info",
		SessionTTL:            30 * 24 * time.Hour,
		ChatTTL:               12 * time.Hour,
		NominatimURL:          "https://nominatim.openstreetmap.org/reverse",
		NominatimUserAgent:    "hangr/1.0",
		GeocodeCacheSize:      512,
		GeocodeCacheTTL:       24 * time.Hour,
		GeolocationTimeout:    8 * time.Second,
		GeolocationMaxAge:     30 * time.Second,
		LocationMaxClients:    10000,
		LocationIdleTTL:       15 * time.Minute,
		ChatPurgeSchedule:     "@every 10m",
		SessionPurgeSchedule:  "@every 1h",
		LocationPruneSchedule: "@every 5m",
	}
}

// Location loads the configured time zone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.TimeZone)
}

// Load builds the configuration from defaults, the optional YAML file named
// by HANGR_CONFIG_FILE and HANGR_* environment variables, in that order.
func Load() (Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("HANGR_CONFIG_FILE")); path != "" {
		if err := overlayFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	invalid := make([]string, 0, 2)
	env := envReader{invalid: &invalid}

	env.positiveInt("HANGR_HTTP_PORT", &cfg.HTTPPort)
	env.str("HANGR_SQLITE_PATH", &cfg.SQLitePath)
	env.str("HANGR_PUBLIC_BASE_URL", &cfg.PublicBaseURL)
	env.str("HANGR_TIME_ZONE", &cfg.TimeZone)
	env.str("HANGR_LOG_LEVEL", &cfg.LogLevel)
	env.duration("HANGR_SESSION_TTL", &cfg.SessionTTL)
	env.duration("HANGR_CHAT_TTL", &cfg.ChatTTL)
	env.str("HANGR_GEOAPIFY_API_KEY", &cfg.GeoapifyAPIKey)
	env.str("HANGR_NOMINATIM_URL", &cfg.NominatimURL)
	env.str("HANGR_NOMINATIM_USER_AGENT", &cfg.NominatimUserAgent)
	env.positiveInt("HANGR_GEOCODE_CACHE_SIZE", &cfg.GeocodeCacheSize)
	env.duration("HANGR_GEOCODE_CACHE_TTL", &cfg.GeocodeCacheTTL)
	env.duration("HANGR_GEOLOCATION_TIMEOUT", &cfg.GeolocationTimeout)
	env.duration("HANGR_GEOLOCATION_MAX_AGE", &cfg.GeolocationMaxAge)
	env.positiveInt("HANGR_LOCATION_MAX_CLIENTS", &cfg.LocationMaxClients)
	env.duration("HANGR_LOCATION_IDLE_TTL", &cfg.LocationIdleTTL)
	env.str("HANGR_CHAT_PURGE_SCHEDULE", &cfg.ChatPurgeSchedule)
	env.str("HANGR_SESSION_PURGE_SCHEDULE", &cfg.SessionPurgeSchedule)
	env.str("HANGR_LOCATION_PRUNE_SCHEDULE", &cfg.LocationPruneSchedule)

	if value := strings.TrimSpace(os.Getenv("HANGR_EMOJIS")); value != "" {
		cfg.Emojis = strings.Fields(strings.ReplaceAll(value, ",", " "))
	}

	if _, err := cfg.Location(); err != nil {
		invalid = append(invalid, "HANGR_TIME_ZONE")
	}
	if cfg.SQLitePath == "" {
		invalid = append(invalid, "HANGR_SQLITE_PATH")
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("valores de configuración no válidos: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func overlayFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("no existe el fichero de configuración: %s", path)
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

type envReader struct {
	invalid *[]string
}

func (e envReader) str(key string, dst *string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*dst = value
	}
}

func (e envReader) positiveInt(key string, dst *int) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		*e.invalid = append(*e.invalid, key)
		return
	}
	*dst = n
}

func (e envReader) duration(key string, dst *time.Duration) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		*e.invalid = append(*e.invalid, key)
		return
	}
	*dst = d
}
