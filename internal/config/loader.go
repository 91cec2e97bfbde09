package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rpattn/fieldtrack/internal/db"
	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Database db.Config
	HTTP     HTTPConfig
	Redis    RedisConfig
	Log      LogConfig
	Tracking TrackingConfig

	// Source is the config file that was read, empty when only defaults and
	// environment were used.
	Source string
}

type HTTPConfig struct {
	Addr        string
	CORSOrigins []string
}

type RedisConfig struct {
	// Addr empty disables activity feed fan-out.
	Addr    string
	Channel string
}

type LogConfig struct {
	Level  string
	Format string
}

type TrackingConfig struct {
	DiffWorkers      int
	CatalogCacheSize int
	CatalogCacheTTL  time.Duration
	DefaultLocale    string
	DefaultTimeZone  string
}

// Load reads config.yaml from configPath, then applies FIELDTRACK_* environment
// overrides (database.host becomes FIELDTRACK_DATABASE_HOST). A missing file is
// not an error.
func Load(configPath string) (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.SetEnvPrefix("FIELDTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var source string
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		source = v.ConfigFileUsed()
	}

	cfg := Config{
		Database: db.Config{
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			DBName:   v.GetString("database.dbname"),
			SSLMode:  v.GetString("database.sslmode"),
		},
		HTTP: HTTPConfig{
			Addr:        v.GetString("http.addr"),
			CORSOrigins: v.GetStringSlice("http.cors_origins"),
		},
		Redis: RedisConfig{
			Addr:    v.GetString("redis.addr"),
			Channel: v.GetString("redis.channel"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Tracking: TrackingConfig{
			DiffWorkers:      v.GetInt("tracking.diff_workers"),
			CatalogCacheSize: v.GetInt("tracking.catalog_cache_size"),
			CatalogCacheTTL:  v.GetDuration("tracking.catalog_cache_ttl"),
			DefaultLocale:    v.GetString("tracking.default_locale"),
			DefaultTimeZone:  v.GetString("tracking.default_timezone"),
		},
		Source: source,
	}

	if cfg.Database.Port <= 0 {
		return Config{}, fmt.Errorf("database.port must be positive, got %d", cfg.Database.Port)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	dbDefaults := db.DefaultConfig()
	v.SetDefault("database.host", dbDefaults.Host)
	v.SetDefault("database.port", dbDefaults.Port)
	v.SetDefault("database.user", dbDefaults.User)
	v.SetDefault("database.password", dbDefaults.Password)
	v.SetDefault("database.dbname", dbDefaults.DBName)
	v.SetDefault("database.sslmode", dbDefaults.SSLMode)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.channel", "fieldtrack:notes")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("tracking.diff_workers", 0)
	v.SetDefault("tracking.catalog_cache_size", 512)
	v.SetDefault("tracking.catalog_cache_ttl", 5*time.Minute)
	v.SetDefault("tracking.default_locale", "en-US")
	v.SetDefault("tracking.default_timezone", "UTC")
}
