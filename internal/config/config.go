package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Manifest string         `yaml:"manifest" mapstructure:"manifest"`
	CRS      CRSConfig      `yaml:"crs" mapstructure:"crs"`
	Features FeaturesConfig `yaml:"features" mapstructure:"features"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Geocode  GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// CRSConfig selects the projected CRS every layer is normalized to.
type CRSConfig struct {
	TargetEPSG int `yaml:"target_epsg" mapstructure:"target_epsg"`
}

// BandConfig is one proximity band, radius in miles.
type BandConfig struct {
	Name  string  `yaml:"name" mapstructure:"name"`
	Miles float64 `yaml:"miles" mapstructure:"miles"`
}

// FeaturesConfig configures feature derivation.
type FeaturesConfig struct {
	Bands        []BandConfig `yaml:"bands" mapstructure:"bands"`
	QuadSegments int          `yaml:"quad_segments" mapstructure:"quad_segments"`
	Concurrent   bool         `yaml:"concurrent" mapstructure:"concurrent"`
	OnInvalid    string       `yaml:"on_invalid" mapstructure:"on_invalid"`
}

// OutputConfig configures what a run writes.
type OutputConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Format string `yaml:"format" mapstructure:"format"`
	Rings  bool   `yaml:"rings" mapstructure:"rings"`
}

// StoreConfig configures the run store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// GeocodeConfig configures the Census geocoder used to fill coordinates.
type GeocodeConfig struct {
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	Benchmark     string  `yaml:"benchmark" mapstructure:"benchmark"`
	RateLimit     float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	MaxAttempts   int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	AddressColumn string  `yaml:"address_column" mapstructure:"address_column"`
}

// FetchConfig configures how remote dataset locations are downloaded.
type FetchConfig struct {
	CacheDir    string `yaml:"cache_dir" mapstructure:"cache_dir"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEOENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("manifest", "manifest.yaml")
	v.SetDefault("crs.target_epsg", 2226)
	v.SetDefault("features.bands", []map[string]any{
		{"name": "half_mile", "miles": 0.5},
		{"name": "one_mile", "miles": 1.0},
		{"name": "five_mile", "miles": 5.0},
	})
	v.SetDefault("features.quad_segments", 16)
	v.SetDefault("features.concurrent", true)
	v.SetDefault("features.on_invalid", "abort")
	v.SetDefault("output.dir", "out")
	v.SetDefault("output.format", "csv")
	v.SetDefault("output.rings", false)
	v.SetDefault("store.driver", "none")
	v.SetDefault("geocode.base_url", "https://geocoding.geo.census.gov/geocoder")
	v.SetDefault("geocode.benchmark", "Public_AR_Current")
	v.SetDefault("geocode.rate_limit", 5.0)
	v.SetDefault("geocode.max_attempts", 3)
	v.SetDefault("geocode.timeout_secs", 30)
	v.SetDefault("geocode.address_column", "address")
	v.SetDefault("fetch.user_agent", "geoenrich/1.0")
	v.SetDefault("fetch.timeout_secs", 300)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration for the given command mode: "enrich",
// "rings", "reproject" or "geocode".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "enrich":
		if c.Manifest == "" {
			errs = append(errs, "manifest is required")
		}
		switch c.Output.Format {
		case "csv", "xlsx":
		default:
			errs = append(errs, fmt.Sprintf("output.format must be csv or xlsx, got %q", c.Output.Format))
		}
		switch c.Store.Driver {
		case "none":
		case "sqlite", "postgres":
			if c.Store.DatabaseURL == "" {
				errs = append(errs, "store.database_url is required")
			}
		default:
			errs = append(errs, fmt.Sprintf("store.driver must be none, sqlite or postgres, got %q", c.Store.Driver))
		}
		errs = append(errs, c.Features.problems()...)
	case "rings":
		if c.Manifest == "" {
			errs = append(errs, "manifest is required")
		}
		errs = append(errs, c.Features.problems()...)
	case "reproject":
	case "geocode":
		if c.Geocode.BaseURL == "" {
			errs = append(errs, "geocode.base_url is required")
		}
		if c.Geocode.RateLimit <= 0 {
			errs = append(errs, "geocode.rate_limit must be > 0")
		}
		if c.Geocode.MaxAttempts < 1 {
			errs = append(errs, "geocode.max_attempts must be >= 1")
		}
		if c.Geocode.AddressColumn == "" {
			errs = append(errs, "geocode.address_column is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (f FeaturesConfig) problems() []string {
	var errs []string
	if f.QuadSegments < 1 {
		errs = append(errs, "features.quad_segments must be >= 1")
	}
	switch f.OnInvalid {
	case "", "abort", "skip":
	default:
		errs = append(errs, fmt.Sprintf("features.on_invalid must be abort or skip, got %q", f.OnInvalid))
	}
	for _, b := range f.Bands {
		if b.Name == "" || b.Miles <= 0 {
			errs = append(errs, fmt.Sprintf("features.bands entry %q needs a name and a radius > 0", b.Name))
		}
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
