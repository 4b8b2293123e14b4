// Package config loads the YAML configuration of the demo driver and the
// forecast service.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/sartorproj/arimabatch/arima"
	"github.com/sartorproj/arimabatch/autoarima"
	"github.com/sartorproj/arimabatch/internal/logging"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ARIMABATCH_"

// Config is the configuration shared by both executables.
type Config struct {
	Log    logging.Config `yaml:"log"`
	Demo   DemoConfig     `yaml:"demo"`
	Server ServerConfig   `yaml:"server"`
	Cache  CacheConfig    `yaml:"cache"`
}

// DemoConfig drives the demo executable.
type DemoConfig struct {
	Dataset      string        `yaml:"dataset" default:"demo/data/batch.csv" validate:"required"`
	MaxBatch     int           `yaml:"max_batch" default:"4" validate:"gte=0"`
	Horizon      *int          `yaml:"horizon" default:"12" validate:"required,min=1,max=1000"`
	Level        *float64      `yaml:"level" default:"0.95" validate:"required,gt=0,lt=1"`
	PredictStart int           `yaml:"predict_start" validate:"gte=0"`
	Holdout      int           `yaml:"holdout" validate:"gte=0"`
	OutputDir    string        `yaml:"output_dir" default:"out" validate:"required"`
	Workers      int           `yaml:"workers" validate:"gte=0"`
	Models       []ModelConfig `yaml:"models" validate:"dive"`
	AutoARIMA    AutoConfig    `yaml:"auto_arima"`
}

// ModelConfig is one model fitted by the demo.
type ModelConfig struct {
	Name      string         `yaml:"name" validate:"required"`
	Order     OrderConfig    `yaml:"order"`
	Seasonal  SeasonalConfig `yaml:"seasonal"`
	Intercept *bool          `yaml:"intercept" default:"true"`
	MaxIter   int            `yaml:"max_iter" default:"200" validate:"min=1"`
}

// OrderConfig mirrors arima.Order.
type OrderConfig struct {
	P int `yaml:"p" json:"p" validate:"gte=0,lte=10"`
	D int `yaml:"d" json:"d" validate:"gte=0,lte=2"`
	Q int `yaml:"q" json:"q" validate:"gte=0,lte=10"`
}

// SeasonalConfig mirrors arima.SeasonalOrder.
type SeasonalConfig struct {
	P int `yaml:"p" json:"p" validate:"gte=0,lte=4"`
	D int `yaml:"d" json:"d" validate:"gte=0,lte=1"`
	Q int `yaml:"q" json:"q" validate:"gte=0,lte=4"`
	S int `yaml:"s" json:"s" validate:"gte=0,ne=1"`
}

// AutoConfig enables automatic order selection in the demo.
type AutoConfig struct {
	Enabled bool             `yaml:"enabled"`
	Search  autoarima.Config `yaml:",inline"`
}

// ServerConfig configures the forecast service.
type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	FitTimeout      time.Duration `yaml:"fit_timeout" default:"30s"`
	BodyLimit       string        `yaml:"body_limit" default:"8M"`
	Workers         int           `yaml:"workers" validate:"gte=0"`
}

// CacheConfig selects the forecast result cache.
type CacheConfig struct {
	Backend    string        `yaml:"backend" default:"memory" validate:"oneof=memory redis none"`
	TTL        time.Duration `yaml:"ttl" default:"10m"`
	MaxEntries int           `yaml:"max_entries" default:"1000" validate:"min=1"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Prefix   string `yaml:"prefix" default:"arimabatch"`
	PoolSize int    `yaml:"pool_size" default:"10"`
}

// Order converts the configured triple.
func (o OrderConfig) Order() arima.Order {
	return arima.Order{P: o.P, D: o.D, Q: o.Q}
}

// SeasonalOrder converts the configured quadruple.
func (s SeasonalConfig) SeasonalOrder() arima.SeasonalOrder {
	return arima.SeasonalOrder{P: s.P, D: s.D, Q: s.Q, S: s.S}
}

// Default returns the configuration used when no file is given.
func Default() (*Config, error) {
	return Load("")
}

// Load reads path (skipped when empty), applies defaults and ARIMABATCH_*
// environment overrides, then validates the result.
func Load(path string) (*Config, error) {
	c := &Config{}
	c.Demo.AutoARIMA.Search = *autoarima.DefaultConfig()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, errors.Wrap(err, "parse config")
		}
	}

	if err := defaults.Set(c); err != nil {
		return nil, errors.Wrap(err, "apply defaults")
	}
	if len(c.Demo.Models) == 0 {
		c.Demo.Models = DefaultModels()
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}
	return c, nil
}

// DefaultModels is the model list of the demo when none is configured.
func DefaultModels() []ModelConfig {
	yes, no := true, false
	return []ModelConfig{
		{Name: "arima_1_1_1", Order: OrderConfig{P: 1, D: 1, Q: 1}, Intercept: &no, MaxIter: 200},
		{Name: "arima_2_0_0", Order: OrderConfig{P: 2}, Intercept: &yes, MaxIter: 200},
		{
			Name:      "sarima_0_1_1_0_1_1_12",
			Order:     OrderConfig{D: 1, Q: 1},
			Seasonal:  SeasonalConfig{D: 1, Q: 1, S: 12},
			Intercept: &no,
			MaxIter:   200,
		},
	}
}

var validate = validator.New()

// Validate checks field constraints and the search bounds.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Demo.Models))
	for _, m := range c.Demo.Models {
		if seen[m.Name] {
			return errors.Newf("duplicate model name %q", m.Name)
		}
		seen[m.Name] = true
	}
	return nil
}

func (c *Config) applyEnv() error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.Wrapf(err, "%s%s", EnvPrefix, name)
		}
		*dst = n
		return nil
	}

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("DATASET", &c.Demo.Dataset)
	str("OUTPUT_DIR", &c.Demo.OutputDir)
	str("SERVER_HOST", &c.Server.Host)
	str("CACHE_BACKEND", &c.Cache.Backend)
	str("REDIS_ADDR", &c.Cache.Redis.Addr)
	str("REDIS_PASSWORD", &c.Cache.Redis.Password)

	for name, dst := range map[string]*int{
		"MAX_BATCH":   &c.Demo.MaxBatch,
		"HORIZON":     c.Demo.Horizon,
		"WORKERS":     &c.Demo.Workers,
		"SERVER_PORT": &c.Server.Port,
		"REDIS_DB":    &c.Cache.Redis.DB,
	} {
		if err := num(name, dst); err != nil {
			return err
		}
	}
	return nil
}
