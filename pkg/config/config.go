package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	Cart    CartConfig
	Storage StorageConfig
	Redis   RedisConfig
	DB      DBConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GOMARKET_APP_ENV" default:"dev"`
	Port         string `envconfig:"GOMARKET_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"GOMARKET_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"GOMARKET_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"GOMARKET_LOG_WARN_STACK" default:"false"`
	// CORSOrigins lists storefront origins allowed to call the API from a browser.
	CORSOrigins []string `envconfig:"GOMARKET_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type CartConfig struct {
	StorageKey     string        `envconfig:"GOMARKET_CART_STORAGE_KEY" default:"@GoMarketplace:products"`
	LegacyKeys     []string      `envconfig:"GOMARKET_CART_LEGACY_KEYS" default:"@GoMarket:cart"`
	PersistMode    string        `envconfig:"GOMARKET_CART_PERSIST_MODE" default:"async"`
	MaxAttempts    int           `envconfig:"GOMARKET_CART_PERSIST_MAX_ATTEMPTS" default:"5"`
	InitialBackoff time.Duration `envconfig:"GOMARKET_CART_PERSIST_INITIAL_BACKOFF" default:"100ms"`
	MaxBackoff     time.Duration `envconfig:"GOMARKET_CART_PERSIST_MAX_BACKOFF" default:"5s"`
	WriteTimeout   time.Duration `envconfig:"GOMARKET_CART_WRITE_TIMEOUT" default:"5s"`
}

// IsAsync reports whether snapshots are written by the background queue.
func (c CartConfig) IsAsync() bool {
	return strings.EqualFold(c.PersistMode, PersistModeAsync)
}

type StorageConfig struct {
	Driver  string `envconfig:"GOMARKET_STORAGE_DRIVER" default:"file"`
	FileDir string `envconfig:"GOMARKET_STORAGE_FILE_DIR" default:"./data"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GOMARKET_REDIS_URL"`
	Address      string        `envconfig:"GOMARKET_REDIS_ADDR"`
	Password     string        `envconfig:"GOMARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"GOMARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GOMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GOMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GOMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GOMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GOMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type DBConfig struct {
	Driver string `envconfig:"GOMARKET_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"GOMARKET_DB_DSN"`

	MaxOpenConns    int           `envconfig:"GOMARKET_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"GOMARKET_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"GOMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GOMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	AutoMigrate     bool          `envconfig:"GOMARKET_DB_AUTO_MIGRATE" default:"true"`
}

// IsPostgres reports whether the sql backend talks to postgres.
func (d DBConfig) IsPostgres() bool {
	return strings.EqualFold(d.Driver, DBDriverPostgres)
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Cart.PersistMode) {
	case PersistModeAsync, PersistModeSync:
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvCartPersistMode, PersistModeAsync, PersistModeSync, c.Cart.PersistMode)
	}
	if strings.TrimSpace(c.Cart.StorageKey) == "" {
		return fmt.Errorf("%s is required", EnvCartStorageKey)
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case StorageDriverMemory:
	case StorageDriverFile:
		if c.Storage.FileDir == "" {
			return fmt.Errorf("%s is required for the file driver", EnvStorageFileDir)
		}
	case StorageDriverRedis:
		if c.Redis.URL == "" && c.Redis.Address == "" {
			return fmt.Errorf("either %s or %s is required for the redis driver", EnvRedisURL, EnvRedisAddr)
		}
	case StorageDriverSQL:
		return c.DB.EnsureDSN()
	default:
		return fmt.Errorf("unknown %s %q", EnvStorageDriver, c.Storage.Driver)
	}
	return nil
}

// EnsureDSN fills the default sqlite DSN and rejects a postgres config without one.
func (db *DBConfig) EnsureDSN() error {
	switch strings.ToLower(db.Driver) {
	case DBDriverSQLite:
		if db.DSN == "" {
			db.DSN = defaultSQLiteDSN
		}
		return nil
	case DBDriverPostgres:
		if db.DSN == "" {
			return fmt.Errorf("%s is required for the postgres driver", EnvDBDSN)
		}
		return nil
	default:
		return fmt.Errorf("unknown %s %q", EnvDBDriver, db.Driver)
	}
}
