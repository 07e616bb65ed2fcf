package config

const EnvPrefix = "GOMARKET"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	PersistModeAsync = "async"
	PersistModeSync  = "sync"

	StorageDriverMemory = "memory"
	StorageDriverFile   = "file"
	StorageDriverRedis  = "redis"
	StorageDriverSQL    = "sql"

	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "postgres"

	defaultSQLiteDSN = "file:gomarket-cart.db?_busy_timeout=5000"
)

const (
	EnvAppEnv          = "GOMARKET_APP_ENV"
	EnvPort            = "GOMARKET_APP_PORT"
	EnvLogLevel        = "GOMARKET_LOG_LEVEL"
	EnvCartStorageKey  = "GOMARKET_CART_STORAGE_KEY"
	EnvCartLegacyKeys  = "GOMARKET_CART_LEGACY_KEYS"
	EnvCartPersistMode = "GOMARKET_CART_PERSIST_MODE"
	EnvStorageDriver   = "GOMARKET_STORAGE_DRIVER"
	EnvStorageFileDir  = "GOMARKET_STORAGE_FILE_DIR"
	EnvRedisURL        = "GOMARKET_REDIS_URL"
	EnvRedisAddr       = "GOMARKET_REDIS_ADDR"
	EnvDBDriver        = "GOMARKET_DB_DRIVER"
	EnvDBDSN           = "GOMARKET_DB_DSN"
)
