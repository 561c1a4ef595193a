package config

// EnvPrefix namespaces every environment variable envconfig parses.
const EnvPrefix = "SHOPLINE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Raw environment variable names, used by tests and the DSN fallback error.
const (
	EnvAppEnv     = "SHOPLINE_APP_ENV"
	EnvPort       = "SHOPLINE_APP_PORT"
	EnvDBDSN      = "SHOPLINE_DB_DSN"
	EnvDBHost     = "SHOPLINE_DB_HOST"
	EnvDBUser     = "SHOPLINE_DB_USER"
	EnvDBName     = "SHOPLINE_DB_NAME"
	EnvRedisURL   = "SHOPLINE_REDIS_URL"
	EnvJWTSecret  = "SHOPLINE_JWT_SECRET"
	EnvJWTIssuer  = "SHOPLINE_JWT_ISSUER"
	EnvJWTExpMins = "SHOPLINE_JWT_EXPIRATION_MINUTES"
	EnvSeedFeed   = "SHOPLINE_SEED_FEED_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
