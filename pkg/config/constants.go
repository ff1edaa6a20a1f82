package config

// EnvPrefix scopes envconfig processing; individual fields carry the full
// variable names so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "GROUPCART_DB_DSN"
	EnvDBHost = "GROUPCART_DB_HOST"
	EnvDBUser = "GROUPCART_DB_USER"
	EnvDBName = "GROUPCART_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
