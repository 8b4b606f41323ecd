package config

const (
	// EnvPrefix scopes all environment variables consumed by the service.
	EnvPrefix = "SHOPSIGNAL"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)
