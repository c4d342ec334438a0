package config

type Config interface {
	EnvConfig
	TelegramConfig
	ProviderConfig
	StorageConfig
	CorsConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Telegram
	Provider
	Storage
	Cors
}

func New() Config {
	return mainConfig{}
}
