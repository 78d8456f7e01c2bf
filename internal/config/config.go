package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del cliente.
type Config struct {
	HTTPPort          string `env:"HTTP_PORT" envDefault:"8080"`
	BackendURL        string `env:"BACKEND_URL,required"`
	BackendAPIKey     string `env:"BACKEND_API_KEY"`
	SystemInstruction string `env:"SYSTEM_INSTRUCTION"`
	DatabaseURL       string `env:"DATABASE_URL"`
	RedisAddr         string `env:"REDIS_ADDR"`
	RedisPassword     string `env:"REDIS_PASSWORD"`
	RedisDB           int    `env:"REDIS_DB" envDefault:"0"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
