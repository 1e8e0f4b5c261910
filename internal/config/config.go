package config

import (
	"os"
	"time"

	"github.com/go-yaml/yaml"
)

type Config struct {
	Service Service `yaml:"service"`
}

type Service struct {
	ListenAddr string `yaml:"listenAddr"`
	BaseURL    string `yaml:"baseURL"`

	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`

	TokenSecret     string `yaml:"tokenSecret"`
	TokenTTLMinutes int    `yaml:"tokenTTLMinutes"`

	LoginURL string `yaml:"loginURL"`

	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

// TokenTTL returns the configured edit-token lifetime, defaulting to an
// hour.
func (s Service) TokenTTL() time.Duration {
	if s.TokenTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(s.TokenTTLMinutes) * time.Minute
}

func Load(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	if config.Service.ListenAddr == "" {
		config.Service.ListenAddr = ":8000"
	}

	return config, nil
}
