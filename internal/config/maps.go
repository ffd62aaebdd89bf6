package config

import (
	"time"
)

type MapsConfig struct {
	APIKey         string        `yaml:"api_key"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

func loadMapsConfig() *MapsConfig {
	return &MapsConfig{
		APIKey:         getEnv("GOOGLE_MAPS_API_KEY", ""),
		RequestTimeout: getEnvAsDuration("MAPS_REQUEST_TIMEOUT", 2*time.Second),
	}
}
