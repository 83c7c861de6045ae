package kit

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func LoadConfig(prefix string, cfg any) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return envconfig.Process(prefix, cfg)
}

type HTTPConfig struct {
	Port         string `envconfig:"PORT"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	MetricsToken string `envconfig:"METRICS_TOKEN"`
}

func (c HTTPConfig) Addr(defPort string) string {
	if c.Port == "" {
		return ":" + defPort
	}
	return ":" + c.Port
}
