package server

import (
	"fmt"
	"time"
)

type Config struct {
	Host string `yaml:"host" mapstructure:"host" default:"0.0.0.0"`
	Port int    `yaml:"port" mapstructure:"port" default:"8080"`

	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" default:"60s"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" default:"60s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout" default:"120s"`
	GracePeriod  time.Duration `yaml:"grace_period" mapstructure:"grace_period" default:"5s"`
}

func (cfg Config) addr() string { return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port) }
