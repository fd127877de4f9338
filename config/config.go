package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"

	"github.com/hoteldesk/backoffice-service/pkg/kafka"
	"github.com/hoteldesk/backoffice-service/pkg/logger"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"BACKOFFICE_HTTP_HOST"`
	Port         string        `yaml:"port" envconfig:"BACKOFFICE_HTTP_PORT" default:"8480"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ"`
	WriteTimeout time.Duration
}

// HotelAPI locates the upstream hotel REST API every resource client
// talks to.
type HotelAPI struct {
	Host    string        `envconfig:"HOTEL_API_HOST" default:"localhost"`
	Port    string        `envconfig:"HOTEL_API_PORT" default:"8080"`
	Timeout time.Duration `envconfig:"HOTEL_API_TIMEOUT" default:"1m"`
}

type Poll struct {
	// Interval between list refreshes; zero disables polling.
	Interval time.Duration `envconfig:"POLL_INTERVAL" default:"30s"`
}

type Config struct {
	Server   HTTPServer `yaml:"server"`
	HotelAPI HotelAPI
	Kafka    kafka.Config
	Poll     Poll
	Log      logger.Log `yaml:"log"`
}

type Option func(*Config)

func WithLogLevel(level zapcore.Level) Option {
	return func(c *Config) {
		c.Log.LogLevel = level
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Server.WriteTimeout = d
	}
}

var (
	once sync.Once
	cfg  Config
)

// NewConfig reads config from environment.
func NewConfig(ops ...Option) Config {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		err := envconfig.Process("", &config)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = config
		printConfig(cfg)
	})

	return cfg
}

func printConfig(cfg Config) {
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}
