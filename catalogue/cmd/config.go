package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/salim16/microservices-kaushik/pkg/retry"
)

type config struct {
	API        apiConfig        `yaml:"api"`
	Registry   registryConfig   `yaml:"registry"`
	Upstreams  upstreamsConfig  `yaml:"upstreams"`
	Aggregator aggregatorConfig `yaml:"aggregator"`
	Jaeger     jaegerConfig     `yaml:"jaeger"`
	Prometheus prometheusConfig `yaml:"prometheus"`
	Kafka      kafkaConfig      `yaml:"kafka"`
}

type apiConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	GRPCPort       int           `yaml:"grpc_port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RateLimit      float64       `yaml:"rate_limit"`
	Burst          int           `yaml:"burst"`
}

type registryConfig struct {
	// Type is consul or static.
	Type            string              `yaml:"type"`
	ConsulAddr      string              `yaml:"consul_addr"`
	RefreshInterval time.Duration       `yaml:"refresh_interval"`
	Static          map[string][]string `yaml:"static"`
}

type upstreamsConfig struct {
	Ratings   upstreamConfig `yaml:"ratings"`
	MovieInfo upstreamConfig `yaml:"movie_info"`
	Timeout   time.Duration  `yaml:"timeout"`
	Retry     retry.Policy   `yaml:"retry"`
}

type upstreamConfig struct {
	ServiceName string `yaml:"service_name"`
}

type aggregatorConfig struct {
	MaxConcurrency int `yaml:"max_concurrency"`
}

type jaegerConfig struct {
	URL string `yaml:"url"`
}

type prometheusConfig struct {
	MetricsPort int `yaml:"metrics_port"`
}

type kafkaConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Topic   string `yaml:"topic"`
}

func loadConfig(path string) (*config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var cfg config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *config) setDefaults() {
	if c.API.Host == "" {
		c.API.Host = "localhost"
	}
	if c.API.RequestTimeout == 0 {
		c.API.RequestTimeout = 10 * time.Second
	}
	if c.Registry.Type == "" {
		c.Registry.Type = "consul"
	}
	if c.Registry.ConsulAddr == "" {
		c.Registry.ConsulAddr = "localhost:8500"
	}
	if c.Registry.RefreshInterval == 0 {
		c.Registry.RefreshInterval = 30 * time.Second
	}
	if c.Upstreams.Ratings.ServiceName == "" {
		c.Upstreams.Ratings.ServiceName = "ratings-service"
	}
	if c.Upstreams.MovieInfo.ServiceName == "" {
		c.Upstreams.MovieInfo.ServiceName = "movie-info-service"
	}
	if c.Upstreams.Timeout == 0 {
		c.Upstreams.Timeout = 2 * time.Second
	}
	if c.Upstreams.Retry.MaxAttempts == 0 {
		c.Upstreams.Retry.MaxAttempts = 1
	}
	if c.Aggregator.MaxConcurrency == 0 {
		c.Aggregator.MaxConcurrency = 8
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "catalogue-omissions"
	}
}

func (c *config) validate() error {
	var errs []error
	if c.API.Port <= 0 {
		errs = append(errs, errors.New("api.port must be positive"))
	}
	if c.API.RateLimit < 0 || c.API.Burst < 0 {
		errs = append(errs, errors.New("api.rate_limit and api.burst must not be negative"))
	}
	switch c.Registry.Type {
	case "consul":
	case "static":
		if len(c.Registry.Static) == 0 {
			errs = append(errs, errors.New("registry.static must list instances when registry.type is static"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown registry.type %q", c.Registry.Type))
	}
	if c.Upstreams.Timeout < 0 {
		errs = append(errs, errors.New("upstreams.timeout must not be negative"))
	}
	if c.Aggregator.MaxConcurrency < 0 {
		errs = append(errs, errors.New("aggregator.max_concurrency must not be negative"))
	}
	if c.Kafka.Enabled && c.Kafka.Addr == "" {
		errs = append(errs, errors.New("kafka.addr is required when kafka is enabled"))
	}
	return errors.Join(errs...)
}
