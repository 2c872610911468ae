package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port" env:"QUIZ_PORT"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr" env:"QUIZ_REDIS_ADDR"`
		Password string `yaml:"password" env:"QUIZ_REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"QUIZ_REDIS_DB"`
		TTL      string `yaml:"ttl" env:"QUIZ_REDIS_TTL"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"QUIZ_POSTGRES_URL"`
	} `yaml:"postgres"`
	Game struct {
		QuestionCount  int    `yaml:"questionCount" env:"QUIZ_QUESTION_COUNT"`
		QuestionTime   string `yaml:"questionTime" env:"QUIZ_QUESTION_TIME"`
		CorrectDelay   string `yaml:"correctDelay" env:"QUIZ_CORRECT_DELAY"`
		IncorrectDelay string `yaml:"incorrectDelay" env:"QUIZ_INCORRECT_DELAY"`
		FaultDelay     string `yaml:"faultDelay" env:"QUIZ_FAULT_DELAY"`
	} `yaml:"game"`
	Results struct {
		CacheTTL    string `yaml:"cacheTTL" env:"QUIZ_RESULTS_CACHE_TTL"`
		RecentLimit int    `yaml:"recentLimit" env:"QUIZ_RESULTS_RECENT_LIMIT"`
	} `yaml:"results"`
	Log struct {
		Level  string `yaml:"level" env:"QUIZ_LOG_LEVEL"`
		Format string `yaml:"format" env:"QUIZ_LOG_FORMAT"`
	} `yaml:"log"`
}

// Load reads YAML config from path, then applies QUIZ_* environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// DurationOr parses a duration string or returns the fallback if empty or invalid.
func DurationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
