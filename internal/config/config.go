package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"voyageur-express/internal/app"
	"voyageur-express/internal/game"
)

// EnvPrefix namespaces every environment override, e.g. VOYAGEUR_REDIS_ADDR.
const EnvPrefix = "VOYAGEUR_"

type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Log      LogConfig      `yaml:"log" envPrefix:"LOG_"`
	Redis    RedisConfig    `yaml:"redis" envPrefix:"REDIS_"`
	Postgres PostgresConfig `yaml:"postgres" envPrefix:"POSTGRES_"`
	Dataset  DatasetConfig  `yaml:"dataset" envPrefix:"DATASET_"`
	Game     GameConfig     `yaml:"game" envPrefix:"GAME_"`
}

type ServerConfig struct {
	Port           string   `yaml:"port" env:"PORT"`
	AllowedOrigins []string `yaml:"allowedOrigins" env:"ALLOWED_ORIGINS" envSeparator:","`
}

type LogConfig struct {
	Env   string `yaml:"env" env:"ENV"`
	Level string `yaml:"level" env:"LEVEL"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
	TTL      string `yaml:"ttl" env:"TTL"`
	Channel  string `yaml:"channel" env:"CHANNEL"`
}

type PostgresConfig struct {
	URL string `yaml:"url" env:"URL"`
}

type DatasetConfig struct {
	Version string `yaml:"version" env:"VERSION"`
	TTL     string `yaml:"ttl" env:"TTL"`
}

type GameConfig struct {
	Difficulty    string  `yaml:"difficulty" env:"DIFFICULTY"`
	Tolerance     float64 `yaml:"tolerance" env:"TOLERANCE"`
	HitPolicy     string  `yaml:"hitPolicy" env:"HIT_POLICY"`
	Choices       int     `yaml:"choices" env:"CHOICES"`
	StartDelay    string  `yaml:"startDelay" env:"START_DELAY"`
	FeedbackDelay string  `yaml:"feedbackDelay" env:"FEEDBACK_DELAY"`
	Tick          string  `yaml:"tick" env:"TICK"`
}

// Load reads YAML config from path, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// Rules turns the game section into session rules. An explicit tolerance
// wins over the difficulty preset.
func (g GameConfig) Rules() (app.Rules, error) {
	rules := app.DefaultRules()

	if g.Difficulty != "" {
		d := game.Difficulty(g.Difficulty)
		if !d.Valid() {
			return rules, fmt.Errorf("unknown difficulty %q", g.Difficulty)
		}
		rules.Tolerance = d.Tolerance()
	}
	if g.Tolerance < 0 {
		return rules, errors.New("tolerance must not be negative")
	}
	if g.Tolerance > 0 {
		rules.Tolerance = g.Tolerance
	}

	policy, err := game.ParseHitPolicy(g.HitPolicy)
	if err != nil {
		return rules, err
	}
	rules.HitPolicy = policy
	rules.Choices = g.Choices

	if rules.StartDelay, err = positiveDuration("startDelay", g.StartDelay, rules.StartDelay); err != nil {
		return rules, err
	}
	if rules.FeedbackDelay, err = positiveDuration("feedbackDelay", g.FeedbackDelay, rules.FeedbackDelay); err != nil {
		return rules, err
	}
	if rules.Tick, err = positiveDuration("tick", g.Tick, rules.Tick); err != nil {
		return rules, err
	}
	return rules, nil
}

func positiveDuration(name, raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if d <= 0 {
		return fallback, fmt.Errorf("%s must be positive, got %s", name, raw)
	}
	return d, nil
}
