// Package config loads this engine's runtime configuration from the
// environment (and an optional .env file), adapted from the teacher's
// viper + godotenv config layer but trimmed to the settings an
// optimization run actually needs — no database, cache, JWT, or HTTP
// surface exists here to configure.
package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env string

	Log       LogConfig
	Scheduler SchedulerConfig
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig carries the weights and budgets the Model Builder and
// Solver Driver read at run time.
type SchedulerConfig struct {
	BalanceWeight   float64
	FairnessWeight  float64
	SolverTimeLimit time.Duration
	SolverBackend   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduler = SchedulerConfig{
		BalanceWeight:   v.GetFloat64("SCHEDULER_BALANCE_WEIGHT"),
		FairnessWeight:  v.GetFloat64("SCHEDULER_FAIRNESS_WEIGHT"),
		SolverTimeLimit: parseDuration(v.GetString("SCHEDULER_SOLVER_TIME_LIMIT"), 10*time.Second),
		SolverBackend:   v.GetString("SCHEDULER_SOLVER_BACKEND"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULER_BALANCE_WEIGHT", 0.1)
	v.SetDefault("SCHEDULER_FAIRNESS_WEIGHT", 0.1)
	v.SetDefault("SCHEDULER_SOLVER_TIME_LIMIT", "10s")
	v.SetDefault("SCHEDULER_SOLVER_BACKEND", "highs")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
