// Package config reads the command configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"ecommerce-analytics/pkg/models"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Date is a calendar day written as YYYY-MM-DD.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalText(text []byte) error {
	t, err := time.Parse(models.DateLayout, string(text))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) String() string { return d.Format(models.DateLayout) }

type Config struct {
	DSN         string `env:"ECOM_DSN"`
	DataDir     string `env:"ECOM_DATA_DIR" envDefault:"data/raw"`
	OutputDir   string `env:"ECOM_OUTPUT_DIR" envDefault:"data/processed"`
	Customers   int    `env:"ECOM_CUSTOMERS" envDefault:"5000"`
	Seed        int64  `env:"ECOM_SEED" envDefault:"42"`
	StartDate   Date   `env:"ECOM_START_DATE" envDefault:"2022-01-01"`
	EndDate     Date   `env:"ECOM_END_DATE" envDefault:"2024-11-30"`
	Workers     int    `env:"ECOM_WORKERS" envDefault:"1"`
	MetricsAddr string `env:"ECOM_METRICS_ADDR"`
	Verbose     bool   `env:"ECOM_VERBOSE" envDefault:"true"`
}

// Load parses the environment. Values from the given .env files (".env" when
// none is given) fill in variables the process environment does not set; a
// missing file is not an error.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	environment := map[string]string{}
	for _, f := range files {
		vars, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Config{}, fmt.Errorf("read %s: %w", f, err)
		}
		for k, v := range vars {
			environment[k] = v
		}
	}
	for k, v := range env.ToMap(os.Environ()) {
		environment[k] = v
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environment}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if !cfg.EndDate.After(cfg.StartDate.Time) {
		return Config{}, fmt.Errorf("parse env: ECOM_END_DATE %s must be after ECOM_START_DATE %s", cfg.EndDate, cfg.StartDate)
	}
	return cfg, nil
}
