/*
 * Copyright (c) Joseph Prichard 2024
 */

package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty      bool   `env:"LOG_PRETTY" envDefault:"false"`
	SampleEvery int    `env:"LOG_SAMPLE_EVERY" envDefault:"0"`
}

type Config struct {
	Port           int           `env:"PORT" envDefault:"8080"`
	DbDriver       string        `env:"DB_DRIVER" envDefault:"sqlite3"`
	DbUrl          string        `env:"DB_URL" envDefault:"drawguess.db"`
	PersistStats   bool          `env:"PERSIST_STATS" envDefault:"true"`
	JwtSecretKey   string        `env:"JWT_SECRET_KEY,required,notEmpty"`
	DrawTimeSecs   int           `env:"DRAW_TIME_SECS" envDefault:"80"`
	ChooseTimeSecs int           `env:"CHOOSE_TIME_SECS" envDefault:"15"`
	RoomTTL        time.Duration `env:"ROOM_TTL" envDefault:"15m"`
	CleanupPeriod  time.Duration `env:"CLEANUP_PERIOD" envDefault:"1m"`
	EventRate      float64       `env:"EVENT_RATE" envDefault:"30"`
	EventBurst     int           `env:"EVENT_BURST" envDefault:"60"`
	StrokeRate     float64       `env:"STROKE_RATE" envDefault:"500"`
	StrokeBurst    int           `env:"STROKE_BURST" envDefault:"1000"`
	Log            LogConfig
}

// Load reads an optional .env file into the environment and parses the config from it
func Load(filenames ...string) (Config, error) {
	if err := godotenv.Load(filenames...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	return Parse()
}

func Parse() (Config, error) {
	var cfg Config
	err := env.Parse(&cfg)
	return cfg, err
}

// PersistenceEnabled is false when stats are switched off or no database url is configured
func (cfg Config) PersistenceEnabled() bool {
	return cfg.PersistStats && cfg.DbUrl != ""
}
