// Package server parses server command flags and starts the HTTP runtime.
package server

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/louisbranch/packworks/internal/app"
	"github.com/louisbranch/packworks/internal/engine/opening"
	entrypoint "github.com/louisbranch/packworks/internal/platform/cmd"
)

// Config holds server command configuration.
type Config struct {
	Port        int    `env:"PACKWORKS_PORT" envDefault:"8080"`
	Addr        string `env:"PACKWORKS_ADDR"`
	DBPath      string `env:"PACKWORKS_DB_PATH" envDefault:"packworks.db"`
	AuthSecret  string `env:"PACKWORKS_AUTH_SECRET"`
	OracleToken string `env:"PACKWORKS_ORACLE_TOKEN"`
	EmissionCap uint64 `env:"PACKWORKS_EMISSION_CAP"`

	PackSize      int           `env:"PACKWORKS_PACK_SIZE" envDefault:"15"`
	MaxBatchPacks int           `env:"PACKWORKS_MAX_BATCH_PACKS" envDefault:"10"`
	MinInterval   time.Duration `env:"PACKWORKS_MIN_INTERVAL" envDefault:"30s"`
	VRFTimeout    time.Duration `env:"PACKWORKS_VRF_TIMEOUT" envDefault:"1h"`
	RoyaltyBps    int64         `env:"PACKWORKS_ROYALTY_BPS" envDefault:"250"`
	OracleDelay   time.Duration `env:"PACKWORKS_ORACLE_DELAY" envDefault:"2s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The server listen address (overrides -port)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the sqlite database")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the pack opening API service.
func Run(ctx context.Context, cfg Config) error {
	addr := cfg.Addr
	if addr == "" {
		addr = fmt.Sprintf(":%d", cfg.Port)
	}

	openingCfg := opening.Config{
		PackSize:      cfg.PackSize,
		MaxBatchPacks: cfg.MaxBatchPacks,
		MinInterval:   cfg.MinInterval,
		VRFTimeout:    cfg.VRFTimeout,
		RoyaltyBps:    cfg.RoyaltyBps,
	}

	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceServer, func(ctx context.Context) error {
		return app.Run(ctx, app.Options{
			Addr:        addr,
			DBPath:      cfg.DBPath,
			AuthSecret:  cfg.AuthSecret,
			OracleToken: cfg.OracleToken,
			EmissionCap: cfg.EmissionCap,
			OracleDelay: cfg.OracleDelay,
			Opening:     openingCfg,
		})
	})
}
