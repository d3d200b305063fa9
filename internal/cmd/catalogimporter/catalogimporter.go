// Package catalogimporter parses importer flags and loads catalog files
// into the store.
package catalogimporter

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/louisbranch/packworks/internal/catalogfile"
	entrypoint "github.com/louisbranch/packworks/internal/platform/cmd"
	"github.com/louisbranch/packworks/internal/storage/sqlite"
)

// Config holds catalog importer configuration.
type Config struct {
	DBPath string `env:"PACKWORKS_DB_PATH" envDefault:"packworks.db"`
	File   string `env:"PACKWORKS_CATALOG_FILE"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the sqlite database")
	fs.StringVar(&cfg.File, "file", cfg.File, "Path to the catalog YAML file")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run loads the catalog file and imports it.
func Run(ctx context.Context, cfg Config) error {
	if cfg.File == "" {
		return fmt.Errorf("catalog file is required")
	}

	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceCatalogImporter, func(ctx context.Context) error {
		file, err := catalogfile.Load(cfg.File)
		if err != nil {
			return err
		}

		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer func() { _ = store.Close() }()

		if err := file.Import(ctx, store); err != nil {
			return err
		}
		log.Printf("imported %d cards and %d decks", len(file.Cards), len(file.Decks))
		return nil
	})
}
