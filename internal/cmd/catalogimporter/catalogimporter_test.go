package catalogimporter

import (
	"context"
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("catalog-importer", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "packworks.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
}

func TestRunRequiresFile(t *testing.T) {
	if err := Run(context.Background(), Config{DBPath: "x.db"}); err == nil {
		t.Fatal("expected error without catalog file")
	}
}
