package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	importercmd "github.com/louisbranch/packworks/internal/cmd/catalogimporter"
)

func main() {
	cfg, err := importercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[CATALOG-IMPORTER] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := importercmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to import: %v", err)
	}
}
