// Package app wires the storage, engine, and API layers into a runnable
// server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	api "github.com/louisbranch/packworks/internal/api/http"
	"github.com/louisbranch/packworks/internal/engine/emission"
	"github.com/louisbranch/packworks/internal/engine/opening"
	"github.com/louisbranch/packworks/internal/engine/oracle"
	"github.com/louisbranch/packworks/internal/engine/payment"
	"github.com/louisbranch/packworks/internal/engine/ratelimit"
	"github.com/louisbranch/packworks/internal/engine/royalty"
	"github.com/louisbranch/packworks/internal/engine/security"
	"github.com/louisbranch/packworks/internal/storage/sqlite"
	"github.com/louisbranch/packworks/internal/telemetry"
)

// Options holds the resolved server configuration.
type Options struct {
	Addr        string
	DBPath      string
	AuthSecret  string
	OracleToken string
	// EmissionCap is the global mint ceiling. It is mandatory.
	EmissionCap uint64
	// OracleDelay is the local oracle's request/callback gap.
	OracleDelay time.Duration
	Opening     opening.Config
}

// Run starts the pack opening server and blocks until ctx is canceled or
// the listener fails.
func Run(ctx context.Context, opts Options) error {
	if strings.TrimSpace(opts.DBPath) == "" {
		return fmt.Errorf("db path is required")
	}
	if strings.TrimSpace(opts.AuthSecret) == "" {
		return fmt.Errorf("auth secret is required")
	}
	if strings.TrimSpace(opts.OracleToken) == "" {
		return fmt.Errorf("oracle token is required")
	}
	if opts.EmissionCap == 0 {
		return fmt.Errorf("emission cap is required")
	}

	store, err := sqlite.Open(opts.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.SetEmissionCap(ctx, opts.EmissionCap); err != nil {
		return fmt.Errorf("set emission cap: %w", err)
	}

	hub := api.NewEventHub()
	emitter := telemetry.NewEmitter(store).WithSink(hub)
	guard := payment.NewGuard(store, store)
	control := security.NewControl(store)
	local := oracle.NewLocal(opts.OracleDelay)

	cfg := opts.Opening
	orch := opening.NewOrchestrator(cfg, opening.Deps{
		Requests:  store,
		Catalog:   store,
		Registry:  store,
		Control:   control,
		Limiter:   ratelimit.NewLimiter(store, cfg.MinInterval, cfg.MaxBatchPacks),
		Payments:  guard,
		Bank:      store,
		Emission:  emission.NewLedger(store),
		Royalties: royalty.NewDistributor(cfg.RoyaltyBps, guard),
		Oracle:    local,
		Events:    emitter,
	})
	local.Attach(oracle.FulfillerFunc(func(ctx context.Context, requestID string, words []uint64) error {
		_, err := orch.Fulfill(ctx, requestID, words)
		return err
	}))

	handler := api.NewHandler(orch, guard, control, store, emitter)
	auth := api.NewAuth([]byte(opts.AuthSecret), opts.OracleToken)
	router := api.NewRouter(handler, auth, hub)

	listener, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", opts.Addr, err)
	}

	httpServer := &http.Server{Handler: router}

	log.Printf("server listening at %v", listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(listener)
	}()

	handleErr := func(err error) error {
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return handleErr(<-serveErr)
	case err := <-serveErr:
		return handleErr(err)
	}
}
