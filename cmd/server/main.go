package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"carbonchain/internal/adapters/blob"
	httpadapter "carbonchain/internal/adapters/http"
	"carbonchain/internal/adapters/memory"
	pg "carbonchain/internal/adapters/postgres"
	"carbonchain/internal/adapters/sentinel"
	"carbonchain/internal/config"
	"carbonchain/internal/locks"
	"carbonchain/internal/ports"
	claimsvc "carbonchain/internal/services/claims"
	evidencesvc "carbonchain/internal/services/evidence"
	governancesvc "carbonchain/internal/services/governance"
	ledgersvc "carbonchain/internal/services/ledger"
	"carbonchain/internal/services/lifecycle"
	monitorsvc "carbonchain/internal/services/monitor"
	mrvsvc "carbonchain/internal/services/mrv"
	transparencysvc "carbonchain/internal/services/transparency"
	"carbonchain/internal/workers/monitorrunner"
	"carbonchain/internal/workers/verifyrunner"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store ports.Store
	if cfg.DatabaseURL != "" {
		db, err := pg.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db connect error: %v", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			log.Fatalf("db migrate error: %v", err)
		}
		store = db
	} else {
		log.Printf("DATABASE_URL not set, using in-memory store (state is not persisted)")
		store = memory.NewStore()
	}

	blobs, err := blob.NewStore(cfg.EvidenceDir)
	if err != nil {
		log.Fatalf("evidence store error: %v", err)
	}

	var provider ports.IndexProvider
	if cfg.SentinelURL != "" {
		provider = sentinel.NewClient(cfg.SentinelURL)
	} else {
		log.Printf("SENTINEL_URL not set, using simulated satellite provider")
		provider = sentinel.NewSimulated()
	}

	keyed := locks.NewKeyed()
	machine := lifecycle.New(store)

	claims := claimsvc.New(store, machine)
	evidence := evidencesvc.New(store, blobs)
	verifier := mrvsvc.New(store, machine, provider, blobs, keyed)
	governance := governancesvc.New(store, machine, keyed)
	ledger := ledgersvc.New(store, machine, keyed)
	monitor := monitorsvc.New(store, provider, blobs, keyed)
	transparency := transparencysvc.New(store, ledger)

	srv := httpadapter.New(claims, evidence, verifier, governance, ledger, monitor, transparency)
	r := chi.NewRouter()
	r.Mount("/", srv.Routes())

	if cfg.VerifyWorkers > 0 {
		verifyrunner.Run(ctx, store, verifier, cfg.VerifyWorkers, 500*time.Millisecond)
		log.Printf("verification workers started: %d", cfg.VerifyWorkers)
	}
	if cfg.MonitorInterval > 0 {
		go monitorrunner.Run(ctx, monitor, cfg.MonitorInterval)
		log.Printf("monitoring sweep every %s", cfg.MonitorInterval)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- http.ListenAndServe(cfg.ListenAddr, r) }()
	log.Printf("listening on %s (env %s)", cfg.ListenAddr, cfg.Env)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Printf("shutting down on %s", sig)
		cancel()
		time.Sleep(300 * time.Millisecond)
	case err := <-errCh:
		log.Fatal(fmt.Errorf("server error: %w", err))
	}
}
