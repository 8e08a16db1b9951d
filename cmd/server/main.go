package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"kankeri.gg/internal/config"
	"kankeri.gg/internal/persistence/eventlog"
	"kankeri.gg/internal/persistence/indexdb"
	"kankeri.gg/internal/transport/ws"
	"kankeri.gg/internal/transport/wt"
	"kankeri.gg/internal/world"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config.yaml (optional)")
		httpAddr   = flag.String("addr", "", "http listen address (overrides config)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg := config.Defaults()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Fatalf("load config: %v", err)
		}
	}
	if *httpAddr != "" {
		cfg.Server.HTTPAddr = *httpAddr
	}

	w := world.New(world.Config{
		StateHz: cfg.World.StateHz,
		NPCHz:   cfg.World.NPCHz,
		SimHz:   cfg.World.SimHz,
	}, rand.New(rand.NewSource(time.Now().UnixNano())), logger)

	rec := multiRecorder{}
	if cfg.Data.EventLog {
		ev := eventlog.NewWriter(filepath.Join(cfg.Data.Dir, "events"))
		defer ev.Close()
		rec = append(rec, ev)
	}
	if cfg.Data.IndexDB {
		idx, err := indexdb.Open(filepath.Join(cfg.Data.Dir, "index.db"))
		if err != nil {
			logger.Fatalf("open index db: %v", err)
		}
		defer idx.Close()
		rec = append(rec, idx)
	}
	if len(rec) > 0 {
		w.SetRecorder(rec)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world loop: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/sync", ws.NewServer(w, logger).Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		_, _ = rw.Write([]byte("ok"))
	})

	httpSrv := &http.Server{Addr: cfg.Server.HTTPAddr, Handler: mux}
	go func() {
		logger.Printf("websocket listening on %s", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("listen: %v", err)
		}
	}()

	// WebTransport needs a certificate; without one the WS fallback is the
	// only endpoint, which is fine for local runs.
	if cfg.Server.CertFile != "" && cfg.Server.KeyFile != "" {
		wtSrv := wt.NewServer(w, logger, cfg.Server.WTAddr)
		defer wtSrv.Close()
		go func() {
			logger.Printf("webtransport listening on %s", cfg.Server.WTAddr)
			if err := wtSrv.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile); err != nil {
				logger.Printf("webtransport: %v", err)
			}
		}()
	} else {
		logger.Printf("no cert configured, webtransport disabled")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Printf("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	w.Stop()
}

// multiRecorder fans world events out to every configured sink.
type multiRecorder []world.Recorder

func (m multiRecorder) RecordJoin(id, name string, ts int64) {
	for _, r := range m {
		r.RecordJoin(id, name, ts)
	}
}

func (m multiRecorder) RecordLeave(id string, ts int64) {
	for _, r := range m {
		r.RecordLeave(id, ts)
	}
}

func (m multiRecorder) RecordName(id, name string, ts int64) {
	for _, r := range m {
		r.RecordName(id, name, ts)
	}
}

func (m multiRecorder) RecordChat(id, message string, ts int64) {
	for _, r := range m {
		r.RecordChat(id, message, ts)
	}
}
