// README: Entry point; loads config, wires the backend client and engine hub, starts the HTTP server.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ridetrack/internal/api"
	"ridetrack/internal/config"
	"ridetrack/internal/engine"
	httptransport "ridetrack/internal/http"
	"ridetrack/internal/infra"
	"ridetrack/internal/modules/location"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend := api.NewHTTPClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)

	var locStore *location.Store
	if cfg.Redis.Addr != "" {
		locStore = location.NewStore(infra.NewRedis(cfg.Redis.Addr))
	}

	hub := httptransport.NewHub(func() *engine.Engine {
		return engine.New(backend, locStore, cfg.Tracking, engine.Hooks{})
	})

	handler := httptransport.NewServer(hub)
	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler.Routes()}

	go func() {
		<-ctx.Done()
		hub.StopAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("trackd listening on %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
