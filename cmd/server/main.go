package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/suryapratap64/Open-stream/internal/adapters/http"
	"github.com/suryapratap64/Open-stream/internal/adapters/rtc"
	"github.com/suryapratap64/Open-stream/internal/app/orch"
	"github.com/suryapratap64/Open-stream/internal/config"
	"github.com/suryapratap64/Open-stream/internal/core"
	"github.com/suryapratap64/Open-stream/internal/invite"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Secret == "" {
		log.Fatal().Msg("secret must be set: invite tokens cannot be signed without it")
	}

	engine := rtc.NewEngine(cfg.StunServers)
	invites := invite.NewStore(cfg.Secret, cfg.InviteTTL)
	registry := core.NewRegistry(engine, invites)
	o := orch.New(registry, invites)

	r := router.SetupRouter(ctx, cfg, o, invites)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Open-stream server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
