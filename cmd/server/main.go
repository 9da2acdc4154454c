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

	router "github.com/dkeye/Roster/internal/adapters/http"
	"github.com/dkeye/Roster/internal/app"
	"github.com/dkeye/Roster/internal/app/orch"
	"github.com/dkeye/Roster/internal/config"
	"github.com/dkeye/Roster/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Logger first so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	dir := app.NewDirectory()
	seed(ctx, dir, cfg.Seed)

	o := &orch.Orchestrator{
		Registry:  app.NewRegistry(),
		Directory: dir,
		Policy:    app.OwnerPolicy{},
		Settings: orch.Settings{
			PageSize:         cfg.Member.PageSize,
			Debounce:         cfg.Composer.Debounce,
			MaxMessageLength: cfg.Composer.MaxMessageLength,
		},
	}
	stop := o.Start()
	defer stop()

	r := router.SetupRouter(ctx, cfg, o)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Roster server started")
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

// seed loads the configured users and rooms into the directory.
func seed(ctx context.Context, dir *app.Directory, s config.SeedConfig) {
	for _, u := range s.Users {
		if err := dir.SaveUser(u); err != nil {
			log.Warn().Err(err).Str("user", string(u.UserID)).Msg("seed: skip user")
		}
	}
	for _, sr := range s.Rooms {
		room := dir.CreateRoom(domain.Room{ID: sr.ID, Name: sr.Name, Owner: sr.Owner})
		for _, id := range sr.Members {
			user, ok := dir.User(id).Get()
			if !ok {
				user = domain.UserEntity{UserID: id}
			}
			if err := dir.Join(room.ID, user); err != nil {
				log.Warn().Err(err).Str("room", string(room.ID)).Str("user", string(id)).Msg("seed: join failed")
			}
		}
		for _, id := range sr.Muted {
			if err := dir.OperateUser(ctx, room.ID, id, domain.OpMute); err != nil {
				log.Warn().Err(err).Str("room", string(room.ID)).Str("user", string(id)).Msg("seed: mute failed")
			}
		}
	}
}
