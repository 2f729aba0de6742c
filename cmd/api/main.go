package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/convo-chat/convo/internal/auth"
	"github.com/convo-chat/convo/internal/config"
	"github.com/convo-chat/convo/internal/database"
	"github.com/convo-chat/convo/internal/server"
	"github.com/convo-chat/convo/internal/service"
	"github.com/convo-chat/convo/internal/store"
	"github.com/convo-chat/convo/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// no configured logger yet
		os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := cfg.NewLogger()
	log.WithFields(logrus.Fields{"env": cfg.Env, "port": cfg.Port, "driver": cfg.DBDriver}).Info("config loaded")

	db, err := database.Open(cfg.DBDriver, cfg.DSN)
	if err != nil {
		log.WithError(err).Fatal("DB connect error")
	}
	defer db.Close()

	if cfg.RunMigrations {
		if err := database.RunMigrations(context.Background(), db, cfg.DBDriver, log); err != nil {
			log.WithError(err).Fatal("migrations error")
		}
	}

	dialect, err := store.DialectFor(cfg.DBDriver)
	if err != nil {
		log.WithError(err).Fatal("dialect")
	}
	rooms := service.NewRoomService(store.NewRoomStore(db, dialect))
	messages := service.NewMessageService(store.NewMessageStore(db, dialect))
	guard := auth.NewGuard(auth.NewVerifier(cfg.JWTSecret))
	gateway := ws.NewGateway(ws.NewHub(log), guard, rooms, messages, log, ws.Options{
		PersistTimeout: cfg.PersistTimeout,
		CheckOrigin:    ws.AllowOrigins(strings.Split(cfg.CORSOrigin, ",")),
	})

	srv := &server.Server{
		Addr:       ":" + cfg.Port,
		DB:         db,
		Guard:      guard,
		Rooms:      rooms,
		Messages:   messages,
		Gateway:    gateway,
		CORSOrigin: cfg.CORSOrigin,
		Log:        log,
	}

	go func() {
		if err := srv.Run(); err != nil {
			log.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}
	log.Info("server stopped")
}
