package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/convo-chat/convo/internal/auth"
	"github.com/convo-chat/convo/internal/handlers"
	"github.com/convo-chat/convo/internal/handlers/room"
	"github.com/convo-chat/convo/internal/middleware"
	"github.com/convo-chat/convo/internal/service"
	"github.com/convo-chat/convo/internal/ws"
)

type Server struct {
	Addr       string
	DB         *sql.DB
	Guard      auth.Guard
	Rooms      *service.RoomService
	Messages   *service.MessageService
	Gateway    *ws.Gateway
	CORSOrigin string
	Log        logrus.FieldLogger

	mu  sync.Mutex
	srv *http.Server
}

func HandlerFunc(h http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r)
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	// middlewares
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(s.Log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(s.CORSOrigin, ","),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintln(w, "Welcome to convo API! Server is running....")
	})
	r.Get("/health", HandlerFunc(&handlers.HealthHandler{DB: s.DB, Log: s.Log}))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/rooms", func(r chi.Router) {
		r.Use(middleware.AuthJWT(s.Guard))
		r.Post("/", HandlerFunc(&room.CreateRoomHandler{Rooms: s.Rooms, Log: s.Log}))
		r.Get("/{id}", HandlerFunc(&room.GetRoomHandler{Rooms: s.Rooms, Log: s.Log}))
		r.Get("/{id}/messages", HandlerFunc(&room.RoomMessagesHandler{Messages: s.Messages, Log: s.Log}))
		r.Post("/{id}/messages", HandlerFunc(&room.SendMessageHandler{Messages: s.Messages, Publisher: s.Gateway, Log: s.Log}))
	})

	// The gateway authenticates the handshake itself.
	r.Get("/ws", s.Gateway.ServeHTTP)

	return r
}

// Run serves until Shutdown is called.
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()

	s.Log.WithField("addr", s.Addr).Info("server running")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then closes the websocket clients and
// waits for messages still being stored.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	return errors.Join(err, s.Gateway.Shutdown(ctx))
}
