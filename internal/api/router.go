package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/glowtide/spa-booking-engine/internal/booking"
)

type RouterConfig struct {
	Service  BookingService
	Sessions *booking.SessionStore
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Env      string
	Version  string
	Log      zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	h := NewHandler(cfg.Service, cfg.Sessions, cfg.Log)

	r.Route("/providers/{providerID}", func(r chi.Router) {
		r.Get("/booking-page", h.BookingPage)
		r.Get("/days", h.Days)
		r.Get("/slots", h.Slots)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Post("/service", h.SessionChooseService)
			r.Post("/slot", h.SessionChooseSlot)
			r.Post("/contact", h.SessionEnterContact)
			r.Post("/submit", h.SessionSubmit)
			r.Post("/back", h.SessionBack)
		})
	})

	r.Route("/bookings/{bookingID}", func(r chi.Router) {
		r.Get("/", h.GetBooking)
		r.Post("/confirm", h.ConfirmBooking)
		r.Post("/cancel", h.CancelBooking)
	})

	return r
}
