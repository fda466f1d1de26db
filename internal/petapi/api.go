// Package petapi implements the REST API for users, their pets and the
// petting and feeding interactions.
package petapi

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/rafaeljc/petlife/internal/cache"
	"github.com/rafaeljc/petlife/internal/events"
	"github.com/rafaeljc/petlife/internal/pet"
	"github.com/rafaeljc/petlife/internal/store"
	"github.com/rafaeljc/petlife/internal/validation"
)

// Notifier receives one event per successful mutation.
type Notifier interface {
	Notify(e events.Event)
}

// Options carries the optional parts of the API.
type Options struct {
	// Logger is the base logger request loggers derive from. Defaults to slog.Default().
	Logger *slog.Logger

	// APIKeyHash is the hex SHA-256 of the accepted X-API-Key value.
	APIKeyHash string

	// SkipAuth disables authentication (development and tests only).
	SkipAuth bool

	// Idempotency replays petting and feeding responses. Nil disables it.
	Idempotency *cache.IdempotencyCache
}

// API holds the router and the dependencies of every handler.
type API struct {
	// Router is the chi multiplexer serving every route.
	Router *chi.Mux

	logger      *slog.Logger
	users       store.UserRepository
	pets        store.PetRepository
	rules       pet.Rules
	notifier    Notifier
	idempotency *cache.IdempotencyCache
	apiKeyHash  string
	skipAuth    bool
}

// NewAPI wires the handlers. It panics on missing dependencies and when
// authentication is enabled without a key hash.
func NewAPI(users store.UserRepository, pets store.PetRepository, rules pet.Rules, notifier Notifier, opts Options) *API {
	validation.AssertNotNilInterface(users, "user repository")
	validation.AssertNotNilInterface(pets, "pet repository")
	validation.AssertNotNilInterface(rules, "attribute rules")
	validation.AssertNotNilInterface(notifier, "event notifier")

	if !opts.SkipAuth && opts.APIKeyHash == "" {
		panic("petapi: apiKeyHash cannot be empty when authentication is enabled")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	api := &API{
		Router:      chi.NewRouter(),
		logger:      opts.Logger,
		users:       users,
		pets:        pets,
		rules:       rules,
		notifier:    notifier,
		idempotency: opts.Idempotency,
		apiKeyHash:  strings.ToLower(opts.APIKeyHash),
		skipAuth:    opts.SkipAuth,
	}

	api.configureRoutes()
	return api
}

func (a *API) configureRoutes() {
	a.Router.Use(middleware.RequestID)
	a.Router.Use(middleware.RealIP)
	a.Router.Use(RequestLogger(a.logger))
	a.Router.Use(Metrics)
	a.Router.Use(middleware.Recoverer)
	a.Router.Use(render.SetContentType(render.ContentTypeJSON))

	a.Router.Get("/health", a.handleHealthCheck)

	a.Router.Route("/api/users", func(r chi.Router) {
		r.Use(a.authenticateAPIKey)

		r.Get("/", a.handleListUsers)

		r.Route("/{user}", func(r chi.Router) {
			r.Get("/", a.handleGetUser)
			r.Put("/", a.handleCreateUser)
			r.Delete("/", a.handleDeleteUser)

			r.Route("/pets", func(r chi.Router) {
				r.Get("/", a.handleListPets)

				r.Route("/{pet}", func(r chi.Router) {
					r.Get("/", a.handleGetPet)
					r.Put("/", a.handleCreatePet)
					r.Delete("/", a.handleDeletePet)
					r.Post("/petting/{duration}", a.handlePetting)
					r.Post("/feeding/{food}", a.handleFeeding)
				})
			})
		})
	})
}

// ServeHTTP lets the API be mounted directly as an http.Handler.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.Router.ServeHTTP(w, r)
}

// handleHealthCheck reports that the API can serve HTTP. Dependency checks
// live on the observability server.
func (a *API) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}
