package petapi

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/render"

	"github.com/rafaeljc/petlife/internal/cache"
	"github.com/rafaeljc/petlife/internal/events"
	"github.com/rafaeljc/petlife/internal/logger"
	"github.com/rafaeljc/petlife/internal/pet"
	"github.com/rafaeljc/petlife/internal/store"
)

const (
	// IdempotencyKeyHeader lets clients retry petting and feeding safely.
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotentReplayedHeader is set to "true" on replayed responses.
	IdempotentReplayedHeader = "Idempotent-Replayed"
)

// handleListPets processes GET /api/users/{user}/pets.
func (a *API) handleListPets(w http.ResponseWriter, r *http.Request) {
	userName := urlParam(r, "user")
	if _, ok := a.users.GetUser(userName); !ok {
		respondNotFound(w, r, "User not found")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, a.pets.ListPets(userName))
}

// handleGetPet processes GET /api/users/{user}/pets/{pet}.
func (a *API) handleGetPet(w http.ResponseWriter, r *http.Request) {
	userName := urlParam(r, "user")
	if _, ok := a.users.GetUser(userName); !ok {
		respondNotFound(w, r, "User not found")
		return
	}

	p, ok := a.pets.GetPet(userName, urlParam(r, "pet"))
	if !ok {
		respondNotFound(w, r, "Pet not found")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, p)
}

// handleCreatePet processes PUT /api/users/{user}/pets/{pet}.
//
// Responsibilities:
// 1. Decodes and validates the body; the body name must match the URL.
// 2. Requires the owner to exist and the name to be free.
// 3. Stores the pet with default attributes, whatever the body says.
func (a *API) handleCreatePet(w http.ResponseWriter, r *http.Request) {
	userName, petName := urlParam(r, "user"), urlParam(r, "pet")
	ctx := logger.With(r.Context(), slog.String("user", userName), slog.String("pet", petName))
	log := logger.FromContext(ctx)

	var req CreatePetRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("invalid json payload", slog.String("error", err.Error()))
		respondError(w, r, http.StatusBadRequest, "ERR_INVALID_JSON", "Invalid JSON payload: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, validationError(err))
		return
	}
	if req.Name != petName {
		respondError(w, r, http.StatusBadRequest, "ERR_NAME_MISMATCH", "Body name must match the URL")
		return
	}

	if _, ok := a.users.GetUser(userName); !ok {
		respondNotFound(w, r, "User not found")
		return
	}
	if _, exists := a.pets.GetPet(userName, petName); exists {
		respondError(w, r, http.StatusConflict, "ERR_CONFLICT", "A pet with this name already exists")
		return
	}

	p := pet.New(req.Name, req.Type)
	if err := a.pets.UpsertPet(userName, p); err != nil {
		a.respondStoreError(w, r, log, err)
		return
	}

	a.notifier.Notify(events.NewPetEvent(events.PetCreated, userName, p))
	log.Info("pet created", slog.String("pet_repr", p.String()))

	w.Header().Set("Location", "/api/users/"+url.PathEscape(userName)+"/pets/"+url.PathEscape(p.Name))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, p)
}

// handleDeletePet processes DELETE /api/users/{user}/pets/{pet}. It succeeds
// whether or not the pet existed.
func (a *API) handleDeletePet(w http.ResponseWriter, r *http.Request) {
	userName, petName := urlParam(r, "user"), urlParam(r, "pet")

	if a.pets.RemovePet(userName, petName) {
		a.notifier.Notify(events.NewPetEvent(events.PetRemoved, userName, pet.Pet{Name: petName}))
		logger.FromContext(r.Context()).Info("pet removed", slog.String("user", userName), slog.String("pet", petName))
	}

	w.WriteHeader(http.StatusOK)
}

// handlePetting processes POST /api/users/{user}/pets/{pet}/petting/{duration}.
func (a *API) handlePetting(w http.ResponseWriter, r *http.Request) {
	raw := urlParam(r, "duration")
	d, err := parsePettingDuration(raw)
	if err == nil && d <= 0 {
		err = errors.New("duration must be positive")
	}
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "ERR_INVALID_DURATION", err.Error())
		return
	}

	a.interact(w, r, "petting", events.PetPetted, func(p *pet.Pet) error {
		return p.ApplyPetting(d, a.rules)
	}, slog.Duration("duration", d))
}

// handleFeeding processes POST /api/users/{user}/pets/{pet}/feeding/{food}.
func (a *API) handleFeeding(w http.ResponseWriter, r *http.Request) {
	food, err := parseFood(urlParam(r, "food"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "ERR_INVALID_FOOD", err.Error())
		return
	}

	a.interact(w, r, "feeding", events.PetFed, func(p *pet.Pet) error {
		return p.ApplyFeeding(food, a.rules)
	}, slog.Uint64("food", uint64(food)))
}

// interact runs the read-modify-write shared by petting and feeding. With an
// Idempotency-Key header and the cache enabled, a repeated request replays
// the first successful response instead of applying the interaction again.
func (a *API) interact(w http.ResponseWriter, r *http.Request, action string, evType events.Type, apply func(*pet.Pet) error, detail slog.Attr) {
	userName, petName := urlParam(r, "user"), urlParam(r, "pet")
	ctx := logger.With(r.Context(), slog.String("user", userName), slog.String("pet", petName), detail)
	log := logger.FromContext(ctx)

	run := func() cache.Entry {
		if _, ok := a.users.GetUser(userName); !ok {
			return cache.Entry{Status: http.StatusNotFound}
		}
		p, ok := a.pets.GetPet(userName, petName)
		if !ok {
			return cache.Entry{Status: http.StatusNotFound}
		}

		if err := apply(&p); err != nil {
			log.Warn("interaction rejected", slog.String("error", err.Error()))
			return cache.Entry{Status: http.StatusBadRequest}
		}
		if err := a.pets.UpsertPet(userName, p); err != nil {
			log.Error("failed to store pet", slog.String("error", err.Error()))
			if errors.Is(err, store.ErrResourceExhausted) {
				return cache.Entry{Status: http.StatusInsufficientStorage}
			}
			return cache.Entry{Status: http.StatusInternalServerError}
		}

		a.notifier.Notify(events.NewPetEvent(evType, userName, p))
		log.Info("pet "+action+" applied", slog.String("pet_repr", p.String()))
		return cache.Entry{Status: http.StatusOK, Pet: p}
	}

	var entry cache.Entry
	key := r.Header.Get(IdempotencyKeyHeader)
	if a.idempotency != nil && key != "" {
		var replayed bool
		entry, replayed = a.idempotency.Do(cache.Key(userName, petName, action, key), run)
		if replayed {
			w.Header().Set(IdempotentReplayedHeader, "true")
		}
	} else {
		entry = run()
	}

	switch entry.Status {
	case http.StatusOK:
		render.Status(r, http.StatusOK)
		render.JSON(w, r, entry.Pet)
	case http.StatusNotFound:
		respondNotFound(w, r, "User or pet not found")
	case http.StatusBadRequest:
		respondError(w, r, http.StatusBadRequest, "ERR_INVALID_INPUT", "Interaction rejected")
	case http.StatusInsufficientStorage:
		respondError(w, r, http.StatusInsufficientStorage, "ERR_RESOURCE_EXHAUSTED", "Pet store is full")
	default:
		respondError(w, r, http.StatusInternalServerError, "ERR_INTERNAL", "Failed to update pet")
	}
}

// respondStoreError maps repository errors of a pet write to HTTP.
func (a *API) respondStoreError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, store.ErrResourceExhausted):
		log.Warn("pet store bound reached", slog.String("error", err.Error()))
		respondError(w, r, http.StatusInsufficientStorage, "ERR_RESOURCE_EXHAUSTED", "Too many pets for this user")
	case errors.Is(err, store.ErrEmptyName):
		respondError(w, r, http.StatusBadRequest, "ERR_INVALID_INPUT", "Pet name is required")
	default:
		log.Error("failed to store pet", slog.String("error", err.Error()))
		respondError(w, r, http.StatusInternalServerError, "ERR_INTERNAL", "Failed to store pet")
	}
}
