package petapi

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/go-chi/render"

	"github.com/rafaeljc/petlife/internal/events"
	"github.com/rafaeljc/petlife/internal/logger"
	"github.com/rafaeljc/petlife/internal/pet"
	"github.com/rafaeljc/petlife/internal/store"
)

// handleListUsers processes GET /api/users. Users are sorted by name.
func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users := a.users.ListUsers()
	slices.SortFunc(users, func(x, y pet.User) int { return strings.Compare(x.Name, y.Name) })

	render.Status(r, http.StatusOK)
	render.JSON(w, r, users)
}

// handleGetUser processes GET /api/users/{user}.
func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, ok := a.users.GetUser(urlParam(r, "user"))
	if !ok {
		respondNotFound(w, r, "User not found")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, u)
}

// handleCreateUser processes PUT /api/users/{user}.
//
// The existence check and the insert are two separate store calls, so two
// concurrent registrations of the same name may both succeed. The second
// write is an identical overwrite, so no data is lost.
func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "user")
	ctx := logger.With(r.Context(), slog.String("user", name))
	log := logger.FromContext(ctx)

	var req CreateUserRequest
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
	if req.Name != name {
		respondError(w, r, http.StatusBadRequest, "ERR_NAME_MISMATCH", "Body name must match the URL")
		return
	}

	exists := slices.ContainsFunc(a.users.ListUsers(), func(u pet.User) bool { return u.Name == name })
	if exists {
		respondError(w, r, http.StatusConflict, "ERR_CONFLICT", "A user with this name already exists")
		return
	}

	u := pet.User{Name: req.Name}
	if err := a.users.UpsertUser(u); err != nil {
		log.Error("failed to store user", slog.String("error", err.Error()))
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrEmptyName) {
			status = http.StatusBadRequest
		}
		respondError(w, r, status, "ERR_STORE", "Failed to register user")
		return
	}

	a.notifier.Notify(events.NewUserEvent(events.UserRegistered, u.Name))
	log.Info("user registered", slog.String("user_repr", u.String()))

	w.Header().Set("Location", "/api/users/"+url.PathEscape(u.Name))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, u)
}

// handleDeleteUser processes DELETE /api/users/{user}. It succeeds whether or
// not the user existed and leaves the user's pets in place.
func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "user")

	if a.users.RemoveUser(name) {
		a.notifier.Notify(events.NewUserEvent(events.UserRemoved, name))
		logger.FromContext(r.Context()).Info("user removed", slog.String("user", name))
	}

	w.WriteHeader(http.StatusOK)
}
