package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oficina-virtual/apiserver/internal/services"
	"github.com/rs/zerolog"
)

// UserHandler provides HTTP handlers for the user directory.
type UserHandler struct {
	userService *services.UserService
	log         zerolog.Logger
}

func NewUserHandler(userService *services.UserService, log zerolog.Logger) *UserHandler {
	return &UserHandler{userService: userService, log: log}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, userService *services.UserService, log zerolog.Logger) {
	handler := NewUserHandler(userService, log)

	r.Post("/", handler.CreateUser)
	r.Get("/", handler.ListUsers)
	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", handler.GetUser)
		r.Patch("/", handler.UpdateUser)
		r.Delete("/", handler.DeleteUser)
	})
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.userService.Create(r.Context(), req.Input())
	if err != nil {
		writeServiceError(w, h.log, err, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "failed to list users")
		return
	}

	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, h.log, err, "failed to fetch user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.userService.Update(r.Context(), chi.URLParam(r, "userID"), req.Input())
	if err != nil {
		writeServiceError(w, h.log, err, "failed to update user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.userService.Delete(r.Context(), chi.URLParam(r, "userID")); err != nil {
		writeServiceError(w, h.log, err, "failed to delete user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := decodeAndValidate(r, dst)
	if err == nil {
		return true
	}

	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		writeValidationError(w, verrs)
		return false
	}
	h.log.Error().Err(err).Msg("failed to validate request")
	writeError(w, http.StatusInternalServerError, "failed to validate request")
	return false
}
