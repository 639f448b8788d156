package usershandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/tbaschet/user-wallet-service/internal/entity"
)

type usersService interface {
	CreateUser(ctx context.Context, user entity.User) (entity.UserInfo, error)
	GetUsers(ctx context.Context) ([]entity.UserInfo, error)
	StreamUsers(ctx context.Context) (entity.UserStream, error)
	GetUser(ctx context.Context, userID entity.UserID) (entity.UserInfo, error)
	DeleteUser(ctx context.Context, userID entity.UserID) error
}

type Handler struct {
	usersService usersService
}

func New(usersService usersService) *Handler {
	return &Handler{
		usersService: usersService,
	}
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var user entity.User

	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		http.Error(w, "error decoding json when creating user", http.StatusBadRequest)

		return
	}

	ctx := r.Context()

	info, err := h.usersService.CreateUser(ctx, user)

	switch {
	case errors.Is(err, entity.ErrUserEmptyID):
		http.Error(w, "user validation error", http.StatusBadRequest)

		return
	case errors.Is(err, entity.ErrUserExists):
		http.Error(w, "user already exists", http.StatusConflict)

		return
	case err != nil:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err = json.NewEncoder(w).Encode(info); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")

		return
	}
}

func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	usersInfo, err := h.usersService.GetUsers(r.Context())
	if err != nil {
		http.Error(w, "failed to obtain users", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(usersInfo); err != nil {
		log.Warn().Err(err).Msg("error while encoding users info")

		return
	}
}

// GetUsersStream writes the joined users read as newline-delimited
// JSON, one record per line, flushing as it goes. The stream is closed
// via defer, so a consumer disconnecting early does not leak the
// underlying session.
func (h *Handler) GetUsersStream(w http.ResponseWriter, r *http.Request) {
	stream, err := h.usersService.StreamUsers(r.Context())
	if err != nil {
		http.Error(w, "failed to stream users", http.StatusInternalServerError)

		return
	}

	defer stream.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	encoder := json.NewEncoder(w)

	for {
		info, ok, err := stream.Next()
		if err != nil {
			log.Warn().Err(err).Msg("error while streaming users info")

			return
		}

		if !ok {
			return
		}

		if err := encoder.Encode(info); err != nil {
			log.Warn().Err(err).Msg("error while encoding streamed user info")

			return
		}

		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := entity.UserID(chi.URLParam(r, "userId"))
	if userID == "" {
		http.Error(w, "userId empty", http.StatusBadRequest)

		return
	}

	info, err := h.usersService.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, entity.ErrUserNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)

			return
		}

		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(info); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")

		return
	}
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := entity.UserID(chi.URLParam(r, "userId"))
	if userID == "" {
		http.Error(w, "userId empty", http.StatusBadRequest)

		return
	}

	err := h.usersService.DeleteUser(r.Context(), userID)

	switch {
	case errors.Is(err, entity.ErrUserNotFound):
		http.Error(w, "user not found", http.StatusNotFound)

		return
	case err != nil:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
