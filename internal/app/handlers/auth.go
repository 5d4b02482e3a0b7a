package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/melihmerall/ilisan-commerce/internal/service"
	"github.com/melihmerall/ilisan-commerce/internal/storage"
)

// SessionTokenHeader carries the anonymous cart identity. Auth endpoints
// read it to merge the anonymous cart after login or registration.
const SessionTokenHeader = "X-Session-Token"

var validate = validator.New()

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// AuthResponse returns the bearer token.
type AuthResponse struct {
	Token string `json:"token"`
}

// RegisterHandler handles POST /api/auth/register. A session token in the
// request header triggers the anonymous-cart merge after the account is
// created.
func RegisterHandler(log *slog.Logger, authService service.AuthService, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RegisterHandler"
		logger := log.With(slog.String("op", op))

		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		token, user, err := authService.Register(r.Context(), req.Email, req.Password, req.FirstName, req.LastName, req.Phone)
		if err != nil {
			if errors.Is(err, storage.ErrUserExists) {
				http.Error(w, "email already registered", http.StatusConflict)
				return
			}
			logger.Error("registration failed", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		mergeSessionCart(r, logger, cartService, user.ID)
		writeJSON(w, logger, AuthResponse{Token: token})
	}
}

// LoginHandler handles POST /api/auth/login.
func LoginHandler(log *slog.Logger, authService service.AuthService, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.LoginHandler"
		logger := log.With(slog.String("op", op))

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		token, user, err := authService.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, service.ErrInvalidCredentials) {
				http.Error(w, "invalid credentials", http.StatusUnauthorized)
				return
			}
			logger.Error("login failed", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		mergeSessionCart(r, logger, cartService, user.ID)
		writeJSON(w, logger, AuthResponse{Token: token})
	}
}

// mergeSessionCart merges the anonymous cart into the user cart. The merge
// is idempotent, so a retried login cannot double quantities; a failure is
// logged and never blocks authentication.
func mergeSessionCart(r *http.Request, logger *slog.Logger, cartService service.CartService, userID int64) {
	sessionToken := r.Header.Get(SessionTokenHeader)
	if sessionToken == "" {
		return
	}
	if err := cartService.MergeOnAuthentication(r.Context(), sessionToken, userID); err != nil {
		logger.Error("failed to merge anonymous cart", slog.Any("error", err))
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
