package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/linemk/storefront/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/storefront/internal/service"
)

// AuthRequest carries the sign-in credentials.
type AuthRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// AuthResponse carries the issued JWT.
type AuthResponse struct {
	Token string `json:"token"`
}

var validate = validator.New()

// AuthHandler handles POST /api/auth. A successful sign-in triggers the
// replica reconciliation: the session state is replaced wholesale with the
// repository snapshot, so items gathered anonymously do not survive.
func AuthHandler(log *slog.Logger, authService service.AuthServiceInterface, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AuthHandler"
		logger := log.With(slog.String("op", op))

		var req AuthRequest
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

		token, userID, err := authService.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			logger.Error("login failed", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		// Reconciliation failure does not fail the sign-in; the replica stays
		// as it was and self-corrects on the next sign-in cycle.
		if err := cartService.OnSignIn(r.Context(), userID); err != nil {
			logger.Warn("sign-in reconciliation failed", slog.Any("error", err))
		}

		resp := AuthResponse{Token: token}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
	}
}

// LogoutHandler handles POST /api/logout: the session replica is discarded
// unconditionally.
func LogoutHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.LogoutHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		cartService.OnSignOut(userID)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"message": "signed out"}); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	}
}
