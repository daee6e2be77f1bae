package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/storefront/internal/domain/models"
	"github.com/linemk/storefront/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/storefront/internal/service"
)

// AddCartItemRequest adds (or accumulates onto) one cart line.
type AddCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"omitempty,min=1"`
}

// SetCartQuantityRequest sets an absolute quantity; zero or less removes the line.
type SetCartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CartResponse returns the session replica's view of the cart. When the
// repository mirror failed the optimistic state is still returned, with
// synced=false so the UI can show a toast without dropping the lines.
type CartResponse struct {
	Success bool              `json:"success"`
	Synced  bool              `json:"synced"`
	Cart    []models.CartLine `json:"cart"`
	Error   string            `json:"error,omitempty"`
}

func writeCart(w http.ResponseWriter, log *slog.Logger, cart []models.CartLine, err error) {
	w.Header().Set("Content-Type", "application/json")
	resp := CartResponse{Success: true, Synced: true, Cart: cart}
	if cart == nil {
		resp.Cart = []models.CartLine{}
	}
	status := http.StatusOK

	switch {
	case err == nil:
	case errors.Is(err, service.ErrUnknownProduct):
		status = http.StatusBadRequest
		resp = CartResponse{Success: false, Error: "product does not exist"}
	case errors.Is(err, service.ErrRepositoryUnavailable):
		// Optimistic state stands; only the mirror failed.
		status = http.StatusServiceUnavailable
		resp.Success = false
		resp.Synced = false
		resp.Error = "cart could not be synced, please retry"
	default:
		status = http.StatusInternalServerError
		resp = CartResponse{Success: false, Error: "internal server error"}
	}

	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
		log.Error("failed to encode response", slog.Any("error", encErr))
	}
}

// GetCartHandler handles GET /api/cart.
func GetCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		cart, err := cartService.List(r.Context(), userID)
		writeCart(w, logger, cart, err)
	}
}

// AddCartItemHandler handles POST /api/cart.
func AddCartItemHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddCartItemHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req AddCartItemRequest
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

		cart, err := cartService.Add(r.Context(), userID, req.ProductID, req.Quantity)
		if err != nil {
			logger.Error("failed to add cart item", slog.Any("error", err))
		}
		writeCart(w, logger, cart, err)
	}
}

// SetCartQuantityHandler handles PUT /api/cart/{productID}.
func SetCartQuantityHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SetCartQuantityHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		productID := chi.URLParam(r, "productID")
		if productID == "" {
			logger.Error("productID parameter is missing")
			http.Error(w, "productID parameter is required", http.StatusBadRequest)
			return
		}

		var req SetCartQuantityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		cart, err := cartService.SetQuantity(r.Context(), userID, productID, req.Quantity)
		if err != nil {
			logger.Error("failed to set cart quantity", slog.Any("error", err))
		}
		writeCart(w, logger, cart, err)
	}
}

// RemoveCartItemHandler handles DELETE /api/cart/{productID}. Removing an
// absent line succeeds.
func RemoveCartItemHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RemoveCartItemHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		productID := chi.URLParam(r, "productID")
		if productID == "" {
			logger.Error("productID parameter is missing")
			http.Error(w, "productID parameter is required", http.StatusBadRequest)
			return
		}

		cart, err := cartService.Remove(r.Context(), userID, productID)
		if err != nil {
			logger.Error("failed to remove cart item", slog.Any("error", err))
		}
		writeCart(w, logger, cart, err)
	}
}

// ClearCartHandler handles DELETE /api/cart.
func ClearCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ClearCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		err := cartService.Clear(r.Context(), userID)
		if err != nil {
			logger.Error("failed to clear cart", slog.Any("error", err))
		}
		writeCart(w, logger, []models.CartLine{}, err)
	}
}
