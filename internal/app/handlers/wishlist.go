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

type AddWishlistItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

type WishlistResponse struct {
	Success  bool                  `json:"success"`
	Synced   bool                  `json:"synced"`
	Wishlist []models.WishlistLine `json:"wishlist"`
	Error    string                `json:"error,omitempty"`
}

func writeWishlist(w http.ResponseWriter, log *slog.Logger, wishlist []models.WishlistLine, err error) {
	w.Header().Set("Content-Type", "application/json")
	resp := WishlistResponse{Success: true, Synced: true, Wishlist: wishlist}
	if wishlist == nil {
		resp.Wishlist = []models.WishlistLine{}
	}
	status := http.StatusOK

	switch {
	case err == nil:
	case errors.Is(err, service.ErrUnknownProduct):
		status = http.StatusBadRequest
		resp = WishlistResponse{Success: false, Error: "product does not exist"}
	case errors.Is(err, service.ErrRepositoryUnavailable):
		status = http.StatusServiceUnavailable
		resp.Success = false
		resp.Synced = false
		resp.Error = "wishlist could not be synced, please retry"
	default:
		status = http.StatusInternalServerError
		resp = WishlistResponse{Success: false, Error: "internal server error"}
	}

	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
		log.Error("failed to encode response", slog.Any("error", encErr))
	}
}

// GetWishlistHandler handles GET /api/wishlist.
func GetWishlistHandler(log *slog.Logger, wishlistService service.WishlistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetWishlistHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		wishlist, err := wishlistService.List(r.Context(), userID)
		writeWishlist(w, logger, wishlist, err)
	}
}

// AddWishlistItemHandler handles POST /api/wishlist.
func AddWishlistItemHandler(log *slog.Logger, wishlistService service.WishlistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddWishlistItemHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req AddWishlistItemRequest
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

		wishlist, err := wishlistService.Add(r.Context(), userID, req.ProductID)
		if err != nil {
			logger.Error("failed to add wishlist item", slog.Any("error", err))
		}
		writeWishlist(w, logger, wishlist, err)
	}
}

// RemoveWishlistItemHandler handles DELETE /api/wishlist/{productID}.
func RemoveWishlistItemHandler(log *slog.Logger, wishlistService service.WishlistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RemoveWishlistItemHandler"
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

		wishlist, err := wishlistService.Remove(r.Context(), userID, productID)
		if err != nil {
			logger.Error("failed to remove wishlist item", slog.Any("error", err))
		}
		writeWishlist(w, logger, wishlist, err)
	}
}

// ClearWishlistHandler handles DELETE /api/wishlist.
func ClearWishlistHandler(log *slog.Logger, wishlistService service.WishlistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ClearWishlistHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		err := wishlistService.Clear(r.Context(), userID)
		if err != nil {
			logger.Error("failed to clear wishlist", slog.Any("error", err))
		}
		writeWishlist(w, logger, []models.WishlistLine{}, err)
	}
}
