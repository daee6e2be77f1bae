package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/linemk/storefront/internal/domain/models"
	"github.com/linemk/storefront/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/storefront/internal/service"
	"github.com/linemk/storefront/internal/storage"
)

// CreateOrderRequest is the explicit checkout schema. Fields are validated
// up front; nothing duck-typed survives to the persistence calls.
type CreateOrderRequest struct {
	UserID          int64                `json:"userId"`
	CustomerInfo    CustomerInfoPayload  `json:"customerInfo" validate:"required"`
	BillingAddress  AddressPayload       `json:"billingAddress" validate:"required"`
	ShippingAddress *AddressPayload      `json:"shippingAddress,omitempty"`
	CartItems       []CartItemPayload    `json:"cartItems" validate:"required,min=1,dive"`
	Pricing         PricingPayload       `json:"pricing" validate:"required"`
	PaymentMethod   string               `json:"paymentMethod,omitempty"`
	Notes           string               `json:"notes,omitempty"`
}

type CustomerInfoPayload struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Phone     string `json:"phone,omitempty"`
	Company   string `json:"company,omitempty"`
}

type AddressPayload struct {
	Address    string `json:"address" validate:"required"`
	Address2   string `json:"address2,omitempty"`
	City       string `json:"city" validate:"required"`
	Country    string `json:"country" validate:"required"`
	PostalCode string `json:"postalCode,omitempty"`
	Method     string `json:"method,omitempty"`
}

type CartItemPayload struct {
	ID       string  `json:"id" validate:"required"`
	Title    string  `json:"title" validate:"required"`
	Price    float64 `json:"price" validate:"gte=0"`
	Quantity int     `json:"quantity" validate:"min=1"`
	Image    string  `json:"image,omitempty"`
	SKU      string  `json:"sku,omitempty"`
}

type PricingPayload struct {
	Subtotal    float64 `json:"subtotal" validate:"gte=0"`
	ShippingFee float64 `json:"shippingFee"`
	Tax         float64 `json:"tax"`
	Discount    float64 `json:"discount"`
	Total       float64 `json:"total" validate:"gte=0"`
}

type CreateOrderResponse struct {
	Success     bool          `json:"success"`
	Order       *models.Order `json:"order"`
	OrderNumber string        `json:"orderNumber"`
}

type ListOrdersResponse struct {
	Success bool            `json:"success"`
	Orders  []*models.Order `json:"orders"`
}

type orderErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeOrderError(w http.ResponseWriter, log *slog.Logger, status int, msg, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(orderErrorResponse{Error: msg, Details: details}); err != nil {
		log.Error("failed to encode error response", slog.Any("error", err))
	}
}

// CreateOrderHandler handles POST /api/orders: the boundary of the order
// commit pipeline. The identity comes from the token, the cart snapshot from
// the request body. On success the caller-side effects run here: the session
// cart is cleared and the order number returned.
func CreateOrderHandler(log *slog.Logger, checkoutService service.CheckoutService, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateOrderHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			writeOrderError(w, logger, http.StatusBadRequest, "invalid request body", "")
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			writeOrderError(w, logger, http.StatusBadRequest, "missing or invalid checkout fields", err.Error())
			return
		}

		input := service.CheckoutInput{
			UserID: userID,
			Customer: models.CustomerInfo{
				Email:     req.CustomerInfo.Email,
				FirstName: req.CustomerInfo.FirstName,
				LastName:  req.CustomerInfo.LastName,
				Phone:     req.CustomerInfo.Phone,
				Company:   req.CustomerInfo.Company,
			},
			Billing: models.Address{
				Address:    req.BillingAddress.Address,
				Address2:   req.BillingAddress.Address2,
				City:       req.BillingAddress.City,
				Country:    req.BillingAddress.Country,
				PostalCode: req.BillingAddress.PostalCode,
			},
			Pricing: service.Pricing{
				Subtotal:    req.Pricing.Subtotal,
				ShippingFee: req.Pricing.ShippingFee,
				Tax:         req.Pricing.Tax,
				Discount:    req.Pricing.Discount,
				Total:       req.Pricing.Total,
			},
			PaymentMethod: req.PaymentMethod,
			Notes:         req.Notes,
		}
		if req.ShippingAddress != nil {
			input.Shipping = &models.Address{
				Address:    req.ShippingAddress.Address,
				Address2:   req.ShippingAddress.Address2,
				City:       req.ShippingAddress.City,
				Country:    req.ShippingAddress.Country,
				PostalCode: req.ShippingAddress.PostalCode,
				Method:     req.ShippingAddress.Method,
			}
		}
		for _, item := range req.CartItems {
			input.Items = append(input.Items, service.CheckoutItem{
				ID:       item.ID,
				Title:    item.Title,
				Price:    item.Price,
				Quantity: item.Quantity,
				Image:    item.Image,
				SKU:      item.SKU,
			})
		}

		order, err := checkoutService.Commit(r.Context(), input)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrValidation):
				writeOrderError(w, logger, http.StatusBadRequest, "checkout validation failed", err.Error())
			case errors.Is(err, service.ErrOrderCreation), errors.Is(err, service.ErrOrderItemsCreation):
				logger.Error("order commit failed", slog.Any("error", err))
				writeOrderError(w, logger, http.StatusInternalServerError, "failed to create order", err.Error())
			default:
				logger.Error("order commit failed", slog.Any("error", err))
				writeOrderError(w, logger, http.StatusInternalServerError, "failed to create order", "")
			}
			return
		}

		// Caller-side effect: the committed order owns the line items now, so
		// the session cart is emptied. A failed clear is only logged; the
		// order itself stands.
		if err := cartService.Clear(r.Context(), userID); err != nil {
			logger.Warn("failed to clear cart after checkout", slog.Any("error", err))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		resp := CreateOrderResponse{Success: true, Order: order, OrderNumber: order.OrderNumber}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
		}
	}
}

// ListOrdersHandler handles GET /api/orders?orderId=&status=&before=&limit=.
// The user filter always comes from the token: customers see only their own
// orders, and a userId query parameter cannot widen that.
func ListOrdersHandler(log *slog.Logger, orderService service.OrderQueryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListOrdersHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		filter := storage.OrderFilter{UserID: userID}
		q := r.URL.Query()

		if v := q.Get("orderId"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				writeOrderError(w, logger, http.StatusBadRequest, "invalid orderId", "")
				return
			}
			filter.OrderID = id
		}
		if v := q.Get("status"); v != "" {
			if !models.ValidOrderStatus(v) {
				writeOrderError(w, logger, http.StatusBadRequest, "invalid status", "")
				return
			}
			filter.Status = v
		}
		if v := q.Get("before"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				writeOrderError(w, logger, http.StatusBadRequest, "invalid before cursor", "")
				return
			}
			filter.Before = id
		}
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeOrderError(w, logger, http.StatusBadRequest, "invalid limit", "")
				return
			}
			filter.Limit = n
		}

		orders, err := orderService.List(r.Context(), filter)
		if err != nil {
			logger.Error("failed to list orders", slog.Any("error", err))
			writeOrderError(w, logger, http.StatusInternalServerError, "failed to list orders", "")
			return
		}
		if orders == nil {
			orders = []*models.Order{}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(ListOrdersResponse{Success: true, Orders: orders}); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
		}
	}
}
