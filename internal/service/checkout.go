package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/linemk/storefront/internal/domain/models"
	"github.com/linemk/storefront/internal/storage"
)

var (
	// ErrValidation rejects a checkout before anything is persisted.
	ErrValidation = errors.New("validation failed")
	// ErrOrderCreation means the header insert failed; nothing was written.
	ErrOrderCreation = errors.New("order creation failed")
	// ErrOrderItemsCreation means the items insert failed after the header
	// was written. The header is deleted as compensation; if that delete also
	// fails an orphaned pending order remains and is logged for the sweep.
	ErrOrderItemsCreation = errors.New("order items creation failed")
)

// CheckoutItem is one line of the cart snapshot the pipeline consumes. The
// snapshot comes from the session replica, not from the cart repository.
type CheckoutItem struct {
	ID       string
	Title    string
	Price    float64
	Quantity int
	Image    string
	SKU      string
}

// Pricing is the breakdown supplied with the checkout. Shipping, tax and
// discount are fixed inputs here, computed elsewhere.
type Pricing struct {
	Subtotal    float64
	ShippingFee float64
	Tax         float64
	Discount    float64
	Total       float64
}

type CheckoutInput struct {
	UserID        int64
	Customer      models.CustomerInfo
	Billing       models.Address
	Shipping      *models.Address // nil defaults to billing
	Items         []CheckoutItem
	Pricing       Pricing
	PaymentMethod string
	Notes         string
}

// CheckoutService is the order commit pipeline: validate, insert the header,
// insert the item snapshots, compensate on partial failure, read back.
type CheckoutService interface {
	Commit(ctx context.Context, input CheckoutInput) (*models.Order, error)
}

type checkoutService struct {
	log       *slog.Logger
	orderRepo storage.OrderStorage
}

func NewCheckoutService(log *slog.Logger, orderRepo storage.OrderStorage) CheckoutService {
	return &checkoutService{
		log:       log,
		orderRepo: orderRepo,
	}
}

// Commit runs the multi-step, non-transactional order write. Each step is a
// distinct persistence call; there is no cross-table transaction. The
// pipeline accepts no idempotency key: committing the same logical cart twice
// produces two distinct orders.
func (s *checkoutService) Commit(ctx context.Context, input CheckoutInput) (*models.Order, error) {
	const op = "service.CheckoutService.Commit"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", input.UserID))

	// Step 1: validate. Nothing is persisted past a failure here.
	if err := validateCheckout(input); err != nil {
		logger.Warn("checkout rejected", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	shipping := input.Billing
	if input.Shipping != nil {
		shipping = *input.Shipping
	}

	items := make([]models.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, models.OrderItem{
			ProductID:    item.ID,
			ProductName:  item.Title,
			ProductImage: item.Image,
			ProductSKU:   item.SKU,
			Price:        item.Price,
			Quantity:     item.Quantity,
			// The snapshot subtotal is fixed at commit time and never
			// re-derived afterwards.
			Subtotal: round2(item.Price * float64(item.Quantity)),
		})
	}

	order := &models.Order{
		OrderNumber:   newOrderNumber(),
		UserID:        input.UserID,
		Customer:      input.Customer,
		Billing:       input.Billing,
		Shipping:      shipping,
		Subtotal:      round2(input.Pricing.Subtotal),
		ShippingFee:   round2(input.Pricing.ShippingFee),
		Tax:           round2(input.Pricing.Tax),
		Discount:      round2(input.Pricing.Discount),
		Total:         round2(input.Pricing.Total),
		PaymentMethod: input.PaymentMethod,
		PaymentStatus: models.PaymentStatusPending,
		Status:        models.OrderStatusPending,
		Notes:         input.Notes,
		CreatedAt:     time.Now(),
	}

	// Step 2: insert the header. On failure nothing further runs.
	orderID, err := s.orderRepo.CreateOrder(ctx, order)
	if err != nil {
		logger.Error("failed to create order header", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w: %v", op, ErrOrderCreation, err)
	}
	order.ID = orderID

	// Step 3: insert the items. On failure, compensate by deleting the
	// just-created header so no orphan is left behind.
	if err := s.orderRepo.CreateOrderItems(ctx, orderID, items); err != nil {
		logger.Error("failed to create order items", slog.Int64("orderID", orderID), slog.Any("error", err))
		if delErr := s.orderRepo.DeleteOrder(ctx, orderID); delErr != nil {
			// Compensation itself failed: an orphaned pending header remains
			// until the sweep picks it up.
			logger.Error("compensation failed, orphaned order left behind",
				slog.Int64("orderID", orderID), slog.Any("error", delErr))
		}
		return nil, fmt.Errorf("%s: %w: %v", op, ErrOrderItemsCreation, err)
	}

	// Step 4: read back the committed order. A failure here does not undo the
	// commit; return what was written locally and let the caller retry the read.
	committed, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		logger.Warn("order committed but read-back failed",
			slog.Int64("orderID", orderID), slog.Any("error", err))
		order.Items = items
		return order, nil
	}

	logger.Info("order committed",
		slog.Int64("orderID", committed.ID),
		slog.String("orderNumber", committed.OrderNumber),
		slog.Float64("total", committed.Total))
	return committed, nil
}

// validateCheckout enforces the explicit request schema before any
// persistence call: user identity, contact info, billing address, a non-empty
// item list, and a consistent pricing breakdown to two decimal places.
func validateCheckout(input CheckoutInput) error {
	if input.UserID == 0 {
		return fmt.Errorf("%w: missing user id", ErrValidation)
	}
	if input.Customer.Email == "" || input.Customer.FirstName == "" || input.Customer.LastName == "" {
		return fmt.Errorf("%w: missing customer info", ErrValidation)
	}
	if input.Billing.Address == "" || input.Billing.City == "" || input.Billing.Country == "" {
		return fmt.Errorf("%w: missing billing address", ErrValidation)
	}
	if len(input.Items) == 0 {
		return fmt.Errorf("%w: cart is empty", ErrValidation)
	}

	var itemsSum float64
	for _, item := range input.Items {
		if item.ID == "" {
			return fmt.Errorf("%w: item without product id", ErrValidation)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: item %s has non-positive quantity", ErrValidation, item.ID)
		}
		if item.Price < 0 {
			return fmt.Errorf("%w: item %s has negative price", ErrValidation, item.ID)
		}
		itemsSum += round2(item.Price * float64(item.Quantity))
	}

	if round2(itemsSum) != round2(input.Pricing.Subtotal) {
		return fmt.Errorf("%w: subtotal %.2f does not match items sum %.2f",
			ErrValidation, input.Pricing.Subtotal, itemsSum)
	}
	expectedTotal := round2(input.Pricing.Subtotal + input.Pricing.ShippingFee + input.Pricing.Tax - input.Pricing.Discount)
	if round2(input.Pricing.Total) != expectedTotal {
		return fmt.Errorf("%w: total %.2f does not match breakdown %.2f",
			ErrValidation, input.Pricing.Total, expectedTotal)
	}
	return nil
}

// newOrderNumber produces a human-referenceable, roughly sortable order
// number: a second-resolution timestamp prefix plus a uuid suffix for
// uniqueness. The database keeps a unique index on it as the backstop.
func newOrderNumber() string {
	return time.Now().Format("20060102150405") + "-" + uuid.NewString()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
