package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/storefront/internal/domain/models"
	"github.com/linemk/storefront/internal/replica"
	"github.com/linemk/storefront/internal/storage"
)

// ErrRepositoryUnavailable marks a failed or timed-out repository call as
// retryable. The optimistic replica state is deliberately left in place when
// it is returned; divergence self-corrects on the next reconciliation.
var ErrRepositoryUnavailable = errors.New("repository unavailable")

// ErrUnknownProduct rejects mutations referencing a product the catalog does
// not know.
var ErrUnknownProduct = errors.New("unknown product")

type CartService interface {
	List(ctx context.Context, userID int64) ([]models.CartLine, error)
	Add(ctx context.Context, userID int64, productID string, qty int) ([]models.CartLine, error)
	SetQuantity(ctx context.Context, userID int64, productID string, qty int) ([]models.CartLine, error)
	Remove(ctx context.Context, userID int64, productID string) ([]models.CartLine, error)
	Clear(ctx context.Context, userID int64) error
	// OnSignIn overwrites the session replica with the repository snapshot.
	OnSignIn(ctx context.Context, userID int64) error
	// OnSignOut discards the session replica.
	OnSignOut(userID int64)
}

type cartService struct {
	log         *slog.Logger
	cartRepo    storage.CartStorage
	productRepo storage.ProductStorage
	sessions    *replica.Manager
	reconciler  *replica.Reconciler
	repoTimeout time.Duration
}

func NewCartService(log *slog.Logger, cartRepo storage.CartStorage, productRepo storage.ProductStorage,
	sessions *replica.Manager, reconciler *replica.Reconciler, repoTimeout time.Duration) CartService {
	return &cartService{
		log:         log,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		sessions:    sessions,
		reconciler:  reconciler,
		repoTimeout: repoTimeout,
	}
}

func (s *cartService) List(ctx context.Context, userID int64) ([]models.CartLine, error) {
	return s.sessions.Get(userID).CartSnapshot(), nil
}

// Add updates the replica first for immediate feedback, then mirrors the
// mutation to the repository within a bounded timeout. A repository failure
// is reported as retryable but never rolls the replica back.
func (s *cartService) Add(ctx context.Context, userID int64, productID string, qty int) ([]models.CartLine, error) {
	const op = "service.CartService.Add"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.String("productID", productID))

	if qty <= 0 {
		qty = 1
	}

	product, err := s.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUnknownProduct)
		}
		logger.Error("failed to read catalog", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, ErrRepositoryUnavailable)
	}

	rep := s.sessions.Get(userID)
	rep.AddItem(models.CartLine{
		ProductID: product.ID,
		Title:     product.Title,
		Price:     product.Price,
		Image:     product.Image,
		SKU:       product.SKU,
		Stock:     product.Stock,
		Quantity:  qty,
	})

	if err := s.mirror(ctx, func(mctx context.Context) error {
		return s.cartRepo.Add(mctx, userID, productID, qty)
	}); err != nil {
		logger.Error("cart mirror failed, optimistic state stands", slog.Any("error", err))
		return rep.CartSnapshot(), fmt.Errorf("%s: %w", op, ErrRepositoryUnavailable)
	}

	return rep.CartSnapshot(), nil
}

func (s *cartService) SetQuantity(ctx context.Context, userID int64, productID string, qty int) ([]models.CartLine, error) {
	const op = "service.CartService.SetQuantity"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.String("productID", productID))

	rep := s.sessions.Get(userID)
	rep.SetQuantity(productID, qty)

	if err := s.mirror(ctx, func(mctx context.Context) error {
		return s.cartRepo.SetQuantity(mctx, userID, productID, qty)
	}); err != nil {
		logger.Error("cart mirror failed, optimistic state stands", slog.Any("error", err))
		return rep.CartSnapshot(), fmt.Errorf("%s: %w", op, ErrRepositoryUnavailable)
	}

	return rep.CartSnapshot(), nil
}

func (s *cartService) Remove(ctx context.Context, userID int64, productID string) ([]models.CartLine, error) {
	const op = "service.CartService.Remove"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.String("productID", productID))

	rep := s.sessions.Get(userID)
	rep.RemoveItem(productID)

	if err := s.mirror(ctx, func(mctx context.Context) error {
		return s.cartRepo.Remove(mctx, userID, productID)
	}); err != nil {
		logger.Error("cart mirror failed, optimistic state stands", slog.Any("error", err))
		return rep.CartSnapshot(), fmt.Errorf("%s: %w", op, ErrRepositoryUnavailable)
	}

	return rep.CartSnapshot(), nil
}

func (s *cartService) Clear(ctx context.Context, userID int64) error {
	const op = "service.CartService.Clear"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	s.sessions.Get(userID).ClearCart()

	if err := s.mirror(ctx, func(mctx context.Context) error {
		return s.cartRepo.Clear(mctx, userID)
	}); err != nil {
		logger.Error("cart mirror failed, optimistic state stands", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, ErrRepositoryUnavailable)
	}
	return nil
}

func (s *cartService) OnSignIn(ctx context.Context, userID int64) error {
	return s.reconciler.OnSignIn(ctx, s.sessions.Get(userID), userID)
}

func (s *cartService) OnSignOut(userID int64) {
	s.reconciler.OnSignOut(s.sessions.Get(userID))
	s.sessions.Drop(userID)
}

// mirror runs one repository call under the configured timeout.
func (s *cartService) mirror(ctx context.Context, call func(context.Context) error) error {
	mctx, cancel := context.WithTimeout(ctx, s.repoTimeout)
	defer cancel()
	return call(mctx)
}
