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

type WishlistService interface {
	List(ctx context.Context, userID int64) ([]models.WishlistLine, error)
	Add(ctx context.Context, userID int64, productID string) ([]models.WishlistLine, error)
	Remove(ctx context.Context, userID int64, productID string) ([]models.WishlistLine, error)
	Clear(ctx context.Context, userID int64) error
}

type wishlistService struct {
	log         *slog.Logger
	wishRepo    storage.WishlistStorage
	productRepo storage.ProductStorage
	sessions    *replica.Manager
	repoTimeout time.Duration
}

func NewWishlistService(log *slog.Logger, wishRepo storage.WishlistStorage, productRepo storage.ProductStorage,
	sessions *replica.Manager, repoTimeout time.Duration) WishlistService {
	return &wishlistService{
		log:         log,
		wishRepo:    wishRepo,
		productRepo: productRepo,
		sessions:    sessions,
		repoTimeout: repoTimeout,
	}
}

func (s *wishlistService) List(ctx context.Context, userID int64) ([]models.WishlistLine, error) {
	return s.sessions.Get(userID).WishlistSnapshot(), nil
}

// Add follows the same optimistic pattern as the cart: replica first, then a
// bounded mirror call; a duplicate add is absorbed by the repository, never
// surfaced.
func (s *wishlistService) Add(ctx context.Context, userID int64, productID string) ([]models.WishlistLine, error) {
	const op = "service.WishlistService.Add"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.String("productID", productID))

	product, err := s.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUnknownProduct)
		}
		logger.Error("failed to read catalog", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, ErrRepositoryUnavailable)
	}

	rep := s.sessions.Get(userID)
	rep.AddWish(models.WishlistLine{
		ProductID: product.ID,
		Title:     product.Title,
		Price:     product.Price,
		Image:     product.Image,
		Stock:     product.Stock,
	})

	if err := s.mirror(ctx, func(mctx context.Context) error {
		return s.wishRepo.Add(mctx, userID, productID)
	}); err != nil {
		logger.Error("wishlist mirror failed, optimistic state stands", slog.Any("error", err))
		return rep.WishlistSnapshot(), fmt.Errorf("%s: %w", op, ErrRepositoryUnavailable)
	}

	return rep.WishlistSnapshot(), nil
}

func (s *wishlistService) Remove(ctx context.Context, userID int64, productID string) ([]models.WishlistLine, error) {
	const op = "service.WishlistService.Remove"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.String("productID", productID))

	rep := s.sessions.Get(userID)
	rep.RemoveWish(productID)

	if err := s.mirror(ctx, func(mctx context.Context) error {
		return s.wishRepo.Remove(mctx, userID, productID)
	}); err != nil {
		logger.Error("wishlist mirror failed, optimistic state stands", slog.Any("error", err))
		return rep.WishlistSnapshot(), fmt.Errorf("%s: %w", op, ErrRepositoryUnavailable)
	}

	return rep.WishlistSnapshot(), nil
}

func (s *wishlistService) Clear(ctx context.Context, userID int64) error {
	const op = "service.WishlistService.Clear"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	s.sessions.Get(userID).ClearWishlist()

	if err := s.mirror(ctx, func(mctx context.Context) error {
		return s.wishRepo.Clear(mctx, userID)
	}); err != nil {
		logger.Error("wishlist mirror failed, optimistic state stands", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, ErrRepositoryUnavailable)
	}
	return nil
}

func (s *wishlistService) mirror(ctx context.Context, call func(context.Context) error) error {
	mctx, cancel := context.WithTimeout(ctx, s.repoTimeout)
	defer cancel()
	return call(mctx)
}
