package replica

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linemk/storefront/internal/domain/models"
	"github.com/linemk/storefront/internal/storage"
)

// Reconciler handles the authentication-state transitions of a Replica.
type Reconciler struct {
	log      *slog.Logger
	cartRepo storage.CartStorage
	wishRepo storage.WishlistStorage
}

func NewReconciler(log *slog.Logger, cartRepo storage.CartStorage, wishRepo storage.WishlistStorage) *Reconciler {
	return &Reconciler{
		log:      log,
		cartRepo: cartRepo,
		wishRepo: wishRepo,
	}
}

// OnSignIn performs a full overwrite, not a merge: the replica is replaced
// with the repository's current snapshot and anything added while anonymous
// is discarded. If either read fails the replica is left untouched, so the
// caller can retry without having lost the visible state.
func (r *Reconciler) OnSignIn(ctx context.Context, rep *Replica, userID int64) error {
	const op = "replica.Reconciler.OnSignIn"
	logger := r.log.With(slog.String("op", op), slog.Int64("userID", userID))

	cart, err := r.cartRepo.List(ctx, userID)
	if err != nil {
		logger.Error("failed to load cart snapshot", slog.Any("error", err))
		return fmt.Errorf("%s: failed to load cart: %w", op, err)
	}
	wishlist, err := r.wishRepo.List(ctx, userID)
	if err != nil {
		logger.Error("failed to load wishlist snapshot", slog.Any("error", err))
		return fmt.Errorf("%s: failed to load wishlist: %w", op, err)
	}

	cartLines := make([]models.CartLine, 0, len(cart))
	for _, line := range cart {
		cartLines = append(cartLines, *line)
	}
	wishLines := make([]models.WishlistLine, 0, len(wishlist))
	for _, line := range wishlist {
		wishLines = append(wishLines, *line)
	}
	rep.ReplaceAll(cartLines, wishLines)

	logger.Info("replica reconciled", slog.Int("cartLines", len(cartLines)), slog.Int("wishLines", len(wishLines)))
	return nil
}

// OnSignOut clears the replica unconditionally.
func (r *Reconciler) OnSignOut(rep *Replica) {
	rep.ClearAll()
	r.log.Info("replica cleared on sign-out")
}
