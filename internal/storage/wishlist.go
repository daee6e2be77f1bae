package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/linemk/storefront/internal/domain/models"
)

// WishlistStorage has the same lifecycle shape as CartStorage minus quantity
// semantics: a (user, product) pair is either present or not.
type WishlistStorage interface {
	Add(ctx context.Context, userID int64, productID string) error
	Remove(ctx context.Context, userID int64, productID string) error
	Clear(ctx context.Context, userID int64) error
	List(ctx context.Context, userID int64) ([]*models.WishlistLine, error)
}

type wishlistRepository struct {
	db *sql.DB
}

func NewWishlistRepository(db *sql.DB) WishlistStorage {
	return &wishlistRepository{db: db}
}

// Add is idempotent: re-adding a wished product is absorbed by the uniqueness
// constraint, never surfaced as a conflict.
func (r *wishlistRepository) Add(ctx context.Context, userID int64, productID string) error {
	query := `INSERT INTO wishlist_entries (user_id, product_id)
	          VALUES ($1, $2)
	          ON CONFLICT (user_id, product_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query, userID, productID)
	if err != nil {
		return fmt.Errorf("failed to add wishlist entry: %w", err)
	}
	return nil
}

func (r *wishlistRepository) Remove(ctx context.Context, userID int64, productID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM wishlist_entries WHERE user_id = $1 AND product_id = $2",
		userID, productID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove wishlist entry: %w", err)
	}
	return nil
}

func (r *wishlistRepository) Clear(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM wishlist_entries WHERE user_id = $1", userID)
	if err != nil {
		return fmt.Errorf("failed to clear wishlist: %w", err)
	}
	return nil
}

func (r *wishlistRepository) List(ctx context.Context, userID int64) ([]*models.WishlistLine, error) {
	query := `
		SELECT w.product_id, p.title, p.price, p.image, p.stock
		FROM wishlist_entries w
		JOIN products p ON w.product_id = p.id
		WHERE w.user_id = $1`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wishlist entries: %w", err)
	}
	defer rows.Close()

	var lines []*models.WishlistLine
	for rows.Next() {
		line := &models.WishlistLine{}
		if err := rows.Scan(&line.ProductID, &line.Title, &line.Price, &line.Image, &line.Stock); err != nil {
			return nil, fmt.Errorf("failed to scan wishlist entry: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
