package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/linemk/storefront/internal/domain/models"
)

// CartStorage describes the persisted per-user cart. Rows are keyed on
// (user_id, product_id) with a uniqueness constraint; all cross-user
// concurrency is mediated here, never by application-level locking.
type CartStorage interface {
	// Add inserts the entry or increments the stored quantity by qty as one
	// atomic statement. Concurrent adds for the same (user, product) must
	// converge to the sum of quantities.
	Add(ctx context.Context, userID int64, productID string, qty int) error
	// SetQuantity is an idempotent absolute set; qty <= 0 deletes the entry.
	SetQuantity(ctx context.Context, userID int64, productID string, qty int) error
	// Remove deletes the entry if present; removing an absent entry is not an error.
	Remove(ctx context.Context, userID int64, productID string) error
	Clear(ctx context.Context, userID int64) error
	// List returns the user's entries joined with the live catalog fields.
	List(ctx context.Context, userID int64) ([]*models.CartLine, error)
}

type cartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) CartStorage {
	return &cartRepository{db: db}
}

// Add relies on a single upsert so the read-modify-write never spans two round
// trips: two concurrent adds both land on the same row and the increments
// accumulate instead of one overwriting the other.
func (r *cartRepository) Add(ctx context.Context, userID int64, productID string, qty int) error {
	query := `INSERT INTO cart_entries (user_id, product_id, quantity)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (user_id, product_id)
	          DO UPDATE SET quantity = cart_entries.quantity + EXCLUDED.quantity`
	_, err := r.db.ExecContext(ctx, query, userID, productID, qty)
	if err != nil {
		return fmt.Errorf("failed to add cart entry: %w", err)
	}
	return nil
}

func (r *cartRepository) SetQuantity(ctx context.Context, userID int64, productID string, qty int) error {
	if qty <= 0 {
		return r.Remove(ctx, userID, productID)
	}
	query := `INSERT INTO cart_entries (user_id, product_id, quantity)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (user_id, product_id)
	          DO UPDATE SET quantity = EXCLUDED.quantity`
	_, err := r.db.ExecContext(ctx, query, userID, productID, qty)
	if err != nil {
		return fmt.Errorf("failed to set cart quantity: %w", err)
	}
	return nil
}

func (r *cartRepository) Remove(ctx context.Context, userID int64, productID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM cart_entries WHERE user_id = $1 AND product_id = $2",
		userID, productID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove cart entry: %w", err)
	}
	return nil
}

func (r *cartRepository) Clear(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM cart_entries WHERE user_id = $1", userID)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// List joins the catalog so prices reflect the current catalog, not a snapshot.
// Order is arbitrary; the UI re-sorts.
func (r *cartRepository) List(ctx context.Context, userID int64) ([]*models.CartLine, error) {
	query := `
		SELECT c.product_id, p.title, p.price, p.image, p.sku, p.stock, c.quantity
		FROM cart_entries c
		JOIN products p ON c.product_id = p.id
		WHERE c.user_id = $1`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart entries: %w", err)
	}
	defer rows.Close()

	var lines []*models.CartLine
	for rows.Next() {
		line := &models.CartLine{}
		if err := rows.Scan(&line.ProductID, &line.Title, &line.Price, &line.Image, &line.SKU, &line.Stock, &line.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan cart entry: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
