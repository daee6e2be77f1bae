package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/linemk/storefront/internal/domain/models"
)

var ErrProductNotFound = errors.New("product not found")

// ProductStorage is the read-only view of the catalog. The core never writes
// products; it only reads snapshots of the display fields.
type ProductStorage interface {
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	// GetProductsByIDs loads a batch of products in one query, keyed by id.
	// Unknown ids are simply absent from the result, not an error.
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error)
}

type productRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) ProductStorage {
	return &productRepository{db: db}
}

func (r *productRepository) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	product := &models.Product{}
	query := "SELECT id, title, price, image, sku, stock FROM products WHERE id = $1"
	row := r.db.QueryRowContext(ctx, query, id)
	if err := row.Scan(&product.ID, &product.Title, &product.Price, &product.Image, &product.SKU, &product.Stock); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (r *productRepository) GetProductsByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	products := make(map[string]*models.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	query := "SELECT id, title, price, image, sku, stock FROM products WHERE id = ANY($1)"
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		product := &models.Product{}
		if err := rows.Scan(&product.ID, &product.Title, &product.Price, &product.Image, &product.SKU, &product.Stock); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products[product.ID] = product
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}
