package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/linemk/storefront/internal/domain/models"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderFilter narrows ListOrders. Zero values mean "no filter". Before is a
// keyset cursor: only orders with id < Before are returned.
type OrderFilter struct {
	OrderID int64
	UserID  int64
	Status  string
	Before  int64
	Limit   int
}

// OrderStorage persists order headers and their item snapshots. Header and
// items are written by separate statements on purpose: the commit pipeline
// owns the compensation logic, the repository only exposes the pieces.
type OrderStorage interface {
	// CreateOrder inserts the header and returns its generated id.
	CreateOrder(ctx context.Context, order *models.Order) (int64, error)
	// CreateOrderItems bulk-inserts the item snapshots for one order.
	CreateOrderItems(ctx context.Context, orderID int64, items []models.OrderItem) error
	// DeleteOrder removes the header; items go with it via FK cascade. Used
	// solely as the compensating rollback after a failed item insert.
	DeleteOrder(ctx context.Context, orderID int64) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	// ListOrders returns headers with nested items, newest first.
	ListOrders(ctx context.Context, filter OrderFilter) ([]*models.Order, error)
	// DeleteOrphanedOrders removes pending headers with no items created
	// before the cutoff. Returns the number of rows swept.
	DeleteOrphanedOrders(ctx context.Context, cutoff time.Time) (int64, error)
}

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

const orderColumns = `id, order_number, user_id,
		customer_email, customer_first_name, customer_last_name, customer_phone, customer_company,
		billing_address, billing_address2, billing_city, billing_country, billing_postal_code,
		shipping_address, shipping_address2, shipping_city, shipping_country, shipping_postal_code, shipping_method,
		subtotal, shipping_fee, tax, discount, total,
		payment_method, payment_status, status, notes, created_at`

func (r *orderRepository) CreateOrder(ctx context.Context, order *models.Order) (int64, error) {
	query := `INSERT INTO orders (order_number, user_id,
		customer_email, customer_first_name, customer_last_name, customer_phone, customer_company,
		billing_address, billing_address2, billing_city, billing_country, billing_postal_code,
		shipping_address, shipping_address2, shipping_city, shipping_country, shipping_postal_code, shipping_method,
		subtotal, shipping_fee, tax, discount, total,
		payment_method, payment_status, status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
		        $19, $20, $21, $22, $23, $24, $25, $26, $27, NOW())
		RETURNING id`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		order.OrderNumber, order.UserID,
		order.Customer.Email, order.Customer.FirstName, order.Customer.LastName, order.Customer.Phone, order.Customer.Company,
		order.Billing.Address, order.Billing.Address2, order.Billing.City, order.Billing.Country, order.Billing.PostalCode,
		order.Shipping.Address, order.Shipping.Address2, order.Shipping.City, order.Shipping.Country, order.Shipping.PostalCode, order.Shipping.Method,
		order.Subtotal, order.ShippingFee, order.Tax, order.Discount, order.Total,
		order.PaymentMethod, order.PaymentStatus, order.Status, order.Notes,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create order: %w", err)
	}
	return id, nil
}

// CreateOrderItems builds one multi-row insert so an order's items land in a
// single statement. Subtotal is supplied by the caller, computed at insert
// time as price * quantity, and never re-derived later.
func (r *orderRepository) CreateOrderItems(ctx context.Context, orderID int64, items []models.OrderItem) error {
	if len(items) == 0 {
		return errors.New("no order items to insert")
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO order_items (order_id, product_id, product_name, product_image, product_sku, price, quantity, subtotal) VALUES `)
	args := make([]interface{}, 0, len(items)*8)
	for i, item := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 8
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))
		args = append(args, orderID, item.ProductID, item.ProductName, item.ProductImage, item.ProductSKU,
			item.Price, item.Quantity, item.Subtotal)
	}

	_, err := r.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return fmt.Errorf("failed to create order items: %w", err)
	}
	return nil
}

func (r *orderRepository) DeleteOrder(ctx context.Context, orderID int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", orderID)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders WHERE id = $1"
	row := r.db.QueryRowContext(ctx, query, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	items, err := r.itemsByOrderIDs(ctx, []int64{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]
	return order, nil
}

func (r *orderRepository) ListOrders(ctx context.Context, filter OrderFilter) ([]*models.Order, error) {
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.OrderID != 0 {
		conds = append(conds, "id = "+arg(filter.OrderID))
	}
	if filter.UserID != 0 {
		conds = append(conds, "user_id = "+arg(filter.UserID))
	}
	if filter.Status != "" {
		conds = append(conds, "status = "+arg(filter.Status))
	}
	if filter.Before != 0 {
		conds = append(conds, "id < "+arg(filter.Before))
	}

	query := "SELECT " + orderColumns + " FROM orders"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	var ids []int64
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	items, err := r.itemsByOrderIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, order := range orders {
		order.Items = items[order.ID]
	}
	return orders, nil
}

func (r *orderRepository) DeleteOrphanedOrders(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM orders o
	          WHERE o.status = 'pending'
	            AND o.created_at < $1
	            AND NOT EXISTS (SELECT 1 FROM order_items i WHERE i.order_id = o.id)`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep orphaned orders: %w", err)
	}
	return res.RowsAffected()
}

// itemsByOrderIDs loads the items for a batch of orders in one query.
func (r *orderRepository) itemsByOrderIDs(ctx context.Context, ids []int64) (map[int64][]models.OrderItem, error) {
	query := `SELECT id, order_id, product_id, product_name, product_image, product_sku, price, quantity, subtotal
	          FROM order_items
	          WHERE order_id = ANY($1)
	          ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := make(map[int64][]models.OrderItem)
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.ProductImage,
			&item.ProductSKU, &item.Price, &item.Quantity, &item.Subtotal); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items[item.OrderID] = append(items[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(
		&order.ID, &order.OrderNumber, &order.UserID,
		&order.Customer.Email, &order.Customer.FirstName, &order.Customer.LastName, &order.Customer.Phone, &order.Customer.Company,
		&order.Billing.Address, &order.Billing.Address2, &order.Billing.City, &order.Billing.Country, &order.Billing.PostalCode,
		&order.Shipping.Address, &order.Shipping.Address2, &order.Shipping.City, &order.Shipping.Country, &order.Shipping.PostalCode, &order.Shipping.Method,
		&order.Subtotal, &order.ShippingFee, &order.Tax, &order.Discount, &order.Total,
		&order.PaymentMethod, &order.PaymentStatus, &order.Status, &order.Notes, &order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}
