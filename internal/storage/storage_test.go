package storage_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/linemk/storefront/internal/domain/models"
	"github.com/linemk/storefront/internal/storage"
	"github.com/stretchr/testify/assert"
)

func TestCartAdd_UsesAtomicUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewCartRepository(db)
	ctx := context.Background()

	// The accumulate-on-conflict increment must be a single statement, not an
	// insert followed by a read-modify-write.
	query := regexp.QuoteMeta("DO UPDATE SET quantity = cart_entries.quantity + EXCLUDED.quantity")
	mock.ExpectExec(query).WithArgs(int64(1), "p1", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Add(ctx, 1, "p1", 2)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartAdd_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewCartRepository(db)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO cart_entries").WithArgs(int64(1), "p1", 1).
		WillReturnError(errors.New("db down"))

	err = repo.Add(ctx, 1, "p1", 1)
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartSetQuantity_Absolute(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewCartRepository(db)
	ctx := context.Background()

	query := regexp.QuoteMeta("DO UPDATE SET quantity = EXCLUDED.quantity")
	mock.ExpectExec(query).WithArgs(int64(1), "p1", 5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.SetQuantity(ctx, 1, "p1", 5)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartSetQuantity_ZeroDeletes(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewCartRepository(db)
	ctx := context.Background()

	query := regexp.QuoteMeta("DELETE FROM cart_entries WHERE user_id = $1 AND product_id = $2")
	mock.ExpectExec(query).WithArgs(int64(1), "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.SetQuantity(ctx, 1, "p1", 0)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRemove_AbsentEntryIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewCartRepository(db)
	ctx := context.Background()

	query := regexp.QuoteMeta("DELETE FROM cart_entries WHERE user_id = $1 AND product_id = $2")
	mock.ExpectExec(query).WithArgs(int64(1), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0)) // nothing deleted, still no error

	err = repo.Remove(ctx, 1, "missing")
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartList_JoinsLiveCatalog(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewCartRepository(db)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"product_id", "title", "price", "image", "sku", "stock", "quantity"}).
		AddRow("p1", "Chair", 49.99, "chair.jpg", "CH-1", 12, 2).
		AddRow("p2", "Desk", 120.00, "", "", 3, 1)
	mock.ExpectQuery("JOIN products p ON c.product_id = p.id").WithArgs(int64(1)).
		WillReturnRows(rows)

	lines, err := repo.List(ctx, 1)
	assert.NoError(t, err)
	assert.Len(t, lines, 2)
	assert.Equal(t, "Chair", lines[0].Title)
	assert.Equal(t, 49.99, lines[0].Price)
	assert.Equal(t, 2, lines[0].Quantity)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistAdd_ConflictAbsorbed(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewWishlistRepository(db)
	ctx := context.Background()

	query := regexp.QuoteMeta("ON CONFLICT (user_id, product_id) DO NOTHING")
	// duplicate add affects zero rows and still succeeds
	mock.ExpectExec(query).WithArgs(int64(1), "p1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.Add(ctx, 1, "p1")
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_ReturnsGeneratedID(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	order := &models.Order{
		OrderNumber:   "20250101120000-abc",
		UserID:        1,
		Customer:      models.CustomerInfo{Email: "a@b.c", FirstName: "A", LastName: "B"},
		Billing:       models.Address{Address: "street 1", City: "Riga", Country: "LV"},
		Shipping:      models.Address{Address: "street 1", City: "Riga", Country: "LV"},
		Subtotal:      99.98,
		ShippingFee:   15,
		Total:         114.98,
		PaymentStatus: models.PaymentStatusPending,
		Status:        models.OrderStatusPending,
	}
	id, err := repo.CreateOrder(ctx, order)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), id)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderItems_SingleBulkInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	ctx := context.Background()

	// two items land in one multi-row statement
	query := regexp.QuoteMeta("($1, $2, $3, $4, $5, $6, $7, $8), ($9, $10, $11, $12, $13, $14, $15, $16)")
	mock.ExpectExec(query).WithArgs(
		int64(42), "p1", "Chair", "chair.jpg", "CH-1", 49.99, 2, 99.98,
		int64(42), "p2", "Desk", "", "", 120.0, 1, 120.0,
	).WillReturnResult(sqlmock.NewResult(0, 2))

	items := []models.OrderItem{
		{ProductID: "p1", ProductName: "Chair", ProductImage: "chair.jpg", ProductSKU: "CH-1", Price: 49.99, Quantity: 2, Subtotal: 99.98},
		{ProductID: "p2", ProductName: "Desk", Price: 120.0, Quantity: 1, Subtotal: 120.0},
	}
	err = repo.CreateOrderItems(ctx, 42, items)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderItems_EmptyRejected(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	err = repo.CreateOrderItems(context.Background(), 42, nil)
	assert.Error(t, err)
}

func TestDeleteOrder_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	ctx := context.Background()

	query := regexp.QuoteMeta("DELETE FROM orders WHERE id = $1")
	mock.ExpectExec(query).WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.DeleteOrder(ctx, 99)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrOrderNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func orderRowColumns() []string {
	return []string{
		"id", "order_number", "user_id",
		"customer_email", "customer_first_name", "customer_last_name", "customer_phone", "customer_company",
		"billing_address", "billing_address2", "billing_city", "billing_country", "billing_postal_code",
		"shipping_address", "shipping_address2", "shipping_city", "shipping_country", "shipping_postal_code", "shipping_method",
		"subtotal", "shipping_fee", "tax", "discount", "total",
		"payment_method", "payment_status", "status", "notes", "created_at",
	}
}

func addOrderRow(rows *sqlmock.Rows, id int64, userID int64, number string, created time.Time) *sqlmock.Rows {
	return rows.AddRow(
		id, number, userID,
		"a@b.c", "Ann", "Smith", "", "",
		"street 1", "", "Riga", "LV", "",
		"street 1", "", "Riga", "LV", "", "",
		99.98, 15.0, 0.0, 0.0, 114.98,
		"card", "pending", "pending", "", created,
	)
}

func TestGetOrderByID_WithItems(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	ctx := context.Background()

	now := time.Now()
	headerRows := addOrderRow(sqlmock.NewRows(orderRowColumns()), 42, 1, "20250101120000-abc", now)
	mock.ExpectQuery("FROM orders WHERE id = ").WithArgs(int64(42)).
		WillReturnRows(headerRows)

	itemRows := sqlmock.NewRows([]string{"id", "order_id", "product_id", "product_name", "product_image", "product_sku", "price", "quantity", "subtotal"}).
		AddRow(7, 42, "p1", "Chair", "chair.jpg", "CH-1", 49.99, 2, 99.98)
	mock.ExpectQuery("FROM order_items").WithArgs(pq.Array([]int64{42})).
		WillReturnRows(itemRows)

	order, err := repo.GetOrderByID(ctx, 42)
	assert.NoError(t, err)
	assert.Equal(t, "20250101120000-abc", order.OrderNumber)
	assert.Len(t, order.Items, 1)
	assert.Equal(t, 99.98, order.Items[0].Subtotal)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrderByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("FROM orders WHERE id = ").WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(orderRowColumns()))

	order, err := repo.GetOrderByID(ctx, 5)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrOrderNotFound))
	assert.Nil(t, order)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOrders_FiltersCombine(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	ctx := context.Background()

	now := time.Now()
	rows := sqlmock.NewRows(orderRowColumns())
	rows = addOrderRow(rows, 42, 7, "20250101120000-abc", now)
	rows = addOrderRow(rows, 41, 7, "20250101110000-def", now.Add(-time.Hour))

	query := regexp.QuoteMeta(`WHERE user_id = $1 AND status = $2 ORDER BY created_at DESC, id DESC LIMIT $3`)
	mock.ExpectQuery(query).WithArgs(int64(7), "pending", 10).
		WillReturnRows(rows)

	itemRows := sqlmock.NewRows([]string{"id", "order_id", "product_id", "product_name", "product_image", "product_sku", "price", "quantity", "subtotal"}).
		AddRow(1, 42, "p1", "Chair", "", "", 49.99, 2, 99.98).
		AddRow(2, 41, "p2", "Desk", "", "", 120.0, 1, 120.0)
	mock.ExpectQuery("FROM order_items").WithArgs(pq.Array([]int64{42, 41})).
		WillReturnRows(itemRows)

	orders, err := repo.ListOrders(ctx, storage.OrderFilter{UserID: 7, Status: "pending", Limit: 10})
	assert.NoError(t, err)
	assert.Len(t, orders, 2)
	assert.Equal(t, int64(42), orders[0].ID, "newest order comes first")
	assert.Len(t, orders[0].Items, 1)
	assert.Len(t, orders[1].Items, 1)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOrders_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("FROM orders").WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(orderRowColumns()))

	orders, err := repo.ListOrders(ctx, storage.OrderFilter{UserID: 7})
	assert.NoError(t, err)
	assert.Empty(t, orders)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOrphanedOrders(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	ctx := context.Background()

	cutoff := time.Now().Add(-time.Hour)
	mock.ExpectExec("NOT EXISTS").WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	swept, err := repo.DeleteOrphanedOrders(ctx, cutoff)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), swept)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProductByID_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewProductRepository(db)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"id", "title", "price", "image", "sku", "stock"}).
		AddRow("p1", "Chair", 49.99, "chair.jpg", "CH-1", 12)
	query := regexp.QuoteMeta("SELECT id, title, price, image, sku, stock FROM products WHERE id = $1")
	mock.ExpectQuery(query).WithArgs("p1").WillReturnRows(rows)

	product, err := repo.GetProductByID(ctx, "p1")
	assert.NoError(t, err)
	assert.Equal(t, "Chair", product.Title)
	assert.Equal(t, 49.99, product.Price)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProductByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewProductRepository(db)
	ctx := context.Background()

	query := regexp.QuoteMeta("SELECT id, title, price, image, sku, stock FROM products WHERE id = $1")
	mock.ExpectQuery(query).WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "price", "image", "sku", "stock"}))

	product, err := repo.GetProductByID(ctx, "missing")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrProductNotFound))
	assert.Nil(t, product)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProductsByIDs_UnknownIDsAbsent(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewProductRepository(db)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"id", "title", "price", "image", "sku", "stock"}).
		AddRow("p1", "Chair", 49.99, "chair.jpg", "CH-1", 12).
		AddRow("p2", "Desk", 120.0, "", "", 3)
	query := regexp.QuoteMeta("FROM products WHERE id = ANY($1)")
	mock.ExpectQuery(query).WithArgs(pq.Array([]string{"p1", "p2", "missing"})).
		WillReturnRows(rows)

	products, err := repo.GetProductsByIDs(ctx, []string{"p1", "p2", "missing"})
	assert.NoError(t, err)
	assert.Len(t, products, 2)
	assert.Equal(t, "Chair", products["p1"].Title)
	assert.Equal(t, 120.0, products["p2"].Price)
	assert.NotContains(t, products, "missing")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProductsByIDs_EmptyInputSkipsQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewProductRepository(db)

	products, err := repo.GetProductsByIDs(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, products)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByEmail_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)
	ctx := context.Background()
	email := "test@example.com"

	rows := sqlmock.NewRows([]string{"id", "email", "pass_hash"}).
		AddRow(1, email, []byte("hashed-password"))
	query := regexp.QuoteMeta("SELECT id, email, pass_hash FROM users WHERE email = $1")
	mock.ExpectQuery(query).WithArgs(email).WillReturnRows(rows)

	user, err := repo.GetUserByEmail(ctx, email)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, email, user.Email)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)
	ctx := context.Background()

	query := regexp.QuoteMeta("SELECT id, email, pass_hash FROM users WHERE email = $1")
	mock.ExpectQuery(query).WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "pass_hash"}))

	user, err := repo.GetUserByEmail(ctx, "nobody@example.com")
	assert.Error(t, err)
	assert.Nil(t, user)
	assert.True(t, errors.Is(err, storage.ErrUserNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)
	ctx := context.Background()

	query := regexp.QuoteMeta("INSERT INTO users (email, pass_hash) VALUES ($1, $2) RETURNING id")
	mock.ExpectQuery(query).WithArgs("create@example.com", []byte("hashed")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	user := &models.User{Email: "create@example.com", PassHash: []byte("hashed")}
	created, err := repo.CreateUser(ctx, user)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}
