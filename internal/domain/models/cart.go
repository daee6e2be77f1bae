package models

// CartEntry is a persisted (user, product) row with a quantity. The pair is
// unique per user; quantity is always >= 1 (setting it to zero deletes the row).
type CartEntry struct {
	UserID    int64  `json:"user_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CartLine is a cart entry joined with the live catalog fields. Title, price
// and image are not stored on the entry, so the cart always shows the current
// catalog price rather than a snapshot.
type CartLine struct {
	ProductID string  `json:"product_id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Image     string  `json:"image,omitempty"`
	SKU       string  `json:"sku,omitempty"`
	Stock     int     `json:"stock"`
	Quantity  int     `json:"quantity"`
}

// WishlistEntry is the quantity-less sibling of CartEntry.
type WishlistEntry struct {
	UserID    int64  `json:"user_id"`
	ProductID string `json:"product_id"`
}

// WishlistLine is a wishlist entry joined with the live catalog fields.
type WishlistLine struct {
	ProductID string  `json:"product_id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Image     string  `json:"image,omitempty"`
	Stock     int     `json:"stock"`
}
