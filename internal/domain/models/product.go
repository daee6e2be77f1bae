package models

// Product is a read-only snapshot of a catalog item. The catalog itself is an
// external collaborator: the core only reads these fields, it never writes them.
type Product struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
	Image string  `json:"image,omitempty"`
	SKU   string  `json:"sku,omitempty"`
	Stock int     `json:"stock"`
}
