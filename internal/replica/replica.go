package replica

import (
	"sync"

	"github.com/linemk/storefront/internal/domain/models"
)

// Replica is the in-memory, UI-facing mirror of one session's cart and
// wishlist. User actions mutate it synchronously for immediate feedback,
// before (and regardless of whether) the repository confirms the write. It is
// scoped to a single browser session, so the mutex only guards against the
// session's own overlapping actions.
//
// The replica is a cache without a staleness guarantee between sign-in
// boundaries: a failed repository write leaves it diverged until the next
// reconciliation.
type Replica struct {
	mu       sync.Mutex
	cart     map[string]*models.CartLine
	wishlist map[string]*models.WishlistLine
}

func New() *Replica {
	return &Replica{
		cart:     make(map[string]*models.CartLine),
		wishlist: make(map[string]*models.WishlistLine),
	}
}

// AddItem inserts the line or increments the quantity of an existing one,
// mirroring the repository's accumulate-on-conflict contract.
func (r *Replica) AddItem(line models.CartLine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if line.Quantity <= 0 {
		line.Quantity = 1
	}
	if existing, ok := r.cart[line.ProductID]; ok {
		existing.Quantity += line.Quantity
		return
	}
	copied := line
	r.cart[line.ProductID] = &copied
}

// SetQuantity sets an absolute quantity; qty <= 0 removes the line.
func (r *Replica) SetQuantity(productID string, qty int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if qty <= 0 {
		delete(r.cart, productID)
		return
	}
	if existing, ok := r.cart[productID]; ok {
		existing.Quantity = qty
	}
}

func (r *Replica) RemoveItem(productID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cart, productID)
}

func (r *Replica) ClearCart() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cart = make(map[string]*models.CartLine)
}

// CartSnapshot returns a copy of the current cart lines. Checkout consumes
// this snapshot, not the repository state.
func (r *Replica) CartSnapshot() []models.CartLine {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := make([]models.CartLine, 0, len(r.cart))
	for _, line := range r.cart {
		lines = append(lines, *line)
	}
	return lines
}

func (r *Replica) AddWish(line models.WishlistLine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.wishlist[line.ProductID]; ok {
		return
	}
	copied := line
	r.wishlist[line.ProductID] = &copied
}

func (r *Replica) RemoveWish(productID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.wishlist, productID)
}

func (r *Replica) ClearWishlist() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wishlist = make(map[string]*models.WishlistLine)
}

func (r *Replica) WishlistSnapshot() []models.WishlistLine {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := make([]models.WishlistLine, 0, len(r.wishlist))
	for _, line := range r.wishlist {
		lines = append(lines, *line)
	}
	return lines
}

// ReplaceAll swaps in the repository snapshot wholesale. Used only by the
// reconciler on sign-in; anything accumulated before the call is discarded.
func (r *Replica) ReplaceAll(cart []models.CartLine, wishlist []models.WishlistLine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cart = make(map[string]*models.CartLine, len(cart))
	for _, line := range cart {
		copied := line
		r.cart[line.ProductID] = &copied
	}
	r.wishlist = make(map[string]*models.WishlistLine, len(wishlist))
	for _, line := range wishlist {
		copied := line
		r.wishlist[line.ProductID] = &copied
	}
}

// ClearAll empties both collections. Used by the reconciler on sign-out.
func (r *Replica) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cart = make(map[string]*models.CartLine)
	r.wishlist = make(map[string]*models.WishlistLine)
}
