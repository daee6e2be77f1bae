package replica_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"github.com/linemk/storefront/internal/domain/models"
	"github.com/linemk/storefront/internal/replica"
	"github.com/stretchr/testify/assert"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAddItem_AccumulatesQuantity(t *testing.T) {
	rep := replica.New()

	rep.AddItem(models.CartLine{ProductID: "p1", Title: "Chair", Price: 49.99, Quantity: 2})
	rep.AddItem(models.CartLine{ProductID: "p1", Title: "Chair", Price: 49.99, Quantity: 3})

	snap := rep.CartSnapshot()
	assert.Len(t, snap, 1)
	assert.Equal(t, 5, snap[0].Quantity)
}

func TestAddItem_DefaultsQuantityToOne(t *testing.T) {
	rep := replica.New()

	rep.AddItem(models.CartLine{ProductID: "p1", Title: "Chair"})

	snap := rep.CartSnapshot()
	assert.Len(t, snap, 1)
	assert.Equal(t, 1, snap[0].Quantity)
}

func TestAddItem_ConcurrentAddsConverge(t *testing.T) {
	rep := replica.New()

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rep.AddItem(models.CartLine{ProductID: "p1", Quantity: 1})
		}()
	}
	wg.Wait()

	snap := rep.CartSnapshot()
	assert.Len(t, snap, 1)
	assert.Equal(t, workers, snap[0].Quantity, "no add may be lost to a concurrent one")
}

func TestSetQuantity_ZeroRemovesLine(t *testing.T) {
	rep := replica.New()
	rep.AddItem(models.CartLine{ProductID: "p1", Quantity: 4})

	rep.SetQuantity("p1", 0)

	assert.Empty(t, rep.CartSnapshot())
}

func TestSetQuantity_IsAbsolute(t *testing.T) {
	rep := replica.New()
	rep.AddItem(models.CartLine{ProductID: "p1", Quantity: 4})

	rep.SetQuantity("p1", 2)

	snap := rep.CartSnapshot()
	assert.Len(t, snap, 1)
	assert.Equal(t, 2, snap[0].Quantity)
}

func TestSetQuantity_UnknownProductIsNoop(t *testing.T) {
	rep := replica.New()

	rep.SetQuantity("missing", 3)

	assert.Empty(t, rep.CartSnapshot())
}

func TestRemoveItem_AbsentIsNoop(t *testing.T) {
	rep := replica.New()
	rep.AddItem(models.CartLine{ProductID: "p1", Quantity: 1})

	rep.RemoveItem("missing")
	rep.RemoveItem("p1")
	rep.RemoveItem("p1")

	assert.Empty(t, rep.CartSnapshot())
}

func TestCartSnapshot_IsACopy(t *testing.T) {
	rep := replica.New()
	rep.AddItem(models.CartLine{ProductID: "p1", Quantity: 1})

	snap := rep.CartSnapshot()
	snap[0].Quantity = 99

	again := rep.CartSnapshot()
	assert.Equal(t, 1, again[0].Quantity, "mutating a snapshot must not leak into the replica")
}

func TestAddWish_Idempotent(t *testing.T) {
	rep := replica.New()

	rep.AddWish(models.WishlistLine{ProductID: "p1", Title: "Chair"})
	rep.AddWish(models.WishlistLine{ProductID: "p1", Title: "Chair"})

	assert.Len(t, rep.WishlistSnapshot(), 1)
}

func TestClearAll_EmptiesBothCollections(t *testing.T) {
	rep := replica.New()
	rep.AddItem(models.CartLine{ProductID: "p1", Quantity: 1})
	rep.AddWish(models.WishlistLine{ProductID: "p2"})

	rep.ClearAll()

	assert.Empty(t, rep.CartSnapshot())
	assert.Empty(t, rep.WishlistSnapshot())
}

func TestManager_GetCreatesOnFirstTouch(t *testing.T) {
	mgr := replica.NewManager()

	first := mgr.Get(1)
	first.AddItem(models.CartLine{ProductID: "p1", Quantity: 1})

	second := mgr.Get(1)
	assert.Same(t, first, second)
	assert.Len(t, second.CartSnapshot(), 1)

	other := mgr.Get(2)
	assert.Empty(t, other.CartSnapshot(), "sessions must not share replicas")
}

func TestManager_DropForgetsSession(t *testing.T) {
	mgr := replica.NewManager()
	mgr.Get(1).AddItem(models.CartLine{ProductID: "p1", Quantity: 1})

	mgr.Drop(1)

	assert.Empty(t, mgr.Get(1).CartSnapshot())
}

type fakeCartRepo struct {
	lines []*models.CartLine
	err   error
}

func (f *fakeCartRepo) Add(_ context.Context, _ int64, _ string, _ int) error      { return nil }
func (f *fakeCartRepo) SetQuantity(_ context.Context, _ int64, _ string, _ int) error { return nil }
func (f *fakeCartRepo) Remove(_ context.Context, _ int64, _ string) error          { return nil }
func (f *fakeCartRepo) Clear(_ context.Context, _ int64) error                     { return nil }
func (f *fakeCartRepo) List(_ context.Context, _ int64) ([]*models.CartLine, error) {
	return f.lines, f.err
}

type fakeWishRepo struct {
	lines []*models.WishlistLine
	err   error
}

func (f *fakeWishRepo) Add(_ context.Context, _ int64, _ string) error    { return nil }
func (f *fakeWishRepo) Remove(_ context.Context, _ int64, _ string) error { return nil }
func (f *fakeWishRepo) Clear(_ context.Context, _ int64) error            { return nil }
func (f *fakeWishRepo) List(_ context.Context, _ int64) ([]*models.WishlistLine, error) {
	return f.lines, f.err
}

func TestOnSignIn_OverwritesAnonymousState(t *testing.T) {
	rep := replica.New()
	// accumulated while anonymous, must not survive sign-in
	rep.AddItem(models.CartLine{ProductID: "anon", Quantity: 7})
	rep.AddWish(models.WishlistLine{ProductID: "anon-wish"})

	cartRepo := &fakeCartRepo{lines: []*models.CartLine{
		{ProductID: "p1", Title: "Chair", Price: 49.99, Quantity: 2},
		{ProductID: "p2", Title: "Desk", Price: 120, Quantity: 1},
	}}
	wishRepo := &fakeWishRepo{lines: []*models.WishlistLine{
		{ProductID: "p3", Title: "Lamp", Price: 19.5},
	}}
	rec := replica.NewReconciler(discardLogger(), cartRepo, wishRepo)

	err := rec.OnSignIn(context.Background(), rep, 1)
	assert.NoError(t, err)

	snap := rep.CartSnapshot()
	sort.Slice(snap, func(i, j int) bool { return snap[i].ProductID < snap[j].ProductID })
	assert.Len(t, snap, 2)
	assert.Equal(t, "p1", snap[0].ProductID)
	assert.Equal(t, 2, snap[0].Quantity)
	assert.Equal(t, "p2", snap[1].ProductID)

	wishes := rep.WishlistSnapshot()
	assert.Len(t, wishes, 1)
	assert.Equal(t, "p3", wishes[0].ProductID)
}

func TestOnSignIn_RepoErrorLeavesReplicaUntouched(t *testing.T) {
	rep := replica.New()
	rep.AddItem(models.CartLine{ProductID: "local", Quantity: 3})

	rec := replica.NewReconciler(discardLogger(),
		&fakeCartRepo{err: errors.New("db down")},
		&fakeWishRepo{},
	)

	err := rec.OnSignIn(context.Background(), rep, 1)
	assert.Error(t, err)

	snap := rep.CartSnapshot()
	assert.Len(t, snap, 1)
	assert.Equal(t, "local", snap[0].ProductID)
}

func TestOnSignIn_WishlistErrorLeavesReplicaUntouched(t *testing.T) {
	rep := replica.New()
	rep.AddItem(models.CartLine{ProductID: "local", Quantity: 3})

	rec := replica.NewReconciler(discardLogger(),
		&fakeCartRepo{lines: []*models.CartLine{{ProductID: "p1", Quantity: 1}}},
		&fakeWishRepo{err: fmt.Errorf("timeout")},
	)

	err := rec.OnSignIn(context.Background(), rep, 1)
	assert.Error(t, err)

	snap := rep.CartSnapshot()
	assert.Len(t, snap, 1)
	assert.Equal(t, "local", snap[0].ProductID, "partial snapshots must never be applied")
}

func TestOnSignOut_Clears(t *testing.T) {
	rep := replica.New()
	rep.AddItem(models.CartLine{ProductID: "p1", Quantity: 1})
	rep.AddWish(models.WishlistLine{ProductID: "p2"})

	rec := replica.NewReconciler(discardLogger(), &fakeCartRepo{}, &fakeWishRepo{})
	rec.OnSignOut(rep)

	assert.Empty(t, rep.CartSnapshot())
	assert.Empty(t, rep.WishlistSnapshot())
}
