package controller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yash24113/shofy-listsync/pkg/errors"

	"github.com/yash24113/shofy-listsync/internal/domain"
)

func TestWishlistController_GuestAddIsLocalOnly(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	entry := domain.ListEntry{ProductID: "p-1", Title: "Red Silk Saree"}
	require.NoError(t, f.wishlistCtl.Add(ctx, entry))

	bucket, err := f.store.ReadList(ctx, domain.GuestKey())
	require.NoError(t, err)
	assert.Contains(t, domain.NewSnapshot(bucket), "p-1")

	_, ok := f.wishlistCtl.Cache().Get("p-1")
	assert.True(t, ok)

	// Guests never talk to the remote wishlist service.
	assert.Zero(t, f.wishlistAPI.replaceCount())
}

func TestWishlistController_AddDedupsByID(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.wishlistCtl.Add(ctx, domain.ListEntry{ProductID: "p-1", Title: "Old Title"}))
	require.NoError(t, f.wishlistCtl.Add(ctx, domain.ListEntry{ProductID: "p-1", Title: "New Title"}))

	bucket, err := f.store.ReadList(ctx, domain.GuestKey())
	require.NoError(t, err)
	byID := domain.NewSnapshot(bucket)
	require.Len(t, byID, 1)
	assert.Equal(t, "New Title", byID["p-1"].Title)
}

func TestWishlistController_SignedInAddPushesReplace(t *testing.T) {
	f := setup(t)
	f.login(t)
	ctx := context.Background()

	require.NoError(t, f.wishlistCtl.Add(ctx, domain.ListEntry{ProductID: "p-1"}))

	require.Equal(t, 1, f.wishlistAPI.replaceCount())
	assert.Contains(t, f.wishlistAPI.server, "p-1")

	bucket, err := f.store.ReadList(ctx, domain.UserKey("user-1", "sess-1"))
	require.NoError(t, err)
	assert.Contains(t, domain.NewSnapshot(bucket), "p-1")
}

func TestWishlistController_RemovePushesShrunkList(t *testing.T) {
	f := setup(t)
	f.login(t)
	ctx := context.Background()

	require.NoError(t, f.wishlistCtl.Add(ctx, domain.ListEntry{ProductID: "p-1"}))
	require.NoError(t, f.wishlistCtl.Add(ctx, domain.ListEntry{ProductID: "p-2"}))
	require.NoError(t, f.wishlistCtl.Remove(ctx, "p-1"))

	assert.NotContains(t, f.wishlistAPI.server, "p-1")
	assert.Contains(t, f.wishlistAPI.server, "p-2")

	_, ok := f.wishlistCtl.Cache().Get("p-1")
	assert.False(t, ok)
}

func TestWishlistController_RefreshGuestReadsBucket(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.store.WriteList(ctx, domain.GuestKey(),
		[]domain.ListEntry{{ProductID: "p-1", Title: "Blue Cotton Saree"}}))

	require.NoError(t, f.wishlistCtl.Refresh(ctx))
	got, ok := f.wishlistCtl.Cache().Get("p-1")
	require.True(t, ok)
	assert.Equal(t, "Blue Cotton Saree", got.Title)
}

func TestWishlistController_RefreshKeepsRichLocalCopyOverServerStub(t *testing.T) {
	f := setup(t)
	f.login(t)
	ctx := context.Background()

	require.NoError(t, f.store.WriteList(ctx, domain.UserKey("user-1", "sess-1"),
		[]domain.ListEntry{{ProductID: "p-1", Title: "Red Silk Saree", UnitPrice: 120}}))
	f.wishlistAPI.server = domain.NewSnapshot([]domain.ListEntry{
		domain.Stub("p-1"),
		domain.Stub("p-2"),
	})

	require.NoError(t, f.wishlistCtl.Refresh(ctx))

	snapshot := f.wishlistCtl.Cache().Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "Red Silk Saree", snapshot["p-1"].Title)
	assert.True(t, snapshot["p-2"].IsStub())
}

func TestWishlistController_RefreshKeepsUnpushedLocalEntry(t *testing.T) {
	f := setup(t)
	f.login(t)
	ctx := context.Background()

	// The add lands in the bucket but the push never reaches the server.
	f.wishlistAPI.failReplace = errNetwork
	require.NoError(t, f.wishlistCtl.Add(ctx, domain.ListEntry{ProductID: "p-1", Title: "Red Silk Saree"}))
	f.wishlistAPI.failReplace = nil

	require.NoError(t, f.wishlistCtl.Refresh(ctx))

	// The server does not know p-1 yet; the refresh must not truncate the
	// bucket to the server's id set or the re-push would have nothing left.
	bucket, err := f.store.ReadList(ctx, domain.UserKey("user-1", "sess-1"))
	require.NoError(t, err)
	assert.Contains(t, domain.NewSnapshot(bucket), "p-1")
	got, ok := f.wishlistCtl.Cache().Get("p-1")
	require.True(t, ok)
	assert.Equal(t, "Red Silk Saree", got.Title)

	// The next local mutation pushes the full list, p-1 included.
	require.NoError(t, f.wishlistCtl.Add(ctx, domain.ListEntry{ProductID: "p-2"}))
	assert.Contains(t, f.wishlistAPI.server, "p-1")
	assert.Contains(t, f.wishlistAPI.server, "p-2")
}

func TestWishlistController_MoveToCart(t *testing.T) {
	f := setup(t)
	f.login(t)
	ctx := context.Background()

	entry := domain.ListEntry{ProductID: "p-1", Title: "Red Silk Saree"}
	require.NoError(t, f.wishlistCtl.Add(ctx, entry))
	require.NoError(t, f.wishlistCtl.MoveToCart(ctx, "p-1"))

	// In the cart with quantity 1, off the wishlist everywhere.
	require.Contains(t, f.cartAPI.server, "p-1")
	assert.Equal(t, 1, f.cartAPI.server["p-1"].Quantity)

	_, ok := f.wishlistCtl.Cache().Get("p-1")
	assert.False(t, ok)
	bucket, err := f.store.ReadList(ctx, domain.UserKey("user-1", "sess-1"))
	require.NoError(t, err)
	assert.NotContains(t, domain.NewSnapshot(bucket), "p-1")

	moves, err := f.store.ReadMoves(ctx)
	require.NoError(t, err)
	assert.Empty(t, moves)
}

func TestWishlistController_MoveToCartGuestIsNoOp(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.wishlistCtl.Add(ctx, domain.ListEntry{ProductID: "p-1"}))
	require.NoError(t, f.wishlistCtl.MoveToCart(ctx, "p-1"))

	assert.Zero(t, f.cartAPI.addCalls)
	bucket, err := f.store.ReadList(ctx, domain.GuestKey())
	require.NoError(t, err)
	assert.Contains(t, domain.NewSnapshot(bucket), "p-1")
}

func TestWishlistController_MoveToCartPhaseOneFailureLeavesWishlistIntact(t *testing.T) {
	f := setup(t)
	f.login(t)
	ctx := context.Background()

	require.NoError(t, f.wishlistCtl.Add(ctx, domain.ListEntry{ProductID: "p-1"}))

	f.cartAPI.failAdd = errNetwork
	err := f.wishlistCtl.MoveToCart(ctx, "p-1")
	require.Error(t, err)

	// Nothing moved; the intent is journaled for the next trigger.
	bucket, err := f.store.ReadList(ctx, domain.UserKey("user-1", "sess-1"))
	require.NoError(t, err)
	assert.Contains(t, domain.NewSnapshot(bucket), "p-1")

	moves, err := f.store.ReadMoves(ctx)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, domain.MoveStepFailed, moves[0].Step(domain.MoveStepAddToCart).Status)
}

func TestMover_ServerRejectionCompensatesEarlierPhase(t *testing.T) {
	f := setup(t)
	f.login(t)
	ctx := context.Background()

	require.NoError(t, f.cartCtl.Add(ctx, domain.ListEntry{ProductID: "p-1", Title: "Red Silk Saree"}))

	// The cart service definitively rejects the remove, so the wishlist add
	// from phase one is rolled back instead of retried forever.
	f.cartAPI.failRemove = apperrors.ServerRejected("product locked")
	err := f.cartCtl.Remove(ctx, "p-1")
	require.Error(t, err)

	bucket, err := f.store.ReadList(ctx, domain.UserKey("user-1", "sess-1"))
	require.NoError(t, err)
	assert.NotContains(t, domain.NewSnapshot(bucket), "p-1")

	// Settled by compensation, so nothing is left to retry.
	moves, err := f.store.ReadMoves(ctx)
	require.NoError(t, err)
	assert.Empty(t, moves)
}

func TestMover_ServerRejectionOfFirstPhaseSettlesIntent(t *testing.T) {
	f := setup(t)
	f.login(t)
	ctx := context.Background()

	require.NoError(t, f.wishlistCtl.Add(ctx, domain.ListEntry{ProductID: "p-1"}))

	// The cart service definitively rejects the add. With no completed phase
	// to roll back the intent settles right away instead of being re-driven
	// on every future trigger.
	f.cartAPI.failAdd = apperrors.ServerRejected("product discontinued")
	err := f.wishlistCtl.MoveToCart(ctx, "p-1")
	require.Error(t, err)

	moves, err := f.store.ReadMoves(ctx)
	require.NoError(t, err)
	assert.Empty(t, moves)

	// Nothing left the wishlist bucket.
	bucket, err := f.store.ReadList(ctx, domain.UserKey("user-1", "sess-1"))
	require.NoError(t, err)
	assert.Contains(t, domain.NewSnapshot(bucket), "p-1")

	// Retrying pending moves does not touch either service again.
	calls := f.cartAPI.addCalls
	require.NoError(t, f.mover.RetryPending(ctx))
	assert.Equal(t, calls, f.cartAPI.addCalls)
}
