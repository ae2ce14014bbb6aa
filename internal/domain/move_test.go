package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoveIntent_WishlistToCart(t *testing.T) {
	m := NewMoveIntent("user-1", ListEntry{ProductID: "p-1"}, MoveWishlistToCart)

	assert.NotEmpty(t, m.ID)
	require.Len(t, m.Steps, 2)
	assert.Equal(t, MoveStepAddToCart, m.Steps[0].Name)
	assert.Equal(t, MoveStepRemoveFromWishlist, m.Steps[1].Name)
	assert.False(t, m.Completed())
	assert.False(t, m.Settled())
}

func TestMoveIntent_CompleteAllSteps(t *testing.T) {
	m := NewMoveIntent("user-1", ListEntry{ProductID: "p-1"}, MoveCartToWishlist)

	m.Step(MoveStepAddToWishlist).Complete()
	assert.False(t, m.Completed())

	m.Step(MoveStepRemoveFromCart).Complete()
	assert.True(t, m.Completed())
	assert.True(t, m.Settled())
}

func TestMoveIntent_CompensatedIsSettledNotCompleted(t *testing.T) {
	m := NewMoveIntent("user-1", ListEntry{ProductID: "p-1"}, MoveWishlistToCart)

	m.Step(MoveStepAddToCart).Complete()
	m.Step(MoveStepRemoveFromWishlist).Fail("network error")
	assert.False(t, m.Settled())

	m.Step(MoveStepRemoveFromWishlist).Compensate()
	m.Step(MoveStepAddToCart).Compensate()
	assert.True(t, m.Settled())
	assert.False(t, m.Completed())
}

func TestMoveIntent_StepLookup(t *testing.T) {
	m := NewMoveIntent("user-1", ListEntry{ProductID: "p-1"}, MoveWishlistToCart)
	assert.Nil(t, m.Step("unknown"))
	assert.NotNil(t, m.Step(MoveStepAddToCart))
}
