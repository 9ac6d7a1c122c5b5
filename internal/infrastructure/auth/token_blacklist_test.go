package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTokenBlacklist_JTI(t *testing.T) {
	bl := NewInMemoryTokenBlacklist()
	ctx := context.Background()

	blacklisted, err := bl.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, blacklisted)

	require.NoError(t, bl.AddToBlacklist(ctx, "jti-1", time.Minute))

	blacklisted, err = bl.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, blacklisted)
}

func TestInMemoryTokenBlacklist_ExpiredEntry(t *testing.T) {
	bl := NewInMemoryTokenBlacklist()
	ctx := context.Background()

	require.NoError(t, bl.AddToBlacklist(ctx, "jti-2", -time.Second))

	blacklisted, err := bl.IsBlacklisted(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, blacklisted)
}

func TestInMemoryTokenBlacklist_CustomerInvalidation(t *testing.T) {
	bl := NewInMemoryTokenBlacklist()
	ctx := context.Background()

	issuedBefore := time.Now().Add(-time.Minute)

	invalidated, err := bl.IsCustomerTokenInvalidated(ctx, "cust-1", issuedBefore)
	require.NoError(t, err)
	assert.False(t, invalidated)

	require.NoError(t, bl.AddCustomerTokensToBlacklist(ctx, "cust-1", time.Hour))

	invalidated, err = bl.IsCustomerTokenInvalidated(ctx, "cust-1", issuedBefore)
	require.NoError(t, err)
	assert.True(t, invalidated)

	// Tokens issued after the invalidation remain valid
	invalidated, err = bl.IsCustomerTokenInvalidated(ctx, "cust-1", time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, invalidated)

	// Other customers are unaffected
	invalidated, err = bl.IsCustomerTokenInvalidated(ctx, "cust-2", issuedBefore)
	require.NoError(t, err)
	assert.False(t, invalidated)
}
