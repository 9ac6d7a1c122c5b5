package customer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/storefront/backend/internal/domain/shared"
)

func TestNewCustomer(t *testing.T) {
	t.Run("creates active customer with hashed password", func(t *testing.T) {
		c, err := NewCustomer("Jane@Example.com", "s3cretpass", "Jane", "Doe")
		require.NoError(t, err)

		assert.Equal(t, "jane@example.com", c.Email)
		assert.NotEmpty(t, c.PasswordHash)
		assert.NotEqual(t, "s3cretpass", c.PasswordHash)
		assert.Equal(t, CustomerStatusActive, c.Status)
		assert.Equal(t, RoleCustomer, c.Role)
		assert.True(t, c.SMSOptIn)
		assert.True(t, c.EmailOptIn)

		events := c.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeCustomerRegistered, events[0].EventType())
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		_, err := NewCustomer("not-an-email", "s3cretpass", "", "")
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_EMAIL", domainErr.Code)
	})

	t.Run("rejects short password", func(t *testing.T) {
		_, err := NewCustomer("jane@example.com", "short", "", "")
		require.Error(t, err)
	})
}

func TestNewFederatedCustomer(t *testing.T) {
	t.Run("creates customer without local password", func(t *testing.T) {
		c, err := NewFederatedCustomer("jane@example.com", "https://idp.example.com", "sub-123", "Jane", "Doe")
		require.NoError(t, err)

		assert.Empty(t, c.PasswordHash)
		assert.Equal(t, "https://idp.example.com", c.OIDCIssuer)
		assert.Equal(t, "sub-123", c.OIDCSubject)
		assert.False(t, c.VerifyPassword("anything"))
	})

	t.Run("rejects missing subject", func(t *testing.T) {
		_, err := NewFederatedCustomer("jane@example.com", "https://idp.example.com", "", "", "")
		require.Error(t, err)
	})
}

func TestVerifyPassword(t *testing.T) {
	c, err := NewCustomer("jane@example.com", "s3cretpass", "", "")
	require.NoError(t, err)

	assert.True(t, c.VerifyPassword("s3cretpass"))
	assert.False(t, c.VerifyPassword("wrong"))
}

func TestChangePassword(t *testing.T) {
	c, err := NewCustomer("jane@example.com", "s3cretpass", "", "")
	require.NoError(t, err)

	t.Run("requires the current password", func(t *testing.T) {
		err := c.ChangePassword("wrong", "newpassword1")
		require.Error(t, err)
		assert.True(t, c.VerifyPassword("s3cretpass"))
	})

	t.Run("replaces the password", func(t *testing.T) {
		require.NoError(t, c.ChangePassword("s3cretpass", "newpassword1"))
		assert.True(t, c.VerifyPassword("newpassword1"))
		assert.False(t, c.VerifyPassword("s3cretpass"))
	})
}

func TestLoginLockout(t *testing.T) {
	t.Run("locks after max attempts", func(t *testing.T) {
		c, err := NewCustomer("jane@example.com", "s3cretpass", "", "")
		require.NoError(t, err)

		for i := 0; i < 4; i++ {
			locked := c.RecordLoginFailure(5, 15*time.Minute)
			assert.False(t, locked)
		}
		locked := c.RecordLoginFailure(5, 15*time.Minute)
		assert.True(t, locked)
		assert.True(t, c.IsLocked())
		assert.False(t, c.CanLogin())
	})

	t.Run("expired lock allows login again", func(t *testing.T) {
		c, err := NewCustomer("jane@example.com", "s3cretpass", "", "")
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			c.RecordLoginFailure(5, -time.Minute)
		}
		assert.False(t, c.IsLocked())
		assert.True(t, c.CanLogin())
	})

	t.Run("successful login resets the counter", func(t *testing.T) {
		c, err := NewCustomer("jane@example.com", "s3cretpass", "", "")
		require.NoError(t, err)

		c.RecordLoginFailure(5, 15*time.Minute)
		c.RecordLoginSuccess()

		assert.Equal(t, 0, c.FailedAttempts)
		assert.NotNil(t, c.LastLoginAt)
	})
}

func TestUpdateProfile(t *testing.T) {
	c, err := NewCustomer("jane@example.com", "s3cretpass", "", "")
	require.NoError(t, err)

	t.Run("updates contact details", func(t *testing.T) {
		require.NoError(t, c.UpdateProfile("Jane", "Doe", "+254700000001", "1 Main St", "Nairobi", "Kenya"))
		assert.Equal(t, "Jane Doe", c.FullName())
		assert.Equal(t, "+254700000001", c.Phone)
	})

	t.Run("rejects malformed phone", func(t *testing.T) {
		err := c.UpdateProfile("Jane", "Doe", "not-a-phone", "", "", "")
		require.Error(t, err)
	})
}

func TestDeactivate(t *testing.T) {
	c, err := NewCustomer("jane@example.com", "s3cretpass", "", "")
	require.NoError(t, err)

	require.NoError(t, c.Deactivate())
	assert.False(t, c.CanLogin())
	assert.Error(t, c.Deactivate())
}
