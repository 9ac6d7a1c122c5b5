package customer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/customer"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/config"
)

func newTestJWTService(t *testing.T) *auth.JWTService {
	t.Helper()
	svc := auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-access-secret-needs-32-bytes!!",
		RefreshSecret:          "test-refresh-secret-needs-32-bytes!",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "storefront-test",
	})
	return svc
}

func newAuthService(t *testing.T, repo *MockCustomerRepository, verifier auth.OIDCVerifier, bus *captureBus) (*AuthService, auth.TokenBlacklist) {
	t.Helper()
	blacklist := auth.NewInMemoryTokenBlacklist()
	if verifier == nil {
		verifier = &fakeOIDCVerifier{err: auth.ErrOIDCDisabled}
	}
	svc := NewAuthService(repo, newTestJWTService(t), blacklist, verifier, bus, zap.NewNop())
	return svc, blacklist
}

func mustCustomer(t *testing.T, email, password string) *customer.Customer {
	t.Helper()
	c, err := customer.NewCustomer(email, password, "Jane", "Doe")
	require.NoError(t, err)
	c.ClearDomainEvents()
	return c
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("registers and emits CustomerRegistered", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		bus := &captureBus{}
		svc, _ := newAuthService(t, repo, nil, bus)

		repo.On("ExistsByEmail", ctx, "jane@example.com").Return(false, nil)
		repo.On("Save", ctx, mock.AnythingOfType("*customer.Customer")).Return(nil)

		resp, err := svc.Register(ctx, RegisterRequest{
			Email:     "jane@example.com",
			Password:  "s3cret-pass",
			FirstName: "Jane",
			LastName:  "Doe",
		})
		require.NoError(t, err)
		assert.Equal(t, "jane@example.com", resp.Email)
		require.Len(t, bus.events, 1)
		assert.Equal(t, customer.EventTypeCustomerRegistered, bus.events[0].EventType())
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		svc, _ := newAuthService(t, repo, nil, &captureBus{})

		repo.On("ExistsByEmail", ctx, "jane@example.com").Return(true, nil)

		_, err := svc.Register(ctx, RegisterRequest{Email: "jane@example.com", Password: "s3cret-pass"})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("issues token pair on success", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		svc, _ := newAuthService(t, repo, nil, &captureBus{})

		c := mustCustomer(t, "jane@example.com", "s3cret-pass")
		repo.On("FindByEmail", ctx, "jane@example.com").Return(c, nil)
		repo.On("Save", ctx, c).Return(nil)

		resp, err := svc.Login(ctx, LoginRequest{Email: "jane@example.com", Password: "s3cret-pass"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.Equal(t, "Bearer", resp.TokenType)
		assert.Greater(t, resp.ExpiresIn, int64(0))
		assert.NotNil(t, c.LastLoginAt)
	})

	t.Run("unknown email yields generic error", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		svc, _ := newAuthService(t, repo, nil, &captureBus{})

		repo.On("FindByEmail", ctx, "ghost@example.com").Return(nil, shared.ErrNotFound)

		_, err := svc.Login(ctx, LoginRequest{Email: "ghost@example.com", Password: "whatever"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("fifth consecutive failure locks the account", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		svc, _ := newAuthService(t, repo, nil, &captureBus{})

		c := mustCustomer(t, "jane@example.com", "s3cret-pass")
		repo.On("FindByEmail", ctx, "jane@example.com").Return(c, nil)
		repo.On("Save", ctx, c).Return(nil)

		for i := 0; i < 4; i++ {
			_, err := svc.Login(ctx, LoginRequest{Email: "jane@example.com", Password: "wrong"})
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		}

		_, err := svc.Login(ctx, LoginRequest{Email: "jane@example.com", Password: "wrong"})
		assert.ErrorIs(t, err, shared.ErrAccountLocked)
		assert.True(t, c.IsLocked())

		// Even the right password is rejected while locked.
		_, err = svc.Login(ctx, LoginRequest{Email: "jane@example.com", Password: "s3cret-pass"})
		assert.ErrorIs(t, err, shared.ErrAccountLocked)
	})

	t.Run("deactivated account cannot login", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		svc, _ := newAuthService(t, repo, nil, &captureBus{})

		c := mustCustomer(t, "jane@example.com", "s3cret-pass")
		require.NoError(t, c.Deactivate())
		repo.On("FindByEmail", ctx, "jane@example.com").Return(c, nil)

		_, err := svc.Login(ctx, LoginRequest{Email: "jane@example.com", Password: "s3cret-pass"})
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})
}

func TestAuthService_Refresh(t *testing.T) {
	ctx := context.Background()

	login := func(t *testing.T, svc *AuthService, repo *MockCustomerRepository, c *customer.Customer) *TokenResponse {
		t.Helper()
		repo.On("FindByEmail", ctx, c.Email).Return(c, nil)
		repo.On("Save", ctx, c).Return(nil)
		tokens, err := svc.Login(ctx, LoginRequest{Email: c.Email, Password: "s3cret-pass"})
		require.NoError(t, err)
		return tokens
	}

	t.Run("rotates the pair and blocks replay", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		svc, _ := newAuthService(t, repo, nil, &captureBus{})

		c := mustCustomer(t, "jane@example.com", "s3cret-pass")
		tokens := login(t, svc, repo, c)
		repo.On("FindByID", ctx, c.ID).Return(c, nil)

		rotated, err := svc.Refresh(ctx, RefreshRequest{RefreshToken: tokens.RefreshToken})
		require.NoError(t, err)
		assert.NotEmpty(t, rotated.AccessToken)
		assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

		// The used refresh token is now blacklisted.
		_, err = svc.Refresh(ctx, RefreshRequest{RefreshToken: tokens.RefreshToken})
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})

	t.Run("garbage token is unauthorized", func(t *testing.T) {
		svc, _ := newAuthService(t, new(MockCustomerRepository), nil, &captureBus{})

		_, err := svc.Refresh(ctx, RefreshRequest{RefreshToken: "not-a-token"})
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})

	t.Run("access token is rejected as refresh token", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		svc, _ := newAuthService(t, repo, nil, &captureBus{})

		c := mustCustomer(t, "jane@example.com", "s3cret-pass")
		tokens := login(t, svc, repo, c)

		_, err := svc.Refresh(ctx, RefreshRequest{RefreshToken: tokens.AccessToken})
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	repo := new(MockCustomerRepository)
	svc, blacklist := newAuthService(t, repo, nil, &captureBus{})

	c := mustCustomer(t, "jane@example.com", "s3cret-pass")
	repo.On("FindByEmail", ctx, c.Email).Return(c, nil)
	repo.On("Save", ctx, c).Return(nil)

	tokens, err := svc.Login(ctx, LoginRequest{Email: c.Email, Password: "s3cret-pass"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, tokens.AccessToken))

	claims, err := newTestJWTService(t).ValidateAccessToken(tokens.AccessToken)
	require.NoError(t, err)
	blocked, err := blacklist.IsBlacklisted(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestAuthService_LoginWithOIDC(t *testing.T) {
	ctx := context.Background()
	identity := &auth.OIDCIdentity{
		Issuer:        "https://accounts.example.com",
		Subject:       "sub-123",
		Email:         "jane@example.com",
		EmailVerified: true,
		Name:          "Jane Doe",
	}

	t.Run("creates a federated account on first login", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		bus := &captureBus{}
		svc, _ := newAuthService(t, repo, &fakeOIDCVerifier{identity: identity}, bus)

		repo.On("FindByIdentity", ctx, identity.Issuer, identity.Subject).Return(nil, shared.ErrNotFound)
		repo.On("FindByEmail", ctx, identity.Email).Return(nil, shared.ErrNotFound)
		repo.On("Save", ctx, mock.AnythingOfType("*customer.Customer")).Return(nil)

		tokens, err := svc.LoginWithOIDC(ctx, OIDCLoginRequest{IDToken: "raw-id-token"})
		require.NoError(t, err)
		assert.NotEmpty(t, tokens.AccessToken)

		types := make([]string, len(bus.events))
		for i, e := range bus.events {
			types[i] = e.EventType()
		}
		assert.Contains(t, types, customer.EventTypeCustomerRegistered)
	})

	t.Run("links identity to an existing local account", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		svc, _ := newAuthService(t, repo, &fakeOIDCVerifier{identity: identity}, &captureBus{})

		c := mustCustomer(t, "jane@example.com", "s3cret-pass")
		repo.On("FindByIdentity", ctx, identity.Issuer, identity.Subject).Return(nil, shared.ErrNotFound)
		repo.On("FindByEmail", ctx, identity.Email).Return(c, nil)
		repo.On("Save", ctx, c).Return(nil)

		_, err := svc.LoginWithOIDC(ctx, OIDCLoginRequest{IDToken: "raw-id-token"})
		require.NoError(t, err)
		assert.Equal(t, identity.Issuer, c.OIDCIssuer)
		assert.Equal(t, identity.Subject, c.OIDCSubject)
	})

	t.Run("disabled provider is a domain error", func(t *testing.T) {
		svc, _ := newAuthService(t, new(MockCustomerRepository), &fakeOIDCVerifier{err: auth.ErrOIDCDisabled}, &captureBus{})

		_, err := svc.LoginWithOIDC(ctx, OIDCLoginRequest{IDToken: "raw-id-token"})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "OIDC_DISABLED", domainErr.Code)
	})
}
