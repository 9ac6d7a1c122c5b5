package customer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/customer"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/logger"
)

const (
	maxLoginAttempts = 5
	lockDuration     = 15 * time.Minute
)

// ErrInvalidCredentials is returned for any login failure that should not
// reveal whether the account exists.
var ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")

// AuthService handles registration, login, token lifecycle, and external
// identity logins.
type AuthService struct {
	customerRepo customer.CustomerRepository
	jwtService   *auth.JWTService
	blacklist    auth.TokenBlacklist
	oidcVerifier auth.OIDCVerifier
	publisher    shared.EventPublisher
	logger       *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	customerRepo customer.CustomerRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	oidcVerifier auth.OIDCVerifier,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		customerRepo: customerRepo,
		jwtService:   jwtService,
		blacklist:    blacklist,
		oidcVerifier: oidcVerifier,
		publisher:    publisher,
		logger:       logger,
	}
}

// Register creates a new customer account with a local password.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*CustomerResponse, error) {
	exists, err := s.customerRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "An account with this email already exists")
	}

	c, err := customer.NewCustomer(req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		return nil, err
	}
	if req.Phone != "" {
		if err := c.UpdateProfile(c.FirstName, c.LastName, req.Phone, "", "", ""); err != nil {
			return nil, err
		}
	}

	if err := s.customerRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, c)

	return ToCustomerResponse(c), nil
}

// Login authenticates with email and password. Five consecutive failures
// lock the account for fifteen minutes.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	c, err := s.customerRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if c.IsLocked() {
		return nil, shared.ErrAccountLocked
	}
	if !c.CanLogin() {
		return nil, shared.ErrForbidden
	}

	if !c.VerifyPassword(req.Password) {
		locked := c.RecordLoginFailure(maxLoginAttempts, lockDuration)
		if err := s.customerRepo.Save(ctx, c); err != nil {
			return nil, err
		}
		s.publishEvents(ctx, c)
		if locked {
			logger.WithLogger(ctx, s.logger).Warn("account locked after repeated login failures",
				zap.String("customer_id", c.ID.String()))
			return nil, shared.ErrAccountLocked
		}
		return nil, ErrInvalidCredentials
	}

	c.RecordLoginSuccess()
	if err := s.customerRepo.Save(ctx, c); err != nil {
		return nil, err
	}

	return s.issueTokens(c)
}

// LoginWithOIDC verifies an external provider's ID token and logs the
// matching customer in, creating the account on first sight. An existing
// local account with the same email gets the identity linked.
func (s *AuthService) LoginWithOIDC(ctx context.Context, req OIDCLoginRequest) (*TokenResponse, error) {
	identity, err := s.oidcVerifier.Verify(ctx, req.IDToken)
	if err != nil {
		if errors.Is(err, auth.ErrOIDCDisabled) {
			return nil, shared.NewDomainError("OIDC_DISABLED", "External login is not enabled")
		}
		return nil, shared.NewDomainError("INVALID_ID_TOKEN", "ID token verification failed")
	}

	c, err := s.customerRepo.FindByIdentity(ctx, identity.Issuer, identity.Subject)
	switch {
	case err == nil:
		// known identity
	case errors.Is(err, shared.ErrNotFound):
		c, err = s.findOrCreateFederated(ctx, identity)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if !c.CanLogin() {
		if c.IsLocked() {
			return nil, shared.ErrAccountLocked
		}
		return nil, shared.ErrForbidden
	}

	c.RecordLoginSuccess()
	if err := s.customerRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, c)

	return s.issueTokens(c)
}

func (s *AuthService) findOrCreateFederated(ctx context.Context, identity *auth.OIDCIdentity) (*customer.Customer, error) {
	existing, err := s.customerRepo.FindByEmail(ctx, identity.Email)
	if err == nil {
		if err := existing.LinkIdentity(identity.Issuer, identity.Subject); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	firstName, lastName := splitName(identity.Name)
	return customer.NewFederatedCustomer(identity.Email, identity.Issuer, identity.Subject, firstName, lastName)
}

// Refresh rotates a token pair. The used refresh token is blacklisted for
// its remaining lifetime so it cannot be replayed.
func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, shared.ErrUnauthorized
	}

	blacklisted, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, shared.ErrUnauthorized
	}

	invalidated, err := s.blacklist.IsCustomerTokenInvalidated(ctx, claims.CustomerID, claims.IssuedAt.Time)
	if err != nil {
		return nil, err
	}
	if invalidated {
		return nil, shared.ErrUnauthorized
	}

	customerID, err := claims.GetCustomerUUID()
	if err != nil {
		return nil, shared.ErrUnauthorized
	}
	c, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrUnauthorized
		}
		return nil, err
	}
	if !c.CanLogin() {
		return nil, shared.ErrUnauthorized
	}

	pair, err := s.jwtService.RefreshTokenPair(req.RefreshToken, c.Email, string(c.Role))
	if err != nil {
		return nil, shared.ErrUnauthorized
	}

	if ttl := claims.GetRemainingTTL(); ttl > 0 {
		if err := s.blacklist.AddToBlacklist(ctx, claims.ID, ttl); err != nil {
			s.logger.Warn("failed to blacklist rotated refresh token", zap.Error(err))
		}
	}

	return toTokenResponse(pair), nil
}

// Logout blacklists the presented access token until it expires.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.jwtService.ValidateAccessToken(accessToken)
	if err != nil {
		return shared.ErrUnauthorized
	}

	if ttl := claims.GetRemainingTTL(); ttl > 0 {
		return s.blacklist.AddToBlacklist(ctx, claims.ID, ttl)
	}
	return nil
}

func (s *AuthService) issueTokens(c *customer.Customer) (*TokenResponse, error) {
	pair, err := s.jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		CustomerID: c.ID,
		Email:      c.Email,
		Role:       string(c.Role),
	})
	if err != nil {
		return nil, err
	}
	return toTokenResponse(pair), nil
}

func toTokenResponse(pair *auth.TokenPair) *TokenResponse {
	return &TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int64(time.Until(pair.AccessTokenExpiresAt).Seconds()),
	}
}

func (s *AuthService) publishEvents(ctx context.Context, c *customer.Customer) {
	if s.publisher == nil {
		return
	}
	events := c.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.publisher.Publish(ctx, events...)
	c.ClearDomainEvents()
}

func splitName(full string) (first, last string) {
	first = full
	for i := len(full) - 1; i >= 0; i-- {
		if full[i] == ' ' {
			return full[:i], full[i+1:]
		}
	}
	return first, ""
}
