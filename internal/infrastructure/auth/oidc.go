package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/storefront/backend/internal/infrastructure/config"
)

// ErrOIDCDisabled is returned when OIDC login is attempted but no provider is configured.
var ErrOIDCDisabled = errors.New("oidc provider is not configured")

// OIDCIdentity holds the subset of ID token claims used to link a
// federated login to a local customer account.
type OIDCIdentity struct {
	Issuer        string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// OIDCVerifier verifies ID tokens issued by an external identity provider.
type OIDCVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*OIDCIdentity, error)
	Enabled() bool
}

// OIDCService wraps a go-oidc provider and verifier.
type OIDCService struct {
	issuerURL string
	verifier  *oidc.IDTokenVerifier
}

// NewOIDCService discovers the provider configuration from the issuer URL.
// Returns a disabled service when cfg.Enabled is false.
func NewOIDCService(ctx context.Context, cfg config.OIDCConfig) (*OIDCService, error) {
	if !cfg.Enabled {
		return &OIDCService{}, nil
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover oidc provider: %w", err)
	}

	return &OIDCService{
		issuerURL: cfg.IssuerURL,
		verifier:  provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

// Enabled reports whether a provider has been configured.
func (s *OIDCService) Enabled() bool {
	return s.verifier != nil
}

// Verify validates the raw ID token and extracts the identity claims.
func (s *OIDCService) Verify(ctx context.Context, rawIDToken string) (*OIDCIdentity, error) {
	if s.verifier == nil {
		return nil, ErrOIDCDisabled
	}

	idToken, err := s.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify id token: %w", err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse id token claims: %w", err)
	}

	return &OIDCIdentity{
		Issuer:        idToken.Issuer,
		Subject:       idToken.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
	}, nil
}

var _ OIDCVerifier = (*OIDCService)(nil)
