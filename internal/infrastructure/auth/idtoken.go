package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
	"github.com/MrxHuang/alexandriaBackend/internal/core/ports"
)

// IDTokenConfig describes the trusted external issuer. Secret selects HS256;
// PublicKey (PEM) selects RS256.
type IDTokenConfig struct {
	Issuer    string
	Audience  string
	Secret    string
	PublicKey string
}

// IDTokenProvider verifies ID tokens minted by an external identity
// provider and extracts the verified email and display name.
type IDTokenProvider struct {
	issuer   string
	audience string
	method   jwt.SigningMethod
	key      interface{}
}

var _ ports.IdentityProvider = (*IDTokenProvider)(nil)

// NewIDTokenProvider returns a provider whose Verify always fails with
// domain.ErrProviderUnavailable when cfg carries no key.
func NewIDTokenProvider(cfg IDTokenConfig) (*IDTokenProvider, error) {
	p := &IDTokenProvider{issuer: cfg.Issuer, audience: cfg.Audience}
	switch {
	case cfg.PublicKey != "":
		pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKey))
		if err != nil {
			return nil, fmt.Errorf("parse id token public key: %w", err)
		}
		p.method, p.key = jwt.SigningMethodRS256, pub
	case cfg.Secret != "":
		p.method, p.key = jwt.SigningMethodHS256, []byte(cfg.Secret)
	}
	return p, nil
}

type idClaims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified,omitempty"`
	Name          string `json:"name"`
	jwt.RegisteredClaims
}

func (p *IDTokenProvider) Verify(_ context.Context, credential string) (*ports.ExternalIdentity, error) {
	if p.key == nil {
		return nil, domain.ErrProviderUnavailable
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{p.method.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}
	if p.audience != "" {
		opts = append(opts, jwt.WithAudience(p.audience))
	}

	var claims idClaims
	_, err := jwt.ParseWithClaims(credential, &claims, func(*jwt.Token) (interface{}, error) {
		return p.key, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCredentials, err)
	}
	if claims.EmailVerified != nil && !*claims.EmailVerified {
		return nil, fmt.Errorf("%w: email not verified", domain.ErrInvalidCredentials)
	}
	email := domain.NormalizeEmail(claims.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: token carries no email", domain.ErrInvalidCredentials)
	}
	return &ports.ExternalIdentity{Email: email, DisplayName: strings.TrimSpace(claims.Name)}, nil
}

