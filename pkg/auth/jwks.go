package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorizedIssuer is returned for tokens whose iss has no configured JWKS.
var ErrUnauthorizedIssuer = errors.New("unauthorized issuer")

// signingMethods are the asymmetric algorithms accepted from identity providers.
var signingMethods = []string{"RS256", "RS384", "RS512", "ES256", "ES384", "ES512"}

// JWKSClientInterface validates raw JWT strings.
type JWKSClientInterface interface {
	// ValidateToken validates a JWT token string and returns the claims.
	// Returns an error if the token is invalid, expired, or has an unauthorized issuer.
	ValidateToken(tokenString string) (*Claims, error)
	// Close releases any resources held by the client.
	Close()
}

// JWKSConfig contains configuration for the JWKS client.
type JWKSConfig struct {
	// EnableVerification controls whether JWT signatures are verified.
	// When false tokens are parsed without any check; local development only.
	EnableVerification bool
	// JWKSEndpoints maps issuer URLs to their JWKS endpoint URLs.
	// Only tokens from issuers in this map are accepted.
	JWKSEndpoints map[string]string
	// Audience, if non-empty, is required in the aud claim.
	Audience string
	// Leeway is the clock skew tolerated on time-based claims.
	Leeway time.Duration
}

// JWKSClient verifies organization tokens against the JWKS of whitelisted
// issuers. Key sets refresh in the background until Close.
type JWKSClient struct {
	keySets map[string]keyfunc.Keyfunc
	parser  *jwt.Parser
	config  *JWKSConfig
	cancel  context.CancelFunc
}

// NewJWKSClient creates a new JWKS client. With verification enabled every
// configured endpoint is fetched up front; any failure is returned.
func NewJWKSClient(config *JWKSConfig) (*JWKSClient, error) {
	client := &JWKSClient{
		keySets: make(map[string]keyfunc.Keyfunc),
		config:  config,
	}

	if !config.EnableVerification {
		client.parser = jwt.NewParser(jwt.WithoutClaimsValidation())
		return client, nil
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(signingMethods),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(config.Leeway),
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}
	client.parser = jwt.NewParser(opts...)

	ctx, cancel := context.WithCancel(context.Background())
	client.cancel = cancel

	for issuer, jwksURL := range config.JWKSEndpoints {
		keySet, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to load JWKS for issuer %s: %w", issuer, err)
		}
		client.keySets[issuer] = keySet
	}

	return client, nil
}

// ValidateToken returns the token's claims once its signature, issuer,
// expiry and (if configured) audience check out.
func (c *JWKSClient) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	if !c.config.EnableVerification {
		if _, _, err := c.parser.ParseUnverified(tokenString, claims); err != nil {
			return nil, fmt.Errorf("failed to parse token: %w", err)
		}
		return claims, nil
	}

	if _, err := c.parser.ParseWithClaims(tokenString, claims, c.keyFor); err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	return claims, nil
}

// keyFor selects the key set by the token's issuer before the signature is checked.
func (c *JWKSClient) keyFor(token *jwt.Token) (any, error) {
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}

	keySet, ok := c.keySets[claims.Issuer]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnauthorizedIssuer, claims.Issuer)
	}
	return keySet.Keyfunc(token)
}

// Close stops the background key refresh.
func (c *JWKSClient) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}

var _ JWKSClientInterface = (*JWKSClient)(nil)
