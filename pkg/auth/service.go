package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Common authentication errors.
var (
	ErrMissingAuthorization = errors.New("missing authorization")
	ErrInvalidAuthFormat    = errors.New("invalid authorization header format")
	ErrMissingOrganization  = errors.New("missing organization ID in token")
	ErrInvalidOrganization  = errors.New("invalid organization ID in token")
)

// AuthService extracts and validates the caller's token.
type AuthService interface {
	// ValidateRequest reads the Bearer token from the Authorization header
	// and returns the validated claims and the raw token.
	ValidateRequest(r *http.Request) (*Claims, string, error)

	// RequireOrganization validates that the claims carry a well-formed organization ID.
	RequireOrganization(claims *Claims) error
}

type authService struct {
	jwksClient JWKSClientInterface
	logger     *zap.Logger
}

// NewAuthService creates a new AuthService with the given JWKS client and logger.
func NewAuthService(jwksClient JWKSClientInterface, logger *zap.Logger) AuthService {
	return &authService{
		jwksClient: jwksClient,
		logger:     logger,
	}
}

func (s *authService) ValidateRequest(r *http.Request) (*Claims, string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		s.logger.Debug("No JWT found in request",
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method))
		return nil, "", ErrMissingAuthorization
	}

	scheme, tokenString, ok := strings.Cut(authHeader, " ")
	if !ok || scheme != "Bearer" || tokenString == "" {
		s.logger.Debug("Invalid Authorization header format", zap.String("path", r.URL.Path))
		return nil, "", ErrInvalidAuthFormat
	}

	claims, err := s.jwksClient.ValidateToken(tokenString)
	if err != nil {
		s.logger.Debug("JWT validation failed",
			zap.Error(err),
			zap.String("path", r.URL.Path))
		return nil, "", err
	}

	return claims, tokenString, nil
}

func (s *authService) RequireOrganization(claims *Claims) error {
	if claims.OrganizationID == "" {
		return ErrMissingOrganization
	}
	if _, err := uuid.Parse(claims.OrganizationID); err != nil {
		return ErrInvalidOrganization
	}
	return nil
}

var _ AuthService = (*authService)(nil)
