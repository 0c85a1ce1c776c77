package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockAuthService struct {
	claims      *Claims
	token       string
	validateErr error
	requireErr  error
}

func (m *mockAuthService) ValidateRequest(r *http.Request) (*Claims, string, error) {
	if m.validateErr != nil {
		return nil, "", m.validateErr
	}
	return m.claims, m.token, nil
}

func (m *mockAuthService) RequireOrganization(claims *Claims) error {
	return m.requireErr
}

func TestMiddleware_RequireAuth_Success(t *testing.T) {
	orgID := uuid.New()
	claims := &Claims{OrganizationID: orgID.String()}
	mw := NewMiddleware(&mockAuthService{claims: claims, token: "test-token"}, zap.NewNop())

	var gotOrg uuid.UUID
	var gotToken string
	handler := mw.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		gotOrg = GetOrganizationIDFromContext(r.Context())
		gotToken, _ = GetToken(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/analyses/x", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, orgID, gotOrg)
	assert.Equal(t, "test-token", gotToken)
}

func TestMiddleware_RequireAuth_Unauthorized(t *testing.T) {
	mw := NewMiddleware(&mockAuthService{validateErr: ErrMissingAuthorization}, zap.NewNop())

	called := false
	handler := mw.RequireAuth(func(w http.ResponseWriter, r *http.Request) { called = true })

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/analyses/x", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "unauthorized", body["error"])
}

func TestMiddleware_RequireAuth_MissingOrganization(t *testing.T) {
	mw := NewMiddleware(&mockAuthService{claims: &Claims{}, requireErr: ErrMissingOrganization}, zap.NewNop())

	called := false
	handler := mw.RequireAuth(func(w http.ResponseWriter, r *http.Request) { called = true })

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/analyses/x", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
