package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/processx-inc/processx-engine/pkg/apperrors"
	"github.com/processx-inc/processx-engine/pkg/auth"
	"github.com/processx-inc/processx-engine/pkg/models"
)

func TestRecommendationHandler_List_NormalizesStatusFilter(t *testing.T) {
	processID := uuid.New()
	svc := &mockRecommendationService{recs: []*models.ProcessRecommendation{
		{ID: uuid.New(), ProcessID: processID, Title: "Automate approvals", Status: models.RecommendationStatusApproved},
	}}
	handler := NewRecommendationHandler(svc, testAuditor(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/processes/"+processID.String()+"/recommendations?status=%20approved", nil)
	req.SetPathValue("processId", processID.String())
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RecommendationStatusApproved, svc.gotStatus)

	var recs []models.ProcessRecommendation
	decodeData(t, rec, &recs)
	require.Len(t, recs, 1)
	assert.Equal(t, "Automate approvals", recs[0].Title)
}

func TestRecommendationHandler_List_NoFilter(t *testing.T) {
	svc := &mockRecommendationService{}
	handler := NewRecommendationHandler(svc, testAuditor(), zap.NewNop())

	processID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/processes/"+processID.String()+"/recommendations", nil)
	req.SetPathValue("processId", processID.String())
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RecommendationStatus(""), svc.gotStatus)
}

func TestRecommendationHandler_List_InvalidFilter(t *testing.T) {
	svc := &mockRecommendationService{err: fmt.Errorf("%w: unknown status %q", apperrors.ErrValidation, "MAYBE")}
	handler := NewRecommendationHandler(svc, testAuditor(), zap.NewNop())

	processID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/processes/"+processID.String()+"/recommendations?status=maybe", nil)
	req.SetPathValue("processId", processID.String())
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecommendationHandler_Transitions(t *testing.T) {
	tests := []struct {
		name        string
		invoke      func(*RecommendationHandler, http.ResponseWriter, *http.Request)
		wantApplied string
		wantStatus  models.RecommendationStatus
	}{
		{"approve", (*RecommendationHandler).Approve, "approve", models.RecommendationStatusApproved},
		{"reject", (*RecommendationHandler).Reject, "reject", models.RecommendationStatusRejected},
		{"implement", (*RecommendationHandler).Implement, "implement", models.RecommendationStatusImplemented},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := uuid.New()
			svc := &mockRecommendationService{rec: &models.ProcessRecommendation{ID: id, Status: tt.wantStatus}}
			handler := NewRecommendationHandler(svc, testAuditor(), zap.NewNop())

			req := httptest.NewRequest(http.MethodPost, "/api/recommendations/"+id.String()+"/"+tt.name, nil)
			req.SetPathValue("id", id.String())
			rec := httptest.NewRecorder()
			tt.invoke(handler, rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantApplied, svc.applied)

			var got models.ProcessRecommendation
			decodeData(t, rec, &got)
			assert.Equal(t, tt.wantStatus, got.Status)
		})
	}
}

func TestRecommendationHandler_Transition_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid transition", fmt.Errorf("REJECTED -> APPROVED: %w", apperrors.ErrInvalidTransition), http.StatusConflict, "invalid_transition"},
		{"concurrent change", apperrors.ErrConflict, http.StatusConflict, "conflict"},
		{"missing", apperrors.ErrNotFound, http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewRecommendationHandler(&mockRecommendationService{err: tt.err}, testAuditor(), zap.NewNop())

			id := uuid.New()
			req := httptest.NewRequest(http.MethodPost, "/api/recommendations/"+id.String()+"/approve", nil)
			req.SetPathValue("id", id.String())
			rec := httptest.NewRecorder()
			handler.Approve(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantCode, body["error"])
		})
	}
}

func TestRecommendationHandler_Transition_InvalidID(t *testing.T) {
	svc := &mockRecommendationService{}
	handler := NewRecommendationHandler(svc, testAuditor(), zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/recommendations/xyz/reject", nil)
	req.SetPathValue("id", "xyz")
	rec := httptest.NewRecorder()
	handler.Reject(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.applied)
}

func TestRecommendationHandler_RegisterRoutes(t *testing.T) {
	id := uuid.New()
	svc := &mockRecommendationService{rec: &models.ProcessRecommendation{ID: id, Status: models.RecommendationStatusImplemented}}
	handler := NewRecommendationHandler(svc, testAuditor(), zap.NewNop())
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, auth.NewMiddleware(&stubAuthService{orgID: uuid.New()}, zap.NewNop()), passthroughTenant)

	req := httptest.NewRequest(http.MethodPost, "/api/recommendations/"+id.String()+"/implement", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "implement", svc.applied)
}
