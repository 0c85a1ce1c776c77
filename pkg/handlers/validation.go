package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// FieldError names one field that failed validation and the rule it broke.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationErrorResponse is the 400 body for a request that fails validation.
type ValidationErrorResponse struct {
	Error  string       `json:"error"`
	Fields []FieldError `json:"fields"`
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// decodeAndValidate decodes the JSON body into dst and validates it. On
// failure it writes the error response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any, logger *zap.Logger) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", logger)
		return false
	}

	err := v.Struct(dst)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		logger.Error("Validator failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", logger)
		return false
	}

	resp := ValidationErrorResponse{Error: "validation_failed", Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		resp.Fields = append(resp.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	if err := WriteJSON(w, http.StatusBadRequest, resp); err != nil {
		logger.Error("Failed to write validation response", zap.Error(err))
	}
	return false
}
