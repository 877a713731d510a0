package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/warp/stock-ledger/stock"
)

// =============================================================================
// ERROR RESPONSES
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

const (
	CodeBadRequest        = "bad_request"
	CodeValidation        = "validation_error"
	CodeNotFound          = "product_not_found"
	CodeUnitMismatch      = "unit_mismatch"
	CodeInsufficientStock = "insufficient_stock"
	CodeDuplicateSKU      = "duplicate_sku"
	CodeStorage           = "storage_error"
	CodeInternal          = "internal_error"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code, Details: details})
}

// writeDomainError maps a stock error to its HTTP status and code.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		verr     *stock.ValidationError
		mismatch *stock.UnitMismatchError
		short    *stock.InsufficientStockError
	)
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, CodeValidation, err.Error(),
			map[string]string{verr.Field: verr.Message})
	case errors.As(err, &mismatch):
		writeError(w, http.StatusBadRequest, CodeUnitMismatch, err.Error(), map[string]string{
			"unit_type": string(mismatch.UnitType),
			"given":     mismatch.Given,
		})
	case errors.As(err, &short):
		writeError(w, http.StatusConflict, CodeInsufficientStock, err.Error(), map[string]string{
			"available": short.Available.String(),
			"requested": short.Requested.String(),
		})
	case errors.Is(err, stock.ErrValidation):
		writeError(w, http.StatusBadRequest, CodeValidation, err.Error(), nil)
	case errors.Is(err, stock.ErrUnitMismatch):
		writeError(w, http.StatusBadRequest, CodeUnitMismatch, err.Error(), nil)
	case errors.Is(err, stock.ErrInsufficientStock):
		writeError(w, http.StatusConflict, CodeInsufficientStock, err.Error(), nil)
	case errors.Is(err, stock.ErrProductNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, err.Error(), nil)
	case errors.Is(err, stock.ErrDuplicateSKU):
		writeError(w, http.StatusConflict, CodeDuplicateSKU, err.Error(), nil)
	case errors.Is(err, stock.ErrStorage):
		writeError(w, http.StatusServiceUnavailable, CodeStorage, "storage unavailable, retry the request", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, CodeInternal, "internal error", err.Error())
	}
}

// =============================================================================
// REQUEST DECODING
// =============================================================================

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate reads a JSON body into dst and checks its struct tags.
// On failure it writes the 400 response and returns false.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body", err.Error())
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fieldMessage(fe)
			}
			writeError(w, http.StatusBadRequest, CodeValidation, "validation failed", fields)
			return false
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request", err.Error())
		return false
	}
	return true
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return "is invalid"
	}
}
