package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/erp/bomengine/internal/domain/inventory"
	"github.com/erp/bomengine/internal/domain/shared/valueobject"
	"github.com/erp/bomengine/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RequestIDKey is the gin context key holding the request ID
const RequestIDKey = "request_id"

// Custom validation tags
const (
	TagMeasureUnit       = "measure_unit"
	TagTransactionType   = "transaction_type"
	TagTransactionReason = "transaction_reason"
)

// tagErrorCodes gives enum tags their own API error code
var tagErrorCodes = map[string]string{
	TagMeasureUnit:       dto.ErrCodeInvalidUnit,
	TagTransactionType:   dto.ErrCodeInvalidTransactionType,
	TagTransactionReason: dto.ErrCodeInvalidReason,
}

// SetupValidator names fields after their JSON tags and registers the
// enum validators. Safe to call more than once.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	_ = v.RegisterValidation(TagMeasureUnit, func(fl validator.FieldLevel) bool {
		_, err := valueobject.ParseMeasureUnit(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation(TagTransactionType, func(fl validator.FieldLevel) bool {
		_, err := inventory.ParseTransactionType(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation(TagTransactionReason, func(fl validator.FieldLevel) bool {
		_, err := inventory.ParseReason(fl.Field().String())
		return err == nil
	})
}

// FormatValidationErrors formats validation errors into a standard response.
// When every failure is on one enum tag the response carries that tag's code.
func FormatValidationErrors(err error, requestID string) dto.Response {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return dto.NewErrorResponseWithRequestID(dto.ErrCodeInvalidJSON, "Request body is not valid JSON for this endpoint", requestID)
	}

	details := make([]dto.ValidationDetail, 0, len(validationErrors))
	code := ""
	for i, e := range validationErrors {
		details = append(details, dto.ValidationDetail{
			Field:   e.Namespace()[strings.Index(e.Namespace(), ".")+1:],
			Message: getValidationMessage(e),
			Tag:     e.Tag(),
		})
		tagCode := tagErrorCodes[e.Tag()]
		if i == 0 {
			code = tagCode
		} else if code != tagCode {
			code = ""
		}
	}

	resp := dto.NewValidationErrorResponse("Request validation failed", requestID, details)
	if code != "" {
		resp.Error.Code = code
	}
	return resp
}

// HandleValidationError returns a validation error response
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, c.GetString(RequestIDKey)))
}

// getValidationMessage returns a human-readable validation message
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must contain at least " + e.Param() + " items"
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must contain at most " + e.Param() + " items"
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	case TagMeasureUnit:
		return "Unknown unit of measure"
	case TagTransactionType:
		return "Must be one of: restock deduction adjustment"
	case TagTransactionReason:
		return "Unknown transaction reason"
	default:
		return "Invalid value"
	}
}
