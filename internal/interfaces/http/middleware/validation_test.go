package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/bomengine/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stockLine struct {
	Unit string `json:"unit" binding:"required,measure_unit"`
}

type stockInput struct {
	Type   string      `json:"type" binding:"required,transaction_type"`
	Reason string      `json:"reason" binding:"required,transaction_reason"`
	Notes  string      `json:"notes" binding:"max=10"`
	Lines  []stockLine `json:"lines" binding:"omitempty,dive"`
}

func validationRouter() *gin.Engine {
	SetupValidator()
	router := gin.New()
	router.Use(RequestID())
	router.POST("/test", func(c *gin.Context) {
		var in stockInput
		if err := c.ShouldBindJSON(&in); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})
	return router
}

func postValidation(t *testing.T, router *gin.Engine, body string) (int, dto.Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp dto.Response
	if w.Code != http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w.Code, resp
}

func TestValidation(t *testing.T) {
	router := validationRouter()

	t.Run("valid input", func(t *testing.T) {
		code, _ := postValidation(t, router, `{"type":"Restock","reason":"purchase","lines":[{"unit":"KG"}]}`)
		assert.Equal(t, http.StatusOK, code)
	})

	t.Run("generic failures use ERR_VALIDATION with details", func(t *testing.T) {
		code, resp := postValidation(t, router, `{"type":"restock","notes":"far too long a note"}`)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 2)
		assert.Equal(t, "reason", resp.Error.Details[0].Field)
		assert.Equal(t, "This field is required", resp.Error.Details[0].Message)
		assert.NotEmpty(t, resp.Error.RequestID)
	})

	t.Run("enum failures carry their own code", func(t *testing.T) {
		_, resp := postValidation(t, router, `{"type":"transfer","reason":"purchase"}`)
		assert.Equal(t, dto.ErrCodeInvalidTransactionType, resp.Error.Code)

		_, resp = postValidation(t, router, `{"type":"restock","reason":"theft"}`)
		assert.Equal(t, dto.ErrCodeInvalidReason, resp.Error.Code)

		_, resp = postValidation(t, router, `{"type":"restock","reason":"purchase","lines":[{"unit":"kg"},{"unit":"furlong"}]}`)
		assert.Equal(t, dto.ErrCodeInvalidUnit, resp.Error.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "lines[1].unit", resp.Error.Details[0].Field)
	})

	t.Run("malformed json", func(t *testing.T) {
		code, resp := postValidation(t, router, `{"type":`)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, dto.ErrCodeInvalidJSON, resp.Error.Code)
	})
}
