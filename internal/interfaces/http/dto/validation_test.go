package dto

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	require.NoError(t, RegisterValidations())

	type payload struct {
		Slug string `json:"slug" binding:"required,slug"`
	}

	engine := gin.New()
	engine.POST("/", func(c *gin.Context) {
		var p payload
		if err := c.ShouldBindJSON(&p); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name string
		slug string
		want int
	}{
		{"simple", "electronics", http.StatusOK},
		{"hyphenated", "home-garden", http.StatusOK},
		{"underscored", "size_42", http.StatusOK},
		{"spaces", "home garden", http.StatusBadRequest},
		{"slash", "home/garden", http.StatusBadRequest},
		{"unicode", "catégorie", http.StatusBadRequest},
		{"too long", strings.Repeat("a", 61), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"slug":"`+tt.slug+`"}`))
			req.Header.Set("Content-Type", "application/json")
			engine.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
