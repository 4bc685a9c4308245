package daemon

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func userEchoRouter() *gin.Engine {
	router := gin.New()
	router.Use(UserMiddleware())
	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": GetUserID(c)})
	})
	return router
}

func TestUserMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		header   *string
		wantCode int
		wantBody string
	}{
		{
			name:     "missing header",
			header:   nil,
			wantCode: http.StatusUnauthorized,
			wantBody: "Missing X-User-Id header",
		},
		{
			name:     "empty header",
			header:   ptr(""),
			wantCode: http.StatusBadRequest,
			wantBody: "Invalid X-User-Id header",
		},
		{
			name:     "whitespace only",
			header:   ptr("   "),
			wantCode: http.StatusBadRequest,
			wantBody: "Invalid X-User-Id header",
		},
		{
			name:     "contains separator",
			header:   ptr("user:alice"),
			wantCode: http.StatusBadRequest,
			wantBody: "Invalid X-User-Id header",
		},
		{
			name:     "valid user",
			header:   ptr("alice"),
			wantCode: http.StatusOK,
			wantBody: `"user":"alice"`,
		},
		{
			name:     "surrounding whitespace trimmed",
			header:   ptr(" alice "),
			wantCode: http.StatusOK,
			wantBody: `"user":"alice"`,
		},
	}

	router := userEchoRouter()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != nil {
				req.Header.Set(UserHeader, *tt.header)
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func ptr(s string) *string { return &s }
