package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(APIKeyMiddleware(map[string]string{"key-1": "user1"}))
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)})
	})
	return r
}

func TestAPIKeyMiddleware(t *testing.T) {
	testCases := []struct {
		name         string
		header       string
		query        string
		expectedCode int
		expectedBody string
	}{
		{name: "header_key", header: "key-1", expectedCode: http.StatusOK, expectedBody: `{"user_id":"user1"}`},
		{name: "header_key_padded", header: "  key-1 ", expectedCode: http.StatusOK, expectedBody: `{"user_id":"user1"}`},
		{name: "beacon_query_key", query: "?api_key=key-1", expectedCode: http.StatusOK, expectedBody: `{"user_id":"user1"}`},
		{name: "unknown_key", header: "nope", expectedCode: http.StatusUnauthorized, expectedBody: `{"error":"unauthorized"}`},
		{name: "missing_key", expectedCode: http.StatusUnauthorized, expectedBody: `{"error":"unauthorized"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set(HeaderAPIKey, tc.header)
			}
			rec := httptest.NewRecorder()

			newAuthRouter().ServeHTTP(rec, req)

			assert.Equal(t, tc.expectedCode, rec.Code)
			assert.JSONEq(t, tc.expectedBody, rec.Body.String())
		})
	}
}
