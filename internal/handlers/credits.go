package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/creation-sync/internal/auth"
	"github.com/PratikDhanave/creation-sync/internal/models"
	"github.com/PratikDhanave/creation-sync/internal/store"
)

// RegisterCreditRoutes registers GET /v1/credits.
func RegisterCreditRoutes(r gin.IRoutes, st store.CreationStore) {
	r.GET("/v1/credits", func(c *gin.Context) {
		userID := auth.UserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		balance, err := st.Balance(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
			return
		}

		c.JSON(http.StatusOK, models.CreditsResponse{Balance: balance})
	})
}
