package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/PratikDhanave/creation-sync/internal/auth"
	"github.com/PratikDhanave/creation-sync/internal/models"
	"github.com/PratikDhanave/creation-sync/internal/store"
)

// RegisterCreationRoutes registers the creation endpoints.
//
// POST /v1/creations
// - Requires X-API-Key (or ?api_key= for beacon deliveries)
// - Accepts application/json and text/plain bodies; beacons send the latter
// - Idempotent: replays of a creation_token return 200 with duplicate=true
// - Debits cost credits; 402 when the balance is too low
//
// GET /v1/creations?limit=N
// - Newest first; each record carries its creation_token
func RegisterCreationRoutes(r gin.IRoutes, st store.CreationStore, cost int64) {
	r.POST("/v1/creations", func(c *gin.Context) {
		userID := auth.UserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		// Read the raw body so text/plain beacon payloads decode the same as JSON.
		body, err := c.GetRawData()
		if err != nil || len(body) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}
		var req models.CreationRequest
		if err := json.Unmarshal(body, &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "message": err.Error()})
			return
		}

		result, err := st.CreateCreation(c.Request.Context(), models.Creation{
			ID:            uuid.New().String(),
			UserID:        userID,
			TargetID:      req.TargetID,
			Method:        req.Method,
			Args:          req.Args,
			CreationToken: req.CreationToken,
			MutateOfID:    req.MutateOfID,
		}, cost)
		if err != nil {
			var ice *store.InsufficientCreditsError
			if errors.As(err, &ice) {
				c.JSON(http.StatusPaymentRequired, models.InsufficientCreditsResponse{
					Error:    "insufficient_credits",
					Message:  "Not enough credits to start this creation.",
					Current:  ice.Current,
					Required: ice.Required,
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db insert failed"})
			return
		}

		// 201 for new creations, 200 for replays (idempotent success).
		status := http.StatusCreated
		if result.Duplicate {
			status = http.StatusOK
		}

		c.JSON(status, models.CreationResponse{
			Creation:         result.Creation,
			CreditsRemaining: result.Balance,
			Duplicate:        result.Duplicate,
		})
	})

	r.GET("/v1/creations", func(c *gin.Context) {
		userID := auth.UserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
				return
			}
			limit = n
		}

		creations, err := st.ListCreations(c.Request.Context(), userID, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
			return
		}

		c.JSON(http.StatusOK, models.ListCreationsResponse{Creations: creations})
	})
}
