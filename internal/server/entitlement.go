package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type entitlementResponse struct {
	UserID    string `json:"user_id"`
	Status    string `json:"status"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

func (s *Server) GetEntitlement(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		AbortWithError(c, newValidationError("user_id", "required", "user_id is required"))
		return
	}

	ent, err := s.repo.Get(c.Request.Context(), s.db, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := entitlementResponse{
		UserID: ent.UserID,
		Status: string(ent.Status),
	}
	if ent.ExpiresAt != nil {
		resp.ExpiresAt = ent.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}

	c.JSON(http.StatusOK, resp)
}
