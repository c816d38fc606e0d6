package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandlePixPostback ingests provider postbacks. The provider retries on any
// non-200, so the response is 200 {"ok": true} no matter what the payload
// contained; reconciliation outcomes are observable through logs and metrics
// only.
func (s *Server) HandlePixPostback(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		payload = nil
	}

	s.reconciler.Process(c.Request.Context(), payload)

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
