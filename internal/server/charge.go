package server

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	chargedomain "github.com/lumapag/pixgate/internal/charge/domain"
	"github.com/lumapag/pixgate/internal/notify"
)

type createChargeRequest struct {
	UserID string `json:"user_id"`
}

type chargeVisual struct {
	Kind string `json:"kind"`
	Data string `json:"data,omitempty"`
	URL  string `json:"url,omitempty"`
}

type createChargeResponse struct {
	TransactionID string        `json:"transaction_id"`
	ProviderTxID  string        `json:"provider_tx_id,omitempty"`
	Credential    string        `json:"credential,omitempty"`
	Visual        *chargeVisual `json:"visual,omitempty"`
	Message       string        `json:"message,omitempty"`
}

func (s *Server) CreateCharge(c *gin.Context) {
	var req createChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		AbortWithError(c, newValidationError("user_id", "required", "user_id is required"))
		return
	}

	result, err := s.chargeSvc.CreateCharge(c.Request.Context(), req.UserID)
	if err != nil && !errors.Is(err, chargedomain.ErrExtractionMiss) {
		AbortWithError(c, err)
		return
	}

	resp := createChargeResponse{
		TransactionID: result.TransactionID.String(),
		ProviderTxID:  result.ProviderTxID,
		Credential:    result.Credential,
		Visual:        visualPayload(result.Image),
	}
	if errors.Is(err, chargedomain.ErrExtractionMiss) {
		// The pending row exists; the payment just cannot be displayed.
		resp.Message = "payment created but no payable code was returned, try again"
	}

	c.JSON(http.StatusOK, resp)
}

func visualPayload(img *notify.Image) *chargeVisual {
	if img == nil {
		return nil
	}
	switch img.Kind {
	case notify.ImageRemote:
		return &chargeVisual{Kind: string(notify.ImageRemote), URL: img.URL}
	default:
		return &chargeVisual{
			Kind: string(notify.ImageInline),
			Data: base64.StdEncoding.EncodeToString(img.Bytes),
		}
	}
}
