package handler

import (
	"encoding/json"
	"io"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/qa-review/errors"
	"github.com/johnquangdev/qa-review/internal/usecase/importer"
	"github.com/johnquangdev/qa-review/pkg/signature"
)

const maxWebhookBody = 1 << 20

// Webhook receives transcript status callbacks from AssemblyAI
type Webhook struct {
	importer importer.Service
	secret   string
	logger   *zap.Logger
}

// NewWebhookHandler creates a new webhook handler. An empty secret disables
// signature checks.
func NewWebhookHandler(importSvc importer.Service, secret string, logger *zap.Logger) *Webhook {
	return &Webhook{importer: importSvc, secret: secret, logger: logger}
}

// HandleAssemblyAI handles POST /webhooks/assemblyai
// @Summary      AssemblyAI transcript callback
// @Tags         Webhooks
// @Accept       json
// @Produce      json
// @Param        request  body      importer.WebhookPayload  true  "Callback"
// @Success      200      {object}  map[string]interface{}
// @Failure      401      {object}  common.ErrorResponse  "Bad signature"
// @Router       /webhooks/assemblyai [post]
func (h *Webhook) HandleAssemblyAI(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}

	if h.secret != "" {
		sig := c.Request().Header.Get("x-assemblyai-signature")
		if sig == "" {
			sig = c.Request().Header.Get(echo.HeaderAuthorization)
		}
		if !signature.VerifyHMAC(h.secret, body, sig) {
			if h.logger != nil {
				h.logger.Warn("rejected webhook with bad signature", zap.String("request_id", getRequestID(c)))
			}
			return HandleError(h.logger, c, errors.ErrUnauthenticated())
		}
	}

	var payload importer.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return HandleError(h.logger, c, errInvalidBody(err))
	}

	if err := h.importer.HandleWebhook(c.Request().Context(), payload); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, map[string]interface{}{"status": "ok"})
}
