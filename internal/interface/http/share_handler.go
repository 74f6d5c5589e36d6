package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/avinay/ntc-blueprint/config"
	"github.com/avinay/ntc-blueprint/internal/application"
	"github.com/avinay/ntc-blueprint/internal/domain/exchange"
	"github.com/avinay/ntc-blueprint/pkg/mailer"
	mailtpl "github.com/avinay/ntc-blueprint/pkg/mailer/templates"
	"github.com/avinay/ntc-blueprint/pkg/response"
	"github.com/avinay/ntc-blueprint/pkg/validation"
)

// JobPublisher is satisfied by *helpers.RabbitPublisher.
type JobPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

type ShareHandler struct {
	Svc    *application.Service
	Pub    JobPublisher
	Logger *logrus.Logger
	Cfg    *config.Config
}

func NewShareHandler(svc *application.Service, pub JobPublisher, logger *logrus.Logger, cfg *config.Config) *ShareHandler {
	return &ShareHandler{Svc: svc, Pub: pub, Logger: logger, Cfg: cfg}
}

type shareRequest struct {
	To      string `json:"to" binding:"required,email"`
	Message string `json:"message" binding:"max=500"`
}

// Share enqueues my card, vCard attached, for delivery to the given address.
func (h *ShareHandler) Share(c *gin.Context) {
	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	p := h.Svc.GetMyProfile(c.Request.Context())
	if p == nil {
		response.Error[any](c, http.StatusNotFound, application.ErrProfileNotFound.Error(), nil)
		return
	}

	// If sending disabled, short-circuit
	if (h.Cfg != nil && !h.Cfg.MailSendEnabled) || h.Pub == nil {
		response.Success[any](c, http.StatusAccepted, map[string]any{"enqueued": false, "disabled": true}, "email sending disabled", nil)
		return
	}

	job := mailer.EmailJob{
		To:       req.To,
		Template: mailtpl.ContactCard,
		Data: mailtpl.NewContactCardData(h.Cfg, p.Name, p.Role, p.Company, p.Phone, p.Email, req.To,
			mailtpl.WithTime(time.Now()),
			mailtpl.WithMessage(req.Message),
		),
		Attachments: []mailer.Attachment{{
			Filename:    exchange.FileStem(p.Name) + ".vcf",
			ContentType: "text/vcard",
			Content:     []byte(h.Svc.ExportContactAsVCard(*p)),
		}},
	}
	if err := h.Pub.PublishJSON(c.Request.Context(), job); err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).Warn("failed to publish share job")
		}
		response.Error[any](c, http.StatusInternalServerError, "failed to enqueue", nil)
		return
	}
	response.Success[any](c, http.StatusAccepted, map[string]any{"enqueued": true}, "card share enqueued", nil)
}
