package handlers

import (
	"errors"
	"expvar"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/avinay/ntc-blueprint/internal/application"
	"github.com/avinay/ntc-blueprint/internal/domain/entity"
	"github.com/avinay/ntc-blueprint/internal/domain/exchange"
	"github.com/avinay/ntc-blueprint/pkg/qr"
	"github.com/avinay/ntc-blueprint/pkg/response"
	"github.com/avinay/ntc-blueprint/pkg/validation"
)

var (
	scansAccepted = expvar.NewInt("networking_scans_accepted")
	scansRejected = expvar.NewInt("networking_scans_rejected")
)

// maxImageBytes caps uploaded QR photos.
const maxImageBytes = 8 << 20

type NetworkingHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
	QRSize int
}

func NewNetworkingHandler(svc *application.Service, logger *logrus.Logger, qrSize int) *NetworkingHandler {
	return &NetworkingHandler{Svc: svc, Logger: logger, QRSize: qrSize}
}

type scanRequest struct {
	Payload string `json:"payload" binding:"required"`
}

// fail maps service errors onto status codes.
func (h *NetworkingHandler) fail(c *gin.Context, err error) {
	var fe *exchange.FormatError
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, application.ErrDuplicateContact):
		response.Error[any](c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, application.ErrContactNotFound), errors.Is(err, application.ErrProfileNotFound):
		response.Error[any](c, http.StatusNotFound, err.Error(), nil)
	case errors.As(err, &fe):
		response.Error[any](c, http.StatusUnprocessableEntity, fe.Error(), gin.H{"field": fe.Field, "reason": fe.Reason})
	case errors.As(err, &verrs):
		response.Error[any](c, http.StatusBadRequest, "validation failed", validation.ToDetails(err))
	case errors.Is(err, qr.ErrDecode):
		response.Error[any](c, http.StatusUnprocessableEntity, "no QR code found in image", nil)
	case errors.Is(err, qr.ErrEncode):
		response.Error[any](c, http.StatusInternalServerError, "failed to render QR code", nil)
	case errors.Is(err, application.ErrArchiveDisabled):
		response.Error[any](c, http.StatusServiceUnavailable, "contact archive not configured", nil)
	default:
		if h.Logger != nil {
			h.Logger.WithError(err).WithField("path", c.FullPath()).Error("networking request failed")
		}
		response.Error[any](c, http.StatusInternalServerError, "storage error", nil)
	}
}

// attachment sends body as a download. Names come from scanned cards, so the
// header is built by mime to quote or RFC 2231-encode them.
func attachment(c *gin.Context, filename, contentType string, body []byte) {
	cd := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	if cd == "" {
		cd = "attachment"
	}
	c.Header("Content-Disposition", cd)
	c.Data(http.StatusOK, contentType, body)
}

func (h *NetworkingHandler) GetProfile(c *gin.Context) {
	p := h.Svc.GetMyProfile(c.Request.Context())
	if p == nil {
		h.fail(c, application.ErrProfileNotFound)
		return
	}
	response.Success(c, http.StatusOK, p, "ok", nil)
}

func (h *NetworkingHandler) PutProfile(c *gin.Context) {
	var req application.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	p, created, err := h.Svc.UpsertMyProfile(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	if created {
		response.Success(c, http.StatusCreated, p, "profile created", nil)
		return
	}
	response.Success(c, http.StatusOK, p, "profile updated", nil)
}

func (h *NetworkingHandler) DeleteProfile(c *gin.Context) {
	if err := h.Svc.DeleteMyProfile(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"deleted": true}, "profile deleted", nil)
}

func (h *NetworkingHandler) ProfilePayload(c *gin.Context) {
	payload, err := h.Svc.MyProfilePayload(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"payload": payload}, "ok", nil)
}

func (h *NetworkingHandler) ProfileQR(c *gin.Context) {
	size := h.QRSize
	if s := c.Query("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > qr.MaxSize {
			response.Error[any](c, http.StatusBadRequest, "invalid size", gin.H{"size": "must be between 1 and " + strconv.Itoa(qr.MaxSize)})
			return
		}
		size = n
	}
	payload, err := h.Svc.MyProfilePayload(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	png, err := qr.Render(payload, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *NetworkingHandler) ProfileVCard(c *gin.Context) {
	p := h.Svc.GetMyProfile(c.Request.Context())
	if p == nil {
		h.fail(c, application.ErrProfileNotFound)
		return
	}
	attachment(c, exchange.FileStem(p.Name)+".vcf", "text/vcard; charset=utf-8", []byte(h.Svc.ExportContactAsVCard(*p)))
}

func (h *NetworkingHandler) ListContacts(c *gin.Context) {
	contacts := h.Svc.SearchContacts(c.Request.Context(), c.Query("q"))
	if sort := c.Query("sort"); sort != "" {
		contacts = application.SortContacts(contacts, entity.SortCriterion(sort))
	}
	response.Success(c, http.StatusOK, contacts, "ok", gin.H{"count": len(contacts)})
}

func (h *NetworkingHandler) ClearContacts(c *gin.Context) {
	if err := h.Svc.ClearContacts(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"cleared": true}, "contacts cleared", nil)
}

func (h *NetworkingHandler) ScanContact(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	h.scan(c, req.Payload)
}

func (h *NetworkingHandler) ScanContactImage(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "image is required", gin.H{"image": "is required"})
		return
	}
	if fh.Size > maxImageBytes {
		response.Error[any](c, http.StatusRequestEntityTooLarge, "image too large", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "unreadable image", nil)
		return
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes))
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "unreadable image", nil)
		return
	}

	payload, err := qr.Scan(data)
	if err != nil {
		scansRejected.Add(1)
		h.fail(c, err)
		return
	}
	h.scan(c, payload)
}

func (h *NetworkingHandler) scan(c *gin.Context, payload string) {
	contact, err := h.Svc.ScanContact(c.Request.Context(), payload)
	if err != nil {
		scansRejected.Add(1)
		h.fail(c, err)
		return
	}
	scansAccepted.Add(1)
	response.Success(c, http.StatusCreated, contact, "contact saved", nil)
}

func (h *NetworkingHandler) ExportContacts(c *gin.Context) {
	doc, err := h.Svc.ExportContactsAsJSON(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	attachment(c, application.ExportFilename(h.Svc.Now()), "application/json", []byte(doc))
}

func (h *NetworkingHandler) ArchiveContacts(c *gin.Context) {
	url, err := h.Svc.ArchiveContacts(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success[any](c, http.StatusCreated, gin.H{"url": url}, "contacts archived", nil)
}

func (h *NetworkingHandler) ContactVCard(c *gin.Context) {
	p, err := h.Svc.GetContact(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	attachment(c, exchange.FileStem(p.Name)+".vcf", "text/vcard; charset=utf-8", []byte(h.Svc.ExportContactAsVCard(*p)))
}

func (h *NetworkingHandler) UpdateContact(c *gin.Context) {
	var patch application.ContactPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	p, err := h.Svc.UpdateContact(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, p, "contact updated", nil)
}

func (h *NetworkingHandler) DeleteContact(c *gin.Context) {
	if err := h.Svc.DeleteContact(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"deleted": true}, "contact deleted", nil)
}

func (h *NetworkingHandler) Stats(c *gin.Context) {
	response.Success(c, http.StatusOK, h.Svc.GetNetworkingStats(c.Request.Context()), "ok", nil)
}
