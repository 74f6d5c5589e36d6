package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/avinay/ntc-blueprint/internal/interface/http"
	"github.com/avinay/ntc-blueprint/internal/interface/middleware"
	"github.com/avinay/ntc-blueprint/pkg/helpers"
)

// NetworkingModule serves the profile store under /api/networking.
// Every route runs behind the Device middleware, which picks the storage
// namespace. Scan and share routes carry a per-device limit on top of the
// per-IP one.
type NetworkingModule struct {
	Handler *handlers.NetworkingHandler
	Share   *handlers.ShareHandler
	Tokens  *helpers.DeviceTokenManager
	Cookies *helpers.Manager
	Redis   *redis.Client
}

func NewNetworkingModule(h *handlers.NetworkingHandler, share *handlers.ShareHandler, tokens *helpers.DeviceTokenManager, cookies *helpers.Manager, rdb *redis.Client) *NetworkingModule {
	return &NetworkingModule{Handler: h, Share: share, Tokens: tokens, Cookies: cookies, Redis: rdb}
}

func (m *NetworkingModule) Name() string { return "networking" }

func (m *NetworkingModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/networking")
	g.Use(
		middleware.RateLimit(m.Redis, 300, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP()),
		middleware.Device(m.Tokens, m.Cookies),
	)

	scanLimiter := middleware.RateLimit(m.Redis, 30, time.Minute, middleware.KeyByDevice(), nil)
	shareLimiter := middleware.RateLimit(m.Redis, 5, time.Minute, middleware.KeyByDevice(), nil)

	g.GET("/profile", m.Handler.GetProfile)
	g.PUT("/profile", m.Handler.PutProfile)
	g.DELETE("/profile", m.Handler.DeleteProfile)
	g.GET("/profile/payload", m.Handler.ProfilePayload)
	g.GET("/profile/qr", m.Handler.ProfileQR)
	g.GET("/profile/vcard", m.Handler.ProfileVCard)
	g.POST("/profile/share", shareLimiter, m.Share.Share)

	g.GET("/contacts", m.Handler.ListContacts)
	g.DELETE("/contacts", m.Handler.ClearContacts)
	g.POST("/contacts/scan", scanLimiter, m.Handler.ScanContact)
	g.POST("/contacts/scan/image", scanLimiter, m.Handler.ScanContactImage)
	g.GET("/contacts/export", m.Handler.ExportContacts)
	g.POST("/contacts/export/archive", m.Handler.ArchiveContacts)
	g.GET("/contacts/:id/vcard", m.Handler.ContactVCard)
	g.PATCH("/contacts/:id", m.Handler.UpdateContact)
	g.DELETE("/contacts/:id", m.Handler.DeleteContact)

	g.GET("/stats", m.Handler.Stats)
}
