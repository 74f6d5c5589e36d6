package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	repo "github.com/avinay/ntc-blueprint/internal/domain/repository"
	"github.com/avinay/ntc-blueprint/pkg/helpers"
	"github.com/avinay/ntc-blueprint/pkg/response"
)

const (
	CtxDeviceIDKey = "deviceID"
	DeviceHeader   = "X-Device-Token"
)

// Device resolves the caller's device from the X-Device-Token header or the
// device cookie. A missing or invalid token mints a new device and returns
// its token in both places. The device id becomes the storage namespace.
func Device(tokens *helpers.DeviceTokenManager, cookies *helpers.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(DeviceHeader)
		if token == "" {
			token, _ = c.Cookie(helpers.DeviceCookieName)
		}

		var deviceID string
		if token != "" {
			if claims, err := tokens.Parse(token); err == nil {
				deviceID = claims.DeviceID
			}
		}
		if deviceID == "" {
			deviceID = uuid.NewString()
			signed, exp, err := tokens.Generate(deviceID)
			if err != nil {
				response.Error[any](c, http.StatusInternalServerError, "failed to issue device token", nil)
				c.Abort()
				return
			}
			if cookies != nil {
				cookies.SetDevice(c, signed, exp)
			}
			c.Header(DeviceHeader, signed)
		}

		c.Set(CtxDeviceIDKey, deviceID)
		c.Request = c.Request.WithContext(repo.WithNamespace(c.Request.Context(), deviceID))
		c.Next()
	}
}
