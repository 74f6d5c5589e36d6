package router

import (
	"github.com/avinay/ntc-blueprint/internal/application"
	"github.com/avinay/ntc-blueprint/internal/container"
	handlers "github.com/avinay/ntc-blueprint/internal/interface/http"
	"github.com/avinay/ntc-blueprint/internal/router/modules"
	"github.com/avinay/ntc-blueprint/pkg/helpers"
)

type NetworkingModuleDeps struct {
	Service *application.Service
	Handler *handlers.NetworkingHandler
	Share   *handlers.ShareHandler
}

func buildNetworkingDeps() NetworkingModuleDeps {
	cfg := container.GetConfig()

	service := application.NewService(
		container.GetStore(),
		container.GetGCS(),
		cfg.GCSBucket,
		container.GetLogger(),
		cfg.StrictScanValidation,
	)

	handler := handlers.NewNetworkingHandler(service, container.GetLogger(), cfg.QRDefaultSize)

	// a nil *RabbitPublisher must not become a non-nil interface
	var pub handlers.JobPublisher
	if rp := container.GetRabbitPub(); rp != nil {
		pub = rp
	}
	share := handlers.NewShareHandler(service, pub, container.GetLogger(), cfg)

	return NetworkingModuleDeps{
		Service: service,
		Handler: handler,
		Share:   share,
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	deps := buildNetworkingDeps()
	cookies := helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure)

	r.Add(modules.NewNetworkingModule(deps.Handler, deps.Share, container.GetDeviceTokens(), cookies, container.GetRedis()))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(container.GetRedis()))
	}
}
