package internal

import (
	"net/http"
	"wearsync/internal/controllers"
	"wearsync/internal/providers"
)

func InitRoutes(syncController *controllers.SyncController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Post("/api/sync/intraday", http.HandlerFunc(syncController.SyncIntraday))
	routers.Post("/api/sync/sessions", http.HandlerFunc(syncController.SyncSessions))
	routers.Post("/api/sync/profile", http.HandlerFunc(syncController.SyncProfile))
	routers.Post("/api/connection/boundary", http.HandlerFunc(syncController.SetBoundary))
	routers.Get("/api/status", http.HandlerFunc(syncController.GetStatus))
	return routers
}
