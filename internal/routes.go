package internal

import (
	"net/http"

	"msd/internal/controllers"
	"msd/internal/providers"
	"msd/internal/structures"
)

func InitRoutes(apiController *controllers.ApiController, conf *structures.Config) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Post("/migrations", http.HandlerFunc(apiController.CreateMigration))
	routers.Post("/migrations/transition", http.HandlerFunc(apiController.Transition))
	routers.Post("/migrations/snapshots", http.HandlerFunc(apiController.ReceiveSnapshot))
	routers.Post("/migrations/tracks", http.HandlerFunc(apiController.UpdateTrack))
	routers.Post("/migrations/complete", http.HandlerFunc(apiController.Complete))
	routers.Post("/migrations/transfer", http.HandlerFunc(apiController.AttachTransfer))
	routers.Post("/people", http.HandlerFunc(apiController.PutPerson))
	routers.Post("/adoption", http.HandlerFunc(apiController.ReceiveAdoptionEvent))

	routers.Get("/overview", http.HandlerFunc(apiController.GetOverview))
	routers.Get("/daily", http.HandlerFunc(apiController.GetDailySummary))
	routers.Get("/pending", http.HandlerFunc(apiController.GetPendingItems))
	routers.Get("/matrix", http.HandlerFunc(apiController.GetAdoptionMatrix))
	routers.Get("/migration", http.HandlerFunc(apiController.GetMigration))
	return routers
}
