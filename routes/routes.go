package routes

import (
	"lifeassistant/auth"
	"lifeassistant/backup"
	"lifeassistant/dishes"
	"lifeassistant/export"
	"lifeassistant/livesync"
	"lifeassistant/middleware"
	"lifeassistant/ratelim"
	"lifeassistant/schedule"
	"lifeassistant/settings"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

func AddAuthRoutes(router *httprouter.Router, h *auth.Handlers, mw *middleware.Auth, rl *ratelim.RateLimiter) {
	router.POST("/api/auth/register", rl.Limit(h.Register))
	router.POST("/api/auth/login", rl.Limit(h.Login))
	router.POST("/api/auth/logout", mw.Authenticate(h.Logout))
}

func AddDishRoutes(router *httprouter.Router, h *dishes.Handlers, mw *middleware.Auth) {
	router.GET("/api/dishes", mw.Authenticate(h.GetDishes))
	router.POST("/api/dishes", mw.Authenticate(h.CreateDish))
	router.PUT("/api/dishes/:id", mw.Authenticate(h.UpdateDish))
	router.DELETE("/api/dishes/:id", mw.Authenticate(h.DeleteDish))
}

func AddScheduleRoutes(router *httprouter.Router, h *schedule.Handlers, mw *middleware.Auth) {
	router.GET("/api/schedule", mw.Authenticate(h.GetSchedule))
	router.POST("/api/schedule/place", mw.Authenticate(h.PlaceDish))
	router.POST("/api/schedule/move", mw.Authenticate(h.MoveDish))
	router.POST("/api/schedule/meal-type", mw.Authenticate(h.ChangeMealType))
	router.POST("/api/schedule/servings", mw.Authenticate(h.UpdateServings))
	router.DELETE("/api/schedule/:date/:meal/:index", mw.Authenticate(h.RemoveAt))
}

func AddExportRoutes(router *httprouter.Router, h *export.Handlers, mw *middleware.Auth, rl *ratelim.RateLimiter) {
	router.GET("/api/grocery", mw.Authenticate(h.GetGroceryList))
	router.GET("/api/export/grocery", rl.Limit(mw.Authenticate(h.ExportGrocery)))
	router.GET("/api/export/schedule", rl.Limit(mw.Authenticate(h.ExportSchedule)))
}

func AddSettingsRoutes(router *httprouter.Router, h *settings.Handlers, mw *middleware.Auth) {
	router.GET("/api/settings/export", mw.Authenticate(h.GetExportSettings))
	router.PUT("/api/settings/export", mw.Authenticate(h.UpdateExportSettings))
}

func AddBackupRoutes(router *httprouter.Router, h *backup.Handlers, mw *middleware.Auth, rl *ratelim.RateLimiter) {
	router.GET("/api/backup", mw.Authenticate(h.Download))
	router.POST("/api/backup/restore", rl.Limit(mw.Authenticate(h.Restore)))
}

func AddSyncRoutes(router *httprouter.Router, hub *livesync.Hub, mw *middleware.Auth, upgrader *websocket.Upgrader) {
	router.GET("/api/sync/ws", livesync.WebSocketHandler(hub, mw, upgrader))
}
