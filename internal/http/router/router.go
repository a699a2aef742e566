package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/probelink/probelink/internal/http/handler"
	"github.com/probelink/probelink/internal/http/middleware"
	"github.com/probelink/probelink/internal/http/response"
	"github.com/probelink/probelink/internal/service"
)

type Dependencies struct {
	AuthHandler      *handler.AuthHandler
	SessionHandler   *handler.SessionHandler
	TelemetryHandler *handler.TelemetryHandler
	SettingsHandler  *handler.SettingsHandler
	StreamHandler    *handler.StreamHandler
	SessionStore     *service.SessionStore
	Relay            *service.Relay
	APIRateLimitRPM  int
	EnableOTelHTTP   bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute).Middleware())

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/stats", func(w http.ResponseWriter, r *http.Request) {
		trusted, normal := dep.SessionStore.Count()
		response.JSON(w, r, http.StatusOK, map[string]any{
			"status":      "ok",
			"sessions":    map[string]int{"trusted": trusted, "normal": normal},
			"subscribers": dep.Relay.SubscriberCount(),
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", dep.AuthHandler.Login)

		// Soft-failure session routes validate inline: they answer
		// {ok:false} rather than 401.
		r.Get("/check-token", dep.SessionHandler.CheckToken)
		r.Get("/session-info", dep.SessionHandler.SessionInfo)
		r.Post("/extend-session", dep.SessionHandler.ExtendSession)
		r.Post("/logout", dep.SessionHandler.Logout)
		r.Get("/active-sessions", dep.SessionHandler.ActiveSessions)
		r.Post("/logout-token", dep.SessionHandler.LogoutToken)

		// Device push and last-value read are unauthenticated.
		r.Post("/data", dep.TelemetryHandler.Push)
		r.Get("/last", dep.TelemetryHandler.Last)

		r.Group(func(r chi.Router) {
			r.Use(middleware.SessionAuth(dep.SessionStore))
			r.Get("/settings", dep.SettingsHandler.Get)
			r.Put("/settings", dep.SettingsHandler.Update)
			r.Get("/login-history", dep.SessionHandler.LoginHistory)
		})
	})

	r.Get("/ws", dep.StreamHandler.ServeWS)

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
