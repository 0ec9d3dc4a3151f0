package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/SenTheOpsGuy/holy-company-platform-sub000/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware пунья-сервиса.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/session", h.CreateSession)

		// Вебхук подписан шлюзом, сессия пользователя ему не нужна.
		r.Post("/offerings/webhook", h.OfferingWebhook)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/user", h.GetUser)

			r.Post("/rituals/step", h.RecordStep)
			r.Post("/rituals/restart", h.RestartRitual)
			r.Post("/rituals/complete", h.CompleteRitual)
			r.Get("/rituals", h.GetRituals)

			r.Get("/blessings", h.GetBlessings)

			r.Post("/offerings", h.CreateOffering)
			r.Get("/offerings/{id}/verify", h.VerifyOffering)

			r.Get("/games", h.ListGames)
			r.Post("/games/{id}/unlock", h.UnlockGame)
			r.Post("/games/{id}/score", h.SubmitScore)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
