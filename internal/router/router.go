package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gearboxe-market/messaging/internal/directory"
	"github.com/gearboxe-market/messaging/internal/handlers"
	"github.com/gearboxe-market/messaging/internal/middleware"
	"github.com/gearboxe-market/messaging/internal/observability"
)

func New(
	msgH *handlers.MessagingHandler,
	resolver directory.IdentityResolver,
	jwtSecret string,
	serviceName string,
) http.Handler {

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(observability.MetricsMiddleware(serviceName))
	r.Use(middleware.Recovery())

	r.Group(func(p chi.Router) {
		p.Use(middleware.JWT(jwtSecret, "", ""))
		p.Use(middleware.Identity(resolver))

		p.Post("/api/messages", msgH.SendMessage)
		p.Post("/api/messages/{id}/read", msgH.MarkMessageRead)

		p.Get("/api/conversations", msgH.GetConversation)
		p.Get("/api/conversations/{id}/messages", msgH.ListMessages)
		p.Post("/api/conversations/{id}/read", msgH.MarkConversationRead)

		p.Get("/api/vehicles/{id}/messages", msgH.ListVehicleMessages)

		p.Get("/api/inbox", msgH.Inbox)
		p.Get("/api/unread-count", msgH.UnreadCount)

		p.Get("/api/subscribe", msgH.Subscribe)
	})

	return r
}
