package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ivanchenka/lumo/internal/config"
	authsvc "github.com/ivanchenka/lumo/internal/services/auth"
	convsvc "github.com/ivanchenka/lumo/internal/services/conversations"
	feedsvc "github.com/ivanchenka/lumo/internal/services/feed"
	swipesvc "github.com/ivanchenka/lumo/internal/services/swipes"
	"github.com/ivanchenka/lumo/internal/transport/http/handlers"
	"github.com/ivanchenka/lumo/internal/transport/ws"
)

type Dependencies struct {
	JWTManager           *authsvc.JWTManager
	FeedService          *feedsvc.Service
	SwipeService         *swipesvc.Service
	ConversationsService *convsvc.Service
	WSHandler            *ws.Handler
	Logger               *zap.Logger
	Config               config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	feedHandler := handlers.NewFeedHandler(deps.FeedService)
	swipeHandler := handlers.NewSwipeHandler(deps.SwipeService)
	conversationsHandler := handlers.NewConversationsHandler(deps.ConversationsService)
	authMW := AuthMiddleware(deps.JWTManager, deps.Logger)

	r.Get("/healthz", healthHandler.Get)
	r.With(authMW).Get("/feed", feedHandler.Handle)
	r.With(authMW).Post("/swipes", swipeHandler.Handle)
	r.With(authMW).Delete("/swipes/{receiverID}", swipeHandler.Unswipe)
	r.With(authMW).Get("/conversations", conversationsHandler.Handle)
	if deps.WSHandler != nil {
		r.With(authMW).Get("/ws", deps.WSHandler.Handle)
	}
}
