package httpx

import (
	"encoding/json"
	"net/http"

	"admitpay/internal/config"
	"admitpay/internal/http/handlers"
	middlewarex "admitpay/internal/http/middleware"
	"admitpay/internal/store/repositories"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

// RouterDependencies holds everything the HTTP surface needs.
type RouterDependencies struct {
	Config   config.Cfg
	Engine   handlers.Engine
	Payments repositories.PaymentStore
	Redis    *redis.Client
}

func NewRouter(deps RouterDependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	})

	r.Route("/payments", func(r chi.Router) {
		r.With(middlewarex.RateLimit(deps.Redis, deps.Config.Sec.RateLimitPerMin)).
			Post("/initialize", handlers.InitializePayment(deps.Engine))

		r.Get("/verify/{reference}", handlers.VerifyPayment(deps.Engine))

		// Gateway-originated; authenticated by signature, not by session.
		r.Post("/webhook", handlers.GatewayWebhook(deps.Engine, deps.Config.Gateway))
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middlewarex.AdminAuth(deps.Config))
		r.Get("/payments", handlers.ListPayments(deps.Payments))
		r.Post("/payments/requery", handlers.RequeryPayment(deps.Engine))
	})

	return r
}
