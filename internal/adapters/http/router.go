package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/deptrai/longthanhland-sub000/internal/ports"
)

// RouterConfig wires the admission layers in front of the webhook routes.
type RouterConfig struct {
	IPGuard             IPGuardConfig
	BankingSignature    SignatureGuardConfig
	BlockchainSignature SignatureGuardConfig
	RateLimiter         ports.RateLimiter
	WebhookRateLimit    int
	WebhookRateWindow   time.Duration
}

// NewRouter registers routes and the middleware stack. Guards run before
// any controller logic: a rejected delivery never touches the ledger.
func NewRouter(handler *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/webhooks", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(IPWhitelistGuard(cfg.IPGuard))
			r.Use(SignatureGuard(cfg.BankingSignature))
			r.Post("/banking", handler.bankingWebhook)
		})

		r.Route("/blockchain", func(r chi.Router) {
			r.Get("/health", handler.blockchainHealth)
			r.Group(func(r chi.Router) {
				if cfg.RateLimiter != nil {
					r.Use(RateLimit(cfg.RateLimiter, cfg.WebhookRateLimit, cfg.WebhookRateWindow))
				}
				r.Use(SignatureGuard(cfg.BlockchainSignature))
				r.Post("/", handler.blockchainWebhook)
			})
		})
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/admin", handler.adminListOrders)
		r.Get("/lots", handler.listLots)
		r.Get("/my-history", handler.myHistory)
		r.Post("/{id}/verify", handler.verifyOrder)
		r.Post("/{id}/assign-lot", handler.assignLot)
		r.Post("/{id}/regenerate-artifacts", handler.regenerateArtifacts)
	})

	return r
}
