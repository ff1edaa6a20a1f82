package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/groupcart/groupcart-backend/api/controllers"
	webhookcontrollers "github.com/groupcart/groupcart-backend/api/controllers/webhooks"
	"github.com/groupcart/groupcart-backend/api/middleware"
	catalogsvc "github.com/groupcart/groupcart-backend/internal/catalog"
	checkoutsvc "github.com/groupcart/groupcart-backend/internal/checkout"
	groupsvc "github.com/groupcart/groupcart-backend/internal/groups"
	"github.com/groupcart/groupcart-backend/internal/payments"
	"github.com/groupcart/groupcart-backend/pkg/config"
	"github.com/groupcart/groupcart-backend/pkg/db"
	"github.com/groupcart/groupcart-backend/pkg/logger"
	"github.com/groupcart/groupcart-backend/pkg/redis"
	"github.com/groupcart/groupcart-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	catalogService catalogsvc.Service,
	groupService groupsvc.Service,
	checkoutService checkoutsvc.Service,
	stripeClient *stripe.Client,
	webhookService *payments.WebhookService,
	webhookGuard *payments.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(webhookService, stripeClient, webhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/groups", func(r chi.Router) {
			r.Post("/", controllers.CreateGroup(groupService, logg))
			r.Get("/{groupId}", controllers.GroupDetail(groupService, logg))
			r.Get("/{groupId}/members", controllers.GroupMembers(groupService, logg))
			r.Post("/{groupId}/join", controllers.RequestJoin(groupService, logg))
			r.Post("/{groupId}/leave", controllers.LeaveGroup(groupService, logg))
			r.Post("/join-requests/{requestId}/review", controllers.ReviewJoinRequest(groupService, logg))
			r.Post("/{groupId}/checkout", controllers.OpenCheckoutSession(checkoutService, logg))
		})

		r.Route("/products/{productId}/tiers", func(r chi.Router) {
			r.Get("/", controllers.ListProductTiers(catalogService, logg))
		})

		r.Route("/vendor", func(r chi.Router) {
			r.Use(middleware.RequireRole("vendor", logg))
			r.Route("/products/{productId}/tiers", func(r chi.Router) {
				r.Post("/", controllers.VendorCreateTier(catalogService, logg))
				r.Patch("/{tierId}", controllers.VendorUpdateTier(catalogService, logg))
				r.Delete("/{tierId}", controllers.VendorDeleteTier(catalogService, logg))
			})
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/{sessionId}", controllers.CheckoutSessionDetail(checkoutService, logg))
			r.Post("/{sessionId}/notify", controllers.NotifyCheckoutMembers(checkoutService, logg))
			r.Post("/{sessionId}/cancel", controllers.CancelCheckoutSession(checkoutService, logg))
			r.Put("/items/{itemId}/address", controllers.SetLineItemAddress(checkoutService, logg))
			r.Post("/items/{itemId}/pay", controllers.InitiateLineItemPayment(checkoutService, logg))
		})

		r.Post("/payments/intent", controllers.CreatePaymentIntent(checkoutService, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(checkoutService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(checkoutService, logg))
		})
	})

	return r
}
