package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nearbuyhq/nearbuy-backend/api/controllers"
	"github.com/nearbuyhq/nearbuy-backend/api/middleware"
	"github.com/nearbuyhq/nearbuy-backend/internal/discounts"
	"github.com/nearbuyhq/nearbuy-backend/internal/escrow"
	"github.com/nearbuyhq/nearbuy-backend/internal/notifications"
	"github.com/nearbuyhq/nearbuy-backend/internal/orders"
	"github.com/nearbuyhq/nearbuy-backend/internal/reconciliation"
	"github.com/nearbuyhq/nearbuy-backend/internal/scheduling"
	"github.com/nearbuyhq/nearbuy-backend/pkg/config"
	"github.com/nearbuyhq/nearbuy-backend/pkg/logger"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Cache         controllers.Pinger
	OrdersRepo    orders.Repository
	Orders        orders.Service
	Escrow        escrow.Service
	Discounts     discounts.Service
	Scheduling    scheduling.Service
	Reconcile     reconciliation.Service
	Notifications notifications.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Actor(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Cache))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireActor(logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(deps.Orders, deps.Discounts, logg))
			r.Get("/{orderID}", controllers.GetOrder(deps.OrdersRepo, logg))
			r.Post("/{orderID}/ship", controllers.MarkOrderShipped(deps.Orders, logg))
			r.Post("/{orderID}/ready-for-pickup", controllers.MarkOrderReadyForPickup(deps.Orders, logg))
			r.Post("/{orderID}/deliver", controllers.MarkOrderDelivered(deps.Orders, logg))
			r.Post("/{orderID}/cancel", controllers.CancelOrder(deps.Orders, logg))

			r.Post("/{orderID}/hold", controllers.PlaceHold(deps.Escrow, logg))
			r.Post("/{orderID}/release", controllers.ReleaseHold(deps.Escrow, logg))
			r.Post("/{orderID}/refund", controllers.RefundHold(deps.Escrow, logg))

			r.Post("/{orderID}/claim-slot", controllers.ClaimPickupSlot(deps.Scheduling, logg))
		})

		r.Route("/discounts", func(r chi.Router) {
			r.Post("/validate", controllers.ValidateDiscount(deps.Discounts, logg))
		})

		r.Route("/sellers/{sellerID}", func(r chi.Router) {
			r.Post("/discount-codes", controllers.CreateDiscountCode(deps.Discounts, logg))
			r.Get("/pickup-slots", controllers.ListPickupSlots(deps.Scheduling, logg))
			r.Post("/pickup-slots", controllers.CreatePickupSlot(deps.Scheduling, logg))
		})

		r.Route("/appointments", func(r chi.Router) {
			r.Post("/{appointmentID}/complete", controllers.CompletePickupAppointment(deps.Scheduling, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/{notificationID}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.RequireActor(logg))
		r.Post("/revenue/reconcile", controllers.ReconcileRevenue(deps.Reconcile, logg))
	})

	return r
}
