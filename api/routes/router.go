package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DanMeraDev/ElMayoristaProject/api/controllers"
	"github.com/DanMeraDev/ElMayoristaProject/api/middleware"
	"github.com/DanMeraDev/ElMayoristaProject/internal/cycles"
	"github.com/DanMeraDev/ElMayoristaProject/internal/notifications"
	"github.com/DanMeraDev/ElMayoristaProject/internal/payments"
	"github.com/DanMeraDev/ElMayoristaProject/internal/sales"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/config"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/db"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/logger"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/redis"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/storage/gcs"
)

// RouterParams carries everything the HTTP surface needs.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            db.Pinger
	Redis         *redis.Client
	Storage       *gcs.Client
	Sales         sales.Service
	Payments      payments.Service
	Notifications notifications.Service
	Cycles        cycles.Service
	Metrics       prometheus.Gatherer
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", readyHandler(params))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(logg))

		r.Route("/sales", func(r chi.Router) {
			r.Post("/", controllers.CreateSale(params.Sales, logg))
			r.Get("/", controllers.ListSales(params.Sales, logg))
			r.Get("/by-order/{orderNumber}", controllers.GetSaleByOrderNumber(params.Sales, logg))
			r.Route("/{saleID}", func(r chi.Router) {
				r.Get("/", controllers.GetSale(params.Sales, logg))
				r.Delete("/", controllers.DeleteSale(params.Sales, logg))
				r.With(middleware.RequireAdmin(logg)).Post("/review", controllers.ReviewSale(params.Sales, logg))
				r.Route("/payments", func(r chi.Router) {
					r.Post("/", controllers.AddPayment(params.Payments, logg))
					r.Get("/", controllers.ListPayments(params.Payments, logg))
					r.Delete("/{paymentID}", controllers.DeletePayment(params.Payments, logg))
				})
			})
		})

		r.Get("/commissions/summary", controllers.CommissionSummary(params.Sales, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(params.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(params.Notifications, logg))
			r.Post("/{notificationID}/read", controllers.MarkNotificationRead(params.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(params.Notifications, logg))
		})

		r.Route("/cycles", func(r chi.Router) {
			r.Get("/current", controllers.CurrentCycle(params.Cycles, logg))
			r.Get("/", controllers.ListCycles(params.Cycles, logg))
			r.Get("/{cycleID}", controllers.GetCycle(params.Cycles, logg))
			r.With(middleware.RequireAdmin(logg)).Post("/close", controllers.CloseCycle(params.Cycles, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logg))
			r.Post("/reminders/run", controllers.RunReminders(params.Notifications, logg))
		})
	})

	return r
}

func readyHandler(params RouterParams) http.HandlerFunc {
	return controllers.HealthReady(params.Config, params.Logger, params.DB, redisPinger(params.Redis), storagePinger(params.Storage))
}

// The typed-nil conversions keep optional dependencies out of the readiness
// probe instead of panicking on a nil receiver.
func redisPinger(client *redis.Client) controllers.Pinger {
	if client == nil {
		return nil
	}
	return client
}

func storagePinger(client *gcs.Client) controllers.Pinger {
	if client == nil {
		return nil
	}
	return client
}
