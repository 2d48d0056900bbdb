package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/ds124wfegd/WB_L3/catering/internal/transport/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker func(ctx context.Context) error

type Handlers struct {
	Booking  *BookingHandler
	Cashflow *CashflowHandler
	Catalog  *CatalogHandler
	// Admin is nil when the service runs without the task queue.
	Admin *AdminHandler
	// Health maps a dependency name to its check.
	Health map[string]HealthChecker
}

func InitRoutes(h *Handlers, requestTimeout time.Duration) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())
	router.Use(middleware.Timeout(requestTimeout))

	api := router.Group("/api/v1")
	{
		bookings := api.Group("/bookings")
		{
			bookings.POST("/estimate", h.Booking.Estimate)
			bookings.POST("", h.Booking.OpenBooking)
			bookings.GET("", h.Booking.ListBookings)
			bookings.GET("/:id", h.Booking.GetBooking)

			bookings.POST("/:id/confirm", h.Booking.ConfirmBooking)
			bookings.POST("/:id/reject", h.Booking.RejectBooking)
			bookings.POST("/:id/reschedule", h.Booking.RescheduleBooking)
			bookings.POST("/:id/complete", h.Booking.CompleteBooking)

			bookings.POST("/:id/staff", h.Booking.AssignStaff)
			bookings.DELETE("/:id/staff/:staff_id", h.Booking.UnassignStaff)

			bookings.POST("/:id/expenses", h.Booking.AddExpense)
			bookings.PUT("/:id/expenses/:expense_id", h.Booking.EditExpense)
			bookings.DELETE("/:id/expenses/:expense_id", h.Booking.DeleteExpense)

			bookings.PUT("/:id/budget", h.Booking.SetBudget)
			bookings.GET("/:id/budget", h.Booking.GetBudget)
			bookings.GET("/:id/transaction", h.Booking.GetTransaction)
		}

		cashflow := api.Group("/cashflow")
		{
			cashflow.GET("/ledger", h.Cashflow.GetLedger)
			cashflow.POST("/entries", h.Cashflow.CreateEntry)
			cashflow.GET("/entries", h.Cashflow.ListEntries)
			cashflow.DELETE("/entries/:id", h.Cashflow.DeleteEntry)
		}

		api.GET("/reports/monthly", h.Cashflow.MonthlyReport)

		catalog := api.Group("/catalog")
		{
			catalog.GET("", h.Catalog.GetCatalog)
			catalog.PUT("/:id", h.Catalog.UpsertItem)
			catalog.DELETE("/:id", h.Catalog.DeleteItem)
		}

		if h.Admin != nil {
			admin := api.Group("/admin")
			{
				admin.GET("/dlq", h.Admin.ListFailedTasks)
				admin.POST("/dlq/:task_id/requeue", h.Admin.RequeueFailedTask)
			}
		}
	}

	router.GET("/health", health(h.Health))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func health(checks map[string]HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(c.Request.Context()); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		c.JSON(status, gin.H{
			"status":    http.StatusText(status),
			"checks":    results,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
