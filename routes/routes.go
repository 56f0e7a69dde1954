package routes

import (
	"rental-ledger/controllers/booking"
	"rental-ledger/controllers/receipt"
	"rental-ledger/controllers/transaction"
	"rental-ledger/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services bundles the domain services the routes expose
type Services struct {
	Bookings     booking.BookingService
	Transactions transaction.TransactionService
	Receipts     receipt.ReceiptService
	RequestLog   middleware.LogSink
}

func SetupRoutes(app *fiber.App, svc Services) {
	bookingController := booking.NewBookingController(svc.Bookings)
	transactionController := transaction.NewTransactionController(svc.Transactions)
	receiptController := receipt.NewReceiptController(svc.Receipts)

	app.Use(middleware.Metrics())

	// Health and metrics
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "message": "rental-ledger is running"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	/*=============================================================================
	| API Routes
	===============================================================================*/
	api := app.Group("/api")
	if svc.RequestLog != nil {
		api.Use(middleware.RequestLogger(svc.RequestLog))
	}

	/*=============================================================================
	| Booking Routes
	===============================================================================*/
	bookingGroup := api.Group("/bookings")
	bookingGroup.Get("/", bookingController.Index)
	bookingGroup.Post("/", bookingController.Store)
	bookingGroup.Put("/", bookingController.Update)
	bookingGroup.Get("/:id", bookingController.Show)
	bookingGroup.Get("/:id/events", bookingController.History)

	/*=============================================================================
	| Transaction Routes
	===============================================================================*/
	transactionGroup := api.Group("/transactions")
	transactionGroup.Get("/", transactionController.Index)
	transactionGroup.Post("/", transactionController.Store)
	transactionGroup.Get("/:id", transactionController.Show)

	/*=============================================================================
	| Receipt Routes
	===============================================================================*/
	receiptGroup := api.Group("/receipts")
	receiptGroup.Get("/", receiptController.Index)
	receiptGroup.Post("/", receiptController.Store)
	receiptGroup.Get("/:id", receiptController.Show)
	receiptGroup.Get("/:id/pdf", receiptController.Download)
}
