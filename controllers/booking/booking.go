package booking

import (
	"context"

	"rental-ledger/controllers/respond"
	"rental-ledger/logger"
	bookingModel "rental-ledger/models/booking"
	"rental-ledger/services/ledger"
	"rental-ledger/types"
	bookingTypes "rental-ledger/types/booking"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// BookingService is the ledger surface used by the HTTP layer
type BookingService interface {
	CreateBooking(ctx context.Context, req bookingTypes.BookingCreateRequest) (*bookingModel.Booking, error)
	UpdateBooking(ctx context.Context, bookingID string, newStatus string, payment *decimal.Decimal) (*bookingModel.Booking, error)
	GetBooking(ctx context.Context, bookingID string) (*bookingModel.Booking, error)
	ListBookings(ctx context.Context, filter ledger.Filter, page, limit int) (*ledger.Page, error)
	BookingHistory(ctx context.Context, bookingID string) ([]bookingModel.BookingStatusEvent, error)
}

// BookingController handles booking-related HTTP requests
type BookingController struct {
	Ledger BookingService
}

// NewBookingController creates a new booking controller
func NewBookingController(svc BookingService) *BookingController {
	return &BookingController{Ledger: svc}
}

// Index lists bookings filtered by user, property and status
func (bc *BookingController) Index(c *fiber.Ctx) error {
	var query bookingTypes.BookingListQuery
	if err := c.QueryParser(&query); err != nil {
		logger.Error("Failed to parse booking query", err)
		return respond.BadRequest(c, "Invalid query parameters")
	}

	page, err := bc.Ledger.ListBookings(c.UserContext(), ledger.Filter{
		UserID:     query.UserID,
		PropertyID: query.PropertyID,
		Status:     query.Status,
	}, query.Page, query.Limit)
	if err != nil {
		return respond.Error(c, err, "Failed to fetch bookings")
	}

	return respond.Paginated(c, page.Items, page.Page, page.Limit, page.Total)
}

// Store creates a new booking
func (bc *BookingController) Store(c *fiber.Ctx) error {
	var req bookingTypes.BookingCreateRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return respond.BadRequest(c, "Invalid request body")
	}

	booking, err := bc.Ledger.CreateBooking(c.UserContext(), req)
	if err != nil {
		return respond.Error(c, err, "Failed to create booking")
	}

	return c.Status(fiber.StatusCreated).JSON(types.ApiResponse{
		Success: true,
		Message: "Booking created successfully",
		Data:    booking,
	})
}

// Update applies a status change and/or a payment to a booking
func (bc *BookingController) Update(c *fiber.Ctx) error {
	var req bookingTypes.BookingUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return respond.BadRequest(c, "Invalid request body")
	}

	booking, err := bc.Ledger.UpdateBooking(c.UserContext(), req.ID, req.Status, req.PaymentAmount)
	if err != nil {
		return respond.Error(c, err, "Failed to update booking")
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Success: true,
		Message: "Booking updated successfully",
		Data:    booking,
	})
}

// Show returns a single booking
func (bc *BookingController) Show(c *fiber.Ctx) error {
	booking, err := bc.Ledger.GetBooking(c.UserContext(), c.Params("id"))
	if err != nil {
		return respond.Error(c, err, "Failed to fetch booking")
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Success: true,
		Data:    booking,
	})
}

// History returns the status events of a booking
func (bc *BookingController) History(c *fiber.Ctx) error {
	events, err := bc.Ledger.BookingHistory(c.UserContext(), c.Params("id"))
	if err != nil {
		return respond.Error(c, err, "Failed to fetch booking history")
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Success: true,
		Data:    events,
	})
}
