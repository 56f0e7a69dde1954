package respond

import (
	"errors"

	"rental-ledger/logger"
	"rental-ledger/services/ledger"
	"rental-ledger/services/receipt"
	"rental-ledger/services/settlement"
	"rental-ledger/types"

	"github.com/gofiber/fiber/v2"
)

// Classify maps a service error to an HTTP status and client message.
// fallback is used for unexpected failures.
func Classify(err error, fallback string) (int, string) {
	var bookingErr *ledger.ValidationError
	var transactionErr *settlement.ValidationError

	switch {
	case errors.As(err, &bookingErr):
		return fiber.StatusBadRequest, bookingErr.Error()
	case errors.As(err, &transactionErr):
		return fiber.StatusBadRequest, transactionErr.Error()
	case errors.Is(err, receipt.ErrMissingIdentifiers):
		return fiber.StatusBadRequest, "Transaction ID and User ID are required"
	case errors.Is(err, ledger.ErrNotFound):
		return fiber.StatusNotFound, "Booking not found"
	case errors.Is(err, settlement.ErrNotFound):
		return fiber.StatusNotFound, "Transaction not found"
	case errors.Is(err, receipt.ErrNotFound):
		return fiber.StatusNotFound, "Receipt not found"
	case errors.Is(err, ledger.ErrInvalidTransition):
		return fiber.StatusConflict, err.Error()
	case errors.Is(err, ledger.ErrStaleBooking):
		return fiber.StatusConflict, "Booking was modified concurrently, please retry"
	case errors.Is(err, ledger.ErrConflict):
		return fiber.StatusConflict, "Property is already booked for the selected dates"
	default:
		return fiber.StatusInternalServerError, fallback
	}
}

// Error writes the failure envelope for err
func Error(c *fiber.Ctx, err error, fallback string) error {
	status, message := Classify(err, fallback)
	if status == fiber.StatusInternalServerError {
		logger.Error(fallback, err)
	}
	return c.Status(status).JSON(types.Fail(message))
}

// BadRequest writes a 400 envelope
func BadRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(types.Fail(message))
}

// Paginated writes a list envelope
func Paginated(c *fiber.Ctx, data interface{}, page, limit int, total int64) error {
	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Success:    true,
		Data:       data,
		Pagination: types.NewPagination(page, limit, total),
	})
}
