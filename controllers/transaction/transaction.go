package transaction

import (
	"context"

	"rental-ledger/controllers/respond"
	"rental-ledger/logger"
	transactionModel "rental-ledger/models/transaction"
	"rental-ledger/services/settlement"
	"rental-ledger/types"
	transactionTypes "rental-ledger/types/transaction"

	"github.com/gofiber/fiber/v2"
)

// TransactionService is the settlement surface used by the HTTP layer
type TransactionService interface {
	CreateTransaction(ctx context.Context, req transactionTypes.TransactionCreateRequest) (*transactionModel.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*transactionModel.Transaction, error)
	ListTransactions(ctx context.Context, filter settlement.Filter, page, limit int) (*settlement.Page, error)
}

// TransactionController handles transaction-related HTTP requests
type TransactionController struct {
	Settler TransactionService
}

// NewTransactionController creates a new transaction controller
func NewTransactionController(svc TransactionService) *TransactionController {
	return &TransactionController{Settler: svc}
}

// Index lists transactions
func (tc *TransactionController) Index(c *fiber.Ctx) error {
	var query transactionTypes.TransactionListQuery
	if err := c.QueryParser(&query); err != nil {
		logger.Error("Failed to parse transaction query", err)
		return respond.BadRequest(c, "Invalid query parameters")
	}

	page, err := tc.Settler.ListTransactions(c.UserContext(), settlement.Filter{
		UserID:     query.UserID,
		Type:       query.Type,
		Status:     query.Status,
		PropertyID: query.PropertyID,
		BookingID:  query.BookingID,
	}, query.Page, query.Limit)
	if err != nil {
		return respond.Error(c, err, "Failed to fetch transactions")
	}

	return respond.Paginated(c, page.Items, page.Page, page.Limit, page.Total)
}

// Store records a pending transaction and schedules its settlement
func (tc *TransactionController) Store(c *fiber.Ctx) error {
	var req transactionTypes.TransactionCreateRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return respond.BadRequest(c, "Invalid request body")
	}

	tx, err := tc.Settler.CreateTransaction(c.UserContext(), req)
	if err != nil {
		return respond.Error(c, err, "Failed to create transaction")
	}

	return c.Status(fiber.StatusCreated).JSON(types.ApiResponse{
		Success: true,
		Message: "Transaction created and is being processed",
		Data:    tx,
	})
}

// Show returns a single transaction
func (tc *TransactionController) Show(c *fiber.Ctx) error {
	tx, err := tc.Settler.GetTransaction(c.UserContext(), c.Params("id"))
	if err != nil {
		return respond.Error(c, err, "Failed to fetch transaction")
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Success: true,
		Data:    tx,
	})
}
