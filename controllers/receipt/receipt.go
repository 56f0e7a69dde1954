package receipt

import (
	"context"
	"fmt"

	"rental-ledger/controllers/respond"
	"rental-ledger/logger"
	receiptModel "rental-ledger/models/receipt"
	receiptService "rental-ledger/services/receipt"
	"rental-ledger/types"
	receiptTypes "rental-ledger/types/receipt"

	"github.com/gofiber/fiber/v2"
)

// ReceiptService is the receipt surface used by the HTTP layer
type ReceiptService interface {
	CreateReceipt(ctx context.Context, req receiptTypes.ReceiptCreateRequest) (*receiptModel.Receipt, error)
	GetReceipt(ctx context.Context, id string) (*receiptModel.Receipt, error)
	ListReceipts(ctx context.Context, filter receiptService.Filter, page, limit int) (*receiptService.Page, error)
	RenderReceipt(ctx context.Context, id string) (*receiptModel.Receipt, []byte, error)
}

// ReceiptController handles receipt-related HTTP requests
type ReceiptController struct {
	Receipts ReceiptService
}

// NewReceiptController creates a new receipt controller
func NewReceiptController(svc ReceiptService) *ReceiptController {
	return &ReceiptController{Receipts: svc}
}

// Index lists receipts
func (rc *ReceiptController) Index(c *fiber.Ctx) error {
	var query receiptTypes.ReceiptListQuery
	if err := c.QueryParser(&query); err != nil {
		logger.Error("Failed to parse receipt query", err)
		return respond.BadRequest(c, "Invalid query parameters")
	}

	page, err := rc.Receipts.ListReceipts(c.UserContext(), receiptService.Filter{
		UserID:        query.UserID,
		TransactionID: query.TransactionID,
		Type:          query.Type,
	}, query.Page, query.Limit)
	if err != nil {
		return respond.Error(c, err, "Failed to fetch receipts")
	}

	return respond.Paginated(c, page.Items, page.Page, page.Limit, page.Total)
}

// Store generates a receipt for a transaction
func (rc *ReceiptController) Store(c *fiber.Ctx) error {
	var req receiptTypes.ReceiptCreateRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return respond.BadRequest(c, "Invalid request body")
	}

	receipt, err := rc.Receipts.CreateReceipt(c.UserContext(), req)
	if err != nil {
		return respond.Error(c, err, "Failed to generate receipt")
	}

	return c.Status(fiber.StatusCreated).JSON(types.ApiResponse{
		Success: true,
		Message: "Receipt generated successfully",
		Data:    receipt,
	})
}

// Show returns a single receipt
func (rc *ReceiptController) Show(c *fiber.Ctx) error {
	receipt, err := rc.Receipts.GetReceipt(c.UserContext(), c.Params("id"))
	if err != nil {
		return respond.Error(c, err, "Failed to fetch receipt")
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Success: true,
		Data:    receipt,
	})
}

// Download streams the receipt as a PDF document
func (rc *ReceiptController) Download(c *fiber.Ctx) error {
	receipt, doc, err := rc.Receipts.RenderReceipt(c.UserContext(), c.Params("id"))
	if err != nil {
		return respond.Error(c, err, "Failed to render receipt")
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="%s.pdf"`, receipt.ID))
	return c.Status(fiber.StatusOK).Send(doc)
}
