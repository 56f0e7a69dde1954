package receipt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"rental-ledger/logger"
	receiptModel "rental-ledger/models/receipt"
	transactionModel "rental-ledger/models/transaction"
	receiptTypes "rental-ledger/types/receipt"
	"rental-ledger/utils"

	"github.com/google/uuid"
)

const archiveTimeout = time.Minute

var (
	// ErrNotFound is returned when a receipt id is unknown
	ErrNotFound = errors.New("receipt not found")
	// ErrMissingIdentifiers is returned when transactionId or userId is absent
	ErrMissingIdentifiers = errors.New("transaction id and user id are required")
	// ErrContentUnavailable is returned when the receipt text could not be produced
	ErrContentUnavailable = errors.New("failed to generate receipt content")
)

// Filter narrows ListReceipts results
type Filter struct {
	UserID        string
	TransactionID string
	Type          string
}

// Page is one page of a receipt listing
type Page struct {
	Items []receiptModel.Receipt
	Total int64
	Page  int
	Limit int
}

// Repository is the storage boundary for receipts
type Repository interface {
	Insert(ctx context.Context, r *receiptModel.Receipt) error
	FindByID(ctx context.Context, id string) (*receiptModel.Receipt, error)
	List(ctx context.Context, filter Filter, offset, limit int) ([]receiptModel.Receipt, int64, error)
	SetArchiveKey(ctx context.Context, id, key string) error
}

// TransactionFinder looks up the transaction a receipt is issued for
type TransactionFinder interface {
	FindByID(ctx context.Context, id string) (*transactionModel.Transaction, error)
}

// Composer writes the human readable body of a receipt
type Composer interface {
	ComposeReceipt(ctx context.Context, r receiptModel.Receipt, userID string) (string, error)
}

// Archiver stores rendered receipt documents
type Archiver interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) error
}

// Service issues and serves receipts
type Service struct {
	repo         Repository
	transactions TransactionFinder
	composer     Composer
	archiver     Archiver

	now   func() time.Time
	newID func() string

	wg sync.WaitGroup
}

// New creates a receipt service. transactions and archiver may be nil.
func New(repo Repository, transactions TransactionFinder, composer Composer, archiver Archiver) *Service {
	return &Service{
		repo:         repo,
		transactions: transactions,
		composer:     composer,
		archiver:     archiver,
		now:          func() time.Time { return time.Now().UTC() },
		newID:        func() string { return "receipt_" + uuid.NewString() },
	}
}

// Wait blocks until pending archive uploads have finished
func (s *Service) Wait() {
	s.wg.Wait()
}

// CreateReceipt issues a receipt for a transaction. Details are copied from
// the stored transaction when it exists, otherwise taken from the request.
func (s *Service) CreateReceipt(ctx context.Context, req receiptTypes.ReceiptCreateRequest) (*receiptModel.Receipt, error) {
	if req.TransactionID == "" || req.UserID == "" {
		return nil, ErrMissingIdentifiers
	}

	timestamp := s.now()
	r := fromRequest(req)
	r.ID = s.newID()
	r.Date = timestamp
	r.CreatedAt = timestamp
	r.ReceiptURL = "/api/receipts/" + r.ID + "/pdf"

	if tx := s.findTransaction(ctx, req.TransactionID); tx != nil {
		applyTransaction(&r, tx)
	}

	if s.composer == nil {
		return nil, ErrContentUnavailable
	}
	content, err := s.composer.ComposeReceipt(ctx, r, req.UserID)
	if err != nil {
		logger.Error("Error generating receipt", err)
		return nil, fmt.Errorf("%w: %v", ErrContentUnavailable, err)
	}
	r.Content = content

	if err := s.repo.Insert(ctx, &r); err != nil {
		return nil, fmt.Errorf("failed to store receipt: %w", err)
	}
	logger.Success(fmt.Sprintf("Receipt generated successfully with ID: %s", r.ID))

	s.archive(r)

	return &r, nil
}

// GetReceipt returns a single receipt
func (s *Service) GetReceipt(ctx context.Context, id string) (*receiptModel.Receipt, error) {
	return s.repo.FindByID(ctx, id)
}

// ListReceipts returns the newest-first page of receipts matching filter
func (s *Service) ListReceipts(ctx context.Context, filter Filter, page, limit int) (*Page, error) {
	page, limit = utils.NormalizePage(page, limit)

	items, total, err := s.repo.List(ctx, filter, utils.Offset(page, limit), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}

	return &Page{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// RenderReceipt loads a receipt and renders it as PDF
func (s *Service) RenderReceipt(ctx context.Context, id string) (*receiptModel.Receipt, []byte, error) {
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	doc, err := RenderPDF(*r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to render receipt %s: %w", id, err)
	}
	return r, doc, nil
}

// ArchiveKey is the object key a receipt document is stored under
func ArchiveKey(id string) string {
	return "receipts/" + id + ".pdf"
}

func (s *Service) findTransaction(ctx context.Context, id string) *transactionModel.Transaction {
	if s.transactions == nil {
		return nil
	}
	tx, err := s.transactions.FindByID(ctx, id)
	if err != nil {
		logger.Debug(fmt.Sprintf("Transaction %s not on record, using request details: %v", id, err))
		return nil
	}
	return tx
}

func (s *Service) archive(r receiptModel.Receipt) {
	if s.archiver == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()

		doc, err := RenderPDF(r)
		if err != nil {
			logger.Error(fmt.Sprintf("Failed to render receipt %s for archive", r.ID), err)
			return
		}
		key := ArchiveKey(r.ID)
		if err := s.archiver.Upload(ctx, key, doc, "application/pdf"); err != nil {
			logger.Error(fmt.Sprintf("Failed to archive receipt %s", r.ID), err)
			return
		}
		if err := s.repo.SetArchiveKey(ctx, r.ID, key); err != nil {
			logger.Error(fmt.Sprintf("Failed to record archive key for receipt %s", r.ID), err)
			return
		}
		logger.Info(fmt.Sprintf("Receipt %s archived to %s", r.ID, key))
	}()
}

func fromRequest(req receiptTypes.ReceiptCreateRequest) receiptModel.Receipt {
	r := receiptModel.Receipt{
		TransactionID:        req.TransactionID,
		Type:                 req.Type,
		Amount:               req.Amount,
		Currency:             req.Currency,
		Status:               string(transactionModel.StatusCompleted),
		PropertyID:           req.PropertyID,
		Property:             req.Property,
		TenantID:             req.TenantID,
		Tenant:               req.Tenant,
		LandlordID:           req.LandlordID,
		Landlord:             req.Landlord,
		TxHash:               req.TxHash,
		BlockNumber:          req.BlockNumber,
		Gas:                  req.Gas,
		SmartContractAddress: req.SmartContractAddress,
	}
	if r.Type == "" {
		r.Type = string(transactionModel.TypeRentPayment)
	}
	if r.Currency == "" {
		r.Currency = "ETH"
	}
	return r
}

func applyTransaction(r *receiptModel.Receipt, tx *transactionModel.Transaction) {
	r.Type = string(tx.Type)
	r.Amount = tx.Amount
	r.Currency = tx.Currency
	r.Status = string(tx.Status)
	r.PropertyID = tx.PropertyID
	r.Property = tx.Property
	r.TenantID = tx.TenantID
	r.Tenant = tx.Tenant
	r.LandlordID = tx.LandlordID
	r.Landlord = tx.Landlord
	r.TxHash = tx.TxHash
	r.BlockNumber = tx.BlockNumber
	r.Gas = tx.Gas
}
