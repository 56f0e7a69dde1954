package repositories

import (
	"context"
	"errors"
	"time"

	transactionModel "rental-ledger/models/transaction"
	"rental-ledger/services/settlement"

	"gorm.io/gorm"
)

// TransactionRepository stores simulated chain transactions in postgres
type TransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a transaction repository
func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Insert(ctx context.Context, tx *transactionModel.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*transactionModel.Transaction, error) {
	var tx transactionModel.Transaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, settlement.ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func (r *TransactionRepository) ListPending(ctx context.Context) ([]transactionModel.Transaction, error) {
	var txs []transactionModel.Transaction
	err := r.db.WithContext(ctx).
		Where("status = ?", transactionModel.StatusPending).
		Order("date ASC").
		Find(&txs).Error
	return txs, err
}

// ListUncredited returns completed booking payments not yet applied to
// their booking
func (r *TransactionRepository) ListUncredited(ctx context.Context) ([]transactionModel.Transaction, error) {
	var txs []transactionModel.Transaction
	err := r.db.WithContext(ctx).Scopes(awaitingCredit).Order("date ASC").Find(&txs).Error
	return txs, err
}

// MarkCredited stamps credited_at once. It reports false when the row was
// already credited.
func (r *TransactionRepository) MarkCredited(ctx context.Context, id string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&transactionModel.Transaction{}).
		Where("id = ? AND credited_at IS NULL", id).
		Update("credited_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *TransactionRepository) List(ctx context.Context, filter settlement.Filter, offset, limit int) ([]transactionModel.Transaction, int64, error) {
	query := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&transactionModel.Transaction{}).Scopes(transactionFilter(filter))
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	txs := []transactionModel.Transaction{}
	err := query().Order("date DESC").Offset(offset).Limit(limit).Find(&txs).Error
	return txs, total, err
}

// Settle only touches rows that are still pending
func (r *TransactionRepository) Settle(ctx context.Context, tx *transactionModel.Transaction) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&transactionModel.Transaction{}).
		Where("id = ? AND status = ?", tx.ID, transactionModel.StatusPending).
		Updates(map[string]interface{}{
			"status":       tx.Status,
			"block_number": tx.BlockNumber,
			"validation":   tx.Validation,
			"updated_at":   tx.UpdatedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func awaitingCredit(db *gorm.DB) *gorm.DB {
	return db.Where("status = ? AND credited_at IS NULL AND booking_id IS NOT NULL AND booking_id <> '' AND type IN ?",
		transactionModel.StatusCompleted, transactionModel.CreditableTypes())
}

func transactionFilter(filter settlement.Filter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.UserID != "" {
			db = db.Where("(tenant_id = ? OR landlord_id = ?)", filter.UserID, filter.UserID)
		}
		if filter.Type != "" {
			db = db.Where("type = ?", filter.Type)
		}
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		if filter.PropertyID != "" {
			db = db.Where("property_id = ?", filter.PropertyID)
		}
		if filter.BookingID != "" {
			db = db.Where("booking_id = ?", filter.BookingID)
		}
		return db
	}
}
