package repositories

import (
	"context"
	"errors"

	receiptModel "rental-ledger/models/receipt"
	"rental-ledger/services/receipt"

	"gorm.io/gorm"
)

// ReceiptRepository stores issued receipts in postgres
type ReceiptRepository struct {
	db *gorm.DB
}

// NewReceiptRepository creates a receipt repository
func NewReceiptRepository(db *gorm.DB) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

func (r *ReceiptRepository) Insert(ctx context.Context, rc *receiptModel.Receipt) error {
	return r.db.WithContext(ctx).Create(rc).Error
}

func (r *ReceiptRepository) FindByID(ctx context.Context, id string) (*receiptModel.Receipt, error) {
	var rc receiptModel.Receipt
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, receipt.ErrNotFound
		}
		return nil, err
	}
	return &rc, nil
}

func (r *ReceiptRepository) List(ctx context.Context, filter receipt.Filter, offset, limit int) ([]receiptModel.Receipt, int64, error) {
	query := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&receiptModel.Receipt{}).Scopes(receiptFilter(filter))
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	receipts := []receiptModel.Receipt{}
	err := query().Order("date DESC").Offset(offset).Limit(limit).Find(&receipts).Error
	return receipts, total, err
}

func (r *ReceiptRepository) SetArchiveKey(ctx context.Context, id, key string) error {
	return r.db.WithContext(ctx).
		Model(&receiptModel.Receipt{}).
		Where("id = ?", id).
		UpdateColumn("archive_key", key).Error
}

func receiptFilter(filter receipt.Filter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.UserID != "" {
			db = db.Where("(tenant_id = ? OR landlord_id = ?)", filter.UserID, filter.UserID)
		}
		if filter.TransactionID != "" {
			db = db.Where("transaction_id = ?", filter.TransactionID)
		}
		if filter.Type != "" {
			db = db.Where("type = ?", filter.Type)
		}
		return db
	}
}
