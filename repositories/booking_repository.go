package repositories

import (
	"context"
	"errors"
	"fmt"

	bookingModel "rental-ledger/models/booking"
	"rental-ledger/services/ledger"

	"gorm.io/gorm"
)

// BookingRepository stores bookings and their status events in postgres
type BookingRepository struct {
	db *gorm.DB
}

// NewBookingRepository creates a booking repository
func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) FindByID(ctx context.Context, id string) (*bookingModel.Booking, error) {
	var booking bookingModel.Booking
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) FindByProperty(ctx context.Context, propertyID string) ([]bookingModel.Booking, error) {
	var bookings []bookingModel.Booking
	err := r.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("check_in ASC").
		Find(&bookings).Error
	return bookings, err
}

// Insert stores a booking under a transaction scoped advisory lock on the
// property and re-checks the calendar, so concurrent writers from other
// processes cannot double book.
func (r *BookingRepository) Insert(ctx context.Context, b *bookingModel.Booking, events ...bookingModel.BookingStatusEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "property:"+b.PropertyID).Error; err != nil {
			return fmt.Errorf("failed to lock property %s: %w", b.PropertyID, err)
		}

		var conflicts int64
		if err := tx.Model(&bookingModel.Booking{}).
			Scopes(overlapping(b)).
			Count(&conflicts).Error; err != nil {
			return err
		}
		if conflicts > 0 {
			return ledger.ErrConflict
		}

		if err := tx.Create(b).Error; err != nil {
			return err
		}
		return createEvents(tx, events)
	})
}

// Update writes the mutable ledger columns of b and appends events. The
// write only lands if the stored version still equals b.Version.
func (r *BookingRepository) Update(ctx context.Context, b *bookingModel.Booking, events ...bookingModel.BookingStatusEvent) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := updateLedgerColumns(tx, b)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&bookingModel.Booking{}).Where("id = ?", b.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ledger.ErrNotFound
			}
			return ledger.ErrStaleBooking
		}
		return createEvents(tx, events)
	})
	if err != nil {
		return err
	}
	b.Version++
	return nil
}

func updateLedgerColumns(tx *gorm.DB, b *bookingModel.Booking) *gorm.DB {
	return tx.Model(&bookingModel.Booking{}).
		Where("id = ? AND version = ?", b.ID, b.Version).
		Updates(map[string]interface{}{
			"status":     b.Status,
			"total_paid": b.TotalPaid,
			"updated_at": b.UpdatedAt,
			"version":    gorm.Expr("version + 1"),
		})
}

func (r *BookingRepository) SetContractTerms(ctx context.Context, id, terms string) error {
	result := r.db.WithContext(ctx).
		Model(&bookingModel.Booking{}).
		Where("id = ?", id).
		UpdateColumn("smart_contract_terms", terms)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (r *BookingRepository) List(ctx context.Context, filter ledger.Filter, offset, limit int) ([]bookingModel.Booking, int64, error) {
	query := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&bookingModel.Booking{}).Scopes(bookingFilter(filter))
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	bookings := []bookingModel.Booking{}
	err := query().Order("created_at DESC").Offset(offset).Limit(limit).Find(&bookings).Error
	return bookings, total, err
}

// Events returns the audit trail of a booking, oldest first
func (r *BookingRepository) Events(ctx context.Context, bookingID string) ([]bookingModel.BookingStatusEvent, error) {
	var events []bookingModel.BookingStatusEvent
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("id ASC").
		Find(&events).Error
	return events, err
}

func bookingFilter(filter ledger.Filter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.UserID != "" {
			db = db.Where("(tenant_id = ? OR landlord_id = ?)", filter.UserID, filter.UserID)
		}
		if filter.PropertyID != "" {
			db = db.Where("property_id = ?", filter.PropertyID)
		}
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		return db
	}
}

// overlapping matches live bookings of b's property whose stay intersects b's
func overlapping(b *bookingModel.Booking) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("property_id = ? AND status <> ? AND check_in < ? AND check_out > ?",
			b.PropertyID, bookingModel.StatusCancelled, b.CheckOut, b.CheckIn)
	}
}

func createEvents(tx *gorm.DB, events []bookingModel.BookingStatusEvent) error {
	if len(events) == 0 {
		return nil
	}
	return tx.Create(&events).Error
}
