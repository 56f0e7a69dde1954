package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"rental-ledger/logger"
	"rental-ledger/metrics"
	bookingModel "rental-ledger/models/booking"
	"rental-ledger/services/lock"
	bookingTypes "rental-ledger/types/booking"
	"rental-ledger/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event routing keys published by the ledger
const (
	EventBookingCreated = "booking.created"
	EventStatusChanged  = "booking.status_changed"
	EventPaymentApplied = "booking.payment_applied"
)

const backgroundTaskTimeout = 2 * time.Minute

// maxUpdateAttempts bounds retries when a booking row changed between read and write
const maxUpdateAttempts = 3

// Filter narrows ListBookings results. Empty fields match everything.
type Filter struct {
	UserID     string
	PropertyID string
	Status     string
}

// Page is one page of a booking listing
type Page struct {
	Items []bookingModel.Booking
	Total int64
	Page  int
	Limit int
}

// Repository is the storage boundary of the ledger
type Repository interface {
	FindByID(ctx context.Context, id string) (*bookingModel.Booking, error)
	FindByProperty(ctx context.Context, propertyID string) ([]bookingModel.Booking, error)
	Insert(ctx context.Context, b *bookingModel.Booking, events ...bookingModel.BookingStatusEvent) error
	Update(ctx context.Context, b *bookingModel.Booking, events ...bookingModel.BookingStatusEvent) error
	SetContractTerms(ctx context.Context, id, terms string) error
	List(ctx context.Context, filter Filter, offset, limit int) ([]bookingModel.Booking, int64, error)
	Events(ctx context.Context, bookingID string) ([]bookingModel.BookingStatusEvent, error)
}

// ContractDrafter produces free-text rental terms for a new booking
type ContractDrafter interface {
	DraftContractTerms(ctx context.Context, b bookingModel.Booking) (string, error)
}

// Publisher emits ledger events to interested consumers
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// Ledger owns the bookings of every property and enforces date exclusivity
// and payment driven confirmation
type Ledger struct {
	repo      Repository
	locker    lock.Locker
	drafter   ContractDrafter
	publisher Publisher

	now   func() time.Time
	newID func() string

	wg sync.WaitGroup
}

// New creates a ledger. A nil locker falls back to an in-process keyed
// mutex; nil drafter and publisher disable those side effects.
func New(repo Repository, locker lock.Locker, drafter ContractDrafter, publisher Publisher) *Ledger {
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	return &Ledger{
		repo:      repo,
		locker:    locker,
		drafter:   drafter,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Wait blocks until every background task dispatched so far has finished
func (l *Ledger) Wait() {
	l.wg.Wait()
}

// CreateBooking validates the request, checks the property calendar and
// stores a new pending booking
func (l *Ledger) CreateBooking(ctx context.Context, req bookingTypes.BookingCreateRequest) (*bookingModel.Booking, error) {
	if field := req.MissingField(); field != "" {
		return nil, missingField(field)
	}
	if !req.Amount.IsPositive() {
		return nil, invalidField("amount", "amount must be a positive number")
	}

	checkIn, err := utils.ParseDate(req.CheckIn)
	if err != nil {
		return nil, invalidField("checkIn", "Invalid checkIn date: %s", req.CheckIn)
	}
	checkOut, err := utils.ParseDate(req.CheckOut)
	if err != nil {
		return nil, invalidField("checkOut", "Invalid checkOut date: %s", req.CheckOut)
	}
	if !checkIn.Before(checkOut) {
		return nil, invalidField("checkOut", "checkOut must be after checkIn")
	}

	release, err := l.locker.Lock(ctx, "property:"+req.PropertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock property %s: %w", req.PropertyID, err)
	}
	defer release()

	existing, err := l.repo.FindByProperty(ctx, req.PropertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings for property %s: %w", req.PropertyID, err)
	}
	for i := range existing {
		if existing[i].BlocksDates() && existing[i].Overlaps(checkIn, checkOut) {
			metrics.BookingConflicts.Inc()
			logger.Info(fmt.Sprintf("Booking conflict on property %s with booking %s", req.PropertyID, existing[i].ID))
			return nil, ErrConflict
		}
	}

	timestamp := l.now()
	booking := &bookingModel.Booking{
		ID:              l.newID(),
		PropertyID:      req.PropertyID,
		PropertyTitle:   req.PropertyTitle,
		TenantID:        req.TenantID,
		TenantName:      req.TenantName,
		LandlordID:      req.LandlordID,
		LandlordName:    req.LandlordName,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Status:          bookingModel.StatusPending,
		Amount:          req.Amount,
		Currency:        req.Currency,
		SecurityDeposit: req.Amount.Mul(bookingModel.SecurityDepositRate),
		TotalPaid:       decimal.Zero,
		Version:         1,
		CreatedAt:       timestamp,
		UpdatedAt:       timestamp,
	}

	event := bookingModel.NewStatusEvent(booking, "", bookingModel.ReasonCreated)
	if err := l.repo.Insert(ctx, booking, event); err != nil {
		if errors.Is(err, ErrConflict) {
			metrics.BookingConflicts.Inc()
		}
		return nil, err
	}

	metrics.BookingsCreated.Inc()
	logger.Success(fmt.Sprintf("Booking created successfully with ID: %s", booking.ID))

	snapshot := *booking
	l.dispatch(func(ctx context.Context) {
		l.publish(ctx, EventBookingCreated, snapshot)
		l.draftContractTerms(ctx, snapshot)
	})

	return booking, nil
}

// ApplyPayment adds amount to the booking's running total and confirms a
// pending booking once rent and deposit are covered
func (l *Ledger) ApplyPayment(ctx context.Context, bookingID string, amount decimal.Decimal) (*bookingModel.Booking, error) {
	return l.UpdateBooking(ctx, bookingID, "", &amount)
}

// UpdateStatus moves the booking to newStatus following the transition table
func (l *Ledger) UpdateStatus(ctx context.Context, bookingID string, newStatus string) (*bookingModel.Booking, error) {
	if newStatus == "" {
		return nil, missingField("status")
	}
	return l.UpdateBooking(ctx, bookingID, newStatus, nil)
}

// UpdateBooking applies an optional status change followed by an optional
// payment inside one exclusive section. The confirmation rule is evaluated
// after both.
func (l *Ledger) UpdateBooking(ctx context.Context, bookingID string, newStatus string, payment *decimal.Decimal) (*bookingModel.Booking, error) {
	if bookingID == "" {
		return nil, invalidField("id", "Booking ID is required")
	}

	var target bookingModel.Status
	if newStatus != "" {
		target = bookingModel.Status(newStatus)
		if !target.IsValid() {
			return nil, invalidField("status", "Invalid status: %s (expected one of %v)", newStatus, bookingModel.GetAllStatuses())
		}
	}
	if payment != nil && !payment.IsPositive() {
		return nil, invalidField("paymentAmount", "paymentAmount must be a positive number")
	}

	release, err := l.locker.Lock(ctx, "booking:"+bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock booking %s: %w", bookingID, err)
	}
	defer release()

	var (
		booking  *bookingModel.Booking
		original bookingModel.Status
		changed  bool
	)
	for attempt := 1; ; attempt++ {
		booking, original, changed, err = l.applyUpdate(ctx, bookingID, target, payment)
		if errors.Is(err, ErrStaleBooking) && attempt < maxUpdateAttempts {
			logger.Warning(fmt.Sprintf("Booking %s changed underneath update, retrying (attempt %d)", bookingID, attempt))
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}
	if !changed {
		return booking, nil
	}

	if payment != nil {
		metrics.PaymentsApplied.Inc()
		logger.Info(fmt.Sprintf("Payment of %s applied to booking %s (total paid %s)", payment.String(), booking.ID, booking.TotalPaid.String()))
	}
	if booking.Status != original {
		metrics.StatusTransitions.WithLabelValues(original.String(), booking.Status.String()).Inc()
		logger.Success(fmt.Sprintf("Booking %s moved from %s to %s", booking.ID, original, booking.Status))
	}

	snapshot := *booking
	paid := payment != nil
	l.dispatch(func(ctx context.Context) {
		if paid {
			l.publish(ctx, EventPaymentApplied, snapshot)
		}
		if snapshot.Status != original {
			l.publish(ctx, EventStatusChanged, map[string]any{
				"bookingId": snapshot.ID,
				"from":      original,
				"to":        snapshot.Status,
			})
		}
	})

	return booking, nil
}

// applyUpdate loads the booking and writes one status change and/or payment
// against the version it read
func (l *Ledger) applyUpdate(ctx context.Context, bookingID string, target bookingModel.Status, payment *decimal.Decimal) (*bookingModel.Booking, bookingModel.Status, bool, error) {
	booking, err := l.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, "", false, err
	}

	original := booking.Status
	var events []bookingModel.BookingStatusEvent
	timestamp := l.now()

	if target != "" && target != booking.Status {
		if booking.Status.IsTerminal() {
			return nil, original, false, fmt.Errorf("%w: booking %s is %s", ErrInvalidTransition, booking.ID, booking.Status)
		}
		if !booking.Status.CanTransitionTo(target) {
			return nil, original, false, fmt.Errorf("%w: cannot move booking from %s to %s", ErrInvalidTransition, booking.Status, target)
		}
		from := booking.Status
		booking.Status = target
		booking.UpdatedAt = timestamp
		events = append(events, bookingModel.NewStatusEvent(booking, from, bookingModel.ReasonStatusUpdate))
	}

	if payment != nil {
		from := booking.Status
		booking.TotalPaid = booking.TotalPaid.Add(*payment)
		booking.UpdatedAt = timestamp

		if booking.Status == bookingModel.StatusPending && booking.IsFullyPaid() {
			booking.Status = bookingModel.StatusConfirmed
		}
		events = append(events, bookingModel.NewStatusEvent(booking, from, bookingModel.ReasonPaymentApplied))
	}

	// A booking is only confirmed once rent and deposit are covered
	if target == bookingModel.StatusConfirmed && original != bookingModel.StatusConfirmed && !booking.IsFullyPaid() {
		return nil, original, false, fmt.Errorf("%w: booking %s has %s outstanding", ErrInvalidTransition, booking.ID, booking.AmountDue().Sub(booking.TotalPaid).String())
	}

	if len(events) == 0 {
		return booking, original, false, nil
	}

	if err := l.repo.Update(ctx, booking, events...); err != nil {
		return nil, original, false, err
	}
	return booking, original, true, nil
}

// GetBooking returns a single booking
func (l *Ledger) GetBooking(ctx context.Context, bookingID string) (*bookingModel.Booking, error) {
	return l.repo.FindByID(ctx, bookingID)
}

// BookingHistory returns the status events recorded for a booking
func (l *Ledger) BookingHistory(ctx context.Context, bookingID string) ([]bookingModel.BookingStatusEvent, error) {
	if _, err := l.repo.FindByID(ctx, bookingID); err != nil {
		return nil, err
	}
	return l.repo.Events(ctx, bookingID)
}

// ListBookings returns the newest-first page of bookings matching filter
func (l *Ledger) ListBookings(ctx context.Context, filter Filter, page, limit int) (*Page, error) {
	page, limit = utils.NormalizePage(page, limit)

	items, total, err := l.repo.List(ctx, filter, utils.Offset(page, limit), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	return &Page{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (l *Ledger) dispatch(task func(ctx context.Context)) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTaskTimeout)
		defer cancel()
		task(ctx)
	}()
}

func (l *Ledger) publish(ctx context.Context, key string, payload any) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.PublishJSON(ctx, key, payload); err != nil {
		logger.Error(fmt.Sprintf("Failed to publish %s", key), err)
	}
}

func (l *Ledger) draftContractTerms(ctx context.Context, b bookingModel.Booking) {
	if l.drafter == nil {
		return
	}

	terms, err := l.drafter.DraftContractTerms(ctx, b)
	if err != nil {
		metrics.ContractDrafts.WithLabelValues("failed").Inc()
		logger.Error("Error generating smart contract terms", err)
		return
	}
	if terms == "" {
		metrics.ContractDrafts.WithLabelValues("empty").Inc()
		return
	}

	if err := l.repo.SetContractTerms(ctx, b.ID, terms); err != nil {
		metrics.ContractDrafts.WithLabelValues("failed").Inc()
		logger.Error(fmt.Sprintf("Failed to store smart contract terms for booking %s", b.ID), err)
		return
	}

	metrics.ContractDrafts.WithLabelValues("stored").Inc()
	logger.Success(fmt.Sprintf("Smart contract terms generated for booking: %s", b.ID))
}
