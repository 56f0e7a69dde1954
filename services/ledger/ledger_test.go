package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	bookingModel "rental-ledger/models/booking"
	bookingTypes "rental-ledger/types/booking"

	"github.com/shopspring/decimal"
)

// ============================================
// Fakes
// ============================================

type fakeRepository struct {
	mu       sync.Mutex
	bookings map[string]bookingModel.Booking
	events   []bookingModel.BookingStatusEvent
	failList error

	// beforeUpdate runs once inside the next Update, simulating a concurrent writer
	beforeUpdate func(map[string]bookingModel.Booking)
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{bookings: make(map[string]bookingModel.Booking)}
}

func (r *fakeRepository) FindByID(_ context.Context, id string) (*bookingModel.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (r *fakeRepository) FindByProperty(_ context.Context, propertyID string) ([]bookingModel.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []bookingModel.Booking
	for _, b := range r.bookings {
		if b.PropertyID == propertyID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeRepository) Insert(_ context.Context, b *bookingModel.Booking, events ...bookingModel.BookingStatusEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[b.ID] = *b
	r.events = append(r.events, events...)
	return nil
}

func (r *fakeRepository) Update(_ context.Context, b *bookingModel.Booking, events ...bookingModel.BookingStatusEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.beforeUpdate != nil {
		hook := r.beforeUpdate
		r.beforeUpdate = nil
		hook(r.bookings)
	}
	stored, ok := r.bookings[b.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != b.Version {
		return ErrStaleBooking
	}
	b.Version++
	r.bookings[b.ID] = *b
	r.events = append(r.events, events...)
	return nil
}

func (r *fakeRepository) SetContractTerms(_ context.Context, id, terms string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return ErrNotFound
	}
	b.SmartContractTerms = terms
	r.bookings[id] = b
	return nil
}

func (r *fakeRepository) List(_ context.Context, filter Filter, offset, limit int) ([]bookingModel.Booking, int64, error) {
	if r.failList != nil {
		return nil, 0, r.failList
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []bookingModel.Booking
	for _, b := range r.bookings {
		if filter.UserID != "" && b.TenantID != filter.UserID && b.LandlordID != filter.UserID {
			continue
		}
		if filter.PropertyID != "" && b.PropertyID != filter.PropertyID {
			continue
		}
		if filter.Status != "" && string(b.Status) != filter.Status {
			continue
		}
		matched = append(matched, b)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	if offset >= len(matched) {
		return []bookingModel.Booking{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r *fakeRepository) Events(_ context.Context, bookingID string) ([]bookingModel.BookingStatusEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []bookingModel.BookingStatusEvent
	for _, e := range r.events {
		if e.BookingID == bookingID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeRepository) seed(b bookingModel.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[b.ID] = b
}

type fakeDrafter struct {
	terms string
	err   error
	calls int
	mu    sync.Mutex
}

func (d *fakeDrafter) DraftContractTerms(_ context.Context, _ bookingModel.Booking) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return d.terms, d.err
}

type fakePublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *fakePublisher) PublishJSON(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return p.err
}

func (p *fakePublisher) published(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, k := range p.keys {
		if k == key {
			return true
		}
	}
	return false
}

// ============================================
// Helpers
// ============================================

func newTestLedger(repo *fakeRepository, drafter ContractDrafter, pub Publisher) *Ledger {
	l := New(repo, nil, drafter, pub)
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	l.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	seq := 0
	l.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return fmt.Sprintf("bk-%03d", seq)
	}
	return l
}

func validRequest() bookingTypes.BookingCreateRequest {
	return bookingTypes.BookingCreateRequest{
		PropertyID: "1",
		TenantID:   "tenant_1",
		LandlordID: "landlord_1",
		CheckIn:    "2024-01-01",
		CheckOut:   "2024-03-01",
		Amount:     decimal.NewFromFloat(7.5),
		Currency:   "ETH",
	}
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// ============================================
// CreateBooking
// ============================================

func TestCreateBooking_Success(t *testing.T) {
	repo := newFakeRepository()
	l := newTestLedger(repo, nil, nil)

	b, err := l.CreateBooking(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if b.Status != bookingModel.StatusPending {
		t.Errorf("Expected status pending, got %s", b.Status)
	}
	if !b.SecurityDeposit.Equal(decimal.NewFromFloat(3.75)) {
		t.Errorf("Expected deposit 3.75, got %s", b.SecurityDeposit)
	}
	if !b.TotalPaid.IsZero() {
		t.Errorf("Expected totalPaid 0, got %s", b.TotalPaid)
	}
	if !b.CheckIn.Equal(date("2024-01-01")) || !b.CheckOut.Equal(date("2024-03-01")) {
		t.Errorf("Unexpected dates %v - %v", b.CheckIn, b.CheckOut)
	}
	if b.CreatedAt.IsZero() || !b.CreatedAt.Equal(b.UpdatedAt) {
		t.Errorf("Expected matching creation timestamps, got %v / %v", b.CreatedAt, b.UpdatedAt)
	}
	if _, err := repo.FindByID(context.Background(), b.ID); err != nil {
		t.Errorf("Expected booking to be stored: %v", err)
	}
	if len(repo.events) != 1 || repo.events[0].Reason != bookingModel.ReasonCreated {
		t.Errorf("Expected one created event, got %+v", repo.events)
	}
}

func TestCreateBooking_MissingFields(t *testing.T) {
	l := newTestLedger(newFakeRepository(), nil, nil)

	cases := map[string]func(*bookingTypes.BookingCreateRequest){
		"propertyId": func(r *bookingTypes.BookingCreateRequest) { r.PropertyID = "" },
		"tenantId":   func(r *bookingTypes.BookingCreateRequest) { r.TenantID = "" },
		"landlordId": func(r *bookingTypes.BookingCreateRequest) { r.LandlordID = "" },
		"checkIn":    func(r *bookingTypes.BookingCreateRequest) { r.CheckIn = "" },
		"checkOut":   func(r *bookingTypes.BookingCreateRequest) { r.CheckOut = "" },
		"amount":     func(r *bookingTypes.BookingCreateRequest) { r.Amount = decimal.Zero },
		"currency":   func(r *bookingTypes.BookingCreateRequest) { r.Currency = "" },
	}

	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			req := validRequest()
			mutate(&req)

			_, err := l.CreateBooking(context.Background(), req)

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if verr.Field != field {
				t.Errorf("Expected field %s, got %s", field, verr.Field)
			}
			if !strings.Contains(verr.Error(), field) {
				t.Errorf("Expected message to cite %s, got %q", field, verr.Error())
			}
		})
	}
}

func TestCreateBooking_InvalidInput(t *testing.T) {
	l := newTestLedger(newFakeRepository(), nil, nil)

	cases := []struct {
		name   string
		mutate func(*bookingTypes.BookingCreateRequest)
		field  string
	}{
		{"negative amount", func(r *bookingTypes.BookingCreateRequest) { r.Amount = decimal.NewFromInt(-1) }, "amount"},
		{"bad check in", func(r *bookingTypes.BookingCreateRequest) { r.CheckIn = "someday" }, "checkIn"},
		{"check out before check in", func(r *bookingTypes.BookingCreateRequest) { r.CheckOut = "2023-12-01" }, "checkOut"},
		{"empty stay", func(r *bookingTypes.BookingCreateRequest) { r.CheckOut = r.CheckIn }, "checkOut"},
		{"bare time", func(r *bookingTypes.BookingCreateRequest) { r.CheckIn = "12:00" }, "checkIn"},
		{"date with clock", func(r *bookingTypes.BookingCreateRequest) { r.CheckOut = "2024-03-01 10:00" }, "checkOut"},
		{"same day stay", func(r *bookingTypes.BookingCreateRequest) {
			r.CheckIn, r.CheckOut = "2024-01-01T08:00:00Z", "2024-01-01T20:00:00Z"
		}, "checkOut"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := validRequest()
			c.mutate(&req)

			_, err := l.CreateBooking(context.Background(), req)

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if verr.Field != c.field {
				t.Errorf("Expected field %s, got %s", c.field, verr.Field)
			}
		})
	}
}

func TestCreateBooking_ConflictWithActiveBooking(t *testing.T) {
	repo := newFakeRepository()
	repo.seed(bookingModel.Booking{
		ID:         "1",
		PropertyID: "1",
		CheckIn:    date("2024-01-01"),
		CheckOut:   date("2024-03-01"),
		Status:     bookingModel.StatusActive,
		Amount:     decimal.NewFromFloat(7.5),
	})
	l := newTestLedger(repo, nil, nil)

	_, err := l.CreateBooking(context.Background(), validRequest())
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Expected ErrConflict, got %v", err)
	}
	if !IsConflict(err) {
		t.Error("Expected IsConflict to match")
	}

	// disjoint interval starting on the previous check-out day
	req := validRequest()
	req.CheckIn = "2024-03-01"
	req.CheckOut = "2024-04-01"
	if _, err := l.CreateBooking(context.Background(), req); err != nil {
		t.Fatalf("Expected disjoint booking to succeed, got %v", err)
	}
}

func TestCreateBooking_PartialOverlapAndOtherProperty(t *testing.T) {
	repo := newFakeRepository()
	l := newTestLedger(repo, nil, nil)
	ctx := context.Background()

	if _, err := l.CreateBooking(ctx, validRequest()); err != nil {
		t.Fatalf("setup booking failed: %v", err)
	}

	overlap := validRequest()
	overlap.CheckIn = "2024-02-15"
	overlap.CheckOut = "2024-03-15"
	if _, err := l.CreateBooking(ctx, overlap); !errors.Is(err, ErrConflict) {
		t.Errorf("Expected partial overlap to conflict, got %v", err)
	}

	inside := validRequest()
	inside.CheckIn = "2024-01-10"
	inside.CheckOut = "2024-01-20"
	if _, err := l.CreateBooking(ctx, inside); !errors.Is(err, ErrConflict) {
		t.Errorf("Expected contained interval to conflict, got %v", err)
	}

	other := validRequest()
	other.PropertyID = "2"
	if _, err := l.CreateBooking(ctx, other); err != nil {
		t.Errorf("Expected same dates on another property to succeed, got %v", err)
	}
}

func TestCreateBooking_CancelledBookingDoesNotBlock(t *testing.T) {
	repo := newFakeRepository()
	repo.seed(bookingModel.Booking{
		ID:         "old",
		PropertyID: "1",
		CheckIn:    date("2024-01-01"),
		CheckOut:   date("2024-03-01"),
		Status:     bookingModel.StatusCancelled,
	})
	l := newTestLedger(repo, nil, nil)

	if _, err := l.CreateBooking(context.Background(), validRequest()); err != nil {
		t.Fatalf("Expected cancelled booking to be ignored, got %v", err)
	}
}

func TestCreateBooking_ConcurrentRequestsKeepExclusivity(t *testing.T) {
	repo := newFakeRepository()
	l := newTestLedger(repo, nil, nil)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)

	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.CreateBooking(context.Background(), validRequest())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || conflicts != 24 {
		t.Errorf("Expected 1 success and 24 conflicts, got %d and %d", successes, conflicts)
	}
}

func TestCreateBooking_NoOverlapAfterManyRequests(t *testing.T) {
	repo := newFakeRepository()
	l := newTestLedger(repo, nil, nil)
	ctx := context.Background()

	ranges := [][2]string{
		{"2024-01-01", "2024-02-01"},
		{"2024-01-15", "2024-02-15"},
		{"2024-02-01", "2024-03-01"},
		{"2024-02-20", "2024-02-21"},
		{"2024-03-01", "2024-03-05"},
		{"2023-12-01", "2024-01-02"},
		{"2023-11-01", "2023-12-01"},
	}
	for _, r := range ranges {
		req := validRequest()
		req.CheckIn, req.CheckOut = r[0], r[1]
		_, _ = l.CreateBooking(ctx, req)
	}

	stored, _ := repo.FindByProperty(ctx, "1")
	for i := range stored {
		for j := range stored {
			if i == j || !stored[i].BlocksDates() || !stored[j].BlocksDates() {
				continue
			}
			if stored[i].Overlaps(stored[j].CheckIn, stored[j].CheckOut) {
				t.Errorf("bookings %s and %s overlap", stored[i].ID, stored[j].ID)
			}
		}
	}
	if len(stored) != 4 {
		t.Errorf("Expected 4 accepted bookings, got %d", len(stored))
	}
}

func TestCreateBooking_ContractTermsAreBestEffort(t *testing.T) {
	t.Run("stored on success", func(t *testing.T) {
		repo := newFakeRepository()
		drafter := &fakeDrafter{terms: "Tenant pays monthly."}
		pub := &fakePublisher{}
		l := newTestLedger(repo, drafter, pub)

		b, err := l.CreateBooking(context.Background(), validRequest())
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		l.Wait()

		stored, _ := repo.FindByID(context.Background(), b.ID)
		if stored.SmartContractTerms != "Tenant pays monthly." {
			t.Errorf("Expected terms to be stored, got %q", stored.SmartContractTerms)
		}
		if !pub.published(EventBookingCreated) {
			t.Error("Expected booking.created to be published")
		}
	})

	t.Run("failure is swallowed", func(t *testing.T) {
		repo := newFakeRepository()
		drafter := &fakeDrafter{err: errors.New("model unavailable")}
		pub := &fakePublisher{err: errors.New("broker down")}
		l := newTestLedger(repo, drafter, pub)

		b, err := l.CreateBooking(context.Background(), validRequest())
		if err != nil {
			t.Fatalf("Expected collaborator failures to be ignored, got %v", err)
		}
		l.Wait()

		if drafter.calls != 1 {
			t.Errorf("Expected one drafter call, got %d", drafter.calls)
		}
		stored, _ := repo.FindByID(context.Background(), b.ID)
		if stored.SmartContractTerms != "" {
			t.Errorf("Expected no terms, got %q", stored.SmartContractTerms)
		}
	})
}

// ============================================
// ApplyPayment / UpdateStatus
// ============================================

func createPending(t *testing.T, l *Ledger) *bookingModel.Booking {
	t.Helper()
	b, err := l.CreateBooking(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("setup booking failed: %v", err)
	}
	return b
}

func TestApplyPayment_ConfirmsWhenFullyPaid(t *testing.T) {
	l := newTestLedger(newFakeRepository(), nil, nil)
	b := createPending(t, l)

	updated, err := l.ApplyPayment(context.Background(), b.ID, b.AmountDue())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if updated.Status != bookingModel.StatusConfirmed {
		t.Errorf("Expected confirmed, got %s", updated.Status)
	}
	if !updated.TotalPaid.Equal(decimal.NewFromFloat(11.25)) {
		t.Errorf("Expected totalPaid 11.25, got %s", updated.TotalPaid)
	}
	if !updated.UpdatedAt.After(b.UpdatedAt) {
		t.Error("Expected updatedAt to move forward")
	}
}

func TestApplyPayment_PartialStaysPending(t *testing.T) {
	l := newTestLedger(newFakeRepository(), nil, nil)
	b := createPending(t, l)

	updated, err := l.ApplyPayment(context.Background(), b.ID, decimal.NewFromFloat(7.5))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if updated.Status != bookingModel.StatusPending {
		t.Errorf("Expected pending, got %s", updated.Status)
	}

	// second instalment crosses the threshold
	updated, err = l.ApplyPayment(context.Background(), b.ID, decimal.NewFromFloat(3.75))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if updated.Status != bookingModel.StatusConfirmed {
		t.Errorf("Expected confirmed after second instalment, got %s", updated.Status)
	}
}

func TestApplyPayment_OverpaymentKeepsConfirmed(t *testing.T) {
	pub := &fakePublisher{}
	l := newTestLedger(newFakeRepository(), nil, pub)
	b := createPending(t, l)

	if _, err := l.ApplyPayment(context.Background(), b.ID, decimal.NewFromInt(20)); err != nil {
		t.Fatalf("first payment failed: %v", err)
	}
	updated, err := l.ApplyPayment(context.Background(), b.ID, decimal.NewFromInt(5))
	if err != nil {
		t.Fatalf("second payment failed: %v", err)
	}
	l.Wait()

	if updated.Status != bookingModel.StatusConfirmed {
		t.Errorf("Expected confirmed, got %s", updated.Status)
	}
	if !updated.TotalPaid.Equal(decimal.NewFromInt(25)) {
		t.Errorf("Expected totalPaid 25, got %s", updated.TotalPaid)
	}
	if !pub.published(EventStatusChanged) || !pub.published(EventPaymentApplied) {
		t.Errorf("Expected status and payment events, got %v", pub.keys)
	}
}

func TestApplyPayment_Errors(t *testing.T) {
	l := newTestLedger(newFakeRepository(), nil, nil)
	b := createPending(t, l)

	if _, err := l.ApplyPayment(context.Background(), "missing", decimal.NewFromInt(1)); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-3)} {
		_, err := l.ApplyPayment(context.Background(), b.ID, amount)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("Expected ValidationError for %s, got %v", amount, err)
		}
	}
}

func TestApplyPayment_ConcurrentPaymentsAccumulate(t *testing.T) {
	l := newTestLedger(newFakeRepository(), nil, nil)
	b := createPending(t, l)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.ApplyPayment(context.Background(), b.ID, decimal.NewFromFloat(0.5)); err != nil {
				t.Errorf("payment failed: %v", err)
			}
		}()
	}
	wg.Wait()

	stored, _ := l.GetBooking(context.Background(), b.ID)
	if !stored.TotalPaid.Equal(decimal.NewFromInt(25)) {
		t.Errorf("Expected totalPaid 25, got %s", stored.TotalPaid)
	}
	if stored.Status != bookingModel.StatusConfirmed {
		t.Errorf("Expected confirmed, got %s", stored.Status)
	}
}

func TestUpdateStatus_TransitionTable(t *testing.T) {
	l := newTestLedger(newFakeRepository(), nil, nil)
	ctx := context.Background()
	b := createPending(t, l)

	if _, err := l.UpdateStatus(ctx, b.ID, "active"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected pending -> active to be rejected, got %v", err)
	}

	if _, err := l.UpdateStatus(ctx, b.ID, "confirmed"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected unpaid pending -> confirmed to be rejected, got %v", err)
	}
	if stored, _ := l.GetBooking(ctx, b.ID); stored.Status != bookingModel.StatusPending {
		t.Errorf("Expected rejected confirmation to leave booking pending, got %s", stored.Status)
	}

	if _, err := l.ApplyPayment(ctx, b.ID, b.AmountDue()); err != nil {
		t.Fatalf("payment failed: %v", err)
	}
	if _, err := l.UpdateStatus(ctx, b.ID, "confirmed"); err != nil {
		t.Errorf("Expected same status update to be a no-op, got %v", err)
	}
	if _, err := l.UpdateStatus(ctx, b.ID, "active"); err != nil {
		t.Fatalf("confirmed -> active failed: %v", err)
	}
	updated, err := l.UpdateStatus(ctx, b.ID, "cancelled")
	if err != nil {
		t.Fatalf("active -> cancelled failed: %v", err)
	}
	if updated.Status != bookingModel.StatusCancelled {
		t.Errorf("Expected cancelled, got %s", updated.Status)
	}

	_, err = l.UpdateStatus(ctx, b.ID, "pending")
	if !IsConflict(err) {
		t.Errorf("Expected cancelled to be terminal, got %v", err)
	}
}

func TestUpdateStatus_Errors(t *testing.T) {
	l := newTestLedger(newFakeRepository(), nil, nil)
	b := createPending(t, l)

	var verr *ValidationError
	if _, err := l.UpdateStatus(context.Background(), b.ID, "archived"); !errors.As(err, &verr) || verr.Field != "status" {
		t.Errorf("Expected status ValidationError, got %v", err)
	}
	if _, err := l.UpdateStatus(context.Background(), "", "cancelled"); !errors.As(err, &verr) || verr.Field != "id" {
		t.Errorf("Expected id ValidationError, got %v", err)
	}
	if _, err := l.UpdateStatus(context.Background(), "nope", "cancelled"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestUpdateBooking_StatusThenPayment(t *testing.T) {
	repo := newFakeRepository()
	l := newTestLedger(repo, nil, nil)
	b := createPending(t, l)

	payment := decimal.NewFromInt(100)
	updated, err := l.UpdateBooking(context.Background(), b.ID, "cancelled", &payment)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if updated.Status != bookingModel.StatusCancelled {
		t.Errorf("Expected cancelled booking not to be promoted, got %s", updated.Status)
	}
	if !updated.TotalPaid.Equal(payment) {
		t.Errorf("Expected payment to be recorded, got %s", updated.TotalPaid)
	}
	// created + status_update + payment_applied
	if len(repo.events) != 3 {
		t.Errorf("Expected 3 events, got %d", len(repo.events))
	}
}

func TestUpdateBooking_ConfirmWithCoveringPayment(t *testing.T) {
	l := newTestLedger(newFakeRepository(), nil, nil)
	ctx := context.Background()
	b := createPending(t, l)

	partial := decimal.NewFromInt(1)
	if _, err := l.UpdateBooking(ctx, b.ID, "confirmed", &partial); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Expected confirmation with partial payment to be rejected, got %v", err)
	}
	stored, _ := l.GetBooking(ctx, b.ID)
	if !stored.TotalPaid.IsZero() || stored.Status != bookingModel.StatusPending {
		t.Errorf("Expected rejected update to write nothing, got %s %s", stored.Status, stored.TotalPaid)
	}

	full := b.AmountDue()
	updated, err := l.UpdateBooking(ctx, b.ID, "confirmed", &full)
	if err != nil {
		t.Fatalf("Expected confirmation with covering payment to succeed, got %v", err)
	}
	if updated.Status != bookingModel.StatusConfirmed || !updated.IsFullyPaid() {
		t.Errorf("Unexpected booking %s %s", updated.Status, updated.TotalPaid)
	}
}

func TestApplyPayment_RetriesAfterConcurrentWrite(t *testing.T) {
	repo := newFakeRepository()
	l := newTestLedger(repo, nil, nil)
	b := createPending(t, l)

	// Another writer credits 5 between our read and write
	repo.beforeUpdate = func(bookings map[string]bookingModel.Booking) {
		other := bookings[b.ID]
		other.TotalPaid = other.TotalPaid.Add(decimal.NewFromInt(5))
		other.Version++
		bookings[b.ID] = other
	}

	updated, err := l.ApplyPayment(context.Background(), b.ID, decimal.NewFromInt(3))
	if err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if !updated.TotalPaid.Equal(decimal.NewFromInt(8)) {
		t.Errorf("Expected both payments to survive (8), got %s", updated.TotalPaid)
	}
	stored, _ := l.GetBooking(context.Background(), b.ID)
	if !stored.TotalPaid.Equal(decimal.NewFromInt(8)) {
		t.Errorf("Expected stored total 8, got %s", stored.TotalPaid)
	}
}

func TestBookingHistory(t *testing.T) {
	l := newTestLedger(newFakeRepository(), nil, nil)
	b := createPending(t, l)

	if _, err := l.ApplyPayment(context.Background(), b.ID, b.AmountDue()); err != nil {
		t.Fatalf("payment failed: %v", err)
	}

	events, err := l.BookingHistory(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	last := events[1]
	if last.Reason != bookingModel.ReasonPaymentApplied || last.FromStatus != bookingModel.StatusPending || last.Status != bookingModel.StatusConfirmed {
		t.Errorf("Unexpected payment event %+v", last)
	}

	if _, err := l.BookingHistory(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCancelFreesDates(t *testing.T) {
	l := newTestLedger(newFakeRepository(), nil, nil)
	b := createPending(t, l)

	if _, err := l.UpdateStatus(context.Background(), b.ID, "cancelled"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if _, err := l.CreateBooking(context.Background(), validRequest()); err != nil {
		t.Errorf("Expected dates to be free after cancellation, got %v", err)
	}
}

// ============================================
// ListBookings
// ============================================

func TestListBookings_Pagination(t *testing.T) {
	l := newTestLedger(newFakeRepository(), nil, nil)
	ctx := context.Background()

	start := date("2024-01-01")
	for i := 0; i < 15; i++ {
		req := validRequest()
		req.CheckIn = start.AddDate(0, 0, i*2).Format("2006-01-02")
		req.CheckOut = start.AddDate(0, 0, i*2+1).Format("2006-01-02")
		if _, err := l.CreateBooking(ctx, req); err != nil {
			t.Fatalf("setup booking %d failed: %v", i, err)
		}
	}

	first, err := l.ListBookings(ctx, Filter{}, 1, 10)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(first.Items) != 10 || first.Total != 15 {
		t.Errorf("Expected 10 of 15, got %d of %d", len(first.Items), first.Total)
	}
	if first.Items[0].ID != "bk-015" {
		t.Errorf("Expected newest booking first, got %s", first.Items[0].ID)
	}

	second, err := l.ListBookings(ctx, Filter{}, 2, 10)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(second.Items) != 5 {
		t.Errorf("Expected 5 items on page 2, got %d", len(second.Items))
	}

	defaults, _ := l.ListBookings(ctx, Filter{}, 0, 0)
	if defaults.Page != 1 || defaults.Limit != 10 {
		t.Errorf("Expected defaults page=1 limit=10, got %d/%d", defaults.Page, defaults.Limit)
	}
}

func TestListBookings_Filters(t *testing.T) {
	repo := newFakeRepository()
	repo.seed(bookingModel.Booking{ID: "a", PropertyID: "1", TenantID: "t1", LandlordID: "l1", Status: bookingModel.StatusPending, CreatedAt: date("2024-01-01")})
	repo.seed(bookingModel.Booking{ID: "b", PropertyID: "2", TenantID: "t2", LandlordID: "t1", Status: bookingModel.StatusActive, CreatedAt: date("2024-01-02")})
	repo.seed(bookingModel.Booking{ID: "c", PropertyID: "2", TenantID: "t3", LandlordID: "l2", Status: bookingModel.StatusPending, CreatedAt: date("2024-01-03")})
	l := newTestLedger(repo, nil, nil)
	ctx := context.Background()

	byUser, _ := l.ListBookings(ctx, Filter{UserID: "t1"}, 1, 10)
	if byUser.Total != 2 {
		t.Errorf("Expected tenant-or-landlord match of 2, got %d", byUser.Total)
	}

	byProperty, _ := l.ListBookings(ctx, Filter{PropertyID: "2", Status: "pending"}, 1, 10)
	if byProperty.Total != 1 || byProperty.Items[0].ID != "c" {
		t.Errorf("Expected only booking c, got %+v", byProperty.Items)
	}

	repo.failList = errors.New("db down")
	if _, err := l.ListBookings(ctx, Filter{}, 1, 10); err == nil {
		t.Error("Expected list error to propagate")
	}
}
