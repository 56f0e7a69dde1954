package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"rental-ledger/logger"
	"rental-ledger/metrics"
	bookingModel "rental-ledger/models/booking"
	transactionModel "rental-ledger/models/transaction"
	transactionTypes "rental-ledger/types/transaction"
	"rental-ledger/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventTransactionSettled is published once a transaction reaches a terminal state
const EventTransactionSettled = "transaction.settled"

const settleTimeout = time.Minute

var (
	// ErrNotFound is returned when a transaction id is unknown
	ErrNotFound = errors.New("transaction not found")
	// ErrStopped is returned when work is submitted after Stop
	ErrStopped = errors.New("settler stopped")
)

// ValidationError is returned for a missing or malformed transaction field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "Missing required field: " + e.Field
}

// Filter narrows ListTransactions results
type Filter struct {
	UserID     string
	Type       string
	Status     string
	PropertyID string
	BookingID  string
}

// Page is one page of a transaction listing
type Page struct {
	Items []transactionModel.Transaction
	Total int64
	Page  int
	Limit int
}

// Repository is the storage boundary for transactions
type Repository interface {
	Insert(ctx context.Context, tx *transactionModel.Transaction) error
	FindByID(ctx context.Context, id string) (*transactionModel.Transaction, error)
	ListPending(ctx context.Context) ([]transactionModel.Transaction, error)
	List(ctx context.Context, filter Filter, offset, limit int) ([]transactionModel.Transaction, int64, error)
	// Settle moves a pending transaction to a terminal status. It reports
	// false when the transaction was no longer pending.
	Settle(ctx context.Context, tx *transactionModel.Transaction) (bool, error)
	// ListUncredited returns completed booking payments whose credit has not
	// been recorded
	ListUncredited(ctx context.Context) ([]transactionModel.Transaction, error)
	// MarkCredited records that the payment reached its booking. It reports
	// false when the credit was already recorded.
	MarkCredited(ctx context.Context, id string, at time.Time) (bool, error)
}

// Validator produces the opaque validation note recorded on settlement
type Validator interface {
	ValidateTransaction(ctx context.Context, tx transactionModel.Transaction) (string, error)
}

// PaymentApplier credits completed payments to their booking
type PaymentApplier interface {
	ApplyPayment(ctx context.Context, bookingID string, amount decimal.Decimal) (*bookingModel.Booking, error)
}

// Publisher emits settlement events
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// Options tunes the settler
type Options struct {
	Delay   time.Duration
	Workers int
}

// Settler records transactions and settles each one after a fixed delay on a
// pool of workers
type Settler struct {
	repo      Repository
	validator Validator
	payments  PaymentApplier
	publisher Publisher
	delay     time.Duration
	workers   int

	now   func() time.Time
	newID func() string

	mu        sync.Mutex
	queue     chan string
	timers    map[string]*time.Timer
	crediting map[string]bool
	stopped   bool
	wg        sync.WaitGroup
}

// New creates a settler. Call Start before scheduling work.
func New(repo Repository, validator Validator, payments PaymentApplier, publisher Publisher, opts Options) *Settler {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	return &Settler{
		repo:      repo,
		validator: validator,
		payments:  payments,
		publisher: publisher,
		delay:     opts.Delay,
		workers:   opts.Workers,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
		queue:     make(chan string, 256),
		timers:    make(map[string]*time.Timer),
		crediting: make(map[string]bool),
	}
}

// Start launches the settlement workers
func (s *Settler) Start() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	logger.Info(fmt.Sprintf("Settlement workers started: %d (delay %s)", s.workers, s.delay))
}

// Stop cancels scheduled settlements and waits for in-flight ones. Pending
// transactions stay pending and are picked up again by Requeue.
func (s *Settler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	close(s.queue)
	s.mu.Unlock()

	s.wg.Wait()
	metrics.SettlementQueueDepth.Set(0)
}

// CreateTransaction validates and stores a pending transaction, then
// schedules its settlement
func (s *Settler) CreateTransaction(ctx context.Context, req transactionTypes.TransactionCreateRequest) (*transactionModel.Transaction, error) {
	if field := req.MissingField(); field != "" {
		return nil, &ValidationError{Field: field}
	}
	txType := transactionModel.Type(req.Type)
	if !transactionModel.IsValidType(txType) {
		return nil, &ValidationError{Field: "type", Message: fmt.Sprintf("Invalid transaction type: %s", req.Type)}
	}
	if !req.Amount.IsPositive() {
		return nil, &ValidationError{Field: "amount", Message: "amount must be a positive number"}
	}

	hash, err := utils.GenerateTxHash()
	if err != nil {
		return nil, fmt.Errorf("failed to generate transaction hash: %w", err)
	}

	timestamp := s.now()
	tx := &transactionModel.Transaction{
		ID:         s.newID(),
		Type:       txType,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Status:     transactionModel.StatusPending,
		Date:       timestamp,
		PropertyID: req.PropertyID,
		Property:   req.Property,
		TenantID:   req.TenantID,
		Tenant:     req.Tenant,
		LandlordID: req.LandlordID,
		Landlord:   req.Landlord,
		TxHash:     hash,
		Gas:        transactionModel.DefaultGas,
		CreatedAt:  timestamp,
		UpdatedAt:  timestamp,
	}
	if req.BookingID != "" {
		bookingID := req.BookingID
		tx.BookingID = &bookingID
	}

	if err := s.repo.Insert(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to store transaction: %w", err)
	}
	logger.Success(fmt.Sprintf("Transaction created successfully with ID: %s", tx.ID))

	if err := s.Schedule(tx.ID); err != nil {
		logger.Warning(fmt.Sprintf("Transaction %s left pending: %v", tx.ID, err))
	}

	return tx, nil
}

// GetTransaction returns a single transaction
func (s *Settler) GetTransaction(ctx context.Context, id string) (*transactionModel.Transaction, error) {
	return s.repo.FindByID(ctx, id)
}

// ListTransactions returns the newest-first page of transactions matching filter
func (s *Settler) ListTransactions(ctx context.Context, filter Filter, page, limit int) (*Page, error) {
	page, limit = utils.NormalizePage(page, limit)

	items, total, err := s.repo.List(ctx, filter, utils.Offset(page, limit), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return &Page{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// Schedule queues the settlement of id once the configured delay elapses
func (s *Settler) Schedule(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if _, ok := s.timers[id]; ok {
		return nil
	}

	s.timers[id] = time.AfterFunc(s.delay, func() { s.enqueue(id) })
	metrics.SettlementQueueDepth.Inc()
	return nil
}

// Requeue schedules every transaction still pending in storage along with
// completed payments whose booking credit never landed
func (s *Settler) Requeue(ctx context.Context) (int, error) {
	pending, err := s.repo.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load pending transactions: %w", err)
	}
	uncredited, err := s.repo.ListUncredited(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load uncredited transactions: %w", err)
	}

	count := 0
	for _, tx := range append(pending, uncredited...) {
		if err := s.Schedule(tx.ID); err != nil {
			return count, err
		}
		count++
	}
	if count > 0 {
		logger.Info(fmt.Sprintf("Requeued %d pending transactions for settlement", count))
	}
	return count, nil
}

// Settle validates a pending transaction and records its terminal status.
// Completed payments tied to a booking are credited to the ledger; a credit
// that fails is retried by the next Settle or Requeue of the transaction.
func (s *Settler) Settle(ctx context.Context, id string) (*transactionModel.Transaction, error) {
	tx, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !tx.IsPending() {
		return tx, s.credit(ctx, tx)
	}

	validation, err := s.validate(ctx, *tx)
	if err != nil {
		logger.Error(fmt.Sprintf("Transaction %s failed validation", tx.ID), err)
		tx.Status = transactionModel.StatusFailed
	} else {
		block, err := utils.RandomBlockNumber()
		if err != nil {
			return nil, fmt.Errorf("failed to assign block number: %w", err)
		}
		tx.Status = transactionModel.StatusCompleted
		tx.BlockNumber = &block
		tx.Validation = validation
	}
	tx.UpdatedAt = s.now()

	settled, err := s.repo.Settle(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to settle transaction %s: %w", tx.ID, err)
	}
	if !settled {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return current, s.credit(ctx, current)
	}

	metrics.TransactionsSettled.WithLabelValues(string(tx.Status)).Inc()
	logger.Success(fmt.Sprintf("Transaction %s settled as %s", tx.ID, tx.Status))

	creditErr := s.credit(ctx, tx)

	if s.publisher != nil {
		if err := s.publisher.PublishJSON(ctx, EventTransactionSettled, tx); err != nil {
			logger.Error(fmt.Sprintf("Failed to publish %s", EventTransactionSettled), err)
		}
	}

	return tx, creditErr
}

// credit applies a completed payment to its booking and records the credit.
// Only one credit per transaction runs at a time in this process, and the
// stored row is re-read after claiming it.
func (s *Settler) credit(ctx context.Context, tx *transactionModel.Transaction) error {
	if s.payments == nil || !tx.AwaitsCredit() {
		return nil
	}
	if !s.claimCredit(tx.ID) {
		return nil
	}
	defer s.releaseCredit(tx.ID)

	current, err := s.repo.FindByID(ctx, tx.ID)
	if err != nil {
		return err
	}
	if !current.AwaitsCredit() {
		tx.CreditedAt = current.CreditedAt
		return nil
	}

	if _, err := s.payments.ApplyPayment(ctx, *current.BookingID, current.Amount); err != nil {
		return fmt.Errorf("failed to apply transaction %s to booking %s: %w", current.ID, *current.BookingID, err)
	}

	at := s.now()
	if _, err := s.repo.MarkCredited(ctx, current.ID, at); err != nil {
		return fmt.Errorf("booking %s credited but transaction %s not marked: %w", *current.BookingID, current.ID, err)
	}
	tx.CreditedAt = &at
	logger.Info(fmt.Sprintf("Transaction %s credited to booking %s", current.ID, *current.BookingID))
	return nil
}

func (s *Settler) claimCredit(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.crediting[id] {
		return false
	}
	s.crediting[id] = true
	return true
}

func (s *Settler) releaseCredit(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.crediting, id)
}

func (s *Settler) validate(ctx context.Context, tx transactionModel.Transaction) (string, error) {
	if s.validator == nil {
		return "", nil
	}
	return s.validator.ValidateTransaction(ctx, tx)
}

func (s *Settler) enqueue(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	delete(s.timers, id)
	s.queue <- id
}

func (s *Settler) worker() {
	defer s.wg.Done()

	for id := range s.queue {
		metrics.SettlementQueueDepth.Dec()

		ctx, cancel := context.WithTimeout(context.Background(), settleTimeout)
		if _, err := s.Settle(ctx, id); err != nil {
			logger.Error(fmt.Sprintf("Settlement of transaction %s failed", id), err)
		}
		cancel()
	}
}
