package service

import (
	"context"
	"errors"
	"sync"

	"github.com/ds124wfegd/WB_L3/catering/internal/entity"

	"github.com/google/uuid"
)

type fakeBookingRepo struct {
	mu           sync.Mutex
	bookings     map[uuid.UUID]*entity.Booking
	transactions map[uuid.UUID]*entity.Transaction
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{
		bookings:     make(map[uuid.UUID]*entity.Booking),
		transactions: make(map[uuid.UUID]*entity.Transaction),
	}
}

func (r *fakeBookingRepo) put(b *entity.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.Version == 0 {
		b.Version = 1
	}
	r.bookings[b.ID] = b.Clone()
}

func (r *fakeBookingRepo) Create(_ context.Context, b *entity.Booking) error {
	b.Version = 1
	r.put(b)
	return nil
}

func (r *fakeBookingRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, entity.NewNotFoundError("booking", id.String(), entity.ErrBookingNotFound)
	}
	return b.Clone(), nil
}

func (r *fakeBookingRepo) Save(_ context.Context, b *entity.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveLocked(b)
}

func (r *fakeBookingRepo) saveLocked(b *entity.Booking) error {
	stored, ok := r.bookings[b.ID]
	if !ok {
		return entity.NewNotFoundError("booking", b.ID.String(), entity.ErrBookingNotFound)
	}
	if stored.Version != b.Version {
		return &entity.ConcurrencyConflictError{BookingID: b.ID.String(), Version: b.Version}
	}
	b.Version++
	r.bookings[b.ID] = b.Clone()
	return nil
}

func (r *fakeBookingRepo) Complete(_ context.Context, b *entity.Booking, txn *entity.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.transactions[b.ID]; exists {
		return entity.ErrTransactionExists
	}
	if err := r.saveLocked(b); err != nil {
		return err
	}
	r.transactions[b.ID] = txn
	return nil
}

func (r *fakeBookingRepo) List(_ context.Context, f entity.BookingFilter) ([]*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Booking, 0)
	for _, b := range r.bookings {
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, b.Status) {
			continue
		}
		if f.OwnerID != "" && b.OwnerID != f.OwnerID {
			continue
		}
		if f.EventFrom != nil && b.EventDate.Before(f.EventFrom.Time) {
			continue
		}
		if f.EventTo != nil && b.EventDate.After(f.EventTo.Time) {
			continue
		}
		out = append(out, b.Clone())
	}
	return out, nil
}

func (r *fakeBookingRepo) ListAwaitingSettlement(_ context.Context, before entity.Date) ([]*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Booking, 0)
	for _, b := range r.bookings {
		if b.Status == entity.BookingStatusConfirmed && b.EventDate.Before(before.Time) {
			out = append(out, b.Clone())
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) Summary(_ context.Context, today entity.Date) (*entity.BookingSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &entity.BookingSummary{ByStatus: make(map[entity.BookingStatus]int)}
	for _, b := range r.bookings {
		s.ByStatus[b.Status]++
		if b.Status == entity.BookingStatusConfirmed {
			s.OutstandingTotal = s.OutstandingTotal.Add(b.RemainingBalance)
			if b.EventDate.Before(today.Time) {
				s.AwaitingSettle++
			}
		}
	}
	return s, nil
}

func containsStatus(list []entity.BookingStatus, s entity.BookingStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// fakeTransactionRepo reads the transactions recorded by a fakeBookingRepo.
type fakeTransactionRepo struct {
	bookings *fakeBookingRepo
	err      error
}

func (r *fakeTransactionRepo) GetByBookingID(_ context.Context, bookingID uuid.UUID) (*entity.Transaction, error) {
	r.bookings.mu.Lock()
	defer r.bookings.mu.Unlock()
	txn, ok := r.bookings.transactions[bookingID]
	if !ok {
		return nil, entity.NewNotFoundError("transaction", bookingID.String(), entity.ErrTransactionNotFound)
	}
	return txn, nil
}

func (r *fakeTransactionRepo) List(_ context.Context, _ entity.TransactionFilter) ([]*entity.Transaction, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.bookings.mu.Lock()
	defer r.bookings.mu.Unlock()
	out := make([]*entity.Transaction, 0, len(r.bookings.transactions))
	for _, t := range r.bookings.transactions {
		out = append(out, t)
	}
	return out, nil
}

type fakeCatalogRepo struct {
	items map[string]*entity.CatalogItem
}

func (r *fakeCatalogRepo) Upsert(_ context.Context, item *entity.CatalogItem) error {
	r.items[item.ID] = item
	return nil
}

func (r *fakeCatalogRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.items[id]; !ok {
		return entity.NewNotFoundError("catalog item", id, entity.ErrCatalogItemNotFound)
	}
	delete(r.items, id)
	return nil
}

func (r *fakeCatalogRepo) GetAll(_ context.Context) ([]*entity.CatalogItem, error) {
	out := make([]*entity.CatalogItem, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	return out, nil
}

func (r *fakeCatalogRepo) GetByIDs(_ context.Context, ids []string) ([]*entity.CatalogItem, error) {
	out := make([]*entity.CatalogItem, 0, len(ids))
	for _, id := range ids {
		if item, ok := r.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

type fakeCashflowRepo struct {
	entries map[uuid.UUID]*entity.CashflowEntry
}

func (r *fakeCashflowRepo) Create(_ context.Context, e *entity.CashflowEntry) error {
	r.entries[e.ID] = e
	return nil
}

func (r *fakeCashflowRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.CashflowEntry, error) {
	e, ok := r.entries[id]
	if !ok {
		return nil, entity.NewNotFoundError("cashflow entry", id.String(), entity.ErrCashflowEntryNotFound)
	}
	return e, nil
}

func (r *fakeCashflowRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.entries[id]; !ok {
		return entity.NewNotFoundError("cashflow entry", id.String(), entity.ErrCashflowEntryNotFound)
	}
	delete(r.entries, id)
	return nil
}

func (r *fakeCashflowRepo) List(_ context.Context, f entity.CashflowFilter) ([]*entity.CashflowEntry, error) {
	out := make([]*entity.CashflowEntry, 0)
	for _, e := range r.entries {
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.From != nil && e.Date.Before(f.From.Time) {
			continue
		}
		if f.To != nil && e.Date.After(f.To.Time) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type fakeRollupCache struct {
	stored []entity.MonthlyRollup
	hit    bool
	sets   int
	getErr error
}

func (c *fakeRollupCache) Get(context.Context) ([]entity.MonthlyRollup, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	return c.stored, c.hit, nil
}

func (c *fakeRollupCache) Set(_ context.Context, r []entity.MonthlyRollup) error {
	c.stored, c.hit = r, true
	c.sets++
	return nil
}

func (c *fakeRollupCache) Invalidate(context.Context) error {
	c.stored, c.hit = nil, false
	return nil
}

type fakeTaskPublisher struct {
	tasks []*Task
	err   error
}

func (p *fakeTaskPublisher) Publish(_ context.Context, task *Task) error {
	if p.err != nil {
		return p.err
	}
	p.tasks = append(p.tasks, task)
	return nil
}

func (p *fakeTaskPublisher) ofType(t string) []*Task {
	var out []*Task
	for _, task := range p.tasks {
		if task.Type == t {
			out = append(out, task)
		}
	}
	return out
}

var errBoom = errors.New("boom")
