package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ds124wfegd/WB_L3/catering/internal/cashflow"
	repository "github.com/ds124wfegd/WB_L3/catering/internal/database/postgres"
	cache "github.com/ds124wfegd/WB_L3/catering/internal/database/redis"
	"github.com/ds124wfegd/WB_L3/catering/internal/entity"
	"github.com/ds124wfegd/WB_L3/catering/internal/lifecycle"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type CashflowEntryRequest struct {
	Type        entity.EntryType `json:"type" binding:"required,oneof=income expense"`
	Amount      decimal.Decimal  `json:"amount" binding:"money"`
	Description string           `json:"description" binding:"required,max=255"`
	Category    string           `json:"category" binding:"max=100"`
	Date        entity.Date      `json:"date"`
	Notes       string           `json:"notes" binding:"max=1000"`
}

type cashflowService struct {
	bookingRepo     repository.BookingRepository
	transactionRepo repository.TransactionRepository
	cashflowRepo    repository.CashflowRepository
	rollups         cache.RollupCache
	clock           lifecycle.Clock
	loc             *time.Location
}

func NewCashflowService(
	bookingRepo repository.BookingRepository,
	transactionRepo repository.TransactionRepository,
	cashflowRepo repository.CashflowRepository,
	rollups cache.RollupCache,
	clock lifecycle.Clock,
	loc *time.Location,
) CashflowService {
	if rollups == nil {
		rollups = cache.NopRollupCache{}
	}
	if clock == nil {
		clock = lifecycle.SystemClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &cashflowService{
		bookingRepo:     bookingRepo,
		transactionRepo: transactionRepo,
		cashflowRepo:    cashflowRepo,
		rollups:         rollups,
		clock:           clock,
		loc:             loc,
	}
}

// Ledger merges the month's counted bookings with manual entries. An empty
// month means the current one.
func (s *cashflowService) Ledger(ctx context.Context, month string, filter entity.LedgerFilter) (*entity.PeriodLedger, error) {
	m := cashflow.MonthOf(s.clock.Now(), s.loc)
	if month != "" {
		parsed, err := cashflow.ParseMonth(month)
		if err != nil {
			return nil, err
		}
		m = parsed
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, entity.NewValidationError("type", "must be income or expense")
	}

	first, last := m.First(), m.Last()
	bookings, err := s.bookingRepo.List(ctx, entity.BookingFilter{
		Statuses:  []entity.BookingStatus{entity.BookingStatusConfirmed, entity.BookingStatusCompleted},
		EventFrom: &first,
		EventTo:   &last,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings for %s: %w", m, err)
	}

	manual, err := s.cashflowRepo.List(ctx, entity.CashflowFilter{From: &first, To: &last})
	if err != nil {
		return nil, fmt.Errorf("failed to load cashflow entries for %s: %w", m, err)
	}

	return cashflow.Period(m, bookings, manual, filter), nil
}

// MonthlyRollup serves the cached report when present. Cache failures only
// cost a recomputation.
func (s *cashflowService) MonthlyRollup(ctx context.Context) ([]entity.MonthlyRollup, error) {
	rollups, ok, err := s.rollups.Get(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Rollup cache read failed")
	}
	if ok {
		return rollups, nil
	}
	return s.RefreshRollup(ctx)
}

// RefreshRollup recomputes the report from all transactions and caches it.
func (s *cashflowService) RefreshRollup(ctx context.Context) ([]entity.MonthlyRollup, error) {
	txns, err := s.transactionRepo.List(ctx, entity.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	rollups := cashflow.MonthlyRollup(txns, s.loc)
	if err := s.rollups.Set(ctx, rollups); err != nil {
		logrus.WithError(err).Warn("Rollup cache write failed")
	}
	return rollups, nil
}

func (s *cashflowService) CreateEntry(ctx context.Context, req *CashflowEntryRequest, actor string) (*entity.CashflowEntry, error) {
	switch {
	case !req.Type.Valid():
		return nil, entity.NewValidationError("type", "must be income or expense")
	case req.Amount.IsNegative():
		return nil, entity.NewValidationError("amount", "must not be negative")
	case strings.TrimSpace(req.Description) == "":
		return nil, entity.NewValidationError("description", "is required")
	case req.Date.IsZero():
		return nil, entity.NewValidationError("date", "is required")
	}

	entry := &entity.CashflowEntry{
		ID:          uuid.New(),
		Type:        req.Type,
		Amount:      req.Amount,
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		Date:        req.Date,
		Notes:       req.Notes,
		OwnerID:     actor,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.cashflowRepo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create cashflow entry: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"entry_id": entry.ID,
		"type":     entry.Type,
		"amount":   entry.Amount.StringFixed(2),
		"actor":    actor,
	}).Info("Cashflow entry recorded")
	return entry, nil
}

func (s *cashflowService) ListEntries(ctx context.Context, filter entity.CashflowFilter) ([]*entity.CashflowEntry, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, entity.NewValidationError("type", "must be income or expense")
	}
	return s.cashflowRepo.List(ctx, filter)
}

func (s *cashflowService) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	if err := s.cashflowRepo.Delete(ctx, id); err != nil {
		return err
	}
	logrus.WithField("entry_id", id).Info("Cashflow entry deleted")
	return nil
}
