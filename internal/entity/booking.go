package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	switch status {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled:
		return status, nil
	default:
		return "", NewValidationError("status", "unknown booking status %q", s)
	}
}

// Counted reports whether the booking contributes income to the cashflow ledger.
// Unknown statuses never count.
func (s BookingStatus) Counted() bool {
	switch s {
	case BookingStatusConfirmed, BookingStatusCompleted:
		return true
	default:
		return false
	}
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPartial  PaymentStatus = "partial"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type ServiceType string

const (
	ServiceTypeFoodOnly    ServiceType = "food-only"
	ServiceTypeServiceOnly ServiceType = "service-only"
	ServiceTypeMixed       ServiceType = "mixed"
)

func (t ServiceType) Valid() bool {
	switch t {
	case ServiceTypeFoodOnly, ServiceTypeServiceOnly, ServiceTypeMixed:
		return true
	default:
		return false
	}
}

type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

type ServiceSelection struct {
	ServiceID string `json:"service_id"`
	Quantity  int    `json:"quantity"`
}

type RescheduleEntry struct {
	OldDate   Date            `json:"old_date"`
	OldTime   string          `json:"old_time"`
	NewDate   Date            `json:"new_date"`
	NewTime   string          `json:"new_time"`
	Fee       decimal.Decimal `json:"fee"`
	Reason    string          `json:"reason"`
	Actor     string          `json:"actor"`
	Timestamp time.Time       `json:"timestamp"`
}

// Booking is one customer event order. It is stored as a single document
// and mutated only through lifecycle transitions.
type Booking struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   string    `json:"owner_id"`
	CreatedBy string    `json:"created_by,omitempty"`

	EventType   string      `json:"event_type"`
	ServiceType ServiceType `json:"service_type"`
	PackageID   string      `json:"package_id"`

	EventDate  Date     `json:"event_date"`
	EventTime  string   `json:"event_time"`
	GuestCount int      `json:"guest_count"`
	Location   Location `json:"location"`

	FoodItemIDs       []string           `json:"food_item_ids"`
	ServiceSelections []ServiceSelection `json:"service_selections"`

	TotalPrice       decimal.Decimal     `json:"total_price"`
	FinalPrice       decimal.NullDecimal `json:"final_price"`
	Discount         decimal.Decimal     `json:"discount"`
	Downpayment      decimal.Decimal     `json:"downpayment"`
	RemainingBalance decimal.Decimal     `json:"remaining_balance"`
	RescheduleFee    decimal.Decimal     `json:"reschedule_fee"`
	Budget           decimal.NullDecimal `json:"budget"`
	PriceNotes       string              `json:"price_notes,omitempty"`

	Expenses Expenses `json:"expenses"`

	Status        BookingStatus   `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	FinalPayment  decimal.Decimal `json:"final_payment"`

	RescheduleHistory []RescheduleEntry `json:"reschedule_history"`
	AssignedStaff     []string          `json:"assigned_staff"`

	RejectionReason string     `json:"rejection_reason,omitempty"`
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`
	ConfirmedBy     string     `json:"confirmed_by,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy     string     `json:"cancelled_by,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CompletedBy     string     `json:"completed_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by,omitempty"`
	Version   int64     `json:"version"`
}

// AgreedPrice is the negotiated price when one was set at confirmation,
// otherwise the wizard estimate.
func (b *Booking) AgreedPrice() decimal.Decimal {
	if b.FinalPrice.Valid {
		return b.FinalPrice.Decimal
	}
	return b.TotalPrice
}

func (b *Booking) HasStaff(staffID string) bool {
	for _, id := range b.AssignedStaff {
		if id == staffID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so a transition can fail without touching the original.
func (b *Booking) Clone() *Booking {
	c := *b

	c.FoodItemIDs = append([]string(nil), b.FoodItemIDs...)
	c.ServiceSelections = append([]ServiceSelection(nil), b.ServiceSelections...)
	c.RescheduleHistory = append([]RescheduleEntry(nil), b.RescheduleHistory...)
	c.AssignedStaff = append([]string(nil), b.AssignedStaff...)
	c.Expenses = b.Expenses.clone()

	c.ConfirmedAt = cloneTime(b.ConfirmedAt)
	c.CancelledAt = cloneTime(b.CancelledAt)
	c.CompletedAt = cloneTime(b.CompletedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// BookingFilter narrows booking listings. Zero values mean "any".
type BookingFilter struct {
	Statuses  []BookingStatus
	OwnerID   string
	EventFrom *Date
	EventTo   *Date
	Limit     int
	Offset    int
}
