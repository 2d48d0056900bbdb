package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type CatalogKind string

const (
	CatalogKindPackage     CatalogKind = "package"
	CatalogKindServiceType CatalogKind = "service_type"
	CatalogKindFood        CatalogKind = "food"
	CatalogKindService     CatalogKind = "service"
)

func (k CatalogKind) Valid() bool {
	switch k {
	case CatalogKindPackage, CatalogKindServiceType, CatalogKindFood, CatalogKindService:
		return true
	default:
		return false
	}
}

// CatalogItem is a priced option offered by the booking wizard.
// Service types use the ServiceType value as their ID and price per guest;
// services are priced per unit.
type CatalogItem struct {
	ID        string          `json:"id" db:"id"`
	Kind      CatalogKind     `json:"kind" db:"kind"`
	Name      string          `json:"name" db:"name"`
	Price     decimal.Decimal `json:"price" db:"price"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}
