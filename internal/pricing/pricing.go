// Package pricing computes wizard estimates and completion settlements.
// Everything here is a pure function of its inputs.
package pricing

import (
	"github.com/ds124wfegd/WB_L3/catering/internal/entity"
	"github.com/ds124wfegd/WB_L3/catering/internal/money"

	"github.com/shopspring/decimal"
)

// Catalog resolves catalog ids to prices. A false second result means the
// item is unknown, which prices it at zero.
type Catalog interface {
	PackagePrice(id string) (decimal.Decimal, bool)
	ServiceTypePrice(t entity.ServiceType) (decimal.Decimal, bool)
	FoodPrice(id string) (decimal.Decimal, bool)
	ServicePrice(id string) (decimal.Decimal, bool)
}

// Selection is what the customer picked in the wizard.
type Selection struct {
	PackageID   string                    `json:"package_id"`
	ServiceType entity.ServiceType        `json:"service_type"`
	GuestCount  int                       `json:"guest_count"`
	FoodItemIDs []string                  `json:"food_item_ids"`
	Services    []entity.ServiceSelection `json:"services"`
}

func (s Selection) Validate() error {
	if s.GuestCount < 0 {
		return entity.NewValidationError("guest_count", "must not be negative")
	}
	if s.ServiceType != "" && !s.ServiceType.Valid() {
		return entity.NewValidationError("service_type", "unknown service type %q", s.ServiceType)
	}
	for _, svc := range s.Services {
		if svc.Quantity < 0 {
			return entity.NewValidationError("services", "quantity for %q must not be negative", svc.ServiceID)
		}
	}
	return nil
}

// Normalize drops services selected with quantity zero.
func (s Selection) Normalize() Selection {
	out := s
	out.FoodItemIDs = append([]string(nil), s.FoodItemIDs...)
	out.Services = make([]entity.ServiceSelection, 0, len(s.Services))
	for _, svc := range s.Services {
		if svc.Quantity == 0 {
			continue
		}
		out.Services = append(out.Services, svc)
	}
	return out
}

// CatalogIDs lists every id the selection needs priced.
func (s Selection) CatalogIDs() []string {
	ids := make([]string, 0, 2+len(s.FoodItemIDs)+len(s.Services))
	if s.PackageID != "" {
		ids = append(ids, s.PackageID)
	}
	if s.ServiceType != "" {
		ids = append(ids, string(s.ServiceType))
	}
	ids = append(ids, s.FoodItemIDs...)
	for _, svc := range s.Services {
		ids = append(ids, svc.ServiceID)
	}
	return ids
}

type Breakdown struct {
	Base          decimal.Decimal `json:"base"`
	Service       decimal.Decimal `json:"service"`
	FoodAddons    decimal.Decimal `json:"food_addons"`
	ServiceAddons decimal.Decimal `json:"service_addons"`
	Total         decimal.Decimal `json:"total"`
	Missing       []string        `json:"missing,omitempty"` // ids priced at zero because the catalog no longer has them
}

// Estimate prices a selection:
//
//	total = package + serviceType.perGuest*guests + Σ food + Σ service.unit*qty
//
// Unknown ids contribute zero so retired catalog items never break old bookings.
func Estimate(sel Selection, catalog Catalog) Breakdown {
	sel = sel.Normalize()
	var b Breakdown

	if sel.PackageID != "" {
		price, ok := catalog.PackagePrice(sel.PackageID)
		if !ok {
			b.Missing = append(b.Missing, sel.PackageID)
		}
		b.Base = price
	}

	if sel.ServiceType != "" {
		perGuest, ok := catalog.ServiceTypePrice(sel.ServiceType)
		if !ok {
			b.Missing = append(b.Missing, string(sel.ServiceType))
		}
		b.Service = money.MulQty(perGuest, sel.GuestCount)
	}

	food := make([]decimal.Decimal, 0, len(sel.FoodItemIDs))
	for _, id := range sel.FoodItemIDs {
		price, ok := catalog.FoodPrice(id)
		if !ok {
			b.Missing = append(b.Missing, id)
		}
		food = append(food, price)
	}
	b.FoodAddons = money.Sum(food...)

	services := make([]decimal.Decimal, 0, len(sel.Services))
	for _, svc := range sel.Services {
		unit, ok := catalog.ServicePrice(svc.ServiceID)
		if !ok {
			b.Missing = append(b.Missing, svc.ServiceID)
		}
		services = append(services, money.MulQty(unit, svc.Quantity))
	}
	b.ServiceAddons = money.Sum(services...)

	b.Total = money.Round(money.Sum(b.Base, b.Service, b.FoodAddons, b.ServiceAddons))
	return b
}

// PriceList is an in-memory Catalog built from catalog rows.
type PriceList struct {
	packages     map[string]decimal.Decimal
	serviceTypes map[entity.ServiceType]decimal.Decimal
	foods        map[string]decimal.Decimal
	services     map[string]decimal.Decimal
}

func NewPriceList(items []*entity.CatalogItem) *PriceList {
	p := &PriceList{
		packages:     make(map[string]decimal.Decimal),
		serviceTypes: make(map[entity.ServiceType]decimal.Decimal),
		foods:        make(map[string]decimal.Decimal),
		services:     make(map[string]decimal.Decimal),
	}
	for _, item := range items {
		switch item.Kind {
		case entity.CatalogKindPackage:
			p.packages[item.ID] = item.Price
		case entity.CatalogKindServiceType:
			p.serviceTypes[entity.ServiceType(item.ID)] = item.Price
		case entity.CatalogKindFood:
			p.foods[item.ID] = item.Price
		case entity.CatalogKindService:
			p.services[item.ID] = item.Price
		}
	}
	return p
}

func (p *PriceList) PackagePrice(id string) (decimal.Decimal, bool) {
	v, ok := p.packages[id]
	return v, ok
}

func (p *PriceList) ServiceTypePrice(t entity.ServiceType) (decimal.Decimal, bool) {
	v, ok := p.serviceTypes[t]
	return v, ok
}

func (p *PriceList) FoodPrice(id string) (decimal.Decimal, bool) {
	v, ok := p.foods[id]
	return v, ok
}

func (p *PriceList) ServicePrice(id string) (decimal.Decimal, bool) {
	v, ok := p.services[id]
	return v, ok
}
