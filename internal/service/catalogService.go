package service

import (
	"context"
	"fmt"
	"strings"

	repository "github.com/ds124wfegd/WB_L3/catering/internal/database/postgres"
	"github.com/ds124wfegd/WB_L3/catering/internal/entity"
	"github.com/ds124wfegd/WB_L3/catering/internal/lifecycle"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type CatalogItemRequest struct {
	Kind  entity.CatalogKind `json:"kind" binding:"required,oneof=package service_type food service"`
	Name  string             `json:"name" binding:"required,max=255"`
	Price decimal.Decimal    `json:"price" binding:"money"`
}

type catalogService struct {
	catalogRepo repository.CatalogRepository
	clock       lifecycle.Clock
}

func NewCatalogService(catalogRepo repository.CatalogRepository, clock lifecycle.Clock) CatalogService {
	if clock == nil {
		clock = lifecycle.SystemClock{}
	}
	return &catalogService{catalogRepo: catalogRepo, clock: clock}
}

func (s *catalogService) GetAll(ctx context.Context) ([]*entity.CatalogItem, error) {
	return s.catalogRepo.GetAll(ctx)
}

// Upsert creates or reprices a catalog item. Existing bookings keep the
// prices they were opened with.
func (s *catalogService) Upsert(ctx context.Context, id string, req *CatalogItemRequest) (*entity.CatalogItem, error) {
	id = strings.TrimSpace(id)
	switch {
	case id == "":
		return nil, entity.NewValidationError("id", "is required")
	case !req.Kind.Valid():
		return nil, entity.NewValidationError("kind", "unknown catalog kind %q", req.Kind)
	case req.Kind == entity.CatalogKindServiceType && !entity.ServiceType(id).Valid():
		return nil, entity.NewValidationError("id", "service type items must use a service type as id")
	case strings.TrimSpace(req.Name) == "":
		return nil, entity.NewValidationError("name", "is required")
	case req.Price.IsNegative():
		return nil, entity.NewValidationError("price", "must not be negative")
	}

	item := &entity.CatalogItem{
		ID:        id,
		Kind:      req.Kind,
		Name:      strings.TrimSpace(req.Name),
		Price:     req.Price,
		UpdatedAt: s.clock.Now(),
	}
	if err := s.catalogRepo.Upsert(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to save catalog item %s: %w", id, err)
	}

	logrus.WithFields(logrus.Fields{
		"item_id": item.ID,
		"kind":    item.Kind,
		"price":   item.Price.StringFixed(2),
	}).Info("Catalog item saved")
	return item, nil
}

func (s *catalogService) Delete(ctx context.Context, id string) error {
	return s.catalogRepo.Delete(ctx, id)
}
