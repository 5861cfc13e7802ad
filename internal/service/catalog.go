package service

import (
	"context"
	"dinedash-backend/internal/model"
	"dinedash-backend/internal/repository"
	"fmt"
)

// CatalogService exposes the read side of the menu. Menu management lives
// outside this service.
type CatalogService interface {
	ListAvailable(ctx context.Context) ([]*model.MenuItem, error)
	SeedDefaults(ctx context.Context) error
}

type catalogServiceImpl struct {
	catalogRepo repository.CatalogRepository
}

func NewCatalogService(
	catalogRepo repository.CatalogRepository,
) CatalogService {
	return &catalogServiceImpl{
		catalogRepo: catalogRepo,
	}
}

func (s *catalogServiceImpl) ListAvailable(ctx context.Context) ([]*model.MenuItem, error) {
	items, err := s.catalogRepo.ListAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	return items, nil
}

func (s *catalogServiceImpl) SeedDefaults(ctx context.Context) error {
	if err := s.catalogRepo.Seed(ctx); err != nil {
		return fmt.Errorf("seed menu: %w", err)
	}
	return nil
}
