package items

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pointbank/pointbank-backend/pkg/db/models"
	"github.com/pointbank/pointbank-backend/pkg/enums"
	pkgerrors "github.com/pointbank/pointbank-backend/pkg/errors"
)

// CreateItemInput carries the catalog fields for a new item.
type CreateItemInput struct {
	ActorRole   enums.Role
	Name        string
	Price       int
	Stock       int
	Description string
	IsPublished *bool
}

// UpdateItemInput patches an existing item. Nil fields stay unchanged.
type UpdateItemInput struct {
	ActorRole   enums.Role
	ItemID      string
	Name        *string
	Price       *int
	Stock       *int
	Description *string
	IsPublished *bool
}

// Service manages the points-priced catalog.
type Service interface {
	CreateItem(ctx context.Context, input CreateItemInput) (*models.Item, error)
	UpdateItem(ctx context.Context, input UpdateItemInput) (*models.Item, error)
	DeleteItem(ctx context.Context, actorRole enums.Role, itemID string) error
	GetItem(ctx context.Context, actorRole enums.Role, itemID string) (*models.Item, error)
	ListItems(ctx context.Context, actorRole enums.Role) ([]models.Item, error)
}

type service struct {
	repo Repository
}

// NewService wires the catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("items repository required")
	}
	return &service{repo: repo}, nil
}

// newItemID returns a 22-character random catalog token.
func newItemID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:22]
}

func (s *service) CreateItem(ctx context.Context, input CreateItemInput) (*models.Item, error) {
	if !input.ActorRole.Elevated() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "catalog writes require an elevated role")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name required")
	}
	if input.Price < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be non-negative")
	}

	item := &models.Item{
		ID:          newItemID(),
		Name:        strings.TrimSpace(input.Name),
		Price:       input.Price,
		Stock:       input.Stock,
		Description: input.Description,
		IsPublished: true,
	}
	if input.IsPublished != nil {
		item.IsPublished = *input.IsPublished
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create item")
	}
	return item, nil
}

func (s *service) UpdateItem(ctx context.Context, input UpdateItemInput) (*models.Item, error) {
	if !input.ActorRole.Elevated() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "catalog writes require an elevated role")
	}
	if input.ItemID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	item, err := s.loadItem(ctx, input.ItemID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name required")
		}
		item.Name = name
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
		}
		item.Price = *input.Price
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be non-negative")
		}
		item.Stock = *input.Stock
	}
	if input.Description != nil {
		item.Description = *input.Description
	}
	if input.IsPublished != nil {
		item.IsPublished = *input.IsPublished
	}

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item")
	}
	return item, nil
}

// DeleteItem removes the catalog row. Historical orders keep their
// snapshotted name and price, so deletion never rewrites order history.
func (s *service) DeleteItem(ctx context.Context, actorRole enums.Role, itemID string) error {
	if !actorRole.Elevated() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "catalog writes require an elevated role")
	}
	if itemID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	if _, err := s.loadItem(ctx, itemID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, itemID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete item")
	}
	return nil
}

// GetItem returns the item. Unpublished items are hidden from students.
func (s *service) GetItem(ctx context.Context, actorRole enums.Role, itemID string) (*models.Item, error) {
	if itemID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	item, err := s.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsPublished && !actorRole.Elevated() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	return item, nil
}

// ListItems returns the catalog. Students see published items only.
func (s *service) ListItems(ctx context.Context, actorRole enums.Role) ([]models.Item, error) {
	items, err := s.repo.List(ctx, !actorRole.Elevated())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list items")
	}
	return items, nil
}

func (s *service) loadItem(ctx context.Context, id string) (*models.Item, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
	}
	return item, nil
}
