package service

import (
	"context"
	"strings"
	"time"

	"github.com/arbr39/kaizen/internal/domain"
	"github.com/arbr39/kaizen/internal/repository"
	"github.com/google/uuid"
)

type itemService struct {
	items repository.ItemRepo
}

func NewItemService(items repository.ItemRepo) ItemService {
	return &itemService{items: items}
}

func (s *itemService) Create(ctx context.Context, item *domain.RedeemableItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.Status == "" {
		item.Status = domain.ItemActive
	}
	item.Name = strings.TrimSpace(item.Name)
	if err := item.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	return storageErr("create item", s.items.Create(ctx, item))
}

// Get returns the account's item. Deleted items and items owned by other
// accounts are reported as not found.
func (s *itemService) Get(ctx context.Context, accountID, itemID string) (*domain.RedeemableItem, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, storageErr("get item", notFoundAs(err, domain.ErrItemNotFound))
	}
	if item.AccountID != accountID || item.Status == domain.ItemDeleted {
		return nil, domain.ErrItemNotFound
	}
	return item, nil
}

func (s *itemService) Resolve(ctx context.Context, accountID, ref string) (*domain.RedeemableItem, error) {
	ref = strings.TrimSpace(ref)
	items, err := s.items.ListByAccount(ctx, accountID, false)
	if err != nil {
		return nil, storageErr("resolve item", err)
	}
	for _, item := range items {
		if item.ID == ref {
			return item, nil
		}
	}
	for _, item := range items {
		if strings.EqualFold(item.Name, ref) {
			return item, nil
		}
	}
	return nil, domain.ErrItemNotFound
}

func (s *itemService) List(ctx context.Context, accountID string, includeInactive bool) ([]*domain.RedeemableItem, error) {
	items, err := s.items.ListByAccount(ctx, accountID, includeInactive)
	if err != nil {
		return nil, storageErr("list items", err)
	}
	return items, nil
}

func (s *itemService) Update(ctx context.Context, item *domain.RedeemableItem) error {
	current, err := s.Get(ctx, item.AccountID, item.ID)
	if err != nil {
		return err
	}
	current.Name = strings.TrimSpace(item.Name)
	current.Price = item.Price
	current.Category = item.Category
	if err := current.Validate(); err != nil {
		return err
	}
	current.UpdatedAt = time.Now().UTC()
	if err := s.items.Update(ctx, current); err != nil {
		return storageErr("update item", err)
	}
	*item = *current
	return nil
}

func (s *itemService) Archive(ctx context.Context, accountID, itemID string) error {
	return s.setStatus(ctx, accountID, itemID, domain.ItemArchived)
}

func (s *itemService) Unarchive(ctx context.Context, accountID, itemID string) error {
	return s.setStatus(ctx, accountID, itemID, domain.ItemActive)
}

// Delete is a soft delete. Past purchases keep pointing at the row.
func (s *itemService) Delete(ctx context.Context, accountID, itemID string) error {
	return s.setStatus(ctx, accountID, itemID, domain.ItemDeleted)
}

func (s *itemService) setStatus(ctx context.Context, accountID, itemID string, status domain.ItemStatus) error {
	item, err := s.Get(ctx, accountID, itemID)
	if err != nil {
		return err
	}
	if item.Status == status {
		return nil
	}
	item.Status = status
	item.UpdatedAt = time.Now().UTC()
	return storageErr("update item status", s.items.Update(ctx, item))
}
