package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/arbr39/kaizen/internal/domain"
	"github.com/arbr39/kaizen/internal/repository"
	"github.com/arbr39/kaizen/internal/reward"
	"github.com/google/uuid"
)

const maxInboxText = 500

type inboxService struct {
	inbox  repository.InboxRepo
	ledger LedgerService
}

func NewInboxService(inbox repository.InboxRepo, ledger LedgerService) InboxService {
	return &inboxService{inbox: inbox, ledger: ledger}
}

// InboxDedupKey is the ledger key that pays an inbox item at most once.
func InboxDedupKey(itemID string) string {
	return domain.DedupKey(domain.TriggerInboxTaskDone, itemID)
}

func (s *inboxService) Capture(ctx context.Context, accountID, text string) (*domain.InboxItem, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("inbox text is required")
	}
	if len([]rune(text)) > maxInboxText {
		return nil, fmt.Errorf("inbox text is longer than %d characters", maxInboxText)
	}
	now := time.Now().UTC()
	item := &domain.InboxItem{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Text:      text,
		Status:    domain.InboxPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.inbox.Create(ctx, item); err != nil {
		return nil, storageErr("capture inbox item", err)
	}
	return item, nil
}

func (s *inboxService) Get(ctx context.Context, accountID, itemID string) (*domain.InboxItem, error) {
	item, err := s.inbox.GetByID(ctx, itemID)
	if err != nil {
		return nil, storageErr("get inbox item", notFoundAs(err, domain.ErrInboxItemNotFound))
	}
	if item.AccountID != accountID || item.Status == domain.InboxDeleted {
		return nil, domain.ErrInboxItemNotFound
	}
	return item, nil
}

func (s *inboxService) List(ctx context.Context, accountID string, status domain.InboxStatus) ([]*domain.InboxItem, error) {
	items, err := s.inbox.ListByStatus(ctx, accountID, status)
	if err != nil {
		return nil, storageErr("list inbox", err)
	}
	return items, nil
}

// Complete is safe to retry: a processed item is paid through its dedup key
// only once.
func (s *inboxService) Complete(ctx context.Context, accountID, itemID string) (EarnResult, error) {
	item, err := s.Get(ctx, accountID, itemID)
	if err != nil {
		return EarnResult{}, err
	}

	now := time.Now().UTC()
	switch item.Status {
	case domain.InboxPending:
		if _, err := s.inbox.MarkProcessed(ctx, item.ID, now); err != nil {
			return EarnResult{}, storageErr("complete inbox item", err)
		}
	case domain.InboxSomeday:
		item.Status = domain.InboxProcessed
		item.ProcessedAt = &now
		item.UpdatedAt = now
		if err := s.inbox.Update(ctx, item); err != nil {
			return EarnResult{}, storageErr("complete inbox item", err)
		}
	}

	return s.ledger.Earn(ctx, EarnRequest{
		AccountID:   accountID,
		Trigger:     domain.TriggerInboxTaskDone,
		Context:     reward.Context{Energy: item.Energy, TimeEstimate: item.TimeEstimate},
		DedupKey:    InboxDedupKey(item.ID),
		Description: item.Text,
		RefType:     "inbox_item",
		RefID:       item.ID,
	})
}

func (s *inboxService) Triage(ctx context.Context, accountID, itemID, energy, timeEstimate string, status domain.InboxStatus) error {
	switch energy {
	case "", domain.EnergyLow, domain.EnergyMedium, domain.EnergyHigh:
	default:
		return fmt.Errorf("unknown energy tag %q", energy)
	}
	switch timeEstimate {
	case "", domain.Time5Min, domain.Time15Min, domain.Time30Min, domain.Time1Hour:
	default:
		return fmt.Errorf("unknown time estimate %q", timeEstimate)
	}
	switch status {
	case domain.InboxPending, domain.InboxSomeday, domain.InboxDeleted:
	default:
		return fmt.Errorf("cannot triage an item into %q", status)
	}

	item, err := s.Get(ctx, accountID, itemID)
	if err != nil {
		return err
	}
	if item.Status == domain.InboxProcessed {
		return fmt.Errorf("inbox item %s is already processed", itemID)
	}
	if energy != "" {
		item.Energy = energy
	}
	if timeEstimate != "" {
		item.TimeEstimate = timeEstimate
	}
	item.Status = status
	item.UpdatedAt = time.Now().UTC()
	return storageErr("triage inbox item", s.inbox.Update(ctx, item))
}
