package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arbr39/kaizen/internal/db"
	"github.com/arbr39/kaizen/internal/domain"
	"github.com/arbr39/kaizen/internal/repository"
	"github.com/arbr39/kaizen/internal/reward"
	"github.com/google/uuid"
)

const (
	defaultStatsWindow = 7
	recentLimit        = 10
	// Streaks are looked up over at most this many days.
	streakHorizon = 366
)

type ledgerService struct {
	accounts repository.AccountRepo
	txs      repository.TransactionRepo
	entries  repository.DailyEntryRepo
	uow      db.UnitOfWork
	base     domain.Rates
	observer UseCaseObserver
}

// NewLedgerService builds the ledger. base is the operator rate table the
// per-account overrides are laid over; nil means the built-in defaults.
func NewLedgerService(
	accounts repository.AccountRepo,
	txs repository.TransactionRepo,
	entries repository.DailyEntryRepo,
	uow db.UnitOfWork,
	base domain.Rates,
	observers ...UseCaseObserver,
) LedgerService {
	return &ledgerService{
		accounts: accounts,
		txs:      txs,
		entries:  entries,
		uow:      uow,
		base:     domain.DefaultRates().Merge(base),
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *ledgerService) EnsureAccount(ctx context.Context, accountID, displayName string) (*domain.Account, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account id is required")
	}
	a, err := s.accounts.GetOrCreate(ctx, accountID, displayName, time.Now().UTC())
	if err != nil {
		return nil, storageErr("ensure account", err)
	}
	return a, nil
}

func (s *ledgerService) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, storageErr("get account", notFoundAs(err, domain.ErrAccountNotFound))
	}
	return a, nil
}

func (s *ledgerService) ListAccounts(ctx context.Context, activeOnly bool) ([]*domain.Account, error) {
	accounts, err := s.accounts.List(ctx, activeOnly)
	if err != nil {
		return nil, storageErr("list accounts", err)
	}
	return accounts, nil
}

func (s *ledgerService) SetActive(ctx context.Context, accountID string, active bool) error {
	err := s.accounts.SetActive(ctx, accountID, active, time.Now().UTC())
	return storageErr("set active", notFoundAs(err, domain.ErrAccountNotFound))
}

func (s *ledgerService) SetPenaltiesEnabled(ctx context.Context, accountID string, enabled bool) error {
	err := s.accounts.SetPenaltiesEnabled(ctx, accountID, enabled, time.Now().UTC())
	return storageErr("set penalties", notFoundAs(err, domain.ErrAccountNotFound))
}

func (s *ledgerService) Earn(ctx context.Context, req EarnRequest) (result EarnResult, err error) {
	startedAt := time.Now()
	fields := map[string]any{
		"account": req.AccountID,
		"trigger": string(req.Trigger),
	}
	defer func() {
		fields["amount"] = result.Amount
		fields["duplicate"] = result.Duplicate
		fields["skipped"] = result.Skipped
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "earn",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.Querier) error {
		txAccounts := repository.NewSQLiteAccountRepo(tx)
		txLedger := repository.NewSQLiteTransactionRepo(tx)

		account, err := txAccounts.GetByID(ctx, req.AccountID)
		if err != nil {
			return notFoundAs(err, domain.ErrAccountNotFound)
		}
		if !account.Active {
			result.Skipped = true
			return nil
		}

		if req.DedupKey != "" {
			prior, err := findByDedupKey(ctx, txLedger, req.AccountID, req.DedupKey)
			if err != nil {
				return err
			}
			if prior != nil {
				result = EarnResult{Transaction: prior, Amount: prior.Amount, Duplicate: true}
				return nil
			}
		}

		overrides, err := txAccounts.GetRates(ctx, req.AccountID)
		if err != nil {
			return err
		}
		amount, err := reward.Compute(req.Trigger, s.base.Merge(overrides), req.Context)
		if err != nil {
			return err
		}
		// Penalties take what is there and never more.
		if amount < 0 && account.Balance+amount < 0 {
			amount = -account.Balance
		}
		if amount == 0 {
			result.Skipped = true
			return nil
		}

		now := time.Now().UTC()
		entry := &domain.Transaction{
			ID:          uuid.New().String(),
			AccountID:   req.AccountID,
			Amount:      amount,
			Trigger:     req.Trigger,
			Description: req.Description,
			RefType:     req.RefType,
			RefID:       req.RefID,
			DedupKey:    req.DedupKey,
			CreatedAt:   now,
		}
		inserted, err := txLedger.Insert(ctx, entry)
		if err != nil {
			return err
		}
		if !inserted {
			prior, err := findByDedupKey(ctx, txLedger, req.AccountID, req.DedupKey)
			if err != nil {
				return err
			}
			if prior == nil {
				return fmt.Errorf("transaction for %s not inserted and no duplicate found", req.Trigger)
			}
			result = EarnResult{Transaction: prior, Amount: prior.Amount, Duplicate: true}
			return nil
		}

		applied, err := txAccounts.ApplyDelta(ctx, req.AccountID, amount, now)
		if err != nil {
			return err
		}
		if !applied {
			return domain.ErrInsufficientFunds
		}
		result = EarnResult{Transaction: entry, Amount: amount}
		return nil
	})
	if err != nil {
		return EarnResult{}, storageErr("earn", err)
	}
	return result, nil
}

func findByDedupKey(ctx context.Context, txs repository.TransactionRepo, accountID, key string) (*domain.Transaction, error) {
	prior, err := txs.GetByDedupKey(ctx, accountID, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return prior, nil
}

func (s *ledgerService) Spend(ctx context.Context, accountID, itemID string) (spent *domain.Transaction, err error) {
	startedAt := time.Now()
	fields := map[string]any{
		"account": accountID,
		"item":    itemID,
	}
	defer func() {
		if spent != nil {
			fields["amount"] = spent.Amount
		}
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "spend",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.Querier) error {
		txAccounts := repository.NewSQLiteAccountRepo(tx)
		txLedger := repository.NewSQLiteTransactionRepo(tx)
		txItems := repository.NewSQLiteItemRepo(tx)

		item, err := txItems.GetByID(ctx, itemID)
		if err != nil {
			return notFoundAs(err, domain.ErrItemNotFound)
		}
		if item.AccountID != accountID || item.Status == domain.ItemDeleted {
			return domain.ErrItemNotFound
		}
		if item.Status != domain.ItemActive {
			return domain.ErrItemInactive
		}

		now := time.Now().UTC()
		applied, err := txAccounts.ApplyDelta(ctx, accountID, -item.Price, now)
		if err != nil {
			return err
		}
		if !applied {
			if _, err := txAccounts.GetByID(ctx, accountID); err != nil {
				return notFoundAs(err, domain.ErrAccountNotFound)
			}
			return fmt.Errorf("%w: %s costs %d", domain.ErrInsufficientFunds, item.Name, item.Price)
		}

		entry := &domain.Transaction{
			ID:          uuid.New().String(),
			AccountID:   accountID,
			Amount:      -item.Price,
			Trigger:     domain.TriggerRewardSpent,
			Description: item.Name,
			RefType:     "reward_item",
			RefID:       item.ID,
			CreatedAt:   now,
		}
		if _, err := txLedger.Insert(ctx, entry); err != nil {
			return err
		}

		item.RecordPurchase(now)
		if err := txItems.Update(ctx, item); err != nil {
			return err
		}
		spent = entry
		return nil
	})
	if err != nil {
		return nil, storageErr("spend", err)
	}
	return spent, nil
}

func (s *ledgerService) Adjust(ctx context.Context, accountID string, amount int64, reason string) (*domain.Transaction, error) {
	if amount == 0 {
		return nil, fmt.Errorf("%w: adjustment must not be zero", domain.ErrInvalidContext)
	}
	var adjusted *domain.Transaction
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.Querier) error {
		txAccounts := repository.NewSQLiteAccountRepo(tx)
		txLedger := repository.NewSQLiteTransactionRepo(tx)

		now := time.Now().UTC()
		applied, err := txAccounts.ApplyDelta(ctx, accountID, amount, now)
		if err != nil {
			return err
		}
		if !applied {
			if _, err := txAccounts.GetByID(ctx, accountID); err != nil {
				return notFoundAs(err, domain.ErrAccountNotFound)
			}
			return domain.ErrInsufficientFunds
		}
		entry := &domain.Transaction{
			ID:          uuid.New().String(),
			AccountID:   accountID,
			Amount:      amount,
			Trigger:     domain.TriggerManualAdjustment,
			Description: reason,
			CreatedAt:   now,
		}
		if _, err := txLedger.Insert(ctx, entry); err != nil {
			return err
		}
		adjusted = entry
		return nil
	})
	if err != nil {
		return nil, storageErr("adjust", err)
	}
	return adjusted, nil
}

func (s *ledgerService) Balance(ctx context.Context, accountID string) (int64, error) {
	a, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return a.Balance, nil
}

func (s *ledgerService) Reconcile(ctx context.Context, accountID string) (ReconcileReport, error) {
	a, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return ReconcileReport{}, err
	}
	sum, err := s.txs.SumAll(ctx, accountID)
	if err != nil {
		return ReconcileReport{}, storageErr("reconcile", err)
	}
	return ReconcileReport{AccountID: accountID, Balance: a.Balance, LedgerSum: sum}, nil
}

func (s *ledgerService) Rates(ctx context.Context, accountID string) (domain.Rates, error) {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	overrides, err := s.accounts.GetRates(ctx, accountID)
	if err != nil {
		return nil, storageErr("rates", err)
	}
	return s.base.Merge(overrides), nil
}

// SetRates applies a partial update: triggers not named in rates keep their
// current value.
func (s *ledgerService) SetRates(ctx context.Context, accountID string, rates domain.Rates) error {
	if err := rates.Validate(); err != nil {
		return err
	}
	if len(rates) == 0 {
		return nil
	}
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.Querier) error {
		txAccounts := repository.NewSQLiteAccountRepo(tx)
		if _, err := txAccounts.GetByID(ctx, accountID); err != nil {
			return notFoundAs(err, domain.ErrAccountNotFound)
		}
		return txAccounts.SetRates(ctx, accountID, rates, time.Now().UTC())
	})
	return storageErr("set rates", err)
}

// Stats summarises the account as of now. Day boundaries follow now's
// location.
func (s *ledgerService) Stats(ctx context.Context, accountID string, now time.Time, windowDays int) (*domain.LedgerStats, error) {
	if windowDays < 1 {
		windowDays = defaultStatsWindow
	}
	a, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	y, m, d := now.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	windowStart := dayStart.AddDate(0, 0, -(windowDays - 1))

	today, err := s.txs.SumEarned(ctx, accountID, dayStart, dayEnd)
	if err != nil {
		return nil, storageErr("stats", err)
	}
	window, err := s.txs.SumEarned(ctx, accountID, windowStart, dayEnd)
	if err != nil {
		return nil, storageErr("stats", err)
	}
	recent, err := s.txs.ListRecent(ctx, accountID, recentLimit)
	if err != nil {
		return nil, storageErr("stats", err)
	}

	from, to := domain.LastNDays(now, streakHorizon)
	evenings, err := s.entries.EveningCompletedDates(ctx, accountID, from, to)
	if err != nil {
		return nil, storageErr("stats", err)
	}

	return &domain.LedgerStats{
		Balance:       a.Balance,
		TotalEarned:   a.TotalEarned,
		TotalSpent:    a.TotalSpent,
		EarnedToday:   today,
		EarnedWindow:  window,
		WindowDays:    windowDays,
		Recent:        recent,
		EveningStreak: domain.Streak(evenings, now),
	}, nil
}

func (s *ledgerService) History(ctx context.Context, accountID string, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = recentLimit
	}
	txs, err := s.txs.ListRecent(ctx, accountID, limit)
	if err != nil {
		return nil, storageErr("history", err)
	}
	return txs, nil
}
