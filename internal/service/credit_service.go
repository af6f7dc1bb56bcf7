package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"calevid/internal/domain"
	"calevid/internal/models"
	"calevid/internal/repository"
	"calevid/pkg/credit"

	"gorm.io/gorm"
)

// errRaceLost aborts the transaction so the losing writer's balance
// increment is rolled back before reporting already-processed.
var errRaceLost = errors.New("ledger entry created concurrently")

// CreditService is the credit ledger applier: it adds a credit delta to a
// user's balance at most once per payment reference. A reference moves from
// unseen to applied exactly once; every later call is a no-op that reports
// the applied state. Implements credit.Applier.
type CreditService struct {
	db         *gorm.DB
	userRepo   *repository.UserRepository
	ledgerRepo *repository.LedgerRepository
	intentRepo *repository.IntentRepository
	locks      refLocks
}

func NewCreditService(db *gorm.DB, userRepo *repository.UserRepository, ledgerRepo *repository.LedgerRepository, intentRepo *repository.IntentRepository) *CreditService {
	return &CreditService{
		db:         db,
		userRepo:   userRepo,
		ledgerRepo: ledgerRepo,
		intentRepo: intentRepo,
		locks:      refLocks{held: make(map[string]*refLock)},
	}
}

// Apply credits a user for a payment reference. Safe under concurrent and
// duplicate invocation: callers for the same reference are serialized by a
// per-reference lock, and the unique index on the ledger reference backstops
// writers on other instances sharing the database.
func (s *CreditService) Apply(ctx context.Context, reference, email string, credits int64) (*credit.Result, error) {
	if reference == "" {
		return nil, credit.ErrInvalidReference
	}
	if credits <= 0 {
		return nil, credit.ErrInvalidAmount
	}

	unlock := s.locks.lock(reference)
	defer unlock()

	if res, ok, err := s.lookupApplied(reference); err != nil {
		return nil, err
	} else if ok {
		return res, nil
	}

	var newBalance int64
	var appliedTo uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.userRepo.WithTx(tx)
		ledger := s.ledgerRepo.WithTx(tx)
		intents := s.intentRepo.WithTx(tx)

		if _, err := ledger.GetByReference(reference); err == nil {
			return errRaceLost
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		u, err := users.GetByEmail(email)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return credit.ErrNotFound
			}
			return err
		}
		appliedTo = u.ID

		if err := users.AddCredits(u.ID, credits); err != nil {
			return err
		}
		if err := ledger.Create(&models.CreditLedgerEntry{
			Reference:      reference,
			UserID:         u.ID,
			CreditsApplied: credits,
			AppliedAt:      time.Now(),
		}); err != nil {
			// The insert hit the unique index: a concurrent writer on
			// another instance got there first.
			if _, lookupErr := ledger.GetByReference(reference); lookupErr == nil {
				return errRaceLost
			}
			return err
		}

		if err := s.consumeIntent(users, intents, u.ID); err != nil {
			return err
		}

		fresh, err := users.GetByID(u.ID)
		if err != nil {
			return err
		}
		newBalance = fresh.Credits
		return nil
	})
	if err != nil {
		// A lost race (in-process or via the unique index from another
		// instance) surfaces here after rollback; report the winner's
		// applied state instead of an error.
		if res, ok, lookupErr := s.lookupApplied(reference); lookupErr == nil && ok {
			return res, nil
		}
		return nil, err
	}

	log.Printf("[credits] applied %d to user %d for reference %s (balance %d)", credits, appliedTo, reference, newBalance)
	return &credit.Result{
		Reference:      reference,
		CreditsApplied: credits,
		NewBalance:     newBalance,
	}, nil
}

// lookupApplied returns the already-processed result for a reference that
// has a ledger entry.
func (s *CreditService) lookupApplied(reference string) (*credit.Result, bool, error) {
	entry, err := s.ledgerRepo.GetByReference(reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	// A missing user row (account since deleted) leaves the balance at
	// zero; any other read failure must not masquerade as a real balance.
	var balance int64
	u, err := s.userRepo.GetByID(entry.UserID)
	switch {
	case err == nil:
		balance = u.Credits
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, err
	}
	return &credit.Result{
		Reference:        reference,
		CreditsApplied:   entry.CreditsApplied,
		NewBalance:       balance,
		AlreadyProcessed: true,
	}, true, nil
}

// consumeIntent applies plan-tier side effects from a pending purchase
// intent and deletes it. A missing intent is the normal case for plain
// credit top-ups.
func (s *CreditService) consumeIntent(users *repository.UserRepository, intents *repository.IntentRepository, userID uint) error {
	intent, err := intents.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if limit, ok := domain.PlanLimits[intent.Plan]; ok {
		if err := users.SetPlan(userID, intent.Plan, limit, time.Now()); err != nil {
			return err
		}
	}
	return intents.DeleteByUserID(userID)
}

// refLocks serializes appliers working on the same payment reference within
// this process. Entries are reference-counted and removed once idle.
type refLocks struct {
	mu   sync.Mutex
	held map[string]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

func (l *refLocks) lock(key string) (unlock func()) {
	l.mu.Lock()
	entry, ok := l.held[key]
	if !ok {
		entry = &refLock{}
		l.held[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.held, key)
		}
		l.mu.Unlock()
	}
}
