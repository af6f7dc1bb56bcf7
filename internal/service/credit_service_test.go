package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"calevid/internal/domain"
	"calevid/internal/models"
	"calevid/pkg/credit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyCreditsFirstTime(t *testing.T) {
	svc, db := newTestCreditService(t)
	createUser(t, db, "a@b.com")

	res, err := svc.Apply(context.Background(), "R1", "a@b.com", 3)
	require.NoError(t, err)
	assert.False(t, res.AlreadyProcessed)
	assert.Equal(t, int64(3), res.CreditsApplied)
	assert.Equal(t, int64(3), res.NewBalance)

	var entry models.CreditLedgerEntry
	require.NoError(t, db.Where("reference = ?", "R1").First(&entry).Error)
	assert.Equal(t, int64(3), entry.CreditsApplied)
}

func TestApplyCreditsIdempotent(t *testing.T) {
	svc, db := newTestCreditService(t)
	createUser(t, db, "a@b.com")

	first, err := svc.Apply(context.Background(), "R1", "a@b.com", 3)
	require.NoError(t, err)
	require.False(t, first.AlreadyProcessed)

	var entry models.CreditLedgerEntry
	require.NoError(t, db.Where("reference = ?", "R1").First(&entry).Error)
	appliedAt := entry.AppliedAt

	second, err := svc.Apply(context.Background(), "R1", "a@b.com", 3)
	require.NoError(t, err)
	assert.True(t, second.AlreadyProcessed)
	assert.Equal(t, int64(3), second.NewBalance)

	var u models.User
	require.NoError(t, db.Where("email = ?", "a@b.com").First(&u).Error)
	assert.Equal(t, int64(3), u.Credits)

	var count int64
	require.NoError(t, db.Model(&models.CreditLedgerEntry{}).Where("reference = ?", "R1").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// The fence row is never touched again.
	require.NoError(t, db.Where("reference = ?", "R1").First(&entry).Error)
	assert.True(t, entry.AppliedAt.Equal(appliedAt))
}

func TestApplyCreditsConcurrent(t *testing.T) {
	svc, db := newTestCreditService(t)
	createUser(t, db, "a@b.com")

	const n = 8
	results := make([]*credit.Result, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Apply(context.Background(), "R1", "a@b.com", 3)
		}(i)
	}
	wg.Wait()

	applied := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		if !results[i].AlreadyProcessed {
			applied++
		}
	}
	assert.Equal(t, 1, applied, "exactly one caller should win")

	var u models.User
	require.NoError(t, db.Where("email = ?", "a@b.com").First(&u).Error)
	assert.Equal(t, int64(3), u.Credits)

	var count int64
	require.NoError(t, db.Model(&models.CreditLedgerEntry{}).Where("reference = ?", "R1").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestApplyCreditsReplayAfterUserDeleted(t *testing.T) {
	svc, db := newTestCreditService(t)
	u := createUser(t, db, "a@b.com")

	_, err := svc.Apply(context.Background(), "R1", "a@b.com", 2)
	require.NoError(t, err)
	require.NoError(t, db.Delete(&models.User{}, u.ID).Error)

	res, err := svc.Apply(context.Background(), "R1", "a@b.com", 2)
	require.NoError(t, err)
	assert.True(t, res.AlreadyProcessed)
	assert.Equal(t, int64(2), res.CreditsApplied)
	assert.Zero(t, res.NewBalance, "deleted account has no balance to report")
}

func TestApplyCreditsDistinctReferencesAccumulate(t *testing.T) {
	svc, db := newTestCreditService(t)
	createUser(t, db, "a@b.com")

	_, err := svc.Apply(context.Background(), "R1", "a@b.com", 2)
	require.NoError(t, err)
	res, err := svc.Apply(context.Background(), "R2", "a@b.com", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.NewBalance)

	var u models.User
	require.NoError(t, db.Where("email = ?", "a@b.com").First(&u).Error)
	assert.Equal(t, int64(7), u.Credits)
}

func TestApplyCreditsValidation(t *testing.T) {
	svc, _ := newTestCreditService(t)

	_, err := svc.Apply(context.Background(), "", "a@b.com", 3)
	assert.ErrorIs(t, err, credit.ErrInvalidReference)

	_, err = svc.Apply(context.Background(), "R1", "a@b.com", 0)
	assert.ErrorIs(t, err, credit.ErrInvalidAmount)

	_, err = svc.Apply(context.Background(), "R1", "a@b.com", -4)
	assert.ErrorIs(t, err, credit.ErrInvalidAmount)
}

func TestApplyCreditsUnknownUser(t *testing.T) {
	svc, db := newTestCreditService(t)

	_, err := svc.Apply(context.Background(), "R1", "nobody@b.com", 3)
	assert.ErrorIs(t, err, credit.ErrNotFound)

	var count int64
	require.NoError(t, db.Model(&models.CreditLedgerEntry{}).Count(&count).Error)
	assert.Zero(t, count, "failed apply must not leave a ledger entry")
}

func TestApplyCreditsConsumesPlanIntent(t *testing.T) {
	svc, db := newTestCreditService(t)
	u := createUser(t, db, "a@b.com")
	require.NoError(t, db.Create(&models.PurchaseIntent{UserID: u.ID, Plan: domain.PlanPro}).Error)

	before := time.Now().Add(-time.Second)
	_, err := svc.Apply(context.Background(), "R1", "a@b.com", 10)
	require.NoError(t, err)

	var fresh models.User
	require.NoError(t, db.First(&fresh, u.ID).Error)
	assert.Equal(t, domain.PlanPro, fresh.Plan)
	assert.Equal(t, 50, fresh.PlanLimit)
	assert.Zero(t, fresh.PlanUsed)
	require.NotNil(t, fresh.PlanStart)
	assert.True(t, fresh.PlanStart.After(before))

	var count int64
	require.NoError(t, db.Model(&models.PurchaseIntent{}).Where("user_id = ?", u.ID).Count(&count).Error)
	assert.Zero(t, count, "intent must be consumed")
}

func TestApplyCreditsIgnoresCreditOnlyIntent(t *testing.T) {
	svc, db := newTestCreditService(t)
	u := createUser(t, db, "a@b.com")
	require.NoError(t, db.Create(&models.PurchaseIntent{UserID: u.ID, Credits: 5}).Error)

	_, err := svc.Apply(context.Background(), "R1", "a@b.com", 5)
	require.NoError(t, err)

	var fresh models.User
	require.NoError(t, db.First(&fresh, u.ID).Error)
	assert.Empty(t, fresh.Plan)

	var count int64
	require.NoError(t, db.Model(&models.PurchaseIntent{}).Where("user_id = ?", u.ID).Count(&count).Error)
	assert.Zero(t, count, "intent is consumed even without a plan")
}
