package handler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"calevid/internal/database"
	"calevid/internal/models"
	"calevid/internal/repository"
	"calevid/internal/service"
	"calevid/pkg/credit"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testDBSeq atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handler%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func newCreditService(t *testing.T, db *gorm.DB) *service.CreditService {
	t.Helper()
	return service.NewCreditService(db,
		repository.NewUserRepository(db),
		repository.NewLedgerRepository(db),
		repository.NewIntentRepository(db),
	)
}

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email}
	require.NoError(t, db.Create(u).Error)
	return u
}

// recordingApplier captures applier calls for assertions on the webhook's
// amount-to-credit conversion.
type recordingApplier struct {
	mu    sync.Mutex
	calls []applierCall
}

type applierCall struct {
	Reference string
	Email     string
	Credits   int64
}

func (r *recordingApplier) Apply(ctx context.Context, reference, email string, credits int64) (*credit.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, applierCall{Reference: reference, Email: email, Credits: credits})
	return &credit.Result{Reference: reference, CreditsApplied: credits, NewBalance: credits}, nil
}

func (r *recordingApplier) Calls() []applierCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]applierCall, len(r.calls))
	copy(out, r.calls)
	return out
}
