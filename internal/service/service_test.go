package service

import (
	"fmt"
	"sync/atomic"
	"testing"

	"calevid/internal/database"
	"calevid/internal/models"
	"calevid/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc%d?mode=memory&cache=shared", testDBSeq.Add(1))
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

func newTestCreditService(t *testing.T) (*CreditService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc := NewCreditService(db,
		repository.NewUserRepository(db),
		repository.NewLedgerRepository(db),
		repository.NewIntentRepository(db),
	)
	return svc, db
}

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email}
	require.NoError(t, db.Create(u).Error)
	return u
}
