package points

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pointbank/pointbank-backend/internal/ledger"
	"github.com/pointbank/pointbank-backend/pkg/db/models"
	"github.com/pointbank/pointbank-backend/pkg/enums"
	pkgerrors "github.com/pointbank/pointbank-backend/pkg/errors"
	"github.com/pointbank/pointbank-backend/pkg/logger"
)

func setupPointsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL,
  email TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  password_hash TEXT NOT NULL DEFAULT '',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_via_admin INTEGER NOT NULL DEFAULT 0,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS user_profiles (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'student',
  comment TEXT NOT NULL DEFAULT '',
  is_active_student INTEGER NOT NULL DEFAULT 1,
  class_id INTEGER,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS class_masters (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS balance_accounts (
  user_id TEXT PRIMARY KEY,
  balance INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS point_transactions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL,
  points INTEGER NOT NULL,
  kind TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  balance_after INTEGER NOT NULL,
  created_at DATETIME
);`}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type pointsFixture struct {
	db  *gorm.DB
	svc Service
}

func newPointsFixture(t *testing.T) *pointsFixture {
	t.Helper()

	db := setupPointsTestDB(t)
	runner := gormTxRunner{db: db}

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(db), runner, nil)
	require.NoError(t, err)

	log := logger.New(logger.Options{ServiceName: "points-test", Output: io.Discard})
	svc, err := NewService(NewRepository(db), runner, ledgerSvc, log)
	require.NoError(t, err)

	return &pointsFixture{db: db, svc: svc}
}

func (f *pointsFixture) newStudent(t *testing.T, username string, balance int, classID *int64) uuid.UUID {
	t.Helper()

	userID := uuid.New()
	require.NoError(t, f.db.Create(&models.User{
		ID:       userID,
		Username: username,
		Email:    username + "@example.com",
		IsActive: true,
	}).Error)
	require.NoError(t, f.db.Create(&models.UserProfile{
		UserID:          userID,
		Role:            enums.RoleStudent,
		IsActiveStudent: true,
		ClassID:         classID,
	}).Error)
	require.NoError(t, f.db.Create(&models.BalanceAccount{UserID: userID, Balance: balance}).Error)
	return userID
}

func (f *pointsFixture) lastTransaction(t *testing.T, userID uuid.UUID) *models.PointTransaction {
	t.Helper()

	var txn models.PointTransaction
	require.NoError(t, f.db.Where("user_id = ?", userID).Order("id DESC").First(&txn).Error)
	return &txn
}

func errCode(err error) pkgerrors.Code {
	typed := pkgerrors.As(err)
	if typed == nil {
		return ""
	}
	return typed.Code()
}

func TestGrantPoints_SkipsUnknownUsersWithoutAborting(t *testing.T) {
	f := newPointsFixture(t)
	ctx := context.Background()

	a := f.newStudent(t, "alice", 0, nil)
	b := f.newStudent(t, "bob", 10, nil)
	ghost := uuid.New()

	result, err := f.svc.GrantPoints(ctx, GrantPointsInput{
		ActorUserID: uuid.New(),
		ActorRole:   enums.RoleTeacher,
		UserIDs:     []uuid.UUID{a, ghost, b},
		Amount:      50,
		Description: "homework reward",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Granted)
	assert.Equal(t, 1, result.Skipped)
	assert.Zero(t, result.Failed)
	require.Len(t, result.Outcomes, 3)
	assert.Equal(t, GrantStatusGranted, result.Outcomes[0].Status)
	assert.Equal(t, GrantStatusSkipped, result.Outcomes[1].Status)
	assert.Equal(t, GrantStatusGranted, result.Outcomes[2].Status)
	require.NotNil(t, result.Outcomes[2].NewBalance)
	assert.Equal(t, 60, *result.Outcomes[2].NewBalance)

	txnA := f.lastTransaction(t, a)
	assert.Equal(t, enums.TransactionKindTeacherGrant, txnA.Kind)
	assert.Equal(t, 50, txnA.Points)
	assert.Equal(t, "homework reward", txnA.Description)
}

func TestGrantPoints_AdminWritesAdminAdjust(t *testing.T) {
	f := newPointsFixture(t)
	ctx := context.Background()

	a := f.newStudent(t, "alice", 100, nil)

	result, err := f.svc.GrantPoints(ctx, GrantPointsInput{
		ActorUserID: uuid.New(),
		ActorRole:   enums.RoleAdmin,
		UserIDs:     []uuid.UUID{a},
		Amount:      -40,
		Description: "correction",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Granted)

	txn := f.lastTransaction(t, a)
	assert.Equal(t, enums.TransactionKindAdminAdjust, txn.Kind)
	assert.Equal(t, -40, txn.Points)
	assert.Equal(t, 60, txn.BalanceAfter)
}

func TestGrantPoints_DeductionCannotOverdraw(t *testing.T) {
	f := newPointsFixture(t)
	ctx := context.Background()

	a := f.newStudent(t, "alice", 30, nil)

	result, err := f.svc.GrantPoints(ctx, GrantPointsInput{
		ActorUserID: uuid.New(),
		ActorRole:   enums.RoleAdmin,
		UserIDs:     []uuid.UUID{a},
		Amount:      -31,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, GrantStatusFailed, result.Outcomes[0].Status)

	var account models.BalanceAccount
	require.NoError(t, f.db.Where("user_id = ?", a).First(&account).Error)
	assert.Equal(t, 30, account.Balance, "failed deduction must not change the balance")
}

func TestGrantPoints_Authorization(t *testing.T) {
	f := newPointsFixture(t)
	ctx := context.Background()
	a := f.newStudent(t, "alice", 0, nil)

	_, err := f.svc.GrantPoints(ctx, GrantPointsInput{
		ActorUserID: a,
		ActorRole:   enums.RoleStudent,
		UserIDs:     []uuid.UUID{a},
		Amount:      50,
	})
	assert.Equal(t, pkgerrors.CodeForbidden, errCode(err))

	_, err = f.svc.GrantPoints(ctx, GrantPointsInput{
		ActorUserID: uuid.New(),
		ActorRole:   enums.RoleTeacher,
		UserIDs:     []uuid.UUID{a},
		Amount:      0,
	})
	assert.Equal(t, pkgerrors.CodeValidation, errCode(err), "zero-amount grants are rejected")

	_, err = f.svc.GrantPoints(ctx, GrantPointsInput{
		ActorUserID: uuid.New(),
		ActorRole:   enums.RoleTeacher,
		Amount:      50,
	})
	assert.Equal(t, pkgerrors.CodeValidation, errCode(err), "empty batch is rejected")
}

func TestGetHistory_SelfOrElevated(t *testing.T) {
	f := newPointsFixture(t)
	ctx := context.Background()

	a := f.newStudent(t, "alice", 0, nil)
	b := f.newStudent(t, "bob", 0, nil)

	_, err := f.svc.GrantPoints(ctx, GrantPointsInput{
		ActorUserID: uuid.New(),
		ActorRole:   enums.RoleTeacher,
		UserIDs:     []uuid.UUID{a},
		Amount:      25,
	})
	require.NoError(t, err)

	own, err := f.svc.GetHistory(ctx, HistoryParams{
		TargetUserID: a,
		ActorUserID:  a,
		ActorRole:    enums.RoleStudent,
	})
	require.NoError(t, err)
	require.Len(t, own.Items, 1)
	assert.Equal(t, 25, own.Items[0].Points)

	_, err = f.svc.GetHistory(ctx, HistoryParams{
		TargetUserID: a,
		ActorUserID:  b,
		ActorRole:    enums.RoleStudent,
	})
	assert.Equal(t, pkgerrors.CodeForbidden, errCode(err))

	elevated, err := f.svc.GetHistory(ctx, HistoryParams{
		TargetUserID: a,
		ActorUserID:  b,
		ActorRole:    enums.RoleTeacher,
	})
	require.NoError(t, err)
	assert.Len(t, elevated.Items, 1)
}

func TestGetAllHistory_ElevatedOnly(t *testing.T) {
	f := newPointsFixture(t)
	ctx := context.Background()

	a := f.newStudent(t, "alice", 0, nil)
	b := f.newStudent(t, "bob", 0, nil)
	_, err := f.svc.GrantPoints(ctx, GrantPointsInput{
		ActorUserID: uuid.New(),
		ActorRole:   enums.RoleTeacher,
		UserIDs:     []uuid.UUID{a, b},
		Amount:      10,
	})
	require.NoError(t, err)

	_, err = f.svc.GetAllHistory(ctx, HistoryParams{
		ActorUserID: a,
		ActorRole:   enums.RoleStudent,
	})
	assert.Equal(t, pkgerrors.CodeForbidden, errCode(err))

	all, err := f.svc.GetAllHistory(ctx, HistoryParams{
		ActorUserID: uuid.New(),
		ActorRole:   enums.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)
}

func TestStudentRoster_Scopes(t *testing.T) {
	f := newPointsFixture(t)
	ctx := context.Background()

	class := &models.ClassMaster{Name: "3-A"}
	require.NoError(t, f.db.Create(class).Error)

	f.newStudent(t, "alice", 120, &class.ID)
	f.newStudent(t, "bob", 80, nil)

	all, err := f.svc.StudentRoster(ctx, RosterParams{ActorRole: enums.RoleTeacher, Scope: RosterScopeAll})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alice", all[0].Username)
	assert.Equal(t, 120, all[0].Balance)
	assert.Equal(t, "3-A", all[0].ClassName)

	unassigned, err := f.svc.StudentRoster(ctx, RosterParams{ActorRole: enums.RoleAdmin, Scope: RosterScopeUnassigned})
	require.NoError(t, err)
	require.Len(t, unassigned, 1)
	assert.Equal(t, "bob", unassigned[0].Username)

	inClass, err := f.svc.StudentRoster(ctx, RosterParams{
		ActorRole: enums.RoleTeacher,
		Scope:     RosterScopeClass,
		ClassID:   class.ID,
	})
	require.NoError(t, err)
	require.Len(t, inClass, 1)
	assert.Equal(t, "alice", inClass[0].Username)

	_, err = f.svc.StudentRoster(ctx, RosterParams{ActorRole: enums.RoleStudent})
	assert.Equal(t, pkgerrors.CodeForbidden, errCode(err))
}
