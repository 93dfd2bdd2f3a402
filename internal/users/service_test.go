package users

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pointbank/pointbank-backend/internal/ledger"
	"github.com/pointbank/pointbank-backend/pkg/config"
	"github.com/pointbank/pointbank-backend/pkg/db/models"
	"github.com/pointbank/pointbank-backend/pkg/enums"
	pkgerrors "github.com/pointbank/pointbank-backend/pkg/errors"
	"github.com/pointbank/pointbank-backend/pkg/security"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL UNIQUE,
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
  user_id TEXT NOT NULL UNIQUE,
  role TEXT NOT NULL DEFAULT 'student',
  comment TEXT NOT NULL DEFAULT '',
  is_active_student INTEGER NOT NULL DEFAULT 1,
  class_id INTEGER,
  created_at DATETIME,
  updated_at DATETIME
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
);`, `
CREATE TABLE IF NOT EXISTS deleted_user_logs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL,
  username TEXT NOT NULL,
  email TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  deleted_by TEXT,
  deleted_at DATETIME
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

// testPasswordCfg keeps Argon2 cheap so the suite stays fast.
func testPasswordCfg() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      16,
	}
}

type usersFixture struct {
	db  *gorm.DB
	svc Service
}

func newUsersFixture(t *testing.T) *usersFixture {
	t.Helper()

	db := setupUsersTestDB(t)
	runner := gormTxRunner{db: db}

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(db), runner, nil)
	require.NoError(t, err)

	svc, err := NewService(runner, ledgerSvc, testPasswordCfg())
	require.NoError(t, err)

	return &usersFixture{db: db, svc: svc}
}

func errCode(err error) pkgerrors.Code {
	typed := pkgerrors.As(err)
	if typed == nil {
		return ""
	}
	return typed.Code()
}

func TestRegister_ProvisionsProfileAndAccount(t *testing.T) {
	f := newUsersFixture(t)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, RegisterInput{
		Username: "  alice  ",
		Email:    "Alice@Example.com",
		Name:     "Alice",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.True(t, user.IsActive)

	ok, err := security.VerifyPassword("correct horse", user.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	var profile models.UserProfile
	require.NoError(t, f.db.Where("user_id = ?", user.ID).First(&profile).Error)
	assert.Equal(t, enums.RoleStudent, profile.Role)
	assert.True(t, profile.IsActiveStudent)

	var account models.BalanceAccount
	require.NoError(t, f.db.Where("user_id = ?", user.ID).First(&account).Error)
	assert.Equal(t, 0, account.Balance)
}

func TestRegister_Validation(t *testing.T) {
	f := newUsersFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input RegisterInput
	}{
		{"missing username", RegisterInput{Email: "a@b.test", Password: "longenough"}},
		{"missing email", RegisterInput{Username: "a", Password: "longenough"}},
		{"short password", RegisterInput{Username: "a", Email: "a@b.test", Password: "short"}},
		{"bad role", RegisterInput{Username: "a", Email: "a@b.test", Password: "longenough", Role: enums.Role("principal")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Register(ctx, tc.input)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, errCode(err))
		})
	}
}

func TestRegister_RejectsDuplicates(t *testing.T) {
	f := newUsersFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "longenough"})
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, RegisterInput{Username: "alice", Email: "other@example.com", Password: "longenough"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, errCode(err))

	_, err = f.svc.Register(ctx, RegisterInput{Username: "other", Email: "ALICE@example.com", Password: "longenough"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, errCode(err))

	var count int64
	require.NoError(t, f.db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRegister_TeacherRoleSkipsStudentFlag(t *testing.T) {
	f := newUsersFixture(t)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, RegisterInput{
		Username:        "smith",
		Email:           "smith@example.com",
		Password:        "longenough",
		Role:            enums.RoleTeacher,
		CreatedViaAdmin: true,
	})
	require.NoError(t, err)
	assert.True(t, user.CreatedViaAdmin)

	var profile models.UserProfile
	require.NoError(t, f.db.Where("user_id = ?", user.ID).First(&profile).Error)
	assert.Equal(t, enums.RoleTeacher, profile.Role)
	assert.False(t, profile.IsActiveStudent)
}

func TestGetUser(t *testing.T) {
	f := newUsersFixture(t)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "longenough"})
	require.NoError(t, err)

	resp, err := f.svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, enums.RoleStudent, resp.Role)

	_, err = f.svc.GetUser(ctx, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, errCode(err))
}

func TestDeleteUser_WritesAuditLogAndKeepsHistory(t *testing.T) {
	f := newUsersFixture(t)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Name: "Alice", Password: "longenough"})
	require.NoError(t, err)

	// Seed a transaction so we can prove history survives deletion.
	require.NoError(t, f.db.Create(&models.PointTransaction{
		UserID:       user.ID,
		Points:       50,
		Kind:         enums.TransactionKindTeacherGrant,
		BalanceAfter: 50,
	}).Error)

	adminID := uuid.New()
	require.NoError(t, f.svc.DeleteUser(ctx, DeleteInput{
		ActorUserID:  adminID,
		ActorRole:    enums.RoleAdmin,
		TargetUserID: user.ID,
	}))

	var userCount, profileCount, accountCount, txnCount int64
	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", user.ID).Count(&userCount).Error)
	require.NoError(t, f.db.Model(&models.UserProfile{}).Where("user_id = ?", user.ID).Count(&profileCount).Error)
	require.NoError(t, f.db.Model(&models.BalanceAccount{}).Where("user_id = ?", user.ID).Count(&accountCount).Error)
	require.NoError(t, f.db.Model(&models.PointTransaction{}).Where("user_id = ?", user.ID).Count(&txnCount).Error)
	assert.Zero(t, userCount)
	assert.Zero(t, profileCount)
	assert.Zero(t, accountCount)
	assert.EqualValues(t, 1, txnCount)

	var log models.DeletedUserLog
	require.NoError(t, f.db.Where("user_id = ?", user.ID).First(&log).Error)
	assert.Equal(t, "alice", log.Username)
	require.NotNil(t, log.DeletedBy)
	assert.Equal(t, adminID, *log.DeletedBy)
}

func TestDeleteUser_Authorization(t *testing.T) {
	f := newUsersFixture(t)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "longenough"})
	require.NoError(t, err)

	err = f.svc.DeleteUser(ctx, DeleteInput{ActorUserID: uuid.New(), ActorRole: enums.RoleTeacher, TargetUserID: user.ID})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, errCode(err))

	adminID := uuid.New()
	err = f.svc.DeleteUser(ctx, DeleteInput{ActorUserID: adminID, ActorRole: enums.RoleAdmin, TargetUserID: adminID})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, errCode(err))

	err = f.svc.DeleteUser(ctx, DeleteInput{ActorUserID: adminID, ActorRole: enums.RoleAdmin, TargetUserID: uuid.New()})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, errCode(err))
}
