package classes

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pointbank/pointbank-backend/pkg/db/models"
	"github.com/pointbank/pointbank-backend/pkg/enums"
	pkgerrors "github.com/pointbank/pointbank-backend/pkg/errors"
)

func setupClassesTestDB(t *testing.T) *gorm.DB {
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
  name TEXT NOT NULL UNIQUE,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS balance_accounts (
  user_id TEXT PRIMARY KEY,
  balance INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
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

type classesFixture struct {
	db  *gorm.DB
	svc Service
}

func newClassesFixture(t *testing.T) *classesFixture {
	t.Helper()

	db := setupClassesTestDB(t)
	svc, err := NewService(NewRepository(db), gormTxRunner{db: db})
	require.NoError(t, err)
	return &classesFixture{db: db, svc: svc}
}

func (f *classesFixture) newStudent(t *testing.T, username string, balance int, classID *int64) uuid.UUID {
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

func errCode(err error) pkgerrors.Code {
	typed := pkgerrors.As(err)
	if typed == nil {
		return ""
	}
	return typed.Code()
}

func TestCreateClass(t *testing.T) {
	f := newClassesFixture(t)
	ctx := context.Background()

	class, err := f.svc.CreateClass(ctx, enums.RoleTeacher, " 3-A ")
	require.NoError(t, err)
	assert.Equal(t, "3-A", class.Name)

	_, err = f.svc.CreateClass(ctx, enums.RoleTeacher, "3-A")
	assert.Equal(t, pkgerrors.CodeConflict, errCode(err), "class names are unique")

	_, err = f.svc.CreateClass(ctx, enums.RoleStudent, "3-B")
	assert.Equal(t, pkgerrors.CodeForbidden, errCode(err))

	_, err = f.svc.CreateClass(ctx, enums.RoleAdmin, "  ")
	assert.Equal(t, pkgerrors.CodeValidation, errCode(err))
}

func TestAssignStudents(t *testing.T) {
	f := newClassesFixture(t)
	ctx := context.Background()

	class, err := f.svc.CreateClass(ctx, enums.RoleTeacher, "3-A")
	require.NoError(t, err)

	alice := f.newStudent(t, "alice", 0, nil)
	bob := f.newStudent(t, "bob", 0, nil)

	updated, err := f.svc.AssignStudents(ctx, AssignInput{
		ActorRole: enums.RoleTeacher,
		UserIDs:   []uuid.UUID{alice, bob, uuid.New()},
		ClassID:   &class.ID,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated, "unknown ids do not count")

	var profile models.UserProfile
	require.NoError(t, f.db.Where("user_id = ?", alice).First(&profile).Error)
	require.NotNil(t, profile.ClassID)
	assert.Equal(t, class.ID, *profile.ClassID)

	// unassign
	updated, err = f.svc.AssignStudents(ctx, AssignInput{
		ActorRole: enums.RoleAdmin,
		UserIDs:   []uuid.UUID{alice},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, updated)

	require.NoError(t, f.db.Where("user_id = ?", alice).First(&profile).Error)
	assert.Nil(t, profile.ClassID)

	_, err = f.svc.AssignStudents(ctx, AssignInput{
		ActorRole: enums.RoleTeacher,
		UserIDs:   []uuid.UUID{alice},
		ClassID:   func() *int64 { id := int64(999); return &id }(),
	})
	assert.Equal(t, pkgerrors.CodeNotFound, errCode(err))
}

func TestDeleteClass_UnassignsMembers(t *testing.T) {
	f := newClassesFixture(t)
	ctx := context.Background()

	class, err := f.svc.CreateClass(ctx, enums.RoleTeacher, "3-A")
	require.NoError(t, err)
	alice := f.newStudent(t, "alice", 0, &class.ID)

	require.NoError(t, f.svc.DeleteClass(ctx, enums.RoleAdmin, class.ID))

	var profile models.UserProfile
	require.NoError(t, f.db.Where("user_id = ?", alice).First(&profile).Error)
	assert.Nil(t, profile.ClassID, "members are unassigned when the class goes away")

	classes, err := f.svc.ListClasses(ctx, enums.RoleTeacher)
	require.NoError(t, err)
	assert.Empty(t, classes)

	assert.Equal(t, pkgerrors.CodeNotFound, errCode(f.svc.DeleteClass(ctx, enums.RoleAdmin, class.ID)))
}

func TestRanking_OrdersByBalanceWithTies(t *testing.T) {
	f := newClassesFixture(t)
	ctx := context.Background()

	class, err := f.svc.CreateClass(ctx, enums.RoleTeacher, "3-A")
	require.NoError(t, err)

	f.newStudent(t, "alice", 120, &class.ID)
	f.newStudent(t, "bob", 200, &class.ID)
	f.newStudent(t, "carol", 120, &class.ID)
	f.newStudent(t, "dave", 50, nil) // not in the class

	ranked, err := f.svc.Ranking(ctx, enums.RoleTeacher, class.ID)
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	assert.Equal(t, "bob", ranked[0].Username)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, "alice", ranked[1].Username)
	assert.Equal(t, 2, ranked[1].Rank)
	assert.Equal(t, "carol", ranked[2].Username)
	assert.Equal(t, 2, ranked[2].Rank, "equal balances share a rank")

	_, err = f.svc.Ranking(ctx, enums.RoleStudent, class.ID)
	assert.Equal(t, pkgerrors.CodeForbidden, errCode(err))
}
