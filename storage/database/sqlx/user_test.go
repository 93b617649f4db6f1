package sqlxrepos

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/ripoti/core/user"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

// New accounts have a zero LastLogin; the insert must leave the column
// to its default instead of binding an explicit NULL, which would bypass
// the default and violate the NOT NULL constraint.
func Test_userRepository_CreateUser_leavesLastLoginToDefault(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`INSERT INTO users \(id, name, email, department, role, admin_request, password_hash, is_active, created_at, updated_at\) VALUES`).
		WithArgs(
			sqlmock.AnyArg(), "Awe", "awe@test.cd", user.DefaultDepartment, user.RoleUser, user.AdminRequestNone,
			[]byte("hash"), true, sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	now := time.Now().UTC()
	usr, err := repo.CreateUser(user.User{
		Name:         "Awe",
		Email:        "awe@test.cd",
		Department:   user.DefaultDepartment,
		Role:         user.RoleUser,
		AdminRequest: user.AdminRequestNone,
		PasswordHash: []byte("hash"),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	if usr.ID == "" {
		t.Error("CreateUser() did not assign an ID")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
