package sqlxrepos

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ripoti/core/notification"
	"github.com/trezcool/ripoti/core/user"
)

const (
	userInsertColumns = `id, name, email, department, role, admin_request, password_hash, is_active, created_at, updated_at`
	userColumns       = userInsertColumns + `, last_login`
)

type dbUser struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	Department   string    `db:"department"`
	Role         string    `db:"role"`
	AdminRequest string    `db:"admin_request"`
	PasswordHash []byte    `db:"password_hash"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

func (du dbUser) toUser() user.User {
	return user.User{
		ID:           du.ID,
		Name:         du.Name,
		Email:        du.Email,
		Department:   du.Department,
		Role:         du.Role,
		AdminRequest: du.AdminRequest,
		PasswordHash: du.PasswordHash,
		IsActive:     du.IsActive,
		CreatedAt:    du.CreatedAt,
		UpdatedAt:    du.UpdatedAt,
		LastLogin:    du.LastLogin.Time,
	}
}

func toUsers(dbUsers []dbUser) []user.User {
	users := make([]user.User, 0, len(dbUsers))
	for _, du := range dbUsers {
		users = append(users, du.toUser())
	}
	return users
}

type userRepository struct {
	db *sqlx.DB
}

var (
	_ user.Repository        = (*userRepository)(nil) // interface compliance check
	_ notification.Directory = (*userRepository)(nil)
)

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(email string, excludedUsers ...user.User) error {
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		query, args, err := sqlx.In(`SELECT COUNT(*) FROM users WHERE email = ? AND id NOT IN (?)`, email, ids)
		if err != nil {
			return errors.Wrap(err, "building query")
		}
		return repo.checkCount(repo.db.Rebind(query), args...)
	}
	return repo.checkCount(`SELECT COUNT(*) FROM users WHERE email = $1`, email)
}

func (repo *userRepository) checkCount(query string, args ...interface{}) error {
	var count int
	if err := repo.db.Get(&count, query, args...); err != nil {
		return err
	}
	if count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

// CreateUser leaves last_login to its column default; it is only ever
// set by a successful login.
func (repo *userRepository) CreateUser(usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	_, err := repo.db.Exec(
		`INSERT INTO users (`+userInsertColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		usr.ID, usr.Name, usr.Email, usr.Department, usr.Role, usr.AdminRequest,
		usr.PasswordHash, usr.IsActive, usr.CreatedAt, usr.UpdatedAt,
	)
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) QueryAllUsers() ([]user.User, error) {
	var dbUsers []dbUser
	if err := repo.db.Select(&dbUsers, `SELECT `+userColumns+` FROM users`); err != nil {
		return nil, err
	}
	return toUsers(dbUsers), nil
}

func (repo *userRepository) GetUserByID(id string) (user.User, error) {
	var du dbUser
	if err := repo.db.Get(&du, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return du.toUser(), nil
}

func (repo *userRepository) GetUserByEmail(email string) (user.User, error) {
	var du dbUser
	if err := repo.db.Get(&du, `SELECT `+userColumns+` FROM users WHERE email = $1`, email); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return du.toUser(), nil
}

func (repo *userRepository) FilterUsers(filter user.QueryFilter) ([]user.User, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + strings.ToLower(filter.Search) + "%")
		conds = append(conds, fmt.Sprintf("(LOWER(name) LIKE %s OR LOWER(email) LIKE %s)", p, p))
	}
	if len(filter.Roles) > 0 {
		placeholders := make([]string, 0, len(filter.Roles))
		for _, r := range filter.Roles {
			placeholders = append(placeholders, arg(r))
		}
		conds = append(conds, fmt.Sprintf("role IN (%s)", strings.Join(placeholders, ", ")))
	}
	if filter.IsActive != nil {
		conds = append(conds, fmt.Sprintf("is_active = %s", arg(*filter.IsActive)))
	}
	if !filter.CreatedFrom.IsZero() {
		conds = append(conds, fmt.Sprintf("created_at >= %s", arg(filter.CreatedFrom.UTC())))
	}
	if !filter.CreatedTo.IsZero() {
		conds = append(conds, fmt.Sprintf("created_at <= %s", arg(filter.CreatedTo.UTC())))
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}

	var dbUsers []dbUser
	if err := repo.db.Select(&dbUsers, query, args...); err != nil {
		return nil, err
	}
	return toUsers(dbUsers), nil
}

func (repo *userRepository) QueryPendingAdminRequests() ([]user.User, error) {
	var dbUsers []dbUser
	err := repo.db.Select(&dbUsers,
		`SELECT `+userColumns+` FROM users WHERE admin_request = $1`, user.AdminRequestPending)
	if err != nil {
		return nil, err
	}
	return toUsers(dbUsers), nil
}

func (repo *userRepository) UpdateUser(usr user.User, isActive *bool) (user.User, error) {
	var (
		sets []string
		args []interface{}
	)
	set := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	// only save set fields
	if usr.Name != "" {
		set("name", usr.Name)
	}
	if usr.Email != "" {
		set("email", usr.Email)
	}
	if usr.Department != "" {
		set("department", usr.Department)
	}
	if usr.Role != "" {
		set("role", usr.Role)
	}
	if usr.AdminRequest != "" {
		set("admin_request", usr.AdminRequest)
	}
	if usr.PasswordHash != nil {
		set("password_hash", usr.PasswordHash)
	}
	if !usr.LastLogin.IsZero() {
		set("last_login", usr.LastLogin)
	}
	if isActive != nil {
		set("is_active", *isActive)
	}
	if usr.UpdatedAt.IsZero() {
		usr.UpdatedAt = time.Now().UTC()
	}
	set("updated_at", usr.UpdatedAt)

	args = append(args, usr.ID)
	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $%d RETURNING `+userColumns,
		strings.Join(sets, ", "), len(args),
	)

	var du dbUser
	if err := repo.db.Get(&du, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return du.toUser(), nil
}

// DemoteSuperadmin locks the superadmin rows, verifies more than one
// remains and writes the new role, all in one transaction; concurrent
// demotions serialize on the row locks so the count can never reach zero.
func (repo *userRepository) DemoteSuperadmin(id, newRole string) (user.User, error) {
	tx, err := repo.db.Beginx()
	if err != nil {
		return user.User{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	var ids []string
	if err := tx.Select(&ids, `SELECT id FROM users WHERE role = $1 FOR UPDATE`, user.RoleSuperadmin); err != nil {
		return user.User{}, err
	}

	var isTarget bool
	for _, sid := range ids {
		if sid == id {
			isTarget = true
			break
		}
	}
	if !isTarget {
		return user.User{}, user.ErrNotFound
	}
	if len(ids) <= 1 {
		return user.User{}, user.ErrLastSuperadmin
	}

	var du dbUser
	err = tx.Get(&du,
		`UPDATE users SET role = $2, updated_at = $3 WHERE id = $1 RETURNING `+userColumns,
		id, newRole, time.Now().UTC(),
	)
	if err != nil {
		return user.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return user.User{}, err
	}
	return du.toUser(), nil
}

func (repo *userRepository) DeleteUsersByID(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = repo.db.Exec(repo.db.Rebind(query), args...)
	return err
}

// notification.Directory implementation

func (repo *userRepository) QueryUserIDsByRole(roles []string, department string) ([]string, error) {
	query := `SELECT id FROM users WHERE role IN (?)`
	args := []interface{}{roles}
	if department != "" {
		query += ` AND department = ?`
		args = append(args, department)
	}
	query, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var ids []string
	if err := repo.db.Select(&ids, repo.db.Rebind(query), inArgs...); err != nil {
		return nil, err
	}
	return ids, nil
}

func (repo *userRepository) QueryAllUserIDs() ([]string, error) {
	var ids []string
	if err := repo.db.Select(&ids, `SELECT id FROM users`); err != nil {
		return nil, err
	}
	return ids, nil
}
