package user_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ripoti/core"
	"github.com/trezcool/ripoti/core/notification"
	"github.com/trezcool/ripoti/core/user"
	emailsvc "github.com/trezcool/ripoti/services/email"
	dummydb "github.com/trezcool/ripoti/storage/database/dummy"
)

func setup(t *testing.T) (user.Service, notification.Service) {
	t.Helper()

	db, err := dummydb.Open()
	require.NoError(t, err)

	conf := core.NewTestConfig()
	usrRepo := dummydb.NewUserRepository(db)
	notifSvc := notification.NewService(dummydb.NewNotificationRepository(db), usrRepo, core.NopLogger{})
	usrSvc := user.NewService(conf, usrRepo, notifSvc, emailsvc.NewConsoleService(conf))

	emailsvc.ClearSentMessages()
	return usrSvc, notifSvc
}

func createUser(t *testing.T, svc user.Service, name string) user.User {
	t.Helper()
	usr, err := svc.Register(user.NewUser{
		Name:            name,
		Email:           fmt.Sprintf("%s@test.cd", name),
		Password:        "LeMondeEstMechant",
		PasswordConfirm: "LeMondeEstMechant",
	})
	require.NoError(t, err)
	return usr
}

func createSuperadmin(t *testing.T, svc user.Service, name string) user.User {
	t.Helper()
	usr, err := svc.CreateSuperadmin(name, fmt.Sprintf("%s@test.cd", name), "LeMondeEstMechant")
	require.NoError(t, err)
	return usr
}

func TestService_Register(t *testing.T) {
	svc, _ := setup(t)

	usr, err := svc.Register(user.NewUser{
		Name:            "Hero",
		Email:           "hero@test.cd",
		Password:        "LeMondeEstMechant",
		PasswordConfirm: "LeMondeEstMechant",
	})
	require.NoError(t, err)
	assert.Equal(t, user.RoleUser, usr.Role)
	assert.Equal(t, user.DefaultDepartment, usr.Department)
	assert.Equal(t, user.AdminRequestNone, usr.AdminRequest)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword("LeMondeEstMechant"))

	// self-registration can never yield an elevated role
	for _, role := range user.ElevatedRoles {
		_, err = svc.Register(user.NewUser{
			Name:            "Villain",
			Email:           "villain@test.cd",
			Role:            role,
			Password:        "LeMondeEstMechant",
			PasswordConfirm: "LeMondeEstMechant",
		})
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr), "want ValidationError, got %v", err)
		assert.Equal(t, "role", vErr.Fields[0].Field)
	}

	// duplicate email
	err = svc.CheckEmailUniqueness(usr.Email)
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "want ValidationError, got %v", err)
	assert.Equal(t, "email", vErr.Fields[0].Field)
}

func TestService_RequestAdminAccess(t *testing.T) {
	svc, notifSvc := setup(t)

	sa := createSuperadmin(t, svc, "boss")
	usr := createUser(t, svc, "hopeful")

	usr, err := svc.RequestAdminAccess(usr)
	require.NoError(t, err)
	assert.Equal(t, user.AdminRequestPending, usr.AdminRequest)
	assert.Equal(t, user.RoleUser, usr.Role) // unchanged until approval

	// requester got exactly one entry; so did the superadmin
	inbox, err := notifSvc.ListInbox(usr.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, notification.KindRequest, inbox[0].Kind)

	saInbox, err := notifSvc.ListInbox(sa.ID)
	require.NoError(t, err)
	require.Len(t, saInbox, 1)
	assert.Contains(t, saInbox[0].Message, usr.Email)

	// a pending request cannot be re-submitted
	_, err = svc.RequestAdminAccess(usr)
	assert.Equal(t, user.ErrRequestPending, errors.Cause(err))

	// elevated accounts have nothing to request
	_, err = svc.RequestAdminAccess(sa)
	assert.Equal(t, user.ErrAlreadyElevated, errors.Cause(err))
}

func TestService_HandleAdminRequest(t *testing.T) {
	svc, notifSvc := setup(t)

	sa := createSuperadmin(t, svc, "boss")

	t.Run("approve", func(t *testing.T) {
		usr := createUser(t, svc, "approved")
		usr, err := svc.RequestAdminAccess(usr)
		require.NoError(t, err)

		usr, err = svc.HandleAdminRequest(sa, usr.ID, true)
		require.NoError(t, err)
		assert.Equal(t, user.RoleAdmin, usr.Role)
		assert.Equal(t, user.AdminRequestApproved, usr.AdminRequest)

		inbox, err := notifSvc.ListInbox(usr.ID)
		require.NoError(t, err)
		require.Len(t, inbox, 2) // submission + approval, newest first
		assert.Contains(t, inbox[0].Message, "approved")

		// terminal state; cannot be handled twice
		_, err = svc.HandleAdminRequest(sa, usr.ID, true)
		assert.Equal(t, user.ErrNoPendingRequest, errors.Cause(err))
	})

	t.Run("reject", func(t *testing.T) {
		usr := createUser(t, svc, "rejected")
		usr, err := svc.RequestAdminAccess(usr)
		require.NoError(t, err)

		usr, err = svc.HandleAdminRequest(sa, usr.ID, false)
		require.NoError(t, err)
		assert.Equal(t, user.RoleUser, usr.Role)
		assert.Equal(t, user.AdminRequestRejected, usr.AdminRequest)

		inbox, err := notifSvc.ListInbox(usr.ID)
		require.NoError(t, err)
		require.Len(t, inbox, 2)
		assert.Contains(t, inbox[0].Message, "rejected")
	})

	t.Run("no pending request", func(t *testing.T) {
		usr := createUser(t, svc, "quiet")
		_, err := svc.HandleAdminRequest(sa, usr.ID, true)
		assert.Equal(t, user.ErrNoPendingRequest, errors.Cause(err))
	})
}

func TestService_UpdateRole(t *testing.T) {
	svc, notifSvc := setup(t)

	sa := createSuperadmin(t, svc, "boss")

	t.Run("invalid role", func(t *testing.T) {
		usr := createUser(t, svc, "pawn")
		_, err := svc.UpdateRole(sa, usr.ID, "emperor", "")
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr), "want ValidationError, got %v", err)
	})

	t.Run("self demotion forbidden", func(t *testing.T) {
		_, err := svc.UpdateRole(sa, sa.ID, user.RoleUser, "")
		assert.Equal(t, user.ErrSelfDemotion, errors.Cause(err))

		refreshed, err := svc.GetByID(sa.ID)
		require.NoError(t, err)
		assert.Equal(t, user.RoleSuperadmin, refreshed.Role) // state unchanged
	})

	t.Run("promotion notifies and emails target", func(t *testing.T) {
		emailsvc.ClearSentMessages()
		usr := createUser(t, svc, "rising")

		usr, err := svc.UpdateRole(sa, usr.ID, user.RoleAdmin, "Finance")
		require.NoError(t, err)
		assert.Equal(t, user.RoleAdmin, usr.Role)
		assert.Equal(t, "Finance", usr.Department)

		inbox, err := notifSvc.ListInbox(usr.ID)
		require.NoError(t, err)
		require.Len(t, inbox, 1)
		assert.Equal(t, notification.KindRoleChange, inbox[0].Kind)
		assert.Contains(t, inbox[0].Message, user.RoleAdmin)

		require.Len(t, emailsvc.SentMessages, 1)
		assert.Equal(t, usr.Email, emailsvc.SentMessages[0].To[0].Address)
	})

	t.Run("last superadmin cannot be demoted", func(t *testing.T) {
		other := createSuperadmin(t, svc, "other")

		// two superadmins exist; this one goes through
		other, err := svc.UpdateRole(sa, other.ID, user.RoleAdmin, "")
		require.NoError(t, err)
		assert.Equal(t, user.RoleAdmin, other.Role)

		// sa is now the last one standing
		_, err = svc.UpdateRole(other, sa.ID, user.RoleUser, "")
		assert.Equal(t, user.ErrLastSuperadmin, errors.Cause(err))
	})
}

func TestService_UpdateRole_concurrentDemotions(t *testing.T) {
	svc, _ := setup(t)

	sa1 := createSuperadmin(t, svc, "first")
	sa2 := createSuperadmin(t, svc, "second")

	// two superadmins demote each other at the same time; at most one
	// demotion may pass the count check
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := svc.UpdateRole(sa1, sa2.ID, user.RoleUser, "")
		errs <- err
	}()
	go func() {
		defer wg.Done()
		_, err := svc.UpdateRole(sa2, sa1.ID, user.RoleUser, "")
		errs <- err
	}()
	wg.Wait()
	close(errs)

	var succeeded, refused int
	for err := range errs {
		switch errors.Cause(err) {
		case nil:
			succeeded++
		case user.ErrLastSuperadmin:
			refused++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, refused)

	remaining, err := svc.Filter(&user.QueryFilter{Roles: []string{user.RoleSuperadmin}})
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestService_ResetPassword(t *testing.T) {
	svc, _ := setup(t)

	usr := createUser(t, svc, "forgetful")

	token, err := user.MakeToken(usr)
	require.NoError(t, err)

	err = svc.ResetPassword(user.ResetUserPassword{
		Token:           token,
		UID:             user.EncodeUID(usr),
		Password:        "LeMondeEstGentil",
		PasswordConfirm: "LeMondeEstGentil",
	})
	require.NoError(t, err)

	refreshed, err := svc.GetByID(usr.ID)
	require.NoError(t, err)
	assert.NoError(t, refreshed.CheckPassword("LeMondeEstGentil"))

	// a used token no longer verifies (password hash changed)
	err = svc.ResetPassword(user.ResetUserPassword{
		Token:           token,
		UID:             user.EncodeUID(usr),
		Password:        "EncoreUneFois",
		PasswordConfirm: "EncoreUneFois",
	})
	assert.EqualError(t, err, "invalid token")

	// garbage uid
	err = svc.ResetPassword(user.ResetUserPassword{
		Token:           token,
		UID:             "?!?",
		Password:        "EncoreUneFois",
		PasswordConfirm: "EncoreUneFois",
	})
	assert.EqualError(t, err, "invalid token")
}

func TestService_RequestPasswordReset(t *testing.T) {
	svc, _ := setup(t)

	usr := createUser(t, svc, "locked-out")
	emailsvc.ClearSentMessages()

	require.NoError(t, svc.RequestPasswordReset(usr.Email))
	require.Len(t, emailsvc.SentMessages, 1)
	assert.Equal(t, usr.Email, emailsvc.SentMessages[0].To[0].Address)
	assert.Contains(t, emailsvc.SentMessages[0].Body, "password-reset?uid=")

	err := svc.RequestPasswordReset("nobody@test.cd")
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}
