package notification_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ripoti/core"
	"github.com/trezcool/ripoti/core/notification"
	"github.com/trezcool/ripoti/core/user"
	dummydb "github.com/trezcool/ripoti/storage/database/dummy"
)

type fixture struct {
	svc     notification.Service
	usrRepo user.Repository
}

func setup(t *testing.T) fixture {
	t.Helper()

	db, err := dummydb.Open()
	require.NoError(t, err)

	usrRepo := dummydb.NewUserRepository(db)
	svc := notification.NewService(dummydb.NewNotificationRepository(db), usrRepo, core.NopLogger{})
	return fixture{svc: svc, usrRepo: usrRepo}
}

func createUser(t *testing.T, repo user.Repository, name, role, department string) user.User {
	t.Helper()
	usr, err := repo.CreateUser(user.User{
		Name:       name,
		Email:      name + "@test.cd",
		Department: department,
		Role:       role,
		IsActive:   true,
	})
	require.NoError(t, err)
	return usr
}

func TestService_Notify(t *testing.T) {
	fix := setup(t)

	alice := createUser(t, fix.usrRepo, "alice", user.RoleUser, "General")
	bob := createUser(t, fix.usrRepo, "bob", user.RoleAdmin, "Finance")
	carol := createUser(t, fix.usrRepo, "carol", user.RoleSuperadmin, "General")

	t.Run("single recipient", func(t *testing.T) {
		require.NoError(t, fix.svc.Notify(notification.ToUser(alice.ID), "hello", notification.KindRequest))

		inbox, err := fix.svc.ListInbox(alice.ID)
		require.NoError(t, err)
		require.Len(t, inbox, 1)
		assert.Equal(t, "hello", inbox[0].Message)
		assert.Equal(t, notification.KindRequest, inbox[0].Kind)
		assert.False(t, inbox[0].Read)
	})

	t.Run("role and department selector", func(t *testing.T) {
		require.NoError(t, fix.svc.Notify(
			notification.ToRole("Finance", user.RoleAdmin, user.RoleSuperadmin), "finance only", notification.KindStatusChange))

		inbox, err := fix.svc.ListInbox(bob.ID)
		require.NoError(t, err)
		require.Len(t, inbox, 1)
		assert.Equal(t, "finance only", inbox[0].Message)

		// carol holds an elevated role but sits in another department
		inbox, err = fix.svc.ListInbox(carol.ID)
		require.NoError(t, err)
		assert.Empty(t, inbox)
	})

	t.Run("role selector across departments", func(t *testing.T) {
		require.NoError(t, fix.svc.Notify(
			notification.ToRole("", user.RoleSuperadmin), "superadmins", notification.KindRequest))

		inbox, err := fix.svc.ListInbox(carol.ID)
		require.NoError(t, err)
		require.Len(t, inbox, 1)
		assert.Equal(t, "superadmins", inbox[0].Message)
	})
}

func TestService_Notify_broadcastSnapshot(t *testing.T) {
	fix := setup(t)

	alice := createUser(t, fix.usrRepo, "alice", user.RoleUser, "General")
	bob := createUser(t, fix.usrRepo, "bob", user.RoleUser, "General")

	require.NoError(t, fix.svc.Notify(notification.ToAll(), "maintenance tonight", notification.KindBroadcast))

	// a broadcast reaches exactly the accounts existing at call time
	late := createUser(t, fix.usrRepo, "late", user.RoleUser, "General")

	for _, usr := range []user.User{alice, bob} {
		inbox, err := fix.svc.ListInbox(usr.ID)
		require.NoError(t, err)
		require.Len(t, inbox, 1, "user %s", usr.Name)
		assert.Equal(t, "maintenance tonight", inbox[0].Message)
	}
	inbox, err := fix.svc.ListInbox(late.ID)
	require.NoError(t, err)
	assert.Empty(t, inbox)
}

func TestService_MarkRead(t *testing.T) {
	fix := setup(t)

	alice := createUser(t, fix.usrRepo, "alice", user.RoleUser, "General")
	bob := createUser(t, fix.usrRepo, "bob", user.RoleUser, "General")

	require.NoError(t, fix.svc.Notify(notification.ToUser(alice.ID), "read me", notification.KindRequest))
	inbox, err := fix.svc.ListInbox(alice.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	notifID := inbox[0].ID

	// idempotent: marking twice is not an error
	require.NoError(t, fix.svc.MarkRead(alice.ID, notifID))
	require.NoError(t, fix.svc.MarkRead(alice.ID, notifID))

	inbox, err = fix.svc.ListInbox(alice.ID)
	require.NoError(t, err)
	assert.True(t, inbox[0].Read)

	// another recipient cannot touch it
	err = fix.svc.MarkRead(bob.ID, notifID)
	assert.Equal(t, notification.ErrNotFound, errors.Cause(err))

	err = fix.svc.MarkRead(alice.ID, "nope")
	assert.Equal(t, notification.ErrNotFound, errors.Cause(err))
}

func TestService_ClearAll(t *testing.T) {
	fix := setup(t)

	alice := createUser(t, fix.usrRepo, "alice", user.RoleUser, "General")
	bob := createUser(t, fix.usrRepo, "bob", user.RoleUser, "General")

	require.NoError(t, fix.svc.Notify(notification.ToUser(alice.ID), "one", notification.KindRequest))
	require.NoError(t, fix.svc.Notify(notification.ToUser(alice.ID), "two", notification.KindRequest))
	require.NoError(t, fix.svc.Notify(notification.ToUser(bob.ID), "bob's", notification.KindRequest))

	require.NoError(t, fix.svc.ClearAll(alice.ID))

	inbox, err := fix.svc.ListInbox(alice.ID)
	require.NoError(t, err)
	assert.Empty(t, inbox)

	// other inboxes untouched
	inbox, err = fix.svc.ListInbox(bob.ID)
	require.NoError(t, err)
	assert.Len(t, inbox, 1)
}

// flakyRepository fails appends for one unlucky recipient.
type flakyRepository struct {
	notification.Repository
	failFor string
}

func (repo flakyRepository) CreateNotification(n notification.Notification) (notification.Notification, error) {
	if n.UserID == repo.failFor {
		return notification.Notification{}, errors.New("disk full")
	}
	return repo.Repository.CreateNotification(n)
}

func TestService_Notify_bestEffort(t *testing.T) {
	db, err := dummydb.Open()
	require.NoError(t, err)

	usrRepo := dummydb.NewUserRepository(db)
	alice := createUser(t, usrRepo, "alice", user.RoleUser, "General")
	bob := createUser(t, usrRepo, "bob", user.RoleUser, "General")

	repo := flakyRepository{Repository: dummydb.NewNotificationRepository(db), failFor: alice.ID}
	svc := notification.NewService(repo, usrRepo, core.NopLogger{})

	// a failed append is skipped, the remaining recipients are still served
	require.NoError(t, svc.Notify(notification.ToAll(), "best effort", notification.KindBroadcast))

	inbox, err := svc.ListInbox(bob.ID)
	require.NoError(t, err)
	assert.Len(t, inbox, 1)

	inbox, err = svc.ListInbox(alice.ID)
	require.NoError(t, err)
	assert.Empty(t, inbox)
}
