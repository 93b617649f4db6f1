package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/trezcool/ripoti/apps/api/echo"
	"github.com/trezcool/ripoti/core/notification"
)

func Test_notificationApi_listInbox(t *testing.T) {
	app := setup(t)
	usr := app.createUser(t, "reader")
	other := app.createUser(t, "other")

	t.Run("empty inbox", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/notifications", getToken(t, usr))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`[]`)}, rec)
	})

	require.NoError(t, app.notifSvc.Notify(notification.ToUser(usr.ID), "first", notification.KindRequest))
	require.NoError(t, app.notifSvc.Notify(notification.ToUser(usr.ID), "second", notification.KindBroadcast))
	require.NoError(t, app.notifSvc.Notify(notification.ToUser(other.ID), "not yours", notification.KindRequest))

	t.Run("own entries only, newest first", func(t *testing.T) {
		inbox, err := app.notifSvc.ListInbox(usr.ID)
		require.NoError(t, err)
		require.Len(t, inbox, 2)

		req, rec := newAuthRequest(http.MethodGet, "/v1/notifications", getToken(t, usr))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, inbox)}, rec)
	})

	t.Run("no token", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/notifications")
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})
}

func Test_notificationApi_markRead(t *testing.T) {
	app := setup(t)
	usr := app.createUser(t, "reader")
	other := app.createUser(t, "other")

	require.NoError(t, app.notifSvc.Notify(notification.ToUser(usr.ID), "read me", notification.KindRequest))
	inbox, err := app.notifSvc.ListInbox(usr.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	notifID := inbox[0].ID

	markedRead := marchallObj(t, SuccessResponse{Success: "Notification marked as read."})

	tests := []httpTest{
		{
			name: "own entry", method: http.MethodPut, path: "/v1/notifications/" + notifID + "/read", token: getToken(t, usr),
			wantCode: http.StatusOK, wantData: markedRead,
		},
		{
			name: "idempotent", method: http.MethodPut, path: "/v1/notifications/" + notifID + "/read", token: getToken(t, usr),
			wantCode: http.StatusOK, wantData: markedRead,
		},
		{
			name: "someone else's entry", method: http.MethodPut, path: "/v1/notifications/" + notifID + "/read", token: getToken(t, other),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "unknown entry", method: http.MethodPut, path: "/v1/notifications/nope/read", token: getToken(t, usr),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	inbox, err = app.notifSvc.ListInbox(usr.ID)
	require.NoError(t, err)
	if !inbox[0].Read {
		t.Error("notification was not marked read")
	}
}

func Test_notificationApi_clear(t *testing.T) {
	app := setup(t)
	usr := app.createUser(t, "reader")
	other := app.createUser(t, "other")

	require.NoError(t, app.notifSvc.Notify(notification.ToUser(usr.ID), "one", notification.KindRequest))
	require.NoError(t, app.notifSvc.Notify(notification.ToUser(usr.ID), "two", notification.KindRequest))
	require.NoError(t, app.notifSvc.Notify(notification.ToUser(other.ID), "keep", notification.KindRequest))

	req, rec := newAuthRequest(http.MethodDelete, "/v1/notifications/clear", getToken(t, usr))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marchallObj(t, SuccessResponse{Success: "Notifications cleared."}),
	}, rec)

	req, rec = newAuthRequest(http.MethodGet, "/v1/notifications", getToken(t, usr))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`[]`)}, rec)

	// other inboxes untouched
	inbox, err := app.notifSvc.ListInbox(other.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
}
