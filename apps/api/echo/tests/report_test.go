package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ripoti/core/report"
)

func Test_reportApi_create(t *testing.T) {
	app := setup(t)
	usr := app.createUser(t, "owner")

	t.Run("valid", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/reports", getToken(t, usr),
			[]byte(`{"title":"Broken printer","description":"3rd floor printer jams","category":"equipment"}`))
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp report.Report
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, report.StatusPending, resp.Status)
		assert.Equal(t, usr.ID, resp.OwnerID)
		assert.Equal(t, usr.Department, resp.Department)
	})

	tests := []httpTest{
		{
			name: "missing title", method: http.MethodPost, path: "/v1/reports", token: getToken(t, usr),
			body:     []byte(`{"description":"something is off"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"title":"this field is required"}`),
		},
		{
			name: "no token", method: http.MethodPost, path: "/v1/reports",
			body:     []byte(`{"title":"T","description":"D"}`),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_reportApi_query(t *testing.T) {
	app := setup(t)
	usr := app.createUser(t, "owner")
	other := app.createUser(t, "other")
	admin := app.createAdmin(t, "mid")

	mine, err := app.reportSvc.Create(report.NewReport{Title: "Mine", Description: "d"}, usr)
	require.NoError(t, err)
	theirs, err := app.reportSvc.Create(report.NewReport{Title: "Theirs", Description: "d", Category: "equipment"}, other)
	require.NoError(t, err)

	tests := []httpTest{
		{
			name: "own reports only", method: http.MethodGet, path: "/v1/reports", token: getToken(t, usr),
			wantCode: http.StatusOK, wantData: marchallList(t, mine),
		},
		{
			name: "all requires elevated role", method: http.MethodGet, path: "/v1/reports/all", token: getToken(t, usr),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "admin sees all", method: http.MethodGet, path: "/v1/reports/all", token: getToken(t, admin),
			wantCode: http.StatusOK, wantData: marchallList(t, mine, theirs),
		},
		{
			name: "admin filters by category", method: http.MethodGet, path: "/v1/reports/all?category=equipment", token: getToken(t, admin),
			wantCode: http.StatusOK, wantData: marchallList(t, theirs),
		},
		{
			name: "owner retrieves own", method: http.MethodGet, path: "/v1/reports/" + mine.ID, token: getToken(t, usr),
			wantCode: http.StatusOK, wantData: marchallObj(t, mine),
		},
		{
			name: "stranger gets not found", method: http.MethodGet, path: "/v1/reports/" + theirs.ID, token: getToken(t, usr),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "admin retrieves any", method: http.MethodGet, path: "/v1/reports/" + theirs.ID, token: getToken(t, admin),
			wantCode: http.StatusOK, wantData: marchallObj(t, theirs),
		},
		{
			name: "unknown report", method: http.MethodGet, path: "/v1/reports/5c71a423-5985-4a3a-b42d-4c8b380313c2", token: getToken(t, admin),
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
}

func Test_reportApi_updateStatus(t *testing.T) {
	app := setup(t)
	usr := app.createUser(t, "owner")
	admin := app.createAdmin(t, "mid")

	rpt, err := app.reportSvc.Create(report.NewReport{Title: "Leaky faucet", Description: "d"}, usr)
	require.NoError(t, err)

	t.Run("base account forbidden", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/reports/"+rpt.ID+"/status", getToken(t, usr),
			[]byte(`{"status":"approved"}`))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	t.Run("invalid status", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/reports/"+rpt.ID+"/status", getToken(t, admin),
			[]byte(`{"status":"resolved"}`))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"status":"invalid status"}`)}, rec)
	})

	t.Run("approve notifies owner", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/reports/"+rpt.ID+"/status", getToken(t, admin),
			[]byte(`{"status":"approved"}`))
		app.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp report.Report
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, report.StatusApproved, resp.Status)

		inbox, err := app.notifSvc.ListInbox(usr.ID)
		require.NoError(t, err)
		require.NotEmpty(t, inbox)
		assert.Contains(t, inbox[0].Message, report.StatusApproved)
	})

	t.Run("unknown report", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/reports/9ff1a423-5985-4a3a-b42d-4c8b380313c2/status", getToken(t, admin),
			[]byte(`{"status":"approved"}`))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
	})
}
