package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/ripoti/apps/api/echo"
	"github.com/trezcool/ripoti/core"
	"github.com/trezcool/ripoti/core/notification"
	"github.com/trezcool/ripoti/core/report"
	"github.com/trezcool/ripoti/core/user"
	emailsvc "github.com/trezcool/ripoti/services/email"
	dummydb "github.com/trezcool/ripoti/storage/database/dummy"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	server    Server
	usrSvc    user.Service
	notifSvc  notification.Service
	reportSvc report.Service
	usrRepo   user.Repository
}

func setup(t *testing.T) *testApp {
	t.Helper()

	// set up DB & repos
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	usrRepo := dummydb.NewUserRepository(db)

	// set up services
	conf := core.NewTestConfig()
	mailSvc := emailsvc.NewConsoleService(conf)
	notifSvc := notification.NewService(dummydb.NewNotificationRepository(db), usrRepo, core.NopLogger{})
	usrSvc := user.NewService(conf, usrRepo, notifSvc, mailSvc)
	reportSvc := report.NewService(dummydb.NewReportRepository(db), notifSvc)

	// set up server
	server := NewServer(
		&Options{
			DisableReqLogs: true,
			Conf:           conf,
			Logger:         core.NopLogger{},
			UserSvc:        usrSvc,
			NotifSvc:       notifSvc,
			ReportSvc:      reportSvc,
		},
	)
	return &testApp{
		server:    server,
		usrSvc:    usrSvc,
		notifSvc:  notifSvc,
		reportSvc: reportSvc,
		usrRepo:   usrRepo,
	}
}

func (app *testApp) createUser(t *testing.T, name string) user.User {
	t.Helper()
	usr, err := app.usrSvc.Register(user.NewUser{
		Name:            name,
		Email:           fmt.Sprintf("%s@test.cd", name),
		Password:        "LeMondeEstMechant",
		PasswordConfirm: "LeMondeEstMechant",
	})
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	return usr
}

func (app *testApp) createSuperadmin(t *testing.T, name string) user.User {
	t.Helper()
	usr, err := app.usrSvc.CreateSuperadmin(name, fmt.Sprintf("%s@test.cd", name), "LeMondeEstMechant")
	if err != nil {
		t.Fatalf("CreateSuperadmin() failed: %v", err)
	}
	return usr
}

func (app *testApp) createAdmin(t *testing.T, name string) user.User {
	t.Helper()
	sa := app.createSuperadmin(t, name+"-promoter")
	usr := app.createUser(t, name)
	usr, err := app.usrSvc.UpdateRole(sa, usr.ID, user.RoleAdmin, usr.Department)
	if err != nil {
		t.Fatalf("UpdateRole() failed: %v", err)
	}
	return usr
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

// nolint
func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
