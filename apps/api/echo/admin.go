package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ripoti/core"
	"github.com/trezcool/ripoti/core/notification"
	"github.com/trezcool/ripoti/core/user"
)

type adminApi struct {
	usrSvc   user.Service
	notifSvc notification.Service
}

func registerAdminAPI(g *echo.Group, jwt echo.MiddlewareFunc, usrSvc user.Service, notifSvc notification.Service) {
	api := adminApi{usrSvc: usrSvc, notifSvc: notifSvc}

	ag := g.Group("/admin", jwt, roleMiddleware(user.RoleSuperadmin))
	ag.GET("/users", api.queryUsers)
	ag.PUT("/users/:id/role", api.updateRole)
	ag.GET("/requests", api.queryRequests)
	ag.POST("/requests", api.handleRequest)
	ag.POST("/notifications", api.sendNotification)
}

// Handlers

func (api *adminApi) queryUsers(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	filter.Clean()

	users, err := api.usrSvc.Filter(filter)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *adminApi) updateRole(ctx echo.Context) error {
	var data UpdateRoleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRoleRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	usr, err := api.usrSvc.UpdateRole(actor, ctx.Param("id"), data.Role, data.Department)
	if err != nil {
		return errors.Wrap(err, "updating role")
	}
	return ctx.JSON(http.StatusOK, RegisterResponse{Role: usr.Role})
}

func (api *adminApi) queryRequests(ctx echo.Context) error {
	users, err := api.usrSvc.PendingAdminRequests()
	if err != nil {
		return errors.Wrap(err, "querying pending admin requests")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *adminApi) handleRequest(ctx echo.Context) error {
	var data HandleRequestRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to HandleRequestRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	usr, err := api.usrSvc.HandleAdminRequest(actor, data.UserID, data.Action == requestActionApprove)
	if err != nil {
		return errors.Wrap(err, "handling admin request")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *adminApi) sendNotification(ctx echo.Context) error {
	var data notification.NewMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	sel := notification.ToUser(data.UserID)
	if data.UserID == broadcastRecipient {
		sel = notification.ToAll()
	} else if _, err := api.usrSvc.GetByID(data.UserID); err != nil {
		return errors.Wrap(err, "finding recipient by ID")
	}

	if err := api.notifSvc.Notify(sel, data.Message, notification.KindBroadcast); err != nil {
		return errors.Wrap(err, "sending notification")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Notification sent."})
}

const (
	requestActionApprove = "approve"
	requestActionReject  = "reject"

	broadcastRecipient = "all"
)

type (
	UpdateRoleRequest struct {
		Role       string `json:"role" validate:"required"`
		Department string `json:"department"`
	}

	HandleRequestRequest struct {
		UserID string `json:"user_id" validate:"required"`
		Action string `json:"action" validate:"required,oneof=approve reject"`
	}
)

func (ur *UpdateRoleRequest) Validate() error {
	ur.Role = core.CleanString(ur.Role, true /* lower */)
	ur.Department = core.CleanString(ur.Department)
	return core.Validate.Struct(ur)
}

func (hr *HandleRequestRequest) Validate() error {
	hr.UserID = core.CleanString(hr.UserID)
	hr.Action = core.CleanString(hr.Action, true /* lower */)
	return core.Validate.Struct(hr)
}
