package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ripoti/core/report"
	"github.com/trezcool/ripoti/core/user"
)

type reportApi struct {
	svc    report.Service
	usrSvc user.Service
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc report.Service, usrSvc user.Service) {
	api := reportApi{svc: svc, usrSvc: usrSvc}

	rg := g.Group("/reports", jwt)
	rg.POST("", api.create)
	rg.GET("", api.queryOwn)
	rg.GET("/all", api.queryAll, roleMiddleware(user.ElevatedRoles...))
	rg.GET("/:id", api.retrieve)
	rg.PUT("/:id/status", api.updateStatus, roleMiddleware(user.ElevatedRoles...))
}

// Handlers

func (api *reportApi) create(ctx echo.Context) error {
	var data report.NewReport
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReport")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	owner, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rpt, err := api.svc.Create(data, owner)
	if err != nil {
		return errors.Wrap(err, "creating report")
	}
	return ctx.JSON(http.StatusCreated, rpt)
}

func (api *reportApi) queryOwn(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	reports, err := api.svc.QueryByOwner(claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying own reports")
	}
	if reports == nil {
		reports = []report.Report{}
	}
	return ctx.JSON(http.StatusOK, reports)
}

func (api *reportApi) queryAll(ctx echo.Context) error {
	filter := new(report.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []report.Report{})
	}
	filter.Clean()

	reports, err := api.svc.Filter(filter)
	if err != nil {
		return errors.Wrap(err, "querying reports")
	}
	if reports == nil {
		reports = []report.Report{}
	}
	return ctx.JSON(http.StatusOK, reports)
}

func (api *reportApi) retrieve(ctx echo.Context) error {
	rpt, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding report by ID")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	// owners and admins only; hide existence from anyone else
	if rpt.OwnerID != claims.Subject && !user.RoleAllowed(claims.Role, user.ElevatedRoles) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, rpt)
}

func (api *reportApi) updateStatus(ctx echo.Context) error {
	var data report.UpdateStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatus")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	rpt, err := api.svc.UpdateStatus(ctx.Param("id"), data.Status)
	if err != nil {
		return errors.Wrap(err, "updating report status")
	}
	return ctx.JSON(http.StatusOK, rpt)
}
