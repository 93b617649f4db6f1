package report

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ripoti/core"
	"github.com/trezcool/ripoti/core/notification"
	"github.com/trezcool/ripoti/core/user"
)

var (
	// errors
	ErrNotFound      = errors.New("report not found")
	ErrInvalidStatus = errors.New("invalid status")
)

type (
	Repository interface {
		CreateReport(rpt Report) (Report, error)
		GetReportByID(id string) (Report, error)
		// QueryReportsByOwner returns an owner's reports, newest first.
		QueryReportsByOwner(ownerID string) ([]Report, error)
		FilterReports(filter QueryFilter) ([]Report, error)
		UpdateReportStatus(id, status string) (Report, error)
	}

	Service interface {
		Create(nr NewReport, owner user.User) (Report, error)
		GetByID(id string) (Report, error)
		QueryByOwner(ownerID string) ([]Report, error)
		Filter(filter *QueryFilter) ([]Report, error)
		// UpdateStatus transitions a report's status and appends exactly
		// one notification to the owner's inbox describing the change.
		UpdateStatus(id, status string) (Report, error)
	}

	service struct {
		repo     Repository
		notifSvc notification.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, notifSvc notification.Service) Service {
	return &service{
		repo:     repo,
		notifSvc: notifSvc,
	}
}

func (svc *service) Create(nr NewReport, owner user.User) (Report, error) {
	now := time.Now().UTC()
	rpt := Report{
		Title:       nr.Title,
		Description: nr.Description,
		Category:    nr.Category,
		Status:      StatusPending,
		OwnerID:     owner.ID,
		Department:  owner.Department,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	rpt, err := svc.repo.CreateReport(rpt)
	if err != nil {
		return Report{}, err
	}

	// alert the admins of the owner's department
	if err := svc.notifSvc.Notify(
		notification.ToRole(owner.Department, user.RoleAdmin, user.RoleSuperadmin),
		fmt.Sprintf("New report submitted: %s", rpt.Title),
		notification.KindStatusChange,
	); err != nil {
		return Report{}, errors.Wrap(err, "notifying admins")
	}
	return rpt, nil
}

func (svc *service) GetByID(id string) (Report, error) {
	return svc.repo.GetReportByID(id)
}

func (svc *service) QueryByOwner(ownerID string) ([]Report, error) {
	return svc.repo.QueryReportsByOwner(ownerID)
}

func (svc *service) Filter(filter *QueryFilter) ([]Report, error) {
	return svc.repo.FilterReports(*filter)
}

func (svc *service) UpdateStatus(id, status string) (Report, error) {
	if !IsValidStatus(status) {
		return Report{}, core.NewValidationError(ErrInvalidStatus, core.FieldError{Field: "status", Error: ErrInvalidStatus.Error()})
	}

	rpt, err := svc.repo.UpdateReportStatus(id, status)
	if err != nil {
		return Report{}, err
	}

	if err := svc.notifSvc.Notify(
		notification.ToUser(rpt.OwnerID),
		fmt.Sprintf("Your report '%s' has been %s.", rpt.Title, rpt.Status),
		notification.KindStatusChange,
	); err != nil {
		return Report{}, errors.Wrap(err, "notifying owner")
	}
	return rpt, nil
}
