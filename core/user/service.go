package user

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ripoti/core"
	"github.com/trezcool/ripoti/core/notification"
)

var (
	// errors
	ErrNotFound         = errors.New("user not found")
	ErrEmailExists      = errors.New("a user with this email already exists")
	ErrRoleEscalation   = errors.New("self-registration with an elevated role is forbidden")
	ErrInvalidRole      = errors.New("invalid role")
	ErrAlreadyElevated  = errors.New("you already have admin privileges")
	ErrRequestPending   = errors.New("your admin access request is already pending")
	ErrNoPendingRequest = errors.New("no pending admin access request for this user")
	ErrSelfDemotion     = errors.New("you cannot change your own role")
	ErrLastSuperadmin   = errors.New("cannot demote the last superadmin")
)

type (
	Repository interface {
		CheckEmailUniqueness(email string, excludedUsers ...User) error
		CreateUser(usr User) (User, error)
		QueryAllUsers() ([]User, error)
		GetUserByID(id string) (User, error)
		GetUserByEmail(email string) (User, error)
		// FilterUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		FilterUsers(filter QueryFilter) ([]User, error)
		QueryPendingAdminRequests() ([]User, error)
		// UpdateUser only saves set fields; isActive is applied when non-nil.
		UpdateUser(usr User, isActive *bool) (User, error)
		// DemoteSuperadmin sets a superadmin's role to newRole. The
		// superadmin count check and the write happen as one atomic
		// operation; it fails with ErrLastSuperadmin when the target is
		// the sole remaining superadmin.
		DemoteSuperadmin(id, newRole string) (User, error)
		DeleteUsersByID(ids ...string) error
	}

	Service interface {
		CheckEmailUniqueness(email string, exclUsers ...User) error
		Register(nu NewUser) (User, error)
		CreateSuperadmin(name, email, pwd string) (User, error)
		QueryAll() ([]User, error)
		GetByID(id string) (User, error)
		GetByEmail(email string) (User, error)
		Filter(filter *QueryFilter) ([]User, error)
		PendingAdminRequests() ([]User, error)
		Update(id string, uu UpdateUser) (User, error)
		SetLastLogin(usr User) (User, error)
		RequestAdminAccess(usr User) (User, error)
		HandleAdminRequest(actor User, targetID string, approve bool) (User, error)
		UpdateRole(actor User, targetID, newRole, department string) (User, error)
		SetPassword(id, pwd string) error
		RequestPasswordReset(email string) error
		ResetPassword(rp ResetUserPassword) error
		Delete(ids ...string) error
	}

	service struct {
		repo     Repository
		notifSvc notification.Service
		mailSvc  core.EmailService
		conf     *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(conf *core.Config, repo Repository, notifSvc notification.Service, mailSvc core.EmailService) Service {
	secretKey = []byte(conf.SecretKey)
	passwordResetTimeoutDelta = conf.PasswordResetTimeoutDelta
	return &service{
		repo:     repo,
		notifSvc: notifSvc,
		mailSvc:  mailSvc,
		conf:     conf,
	}
}

func (svc *service) CheckEmailUniqueness(email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(email, exclUsers...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Register creates a new base account. Clients can never self-register
// into an elevated role.
func (svc *service) Register(nu NewUser) (User, error) {
	if nu.Role != "" && nu.Role != RoleUser {
		return User{}, core.NewValidationError(ErrRoleEscalation, core.FieldError{Field: "role", Error: ErrRoleEscalation.Error()})
	}
	return svc.create(nu.Name, nu.Email, nu.Department, RoleUser, nu.Password)
}

// CreateSuperadmin bootstraps a top-privilege account; only reachable
// from the admin CLI, never from the API.
func (svc *service) CreateSuperadmin(name, email, pwd string) (User, error) {
	email = core.CleanString(email, true /* lower */)
	if err := svc.CheckEmailUniqueness(email); err != nil {
		return User{}, err
	}
	return svc.create(name, email, DefaultDepartment, RoleSuperadmin, pwd)
}

func (svc *service) create(name, email, department, role, pwd string) (User, error) {
	if department == "" {
		department = DefaultDepartment
	}
	now := time.Now().UTC()
	usr := User{
		Name:         name,
		Email:        email,
		Department:   department,
		Role:         role,
		AdminRequest: AdminRequestNone,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(usr)
}

func (svc *service) QueryAll() ([]User, error) {
	return svc.repo.QueryAllUsers()
}

func (svc *service) GetByID(id string) (User, error) {
	return svc.repo.GetUserByID(id)
}

func (svc *service) GetByEmail(email string) (User, error) {
	return svc.repo.GetUserByEmail(core.CleanString(email, true /* lower */))
}

func (svc *service) Filter(filter *QueryFilter) ([]User, error) {
	if filter.IsEmpty() {
		return svc.repo.QueryAllUsers()
	}
	return svc.repo.FilterUsers(*filter)
}

func (svc *service) PendingAdminRequests() ([]User, error) {
	return svc.repo.QueryPendingAdminRequests()
}

func (svc *service) Update(id string, uu UpdateUser) (User, error) {
	usr := User{
		ID:         id,
		Name:       uu.Name,
		Email:      uu.Email,
		Department: uu.Department,
		UpdatedAt:  time.Now().UTC(),
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}
	return svc.repo.UpdateUser(usr, nil)
}

func (svc *service) SetLastLogin(usr User) (User, error) {
	now := time.Now().UTC()
	return svc.repo.UpdateUser(User{ID: usr.ID, LastLogin: now, UpdatedAt: now}, nil)
}

// RequestAdminAccess moves a base account to the pending-elevation state
// and alerts the superadmins.
func (svc *service) RequestAdminAccess(usr User) (User, error) {
	if usr.IsAdmin() {
		return User{}, ErrAlreadyElevated
	}
	if usr.AdminRequest == AdminRequestPending {
		return User{}, ErrRequestPending
	}

	updated, err := svc.repo.UpdateUser(User{
		ID:           usr.ID,
		AdminRequest: AdminRequestPending,
		UpdatedAt:    time.Now().UTC(),
	}, nil)
	if err != nil {
		return User{}, err
	}

	if err := svc.notifSvc.Notify(
		notification.ToUser(usr.ID),
		"Your admin access request has been submitted.",
		notification.KindRequest,
	); err != nil {
		return User{}, errors.Wrap(err, "notifying requester")
	}
	if err := svc.notifSvc.Notify(
		notification.ToRole("", RoleSuperadmin),
		fmt.Sprintf("%s (%s) has requested admin access.", usr.Name, usr.Email),
		notification.KindRequest,
	); err != nil {
		return User{}, errors.Wrap(err, "notifying superadmins")
	}
	return updated, nil
}

// HandleAdminRequest resolves a pending elevation request. Only
// top-privilege actors reach this path; route guards enforce that.
func (svc *service) HandleAdminRequest(actor User, targetID string, approve bool) (User, error) {
	target, err := svc.repo.GetUserByID(targetID)
	if err != nil {
		return User{}, err
	}
	if target.AdminRequest != AdminRequestPending {
		return User{}, ErrNoPendingRequest
	}

	patch := User{ID: target.ID, UpdatedAt: time.Now().UTC()}
	var msg string
	if approve {
		patch.Role = RoleAdmin
		patch.AdminRequest = AdminRequestApproved
		msg = "Your request to become an admin has been approved."
	} else {
		patch.AdminRequest = AdminRequestRejected
		msg = "Your request to become an admin has been rejected."
	}

	updated, err := svc.repo.UpdateUser(patch, nil)
	if err != nil {
		return User{}, err
	}
	if err := svc.notifSvc.Notify(notification.ToUser(target.ID), msg, notification.KindRequest); err != nil {
		return User{}, errors.Wrap(err, "notifying requester")
	}
	return updated, nil
}

// UpdateRole performs a guarded role transition on the target account.
// Actors can never change their own role; demoting a superadmin goes
// through an atomic last-superadmin check in the repository.
func (svc *service) UpdateRole(actor User, targetID, newRole, department string) (User, error) {
	if !IsValidRole(newRole) {
		return User{}, core.NewValidationError(ErrInvalidRole, core.FieldError{Field: "role", Error: ErrInvalidRole.Error()})
	}
	if actor.ID == targetID {
		return User{}, ErrSelfDemotion
	}

	target, err := svc.repo.GetUserByID(targetID)
	if err != nil {
		return User{}, err
	}

	var updated User
	if target.IsSuperadmin() && newRole != RoleSuperadmin {
		updated, err = svc.repo.DemoteSuperadmin(target.ID, newRole)
	} else {
		updated, err = svc.repo.UpdateUser(User{
			ID:         target.ID,
			Role:       newRole,
			Department: department,
			UpdatedAt:  time.Now().UTC(),
		}, nil)
	}
	if err != nil {
		return User{}, err
	}

	if updated.Role != target.Role {
		if err := svc.notifSvc.Notify(
			notification.ToUser(target.ID),
			fmt.Sprintf("Your role has been updated to %s by a superadmin.", updated.Role),
			notification.KindRoleChange,
		); err != nil {
			return User{}, errors.Wrap(err, "notifying target")
		}
		svc.sendRoleChangedMail(updated)
	}
	return updated, nil
}

func (svc *service) SetPassword(id, pwd string) error {
	usr := User{ID: id, UpdatedAt: time.Now().UTC()}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err := svc.repo.UpdateUser(usr, nil)
	return err
}

func (svc *service) RequestPasswordReset(email string) error {
	usr, err := svc.GetByEmail(email)
	if err != nil {
		return err
	}
	svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *service) ResetPassword(rp ResetUserPassword) error {
	uid, err := decodeUID(rp.UID)
	if err != nil {
		return errInvalidToken
	}
	usr, err := svc.repo.GetUserByID(uid)
	if err != nil {
		return errInvalidToken
	}
	if err := verifyToken(usr, rp.Token); err != nil {
		return err
	}
	return svc.SetPassword(usr.ID, rp.Password)
}

func (svc *service) Delete(ids ...string) error {
	return svc.repo.DeleteUsersByID(ids...)
}

func (svc *service) sendPasswordResetMail(usr User) {
	token, err := MakeToken(usr)
	if err != nil {
		return
	}
	link := fmt.Sprintf("%s/password-reset?uid=%s&token=%s", svc.conf.FrontendBaseURL, EncodeUID(usr), token)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: "Password Reset",
		Body: fmt.Sprintf(
			"Hi %s,\n\nYou requested a password reset. Follow this link to choose a new password:\n%s\n\n"+
				"If you did not request this, you can safely ignore this email.", usr.Name, link),
	})
}

func (svc *service) sendRoleChangedMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: "Role Updated",
		Body:    fmt.Sprintf("Hi %s,\n\nYour role on %s has been updated to %s.", usr.Name, svc.conf.AppName, usr.Role),
	})
}
