package notification

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/ripoti/core"
)

var (
	// errors
	ErrNotFound = errors.New("notification not found")
)

type (
	Repository interface {
		CreateNotification(n Notification) (Notification, error)
		// QueryByRecipient returns a recipient's inbox, newest first.
		QueryByRecipient(userID string) ([]Notification, error)
		// MarkNotificationRead is idempotent; it fails with ErrNotFound
		// when the notification does not belong to that recipient.
		MarkNotificationRead(userID, id string) error
		ClearByRecipient(userID string) error
	}

	// Directory resolves recipient selectors against the account store.
	Directory interface {
		QueryUserIDsByRole(roles []string, department string) ([]string, error)
		QueryAllUserIDs() ([]string, error)
	}

	Service interface {
		Notify(sel Selector, message, kind string) error
		ListInbox(userID string) ([]Notification, error)
		MarkRead(userID, id string) error
		ClearAll(userID string) error
	}

	service struct {
		repo   Repository
		dir    Directory
		logger core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, dir Directory, logger core.Logger) Service {
	return &service{
		repo:   repo,
		dir:    dir,
		logger: logger,
	}
}

// Notify resolves sel to a concrete recipient set and appends one entry
// per recipient. Membership is a snapshot taken now; accounts created
// afterwards are not notified. Delivery is best-effort: a failure on one
// recipient is logged and skipped, the remaining recipients are still
// notified. Callers must invoke Notify exactly once per logical event;
// the engine does not deduplicate.
func (svc *service) Notify(sel Selector, message, kind string) error {
	recipients, err := svc.resolve(sel)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, userID := range recipients {
		n := Notification{
			ID:        uuid.New().String(),
			UserID:    userID,
			Message:   message,
			Kind:      kind,
			CreatedAt: now,
		}
		if _, err := svc.repo.CreateNotification(n); err != nil {
			svc.logger.Error("appending notification to inbox", err, map[string]interface{}{"user_id": userID})
		}
	}
	return nil
}

func (svc *service) resolve(sel Selector) ([]string, error) {
	switch {
	case sel.All:
		return svc.dir.QueryAllUserIDs()
	case len(sel.Roles) > 0:
		return svc.dir.QueryUserIDsByRole(sel.Roles, sel.Department)
	case sel.UserID != "":
		return []string{sel.UserID}, nil
	}
	return nil, nil
}

func (svc *service) ListInbox(userID string) ([]Notification, error) {
	return svc.repo.QueryByRecipient(userID)
}

func (svc *service) MarkRead(userID, id string) error {
	return svc.repo.MarkNotificationRead(userID, id)
}

func (svc *service) ClearAll(userID string) error {
	return svc.repo.ClearByRecipient(userID)
}
