package dummydb

import (
	"github.com/trezcool/ripoti/core/notification"
)

type notificationRepository struct {
	db *notificationTable
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db.notification}
}

func (repo *notificationRepository) CreateNotification(n notification.Notification) (notification.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table = append(repo.db.table, &n)
	return n, nil
}

func (repo *notificationRepository) QueryByRecipient(userID string) ([]notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	// insertion order is chronological; walk backwards for newest first
	var notifs []notification.Notification
	for i := len(repo.db.table) - 1; i >= 0; i-- {
		if n := repo.db.table[i]; n.UserID == userID {
			notifs = append(notifs, *n)
		}
	}
	return notifs, nil
}

func (repo *notificationRepository) MarkNotificationRead(userID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, n := range repo.db.table {
		if n.ID == id && n.UserID == userID {
			n.Read = true
			return nil
		}
	}
	return notification.ErrNotFound
}

func (repo *notificationRepository) ClearByRecipient(userID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	remaining := repo.db.table[:0]
	for _, n := range repo.db.table {
		if n.UserID != userID {
			remaining = append(remaining, n)
		}
	}
	repo.db.table = remaining
	return nil
}
