package sqlxrepos

import (
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/ripoti/core/notification"
)

const notificationColumns = `id, user_id, message, kind, read, created_at`

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(n notification.Notification) (notification.Notification, error) {
	_, err := repo.db.Exec(
		`INSERT INTO notifications (`+notificationColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, n.UserID, n.Message, n.Kind, n.Read, n.CreatedAt,
	)
	if err != nil {
		return notification.Notification{}, err
	}
	return n, nil
}

func (repo *notificationRepository) QueryByRecipient(userID string) ([]notification.Notification, error) {
	var notifs []notification.Notification
	err := repo.db.Select(&notifs,
		`SELECT `+notificationColumns+` FROM notifications WHERE user_id = $1 ORDER BY seq DESC`, userID)
	if err != nil {
		return nil, err
	}
	return notifs, nil
}

func (repo *notificationRepository) MarkNotificationRead(userID, id string) error {
	// idempotent; last write wins
	res, err := repo.db.Exec(`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notification.ErrNotFound
	}
	return nil
}

func (repo *notificationRepository) ClearByRecipient(userID string) error {
	_, err := repo.db.Exec(`DELETE FROM notifications WHERE user_id = $1`, userID)
	return err
}
