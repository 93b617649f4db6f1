package sqlxrepos

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

// The inbox is ordered by the insertion-monotonic seq column; same-second
// fanouts must still come back newest first.
func Test_notificationRepository_QueryByRecipient_newestFirst(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "user_id", "message", "kind", "read", "created_at"}).
		AddRow("n2", "u1", "second", "request", false, now).
		AddRow("n1", "u1", "first", "request", false, now)
	mock.ExpectQuery(`SELECT id, user_id, message, kind, read, created_at FROM notifications WHERE user_id = \$1 ORDER BY seq DESC`).
		WithArgs("u1").
		WillReturnRows(rows)

	notifs, err := repo.QueryByRecipient("u1")
	if err != nil {
		t.Fatalf("QueryByRecipient() failed: %v", err)
	}
	if len(notifs) != 2 || notifs[0].Message != "second" || notifs[1].Message != "first" {
		t.Errorf("QueryByRecipient() returned out of order: %+v", notifs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
