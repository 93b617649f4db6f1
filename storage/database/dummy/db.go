package dummydb

import (
	"sync"

	"github.com/trezcool/ripoti/core/notification"
	"github.com/trezcool/ripoti/core/report"
	"github.com/trezcool/ripoti/core/user"
)

type (
	DB struct {
		user         *userTable
		notification *notificationTable
		report       *reportTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	notificationTable struct {
		sync.RWMutex
		table []*notification.Notification // insertion order
	}

	reportTable struct {
		sync.RWMutex
		table map[string]*report.Report
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:         &userTable{table: make(map[string]*user.User)},
		notification: &notificationTable{},
		report:       &reportTable{table: make(map[string]*report.Report)},
	}
	return db, nil
}
