package notification

import (
	"time"

	"github.com/trezcool/ripoti/core"
)

// Notification kinds.
const (
	KindStatusChange = "status-change"
	KindRoleChange   = "role-change"
	KindRequest      = "request"
	KindBroadcast    = "broadcast"
)

// Notification is a single append-only inbox entry. Entries are keyed by
// recipient; broadcasts are fanned out to one entry per recipient at send
// time, there are no shared entries.
type Notification struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Message   string    `json:"message" db:"message"`
	Kind      string    `json:"kind,omitempty" db:"kind"`
	Read      bool      `json:"read" db:"read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}

// Selector designates the recipient set of a notification: a single
// account, a role-filtered set (optionally narrowed by department), or
// every account.
type Selector struct {
	UserID     string
	Roles      []string
	Department string
	All        bool
}

// ToUser selects a single account.
func ToUser(id string) Selector {
	return Selector{UserID: id}
}

// ToRole selects all accounts holding any of the given roles,
// optionally narrowed by department ("" matches all departments).
func ToRole(department string, roles ...string) Selector {
	return Selector{Roles: roles, Department: department}
}

// ToAll selects every account existing at resolution time.
func ToAll() Selector {
	return Selector{All: true}
}

// NewMessage contains information needed to send a notification via the
// admin send endpoint.
type NewMessage struct {
	UserID  string `json:"user_id" validate:"required"` // account id or "all"
	Message string `json:"message" validate:"required"`
}

func (nm *NewMessage) Validate() error {
	nm.UserID = core.CleanString(nm.UserID)
	nm.Message = core.CleanString(nm.Message)
	return core.Validate.Struct(nm)
}
