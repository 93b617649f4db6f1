package report

import (
	"time"

	"github.com/trezcool/ripoti/core"
)

// Report statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

var AllStatuses = []string{StatusPending, StatusApproved, StatusRejected}

// IsValidStatus reports whether status is one of the known statuses.
func IsValidStatus(status string) bool {
	for _, s := range AllStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type Report struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Category    string    `json:"category" db:"category"`
	Status      string    `json:"status" db:"status"`
	OwnerID     string    `json:"owner_id" db:"owner_id"`
	Department  string    `json:"department" db:"department"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// NewReport contains information needed to submit a new Report.
type NewReport struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category"`
}

func (nr *NewReport) Validate() error {
	nr.Title = core.CleanString(nr.Title)
	nr.Description = core.CleanString(nr.Description)
	nr.Category = core.CleanString(nr.Category)
	return core.Validate.Struct(nr)
}

// UpdateStatus defines the status transition payload.
type UpdateStatus struct {
	Status string `json:"status" validate:"required"`
}

func (us *UpdateStatus) Validate() error {
	us.Status = core.CleanString(us.Status, true /* lower */)
	return core.Validate.Struct(us)
}

type QueryFilter struct {
	Category string `query:"category"`
	Status   string `query:"status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Category == "" && qf.Status == ""
}

func (qf *QueryFilter) Clean() {
	qf.Category = core.CleanString(qf.Category)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
