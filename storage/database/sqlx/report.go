package sqlxrepos

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/ripoti/core/report"
)

const reportColumns = `id, title, description, category, status, owner_id, department, created_at, updated_at`

type reportRepository struct {
	db *sqlx.DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *sqlx.DB) *reportRepository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) CreateReport(rpt report.Report) (report.Report, error) {
	rpt.ID = uuid.New().String()
	_, err := repo.db.Exec(
		`INSERT INTO reports (`+reportColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rpt.ID, rpt.Title, rpt.Description, rpt.Category, rpt.Status,
		rpt.OwnerID, rpt.Department, rpt.CreatedAt, rpt.UpdatedAt,
	)
	if err != nil {
		return report.Report{}, err
	}
	return rpt, nil
}

func (repo *reportRepository) GetReportByID(id string) (report.Report, error) {
	var rpt report.Report
	if err := repo.db.Get(&rpt, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return report.Report{}, report.ErrNotFound
		}
		return report.Report{}, err
	}
	return rpt, nil
}

func (repo *reportRepository) QueryReportsByOwner(ownerID string) ([]report.Report, error) {
	var reports []report.Report
	err := repo.db.Select(&reports,
		`SELECT `+reportColumns+` FROM reports WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	return reports, nil
}

func (repo *reportRepository) FilterReports(filter report.QueryFilter) ([]report.Report, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Category != "" {
		conds = append(conds, fmt.Sprintf("category = %s", arg(filter.Category)))
	}
	if filter.Status != "" {
		conds = append(conds, fmt.Sprintf("status = %s", arg(filter.Status)))
	}

	query := `SELECT ` + reportColumns + ` FROM reports`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	var reports []report.Report
	if err := repo.db.Select(&reports, query, args...); err != nil {
		return nil, err
	}
	return reports, nil
}

func (repo *reportRepository) UpdateReportStatus(id, status string) (report.Report, error) {
	var rpt report.Report
	err := repo.db.Get(&rpt,
		`UPDATE reports SET status = $2, updated_at = $3 WHERE id = $1 RETURNING `+reportColumns,
		id, status, time.Now().UTC(),
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return report.Report{}, report.ErrNotFound
		}
		return report.Report{}, err
	}
	return rpt, nil
}
