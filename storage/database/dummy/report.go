package dummydb

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/ripoti/core/report"
)

type reportRepository struct {
	db *reportTable
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *DB) *reportRepository {
	return &reportRepository{db: db.report}
}

func (repo *reportRepository) query() []report.Report {
	reports := make([]report.Report, 0, len(repo.db.table))
	for _, r := range repo.db.table {
		reports = append(reports, *r)
	}
	return reports
}

func (repo *reportRepository) CreateReport(rpt report.Report) (report.Report, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rpt.ID = uuid.New().String()
	repo.db.table[rpt.ID] = &rpt
	return rpt, nil
}

func (repo *reportRepository) GetReportByID(id string) (report.Report, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rpt, ok := repo.db.table[id]; ok {
		return *rpt, nil
	}
	return report.Report{}, report.ErrNotFound
}

func (repo *reportRepository) QueryReportsByOwner(ownerID string) ([]report.Report, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var reports []report.Report
	for _, r := range repo.query() {
		if r.OwnerID == ownerID {
			reports = append(reports, r)
		}
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].CreatedAt.After(reports[j].CreatedAt) })
	return reports, nil
}

func (repo *reportRepository) FilterReports(filter report.QueryFilter) ([]report.Report, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	reports := repo.query()
	if filter.Category != "" {
		var filtered []report.Report
		for _, r := range reports {
			if r.Category == filter.Category {
				filtered = append(filtered, r)
			}
		}
		reports = filtered
	}
	if reports != nil && filter.Status != "" {
		var filtered []report.Report
		for _, r := range reports {
			if r.Status == filter.Status {
				filtered = append(filtered, r)
			}
		}
		reports = filtered
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].CreatedAt.After(reports[j].CreatedAt) })
	return reports, nil
}

func (repo *reportRepository) UpdateReportStatus(id, status string) (report.Report, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rpt, ok := repo.db.table[id]
	if !ok {
		return report.Report{}, report.ErrNotFound
	}
	rpt.Status = status
	rpt.UpdatedAt = time.Now().UTC()
	repo.db.table[id] = rpt
	return *rpt, nil
}
