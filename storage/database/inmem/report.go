package inmemdb

import (
	"context"

	"github.com/trezcool/masomo-admin/core/report"
)

type reportSource struct {
	db *reportTable
}

var _ report.Source = (*reportSource)(nil)

func NewReportSource(db *DB) report.Source {
	return &reportSource{db: db.report}
}

// SeedReports appends report rows for an institute.
func (db *DB) SeedReports(instituteID string, progress []report.ProgressEntry, timeline []report.TimelineEntry, leaderboard []report.LeaderboardEntry) {
	db.report.mutex.Lock()
	defer db.report.mutex.Unlock()

	rows, ok := db.report.table[instituteID]
	if !ok {
		rows = new(reportRows)
		db.report.table[instituteID] = rows
	}
	rows.progress = append(rows.progress, progress...)
	rows.timeline = append(rows.timeline, timeline...)
	rows.leaderboard = append(rows.leaderboard, leaderboard...)
}

func (src *reportSource) rows(instituteID string) reportRows {
	if rows, ok := src.db.table[instituteID]; ok {
		return *rows
	}
	return reportRows{}
}

func (src *reportSource) Progress(_ context.Context, instituteID string, filter report.Filter) ([]report.ProgressEntry, error) {
	src.db.mutex.RLock()
	defer src.db.mutex.RUnlock()

	entries := make([]report.ProgressEntry, 0)
	for _, e := range src.rows(instituteID).progress {
		if filter.Match(e.CourseID, e.SessionID, e.Level, e.StudentID) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (src *reportSource) Timeline(_ context.Context, instituteID string, filter report.Filter) ([]report.TimelineEntry, error) {
	src.db.mutex.RLock()
	defer src.db.mutex.RUnlock()

	entries := make([]report.TimelineEntry, 0)
	for _, e := range src.rows(instituteID).timeline {
		if filter.Match(e.CourseID, e.SessionID, e.Level, e.StudentID) && filter.Contains(e.Date) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (src *reportSource) Leaderboard(_ context.Context, instituteID string, filter report.Filter) ([]report.LeaderboardEntry, error) {
	src.db.mutex.RLock()
	defer src.db.mutex.RUnlock()

	entries := make([]report.LeaderboardEntry, 0)
	for _, e := range src.rows(instituteID).leaderboard {
		if filter.Match(e.CourseID, e.SessionID, e.Level, e.StudentID) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// ExportPDF is not supported: PDFs are rendered by the reporting backend only.
func (src *reportSource) ExportPDF(context.Context, string, report.Kind, report.Filter) ([]byte, error) {
	return nil, report.ErrPDFNotReady
}
