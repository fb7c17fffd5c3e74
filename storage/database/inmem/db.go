package inmemdb

import (
	"sync"

	"github.com/trezcool/masomo-admin/core/paymentplan"
	"github.com/trezcool/masomo-admin/core/report"
)

type (
	planTable struct {
		mutex sync.RWMutex
		table map[string]map[string]*paymentplan.Plan // {instituteID: {planID: plan}}
	}

	draftTable struct {
		mutex sync.RWMutex
		table map[string]*paymentplan.Draft
	}

	reportRows struct {
		progress    []report.ProgressEntry
		timeline    []report.TimelineEntry
		leaderboard []report.LeaderboardEntry
	}

	reportTable struct {
		mutex sync.RWMutex
		table map[string]*reportRows // {instituteID: rows}
	}

	// DB is an in-memory database, used in DEV and tests.
	DB struct {
		plan   *planTable
		draft  *draftTable
		report *reportTable
	}
)

func NewDB() *DB {
	return &DB{
		plan:   &planTable{table: make(map[string]map[string]*paymentplan.Plan)},
		draft:  &draftTable{table: make(map[string]*paymentplan.Draft)},
		report: &reportTable{table: make(map[string]*reportRows)},
	}
}

// Reset empties every table.
func (db *DB) Reset() {
	db.plan.mutex.Lock()
	db.plan.table = make(map[string]map[string]*paymentplan.Plan)
	db.plan.mutex.Unlock()

	db.draft.mutex.Lock()
	db.draft.table = make(map[string]*paymentplan.Draft)
	db.draft.mutex.Unlock()

	db.report.mutex.Lock()
	db.report.table = make(map[string]*reportRows)
	db.report.mutex.Unlock()
}
