package inmemdb

import (
	"context"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/paymentplan"
)

type planRepository struct {
	db *planTable
}

var _ paymentplan.Repository = (*planRepository)(nil)

func NewPlanRepository(db *DB) paymentplan.Repository {
	return &planRepository{db: db.plan}
}

func (repo *planRepository) query(instituteID string) []paymentplan.Plan {
	rows := repo.db.table[instituteID]
	plans := make([]paymentplan.Plan, 0, len(rows))
	for _, p := range rows {
		plans = append(plans, p.Clone())
	}
	return plans
}

func (repo *planRepository) QueryPlans(_ context.Context, instituteID string, filter paymentplan.QueryFilter) ([]paymentplan.Plan, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	plans := make([]paymentplan.Plan, 0)
	for _, p := range repo.query(instituteID) {
		if filter.Match(p) {
			plans = append(plans, p)
		}
	}
	paymentplan.SortPlans(plans, core.FilterOrderings(filter.Orderings, paymentplan.OrderingFields))
	return plans, nil
}

func (repo *planRepository) GetPlan(_ context.Context, instituteID, id string) (paymentplan.Plan, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.table[instituteID][id]; ok {
		return p.Clone(), nil
	}
	return paymentplan.Plan{}, paymentplan.ErrNotFound
}

func (repo *planRepository) SavePlan(_ context.Context, instituteID string, plan paymentplan.Plan) (paymentplan.Plan, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rows, ok := repo.db.table[instituteID]
	if !ok {
		rows = make(map[string]*paymentplan.Plan)
		repo.db.table[instituteID] = rows
	}
	plan.InstituteID = instituteID
	stored := plan.Clone()
	rows[plan.ID] = &stored
	return plan.Clone(), nil
}

func (repo *planRepository) MakeDefault(_ context.Context, instituteID, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rows := repo.db.table[instituteID]
	if _, ok := rows[id]; !ok {
		return paymentplan.ErrNotFound
	}
	for pid, p := range rows {
		p.IsDefault = pid == id
	}
	return nil
}

func (repo *planRepository) DeletePlan(_ context.Context, instituteID, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rows := repo.db.table[instituteID]
	if _, ok := rows[id]; !ok {
		return paymentplan.ErrNotFound
	}
	delete(rows, id)
	return nil
}
