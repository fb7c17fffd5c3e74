package inmemdb

import (
	"context"

	"github.com/trezcool/masomo-admin/core/paymentplan"
)

type draftStore struct {
	db *draftTable
}

var _ paymentplan.DraftStore = (*draftStore)(nil)

func NewDraftStore(db *DB) paymentplan.DraftStore {
	return &draftStore{db: db.draft}
}

func (store *draftStore) GetDraft(_ context.Context, id string) (paymentplan.Draft, error) {
	store.db.mutex.RLock()
	defer store.db.mutex.RUnlock()

	if d, ok := store.db.table[id]; ok {
		draft := *d
		draft.Wizard.Plan = d.Wizard.Plan.Clone()
		draft.Wizard.FreePlans = append([]paymentplan.FreePlanInfo(nil), d.Wizard.FreePlans...)
		return draft, nil
	}
	return paymentplan.Draft{}, paymentplan.ErrDraftNotFound
}

func (store *draftStore) SaveDraft(_ context.Context, draft paymentplan.Draft) error {
	store.db.mutex.Lock()
	defer store.db.mutex.Unlock()

	draft.Wizard.Plan = draft.Wizard.Plan.Clone()
	store.db.table[draft.ID] = &draft
	return nil
}

func (store *draftStore) DeleteDraft(_ context.Context, id string) error {
	store.db.mutex.Lock()
	defer store.db.mutex.Unlock()

	if _, ok := store.db.table[id]; !ok {
		return paymentplan.ErrDraftNotFound
	}
	delete(store.db.table, id)
	return nil
}
