package sqlxrepos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/paymentplan"
)

func TestRowMapping(t *testing.T) {
	p := paymentplan.NewPlan("Monthly", paymentplan.TypeSubscription, "USD")
	p.ID = "plan_1"
	p.InstituteID = "inst"
	p.Config.Subscription.CustomIntervals[0].Price = "100"
	p.AddFeature("Videos")
	p.ValidityDays = p.ComputeValidityDays()
	p.CreatedAt = time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC)

	row, err := toRow(p)
	assert.NoError(t, err)
	assert.True(t, row.CreatedAt.Valid)
	assert.False(t, row.UpdatedAt.Valid)
	assert.Equal(t, "SUBSCRIPTION", row.Type)
	assert.JSONEq(t, `["Videos"]`, string(row.Features))

	got, err := fromRow(row)
	assert.NoError(t, err)
	assert.Equal(t, p.Config, got.Config)
	assert.Equal(t, p.Features, got.Features)
	assert.Equal(t, p.ValidityDays, got.ValidityDays)
	assert.Equal(t, p.Tag, got.Tag)
	assert.True(t, got.UpdatedAt.IsZero())

	t.Run("no features", func(t *testing.T) {
		p := paymentplan.NewPlan("Trial", paymentplan.TypeFree, "USD")
		row, err := toRow(p)
		assert.NoError(t, err)
		assert.Equal(t, "[]", string(row.Features))
	})

	t.Run("corrupt config", func(t *testing.T) {
		row := row
		row.Config = []byte(`{"free":`)
		_, err := fromRow(row)
		assert.Error(t, err)
	})
}

func TestPlanWhere(t *testing.T) {
	tests := []struct {
		name     string
		filter   paymentplan.QueryFilter
		wantSQL  string
		wantArgs []interface{}
	}{
		{name: "institute only", wantSQL: "institute_id = ?", wantArgs: []interface{}{"inst"}},
		{
			name:     "all filters",
			filter:   paymentplan.QueryFilter{Type: paymentplan.TypeFree, Tag: "free", Search: "tri"},
			wantSQL:  `institute_id = ? AND type = ? AND tag = ? AND name ILIKE ? ESCAPE '\'`,
			wantArgs: []interface{}{"inst", "FREE", "free", "%tri%"},
		},
		{
			name:     "wildcards match literally",
			filter:   paymentplan.QueryFilter{Search: `50%_off\`},
			wantSQL:  `institute_id = ? AND name ILIKE ? ESCAPE '\'`,
			wantArgs: []interface{}{"inst", `%50\%\_off\\%`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := planWhere("inst", tt.filter)
			assert.Equal(t, tt.wantSQL, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestOrderBy(t *testing.T) {
	assert.Equal(t, "created_at DESC, id", orderBy(nil))
	assert.Equal(t, "name ASC, updated_at DESC, id", orderBy([]core.DBOrdering{
		{Field: "name", Ascending: true},
		{Field: "password"},
		{Field: "updated_at"},
	}))
}
