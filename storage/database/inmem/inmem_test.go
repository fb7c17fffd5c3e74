package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/paymentplan"
	"github.com/trezcool/masomo-admin/core/report"
)

func savePlan(t *testing.T, repo paymentplan.Repository, inst, id, name string, pt paymentplan.PlanType, created time.Time) paymentplan.Plan {
	t.Helper()
	p := paymentplan.NewPlan(name, pt, "USD")
	p.ID = id
	p.CreatedAt = created
	saved, err := repo.SavePlan(context.Background(), inst, p)
	assert.NoError(t, err)
	return saved
}

func TestPlanRepository(t *testing.T) {
	db := NewDB()
	repo := NewPlanRepository(db)
	ctx := context.Background()
	day := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

	savePlan(t, repo, "inst", "plan_1", "Trial", paymentplan.TypeFree, day)
	savePlan(t, repo, "inst", "plan_2", "Monthly", paymentplan.TypeSubscription, day.Add(time.Hour))
	savePlan(t, repo, "inst", "plan_3", "Annual", paymentplan.TypeSubscription, day.Add(2*time.Hour))
	savePlan(t, repo, "other", "plan_4", "Trial", paymentplan.TypeFree, day)

	t.Run("query", func(t *testing.T) {
		tests := []struct {
			name   string
			filter paymentplan.QueryFilter
			want   []string
		}{
			{name: "newest first", want: []string{"plan_3", "plan_2", "plan_1"}},
			{name: "by type", filter: paymentplan.QueryFilter{Type: paymentplan.TypeSubscription}, want: []string{"plan_3", "plan_2"}},
			{name: "by name", filter: paymentplan.QueryFilter{Orderings: []core.DBOrdering{{Field: "name", Ascending: true}}}, want: []string{"plan_3", "plan_2", "plan_1"}},
			{name: "search", filter: paymentplan.QueryFilter{Search: "month"}, want: []string{"plan_2"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				plans, err := repo.QueryPlans(ctx, "inst", tt.filter)
				assert.NoError(t, err)
				ids := make([]string, 0, len(plans))
				for _, p := range plans {
					ids = append(ids, p.ID)
				}
				assert.Equal(t, tt.want, ids)
			})
		}
	})

	t.Run("get returns copies", func(t *testing.T) {
		p, err := repo.GetPlan(ctx, "inst", "plan_2")
		assert.NoError(t, err)
		p.AddFeature("Videos")
		p.Config.Subscription.CustomIntervals[0].Price = "1"

		again, _ := repo.GetPlan(ctx, "inst", "plan_2")
		assert.Empty(t, again.Features)
		assert.Equal(t, paymentplan.Amount(""), again.Config.Subscription.CustomIntervals[0].Price)

		_, err = repo.GetPlan(ctx, "other", "plan_2")
		assert.ErrorIs(t, err, paymentplan.ErrNotFound)
	})

	t.Run("default is unique", func(t *testing.T) {
		assert.NoError(t, repo.MakeDefault(ctx, "inst", "plan_2"))
		assert.NoError(t, repo.MakeDefault(ctx, "inst", "plan_3"))
		assert.ErrorIs(t, repo.MakeDefault(ctx, "inst", "plan_404"), paymentplan.ErrNotFound)

		plans, _ := repo.QueryPlans(ctx, "inst", paymentplan.QueryFilter{})
		var defaults []string
		for _, p := range plans {
			if p.IsDefault {
				defaults = append(defaults, p.ID)
			}
		}
		assert.Equal(t, []string{"plan_3"}, defaults)
	})

	t.Run("delete", func(t *testing.T) {
		assert.NoError(t, repo.DeletePlan(ctx, "inst", "plan_1"))
		assert.ErrorIs(t, repo.DeletePlan(ctx, "inst", "plan_1"), paymentplan.ErrNotFound)
		_, err := repo.GetPlan(ctx, "other", "plan_4")
		assert.NoError(t, err)
	})

	t.Run("reset", func(t *testing.T) {
		db.Reset()
		plans, err := repo.QueryPlans(ctx, "inst", paymentplan.QueryFilter{})
		assert.NoError(t, err)
		assert.Empty(t, plans)
	})
}

func TestDraftStore(t *testing.T) {
	store := NewDraftStore(NewDB())
	ctx := context.Background()

	plan := paymentplan.NewPlan("Monthly", paymentplan.TypeSubscription, "USD")
	d := paymentplan.Draft{ID: "d1", InstituteID: "inst", Wizard: paymentplan.NewWizard(plan, false, nil)}
	assert.NoError(t, store.SaveDraft(ctx, d))

	// the stored draft does not share memory with the caller
	d.Wizard.Plan.Config.Subscription.CustomIntervals[0].Price = "100"

	got, err := store.GetDraft(ctx, "d1")
	assert.NoError(t, err)
	assert.Equal(t, "inst", got.InstituteID)
	assert.Equal(t, paymentplan.Amount(""), got.Wizard.Plan.Config.Subscription.CustomIntervals[0].Price)

	assert.NoError(t, store.DeleteDraft(ctx, "d1"))
	_, err = store.GetDraft(ctx, "d1")
	assert.ErrorIs(t, err, paymentplan.ErrDraftNotFound)
	assert.ErrorIs(t, store.DeleteDraft(ctx, "d1"), paymentplan.ErrDraftNotFound)
}

func TestReportSource(t *testing.T) {
	db := NewDB()
	src := NewReportSource(db)
	ctx := context.Background()
	day := func(d int) time.Time { return time.Date(2021, 3, d, 9, 0, 0, 0, time.UTC) }

	db.SeedReports("inst",
		[]report.ProgressEntry{
			{StudentID: "s1", CourseID: "c1", Level: "L1", Completed: 1, Total: 4},
			{StudentID: "s2", CourseID: "c2", Level: "L2", Completed: 2, Total: 4},
		},
		[]report.TimelineEntry{
			{StudentID: "s1", CourseID: "c1", Date: day(1), Activity: "quiz"},
			{StudentID: "s1", CourseID: "c1", Date: day(15), Activity: "lesson"},
			{StudentID: "s2", CourseID: "c2", Date: day(20), Activity: "quiz"},
		},
		[]report.LeaderboardEntry{
			{StudentID: "s1", CourseID: "c1", Score: 10},
			{StudentID: "s2", CourseID: "c2", Score: 7},
		},
	)

	progress, err := src.Progress(ctx, "inst", report.Filter{Level: "l2"})
	assert.NoError(t, err)
	if assert.Len(t, progress, 1) {
		assert.Equal(t, "s2", progress[0].StudentID)
	}

	timeline, err := src.Timeline(ctx, "inst", report.Filter{CourseID: "c1", From: "2021-03-10", To: "2021-03-31"})
	assert.NoError(t, err)
	if assert.Len(t, timeline, 1) {
		assert.Equal(t, "lesson", timeline[0].Activity)
	}

	board, err := src.Leaderboard(ctx, "inst", report.Filter{})
	assert.NoError(t, err)
	assert.Len(t, board, 2)

	empty, err := src.Leaderboard(ctx, "unknown", report.Filter{})
	assert.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = src.ExportPDF(ctx, "inst", report.KindProgress, report.Filter{})
	assert.ErrorIs(t, err, report.ErrPDFNotReady)
}
