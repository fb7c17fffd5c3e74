package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/paymentplan"
	"github.com/trezcool/masomo-admin/core/report"
)

// NewValidate returns a validator with every custom tag and translation registered.
func NewValidate() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	paymentplan.InitValidators(validate, translator)
	return validate, translator
}

// CreatePlan stores a plan straight into `repo`, bypassing the service rules.
func CreatePlan(
	t *testing.T,
	repo paymentplan.Repository,
	instituteID, id, name string,
	pt paymentplan.PlanType,
	configure func(p *paymentplan.Plan),
	createdAt ...time.Time,
) paymentplan.Plan {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}

	p := paymentplan.NewPlan(name, pt, "USD")
	p.ID = id
	p.InstituteID = instituteID
	if configure != nil {
		configure(&p)
	}
	p.Normalize("USD")
	p.CreatedAt = tstamp
	p.UpdatedAt = tstamp

	saved, err := repo.SavePlan(context.Background(), instituteID, p)
	if err != nil {
		t.Fatalf("CreatePlan() failed: %v", err)
	}
	return saved
}

// PricedInterval sets the price of the first subscription interval.
func PricedInterval(price string) func(p *paymentplan.Plan) {
	return func(p *paymentplan.Plan) {
		p.Config.Subscription.CustomIntervals[0].Price = paymentplan.Amount(price)
	}
}

func Score(f float64) *float64 { return &f }

// Day returns a UTC timestamp on the given day of March 2021, at 09:00.
func Day(d int) time.Time { return time.Date(2021, 3, d, 9, 0, 0, 0, time.UTC) }

// ReportRows returns a small fixture shared by the report tests.
func ReportRows() ([]report.ProgressEntry, []report.TimelineEntry, []report.LeaderboardEntry) {
	progress := []report.ProgressEntry{
		{StudentID: "s1", StudentName: "Amani", CourseID: "c1", Level: "L1", Completed: 3, Total: 4},
		{StudentID: "s2", StudentName: "Baraka", CourseID: "c1", Level: "L1", Completed: 1, Total: 3},
		{StudentID: "s3", StudentName: "Chausiku", CourseID: "c2", Level: "L2", Completed: 0, Total: 0},
	}
	timeline := []report.TimelineEntry{
		{Date: Day(20), StudentID: "s2", StudentName: "Baraka", CourseID: "c1", Activity: "quiz", Score: Score(7)},
		{Date: Day(2), StudentID: "s1", StudentName: "Amani", CourseID: "c1", Activity: "lesson"},
		{Date: Day(10), StudentID: "s3", StudentName: "Chausiku", CourseID: "c2", Activity: "quiz", Score: Score(9)},
	}
	leaderboard := []report.LeaderboardEntry{
		{StudentID: "s2", StudentName: "Baraka", CourseID: "c1", Score: 80},
		{StudentID: "s1", StudentName: "Amani", CourseID: "c1", Score: 95},
		{StudentID: "s3", StudentName: "Chausiku", CourseID: "c2", Score: 80},
	}
	return progress, timeline, leaderboard
}
