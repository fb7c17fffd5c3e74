package report

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-admin/core"
	emailsvc "github.com/trezcool/masomo-admin/services/email"
)

type sourceStub struct {
	progress    []ProgressEntry
	timeline    []TimelineEntry
	leaderboard []LeaderboardEntry
	pdf         []byte
	err         error
}

func (s sourceStub) Progress(context.Context, string, Filter) ([]ProgressEntry, error) {
	return append([]ProgressEntry(nil), s.progress...), s.err
}

func (s sourceStub) Timeline(context.Context, string, Filter) ([]TimelineEntry, error) {
	return append([]TimelineEntry(nil), s.timeline...), s.err
}

func (s sourceStub) Leaderboard(context.Context, string, Filter) ([]LeaderboardEntry, error) {
	return append([]LeaderboardEntry(nil), s.leaderboard...), s.err
}

func (s sourceStub) ExportPDF(context.Context, string, Kind, Filter) ([]byte, error) {
	return s.pdf, s.err
}

func float(f float64) *float64 { return &f }

func newValidator() *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())
	return validate
}

func TestFilter_Validate(t *testing.T) {
	validate := newValidator()

	tests := []struct {
		name      string
		filter    Filter
		wantField string
	}{
		{name: "empty", filter: Filter{}},
		{name: "full", filter: Filter{CourseID: " c1 ", Level: "L1", From: "2021-01-01", To: "2021-01-31"}},
		{name: "same day", filter: Filter{From: "2021-01-01", To: "2021-01-01"}},
		{name: "bad date", filter: Filter{From: "01/02/2021"}, wantField: "from"},
		{name: "reversed period", filter: Filter{From: "2021-02-01", To: "2021-01-01"}, wantField: "to"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate(validate)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var vErrs validator.ValidationErrors
			if errors.As(err, &vErrs) {
				assert.Equal(t, tt.wantField, vErrs[0].Field())
				return
			}
			vErr, ok := core.AsValidationError(err)
			if assert.True(t, ok, "unexpected error: %v", err) {
				assert.True(t, vErr.HasField(tt.wantField))
			}
		})
	}
}

func TestFilter_Values(t *testing.T) {
	f := Filter{CourseID: "c1", Level: "L2", From: "2021-01-01"}
	assert.Equal(t, "course_id=c1&from=2021-01-01&level=L2", f.Values().Encode())
	assert.Empty(t, Filter{}.Values())
	assert.Equal(t, "since 2021-01-01", f.Period())
}

func TestFilter_Contains(t *testing.T) {
	f := Filter{From: "2021-01-10", To: "2021-01-20"}
	assert.True(t, f.Contains(time.Date(2021, 1, 10, 0, 0, 0, 0, time.UTC)))
	assert.True(t, f.Contains(time.Date(2021, 1, 20, 23, 59, 0, 0, time.UTC)))
	assert.False(t, f.Contains(time.Date(2021, 1, 21, 0, 0, 0, 0, time.UTC)))
	assert.True(t, Filter{}.Contains(time.Now()))
	assert.True(t, Filter{Level: "l1"}.Match("c1", "s1", "L1", "st1"))
	assert.False(t, Filter{CourseID: "c2"}.Match("c1", "s1", "L1", "st1"))
}

func TestCompletionPercent(t *testing.T) {
	tests := []struct {
		completed, total int
		want             float64
	}{
		{completed: 1, total: 3, want: 33.33},
		{completed: 2, total: 3, want: 66.67},
		{completed: 3, total: 3, want: 100},
		{completed: 0, total: 5, want: 0},
		{completed: 4, total: 0, want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompletionPercent(tt.completed, tt.total))
	}
}

func TestRank(t *testing.T) {
	entries := []LeaderboardEntry{
		{StudentID: "d", StudentName: "Dan", Score: 70},
		{StudentID: "a", StudentName: "Amy", Score: 90},
		{StudentID: "c", StudentName: "Cleo", Score: 80},
		{StudentID: "b", StudentName: "Ben", Score: 80},
		{StudentID: "e", StudentName: "Eve", Score: 70},
	}
	Rank(entries)

	got := make([]string, 0, len(entries))
	ranks := make([]int, 0, len(entries))
	for _, e := range entries {
		got = append(got, e.StudentID)
		ranks = append(ranks, e.Rank)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, got)
	assert.Equal(t, []int{1, 2, 2, 4, 4}, ranks)
}

func TestService(t *testing.T) {
	ctx := context.Background()
	day := func(d int) time.Time { return time.Date(2021, 3, d, 9, 30, 0, 0, time.UTC) }
	src := sourceStub{
		progress: []ProgressEntry{
			{StudentID: "s1", StudentName: "Amy", CourseID: "c1", Completed: 1, Total: 3},
			{StudentID: "s2", StudentName: "Ben", CourseID: "c1", Completed: 1, Total: 4, Percent: float(30)},
		},
		timeline: []TimelineEntry{
			{Date: day(3), StudentID: "s1", Activity: "quiz", Score: float(8)},
			{Date: day(1), StudentID: "s2", Activity: "lesson"},
		},
		leaderboard: []LeaderboardEntry{
			{StudentID: "s2", StudentName: "Ben", Score: 10},
			{StudentID: "s1", StudentName: "Amy", Score: 12.5},
		},
		pdf: []byte("%PDF-1.4 report"),
	}
	svc := NewService(src, nil, core.NopLogger{})

	progress, err := svc.Progress(ctx, "inst", Filter{})
	assert.NoError(t, err)
	assert.Equal(t, 33.33, *progress[0].Percent)
	assert.Equal(t, float64(30), *progress[1].Percent, "source percentages are kept")

	timeline, err := svc.Timeline(ctx, "inst", Filter{})
	assert.NoError(t, err)
	assert.Equal(t, "s2", timeline[0].StudentID)

	board, err := svc.Leaderboard(ctx, "inst", Filter{})
	assert.NoError(t, err)
	assert.Equal(t, LeaderboardEntry{Rank: 1, StudentID: "s1", StudentName: "Amy", Score: 12.5}, board[0])

	t.Run("csv exports", func(t *testing.T) {
		tests := []struct {
			kind Kind
			want string
		}{
			{
				kind: KindProgress,
				want: "student_id,student_name,course_id,completed,total,percent\n" +
					"s1,Amy,c1,1,3,33.33\n" +
					"s2,Ben,c1,1,4,30.00\n",
			},
			{
				kind: KindTimeline,
				want: "date,student_id,student_name,course_id,activity,score\n" +
					"2021-03-01 09:30,s2,,,lesson,\n" +
					"2021-03-03 09:30,s1,,,quiz,8.00\n",
			},
			{
				kind: KindLeaderboard,
				want: "rank,student_id,student_name,score\n" +
					"1,s1,Amy,12.50\n" +
					"2,s2,Ben,10.00\n",
			},
		}
		for _, tt := range tests {
			t.Run(string(tt.kind), func(t *testing.T) {
				exp, err := svc.Export(ctx, "inst", tt.kind, FormatCSV, Filter{CourseID: "c1", From: "2021-03-01"})
				assert.NoError(t, err)
				assert.Equal(t, "text/csv", exp.ContentType)
				assert.Equal(t, string(tt.kind)+"_c1_2021-03-01.csv", exp.Filename)
				assert.Equal(t, tt.want, string(exp.Content))
			})
		}
	})

	t.Run("pdf passthrough", func(t *testing.T) {
		exp, err := svc.Export(ctx, "inst", KindProgress, FormatPDF, Filter{})
		assert.NoError(t, err)
		assert.Equal(t, "application/pdf", exp.ContentType)
		assert.Equal(t, "progress.pdf", exp.Filename)
		assert.Equal(t, src.pdf, exp.Content)
	})

	t.Run("bad kind or format", func(t *testing.T) {
		_, err := svc.Export(ctx, "inst", "grades", FormatCSV, Filter{})
		assert.ErrorIs(t, err, ErrUnknownKind)
		_, err = svc.Export(ctx, "inst", KindProgress, "xls", Filter{})
		assert.ErrorIs(t, err, ErrUnknownFormat)
	})

	t.Run("source failure", func(t *testing.T) {
		boom := errors.New("boom")
		failing := NewService(sourceStub{err: boom}, nil, core.NopLogger{})
		_, err := failing.Leaderboard(ctx, "inst", Filter{})
		assert.ErrorIs(t, err, boom)
		_, err = failing.Export(ctx, "inst", KindTimeline, FormatCSV, Filter{})
		assert.ErrorIs(t, err, boom)
	})
}

func TestService_EmailExport(t *testing.T) {
	core.ParseEmailTemplates(core.NopLogger{}, true)
	conf := core.NewTestConfig()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	src := sourceStub{leaderboard: []LeaderboardEntry{{StudentID: "s1", StudentName: "Amy", Score: 3}}}
	svc := NewService(src, mailSvc, core.NopLogger{})

	req := ExportRequest{Filter: Filter{From: "2021-01-01", To: "2021-01-31"}, Format: FormatCSV, Recipients: []string{"head@test.cd"}}
	exp, err := svc.EmailExport(context.Background(), "inst", KindLeaderboard, req)
	assert.NoError(t, err)

	msgs := mailSvc.SentMessages()
	if assert.Len(t, msgs, 1) {
		assert.Equal(t, "head@test.cd", msgs[0].To[0].Address)
		assert.Contains(t, msgs[0].TextContent, "leaderboard report (csv) for 2021-01-01 to 2021-01-31")
		if assert.Len(t, msgs[0].Attachments, 1) {
			at := msgs[0].Attachments[0]
			assert.Equal(t, exp.Filename, at.Filename)
			content, _ := base64.StdEncoding.DecodeString(at.Content.String())
			assert.Equal(t, exp.Content, content)
		}
	}

	req.Recipients = []string{"nobody"}
	_, err = svc.EmailExport(context.Background(), "inst", KindLeaderboard, req)
	vErr, ok := core.AsValidationError(err)
	if assert.True(t, ok) {
		assert.True(t, vErr.HasField("recipients"))
	}
}

type pdfCounter struct {
	sourceStub
	calls int
}

func (s *pdfCounter) ExportPDF(context.Context, string, Kind, Filter) ([]byte, error) {
	s.calls++
	return []byte("%PDF-1.4"), nil
}

func TestService_EmailExport_recipientsFirst(t *testing.T) {
	core.ParseEmailTemplates(core.NopLogger{}, true)
	conf := core.NewTestConfig()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	src := new(pdfCounter)
	svc := NewService(src, mailSvc, core.NopLogger{})

	req := ExportRequest{Format: FormatPDF, Recipients: []string{"nobody"}}
	_, err := svc.EmailExport(context.Background(), "inst", KindProgress, req)
	_, ok := core.AsValidationError(err)
	assert.True(t, ok, "err = %v", err)
	assert.Equal(t, 0, src.calls)
	assert.Empty(t, mailSvc.SentMessages())

	_, err = svc.EmailExport(context.Background(), "inst", Kind("lol"), req)
	assert.ErrorIs(t, err, ErrUnknownKind)

	req.Recipients = []string{"head@test.cd"}
	_, err = svc.EmailExport(context.Background(), "inst", KindProgress, req)
	assert.NoError(t, err)
	assert.Equal(t, 1, src.calls)
	assert.Len(t, mailSvc.SentMessages(), 1)
}
