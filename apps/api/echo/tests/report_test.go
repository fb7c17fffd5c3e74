package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-admin/core/report"
	"github.com/trezcool/masomo-admin/tests"
)

func seedReports() {
	progress, timeline, leaderboard := testutil.ReportRows()
	db.SeedReports("inst", progress, timeline, leaderboard)
}

func Test_reportApi_progress(t *testing.T) {
	reset()
	seedReports()
	token := getToken(t, "inst")

	var entries []report.ProgressEntry
	serve(t, http.MethodGet, "/v1/reports/progress", token, nil, http.StatusOK, &entries)
	if assert.Len(t, entries, 3) {
		percents := make([]float64, 0, len(entries))
		for _, e := range entries {
			percents = append(percents, *e.Percent)
		}
		assert.Equal(t, []float64{75, 33.33, 0}, percents)
	}

	serve(t, http.MethodGet, "/v1/reports/progress?course_id=c1", token, nil, http.StatusOK, &entries)
	assert.Len(t, entries, 2)
	serve(t, http.MethodGet, "/v1/reports/progress?level=l2", token, nil, http.StatusOK, &entries)
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "s3", entries[0].StudentID)
	}

	// an institute without data gets an empty list
	rec := serve(t, http.MethodGet, "/v1/reports/progress", getToken(t, "other"), nil, http.StatusOK, nil)
	ok, err := jsonBytesEqual(rec.Body.Bytes(), []byte(`[]`))
	assert.NoError(t, err)
	assert.True(t, ok, rec.Body.String())
}

func Test_reportApi_timeline(t *testing.T) {
	reset()
	seedReports()
	token := getToken(t, "inst")

	var entries []report.TimelineEntry
	serve(t, http.MethodGet, "/v1/reports/timeline", token, nil, http.StatusOK, &entries)
	if assert.Len(t, entries, 3) {
		assert.Equal(t, testutil.Day(2), entries[0].Date)
		assert.Equal(t, testutil.Day(10), entries[1].Date)
		assert.Equal(t, testutil.Day(20), entries[2].Date)
	}

	serve(t, http.MethodGet, "/v1/reports/timeline?from=2021-03-05&to=2021-03-15", token, nil, http.StatusOK, &entries)
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "s3", entries[0].StudentID)
	}

	tests := []httpTest{
		{name: "bad date", path: "/v1/reports/timeline?from=2021-13-01", wantCode: http.StatusBadRequest},
		{
			name: "inverted period", path: "/v1/reports/timeline?from=2021-03-10&to=2021-03-01", wantCode: http.StatusBadRequest,
			wantData: []byte(`{"to": "must not be before from"}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_reportApi_leaderboard(t *testing.T) {
	reset()
	seedReports()
	token := getToken(t, "inst")

	var entries []report.LeaderboardEntry
	serve(t, http.MethodGet, "/v1/reports/leaderboard", token, nil, http.StatusOK, &entries)
	if assert.Len(t, entries, 3) {
		got := make([]string, 0, len(entries))
		ranks := make([]int, 0, len(entries))
		for _, e := range entries {
			got = append(got, e.StudentName)
			ranks = append(ranks, e.Rank)
		}
		assert.Equal(t, []string{"Amani", "Baraka", "Chausiku"}, got)
		assert.Equal(t, []int{1, 2, 2}, ranks)
	}

	serve(t, http.MethodGet, "/v1/reports/leaderboard?course_id=c2", token, nil, http.StatusOK, &entries)
	if assert.Len(t, entries, 1) {
		assert.Equal(t, 1, entries[0].Rank)
	}
}

func Test_reportApi_export(t *testing.T) {
	reset()
	seedReports()
	token := getToken(t, "inst")

	t.Run("csv", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/reports/leaderboard/export?format=CSV", token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="leaderboard.csv"`, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, "rank,student_id,student_name,score\n1,s1,Amani,95.00\n2,s2,Baraka,80.00\n2,s3,Chausiku,80.00\n", rec.Body.String())
	})

	t.Run("csv with filter", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/reports/progress/export?format=csv&course_id=c2", token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `attachment; filename="progress_c2.csv"`, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, "student_id,student_name,course_id,completed,total,percent\ns3,Chausiku,c2,0,0,0.00\n", rec.Body.String())
	})

	tests := []httpTest{
		{
			name: "pdf", path: "/v1/reports/progress/export?format=pdf", wantCode: http.StatusNotImplemented,
			wantData: marchallObj(t, httpErr{Error: report.ErrPDFNotReady.Error()}),
		},
		{name: "format required", path: "/v1/reports/progress/export", wantCode: http.StatusBadRequest},
		{name: "unknown format", path: "/v1/reports/progress/export?format=xls", wantCode: http.StatusBadRequest},
		{
			name: "unknown kind", path: "/v1/reports/attendance/export?format=csv", wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: report.ErrUnknownKind.Error()}),
		},
		{name: "Auth required", path: "/v1/reports/progress/export?format=csv", token: "-", wantCode: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := token
			if tt.token == "-" {
				tok = ""
			}
			req, rec := newAuthRequest(http.MethodGet, tt.path, tok)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_reportApi_email(t *testing.T) {
	reset()
	seedReports()
	token := getToken(t, "inst")

	tests := []httpTest{
		{
			name:     "mailed",
			path:     "/v1/reports/timeline/email",
			body:     []byte(`{"format": "csv", "from": "2021-03-01", "recipients": ["head@school.cd"]}`),
			wantCode: http.StatusAccepted,
			wantData: []byte(`{"filename": "timeline_2021-03-01.csv", "recipients": ["head@school.cd"]}`),
		},
		{
			name:     "recipients required",
			path:     "/v1/reports/timeline/email",
			body:     []byte(`{"format": "csv"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"recipients": "at least one valid email is required"}`),
		},
		{name: "invalid recipient", path: "/v1/reports/timeline/email", body: []byte(`{"format": "csv", "recipients": ["lol"]}`), wantCode: http.StatusBadRequest},
		{name: "pdf", path: "/v1/reports/timeline/email", body: []byte(`{"format": "pdf", "recipients": ["head@school.cd"]}`), wantCode: http.StatusNotImplemented},
		{name: "unknown kind", path: "/v1/reports/lol/email", body: []byte(`{"format": "csv"}`), wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, tt.path, token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	sent := mailSvc.SentMessages()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, "Your timeline report", sent[0].Subject)
		if assert.Len(t, sent[0].Attachments, 1) {
			assert.Equal(t, "timeline_2021-03-01.csv", sent[0].Attachments[0].Filename)
		}
	}
}
