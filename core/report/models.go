package report

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-admin/core"
)

const dateLayout = "2006-01-02"

var (
	ErrUnknownKind   = errors.New("unknown report kind")
	ErrUnknownFormat = errors.New("unknown export format")
	ErrInvalidPeriod = errors.New("invalid report period")
	ErrPDFNotReady   = errors.New("pdf exports are not available from this source")
)

type Kind string

const (
	KindProgress    Kind = "progress"
	KindTimeline    Kind = "timeline"
	KindLeaderboard Kind = "leaderboard"
)

var Kinds = []Kind{KindProgress, KindTimeline, KindLeaderboard}

func (k Kind) IsValid() bool {
	return k == KindProgress || k == KindTimeline || k == KindLeaderboard
}

type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

func (f Format) IsValid() bool { return f == FormatCSV || f == FormatPDF }

type (
	// Filter narrows a report. Every field is optional; From and To are inclusive dates.
	Filter struct {
		CourseID  string `json:"course_id" query:"course_id"`
		SessionID string `json:"session_id" query:"session_id"`
		Level     string `json:"level" query:"level"`
		StudentID string `json:"student_id" query:"student_id"`
		From      string `json:"from" query:"from" validate:"omitempty,datetime=2006-01-02"`
		To        string `json:"to" query:"to" validate:"omitempty,datetime=2006-01-02"`
	}

	ProgressEntry struct {
		StudentID   string   `json:"student_id"`
		StudentName string   `json:"student_name"`
		CourseID    string   `json:"course_id"`
		SessionID   string   `json:"session_id,omitempty"`
		Level       string   `json:"level,omitempty"`
		Completed   int      `json:"completed"`
		Total       int      `json:"total"`
		Percent     *float64 `json:"percent"`
	}

	TimelineEntry struct {
		Date        time.Time `json:"date"`
		StudentID   string    `json:"student_id"`
		StudentName string    `json:"student_name"`
		CourseID    string    `json:"course_id"`
		SessionID   string    `json:"session_id,omitempty"`
		Level       string    `json:"level,omitempty"`
		Activity    string    `json:"activity"`
		Score       *float64  `json:"score,omitempty"`
	}

	LeaderboardEntry struct {
		Rank        int     `json:"rank"`
		StudentID   string  `json:"student_id"`
		StudentName string  `json:"student_name"`
		CourseID    string  `json:"course_id,omitempty"`
		SessionID   string  `json:"session_id,omitempty"`
		Level       string  `json:"level,omitempty"`
		Score       float64 `json:"score"`
	}

	// Export is a rendered report file.
	Export struct {
		Filename    string
		ContentType string
		Content     []byte
	}

	ExportRequest struct {
		Filter
		Format     Format   `json:"format" query:"format" validate:"required,oneof=csv pdf"`
		Recipients []string `json:"recipients" query:"-" validate:"omitempty,dive,email"`
	}
)

func (f *Filter) Validate(validate *validator.Validate) error {
	f.CourseID = core.CleanString(f.CourseID)
	f.SessionID = core.CleanString(f.SessionID)
	f.Level = core.CleanString(f.Level)
	f.StudentID = core.CleanString(f.StudentID)
	f.From = core.CleanString(f.From)
	f.To = core.CleanString(f.To)
	if err := validate.Struct(f); err != nil {
		return err
	}
	if from, to, ok := f.period(); ok && to.Before(from) {
		return core.NewValidationError(ErrInvalidPeriod, core.FieldError{Field: "to", Error: "must not be before from"})
	}
	return nil
}

func (er *ExportRequest) Validate(validate *validator.Validate) error {
	er.Format = Format(strings.ToLower(core.CleanString(string(er.Format))))
	if err := er.Filter.Validate(validate); err != nil {
		return err
	}
	return validate.Struct(er)
}

// period parses the filter bounds; ok is false unless both are set.
func (f Filter) period() (from, to time.Time, ok bool) {
	if f.From == "" || f.To == "" {
		return from, to, false
	}
	from, errFrom := time.Parse(dateLayout, f.From)
	to, errTo := time.Parse(dateLayout, f.To)
	return from, to, errFrom == nil && errTo == nil
}

// Period describes the filter bounds for humans, e.g. "2021-01-01 to 2021-03-31".
func (f Filter) Period() string {
	switch {
	case f.From != "" && f.To != "":
		return f.From + " to " + f.To
	case f.From != "":
		return "since " + f.From
	case f.To != "":
		return "until " + f.To
	default:
		return ""
	}
}

// Values encodes the filter as query parameters, leaving out blank fields.
func (f Filter) Values() url.Values {
	v := make(url.Values)
	set := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}
	set("course_id", f.CourseID)
	set("session_id", f.SessionID)
	set("level", f.Level)
	set("student_id", f.StudentID)
	set("from", f.From)
	set("to", f.To)
	return v
}

// Contains reports whether `date` falls inside the filter period.
func (f Filter) Contains(date time.Time) bool {
	day := date.UTC().Format(dateLayout)
	if f.From != "" && day < f.From {
		return false
	}
	if f.To != "" && day > f.To {
		return false
	}
	return true
}

// Match reports whether a row with these attributes satisfies the filter.
func (f Filter) Match(courseID, sessionID, level, studentID string) bool {
	return (f.CourseID == "" || f.CourseID == courseID) &&
		(f.SessionID == "" || f.SessionID == sessionID) &&
		(f.Level == "" || strings.EqualFold(f.Level, level)) &&
		(f.StudentID == "" || f.StudentID == studentID)
}
