package report

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

const csvDateLayout = "2006-01-02 15:04"

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) }

func (svc *Service) writeCSV(ctx context.Context, w io.Writer, instituteID string, kind Kind, filter Filter) error {
	var rows [][]string

	switch kind {
	case KindProgress:
		entries, err := svc.Progress(ctx, instituteID, filter)
		if err != nil {
			return err
		}
		rows = append(rows, []string{"student_id", "student_name", "course_id", "completed", "total", "percent"})
		for _, e := range entries {
			rows = append(rows, []string{
				e.StudentID, e.StudentName, e.CourseID,
				strconv.Itoa(e.Completed), strconv.Itoa(e.Total), formatFloat(*e.Percent),
			})
		}
	case KindTimeline:
		entries, err := svc.Timeline(ctx, instituteID, filter)
		if err != nil {
			return err
		}
		rows = append(rows, []string{"date", "student_id", "student_name", "course_id", "activity", "score"})
		for _, e := range entries {
			var score string
			if e.Score != nil {
				score = formatFloat(*e.Score)
			}
			rows = append(rows, []string{
				e.Date.UTC().Format(csvDateLayout), e.StudentID, e.StudentName, e.CourseID, e.Activity, score,
			})
		}
	case KindLeaderboard:
		entries, err := svc.Leaderboard(ctx, instituteID, filter)
		if err != nil {
			return err
		}
		rows = append(rows, []string{"rank", "student_id", "student_name", "score"})
		for _, e := range entries {
			rows = append(rows, []string{strconv.Itoa(e.Rank), e.StudentID, e.StudentName, formatFloat(e.Score)})
		}
	default:
		return ErrUnknownKind
	}

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return errors.Wrap(err, "writing csv")
	}
	return nil
}
