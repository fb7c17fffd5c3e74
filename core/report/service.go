package report

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/masomo-admin/core"
)

type (
	// Source provides the raw report data of an institute.
	Source interface {
		Progress(ctx context.Context, instituteID string, filter Filter) ([]ProgressEntry, error)
		Timeline(ctx context.Context, instituteID string, filter Filter) ([]TimelineEntry, error)
		Leaderboard(ctx context.Context, instituteID string, filter Filter) ([]LeaderboardEntry, error)
		// ExportPDF returns the PDF rendition of a report as an opaque blob.
		ExportPDF(ctx context.Context, instituteID string, kind Kind, filter Filter) ([]byte, error)
	}

	ServiceInterface interface {
		Progress(ctx context.Context, instituteID string, filter Filter) ([]ProgressEntry, error)
		Timeline(ctx context.Context, instituteID string, filter Filter) ([]TimelineEntry, error)
		Leaderboard(ctx context.Context, instituteID string, filter Filter) ([]LeaderboardEntry, error)
		Export(ctx context.Context, instituteID string, kind Kind, format Format, filter Filter) (Export, error)
		EmailExport(ctx context.Context, instituteID string, kind Kind, req ExportRequest) (Export, error)
	}

	Service struct {
		source  Source
		mailSvc core.EmailService
		logger  core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(source Source, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{source: source, mailSvc: mailSvc, logger: logger}
}

// Progress fills in the completion percentages the source left out.
func (svc *Service) Progress(ctx context.Context, instituteID string, filter Filter) ([]ProgressEntry, error) {
	entries, err := svc.source.Progress(ctx, instituteID, filter)
	if err != nil {
		return nil, errors.Wrap(err, "fetching progress")
	}
	for i := range entries {
		if entries[i].Percent == nil {
			pct := CompletionPercent(entries[i].Completed, entries[i].Total)
			entries[i].Percent = &pct
		}
	}
	return entries, nil
}

// Timeline returns the entries oldest first.
func (svc *Service) Timeline(ctx context.Context, instituteID string, filter Filter) ([]TimelineEntry, error) {
	entries, err := svc.source.Timeline(ctx, instituteID, filter)
	if err != nil {
		return nil, errors.Wrap(err, "fetching timeline")
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Date.Before(entries[j].Date) })
	return entries, nil
}

func (svc *Service) Leaderboard(ctx context.Context, instituteID string, filter Filter) ([]LeaderboardEntry, error) {
	entries, err := svc.source.Leaderboard(ctx, instituteID, filter)
	if err != nil {
		return nil, errors.Wrap(err, "fetching leaderboard")
	}
	Rank(entries)
	return entries, nil
}

// Export renders CSV locally and fetches PDF from the source.
func (svc *Service) Export(ctx context.Context, instituteID string, kind Kind, format Format, filter Filter) (Export, error) {
	if !kind.IsValid() {
		return Export{}, ErrUnknownKind
	}
	exp := Export{Filename: exportFilename(kind, format, filter)}

	switch format {
	case FormatPDF:
		blob, err := svc.source.ExportPDF(ctx, instituteID, kind, filter)
		if err != nil {
			return Export{}, errors.Wrap(err, "fetching pdf export")
		}
		exp.ContentType, exp.Content = "application/pdf", blob
	case FormatCSV:
		var buff bytes.Buffer
		if err := svc.writeCSV(ctx, &buff, instituteID, kind, filter); err != nil {
			return Export{}, err
		}
		exp.ContentType, exp.Content = "text/csv", buff.Bytes()
	default:
		return Export{}, ErrUnknownFormat
	}
	return exp, nil
}

// EmailExport renders the export and mails it to the recipients of `req`.
func (svc *Service) EmailExport(ctx context.Context, instituteID string, kind Kind, req ExportRequest) (Export, error) {
	if !kind.IsValid() {
		return Export{}, ErrUnknownKind
	}
	to := core.Addresses(req.Recipients...)
	if len(to) == 0 {
		return Export{}, core.NewValidationError(
			errors.New("no recipient"),
			core.FieldError{Field: "recipients", Error: "at least one valid email is required"},
		)
	}
	exp, err := svc.Export(ctx, instituteID, kind, req.Format, req.Filter)
	if err != nil {
		return Export{}, err
	}

	msg := &core.EmailMessage{
		To:           to,
		Subject:      fmt.Sprintf("Your %s report", kind),
		TemplateName: "report_export",
		TemplateData: map[string]interface{}{"Kind": kind, "Format": req.Format, "Period": req.Filter.Period()},
	}
	if err = msg.Attach(bytes.NewReader(exp.Content), exp.Filename, exp.ContentType); err != nil {
		return Export{}, errors.Wrap(err, "attaching export")
	}
	svc.mailSvc.SendMessages(msg)
	svc.logger.Info(fmt.Sprintf("%s export mailed", kind), map[string]interface{}{"institute_id": instituteID, "recipients": len(to)})
	return exp, nil
}

// CompletionPercent is completed/total as a percentage rounded to two decimals; zero without total.
func CompletionPercent(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	pct, _ := decimal.NewFromInt(int64(completed)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(2).
		Float64()
	return pct
}

// Rank sorts entries by score, highest first, and assigns competition ranks: ties share a rank
// and the next rank skips accordingly (1, 2, 2, 4).
func Rank(entries []LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return strings.ToLower(entries[i].StudentName) < strings.ToLower(entries[j].StudentName)
	})
	for i := range entries {
		if i > 0 && entries[i].Score == entries[i-1].Score {
			entries[i].Rank = entries[i-1].Rank
		} else {
			entries[i].Rank = i + 1
		}
	}
}

func exportFilename(kind Kind, format Format, filter Filter) string {
	parts := []string{string(kind)}
	if filter.CourseID != "" {
		parts = append(parts, filter.CourseID)
	}
	if filter.From != "" {
		parts = append(parts, filter.From)
	}
	if filter.To != "" {
		parts = append(parts, filter.To)
	}
	return strings.Join(parts, "_") + "." + string(format)
}
