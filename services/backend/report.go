package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/trezcool/masomo-admin/core/report"
)

func reportURL(instituteID string, kind report.Kind, parts ...string) string {
	return instituteURL(instituteID, append([]string{"reports", url.PathEscape(string(kind))}, parts...)...)
}

func (c *Client) Progress(ctx context.Context, instituteID string, filter report.Filter) ([]report.ProgressEntry, error) {
	entries := make([]report.ProgressEntry, 0)
	err := c.getJSON(ctx, reportURL(instituteID, report.KindProgress), filter.Values(), &entries)
	return entries, err
}

func (c *Client) Timeline(ctx context.Context, instituteID string, filter report.Filter) ([]report.TimelineEntry, error) {
	entries := make([]report.TimelineEntry, 0)
	err := c.getJSON(ctx, reportURL(instituteID, report.KindTimeline), filter.Values(), &entries)
	return entries, err
}

func (c *Client) Leaderboard(ctx context.Context, instituteID string, filter report.Filter) ([]report.LeaderboardEntry, error) {
	entries := make([]report.LeaderboardEntry, 0)
	err := c.getJSON(ctx, reportURL(instituteID, report.KindLeaderboard), filter.Values(), &entries)
	return entries, err
}

// ExportPDF downloads the PDF rendition of a report as is.
func (c *Client) ExportPDF(ctx context.Context, instituteID string, kind report.Kind, filter report.Filter) ([]byte, error) {
	query := filter.Values()
	query.Set("format", string(report.FormatPDF))
	req, err := c.newRequest(ctx, http.MethodGet, reportURL(instituteID, kind, "export"), query, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/pdf")
	return c.do(req)
}
