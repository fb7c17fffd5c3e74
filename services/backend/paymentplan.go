package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/paymentplan"
)

const paymentOptions = "payment-options"

func planQuery(filter paymentplan.QueryFilter) url.Values {
	q := make(url.Values)
	if filter.Type != "" {
		q.Set("type", string(filter.Type))
	}
	if filter.Tag != "" {
		q.Set("tag", filter.Tag)
	}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	if ords := core.FilterOrderings(filter.Orderings, paymentplan.OrderingFields); len(ords) > 0 {
		fields := make([]string, 0, len(ords))
		for _, ord := range ords {
			if ord.Ascending {
				fields = append(fields, ord.Field)
			} else {
				fields = append(fields, "-"+ord.Field)
			}
		}
		q.Set("ordering", strings.Join(fields, ","))
	}
	return q
}

func (c *Client) QueryPlans(ctx context.Context, instituteID string, filter paymentplan.QueryFilter) ([]paymentplan.Plan, error) {
	var aps []paymentplan.APIPlan
	if err := c.getJSON(ctx, instituteURL(instituteID, paymentOptions), planQuery(filter), &aps); err != nil {
		return nil, err
	}
	plans := make([]paymentplan.Plan, 0, len(aps))
	for _, ap := range aps {
		p := paymentplan.FromAPI(instituteID, ap)
		// the backend may ignore some filters
		if filter.Match(p) {
			plans = append(plans, p)
		}
	}
	return plans, nil
}

func (c *Client) GetPlan(ctx context.Context, instituteID, id string) (paymentplan.Plan, error) {
	var ap paymentplan.APIPlan
	if err := c.getJSON(ctx, instituteURL(instituteID, paymentOptions, url.PathEscape(id)), nil, &ap); err != nil {
		return paymentplan.Plan{}, notFound(err, paymentplan.ErrNotFound)
	}
	return paymentplan.FromAPI(instituteID, ap), nil
}

// SavePlan posts the plan; the backend upserts it by ID.
func (c *Client) SavePlan(ctx context.Context, instituteID string, plan paymentplan.Plan) (paymentplan.Plan, error) {
	req, err := c.newRequest(ctx, http.MethodPost, instituteURL(instituteID, paymentOptions), nil, paymentplan.ToAPI(plan))
	if err != nil {
		return paymentplan.Plan{}, err
	}
	body, err := c.do(req)
	if err != nil {
		return paymentplan.Plan{}, err
	}

	var ap paymentplan.APIPlan
	if len(body) == 0 || json.Unmarshal(body, &ap) != nil || ap.ID == "" {
		// some backends answer 201 without a body
		plan.InstituteID = instituteID
		return plan, nil
	}
	return paymentplan.FromAPI(instituteID, ap), nil
}

func (c *Client) MakeDefault(ctx context.Context, instituteID, id string) error {
	req, err := c.newRequest(ctx, http.MethodPut, instituteURL(instituteID, paymentOptions, url.PathEscape(id), "default"), nil, nil)
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return notFound(err, paymentplan.ErrNotFound)
}

func (c *Client) DeletePlan(ctx context.Context, instituteID, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, instituteURL(instituteID, paymentOptions, url.PathEscape(id)), nil, nil)
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return notFound(err, paymentplan.ErrNotFound)
}
