package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/paymentplan"
)

const planColumns = `id, institute_id, name, type, currency, is_default, tag, require_approval, unit,
	features, config, validity_days, created_at, updated_at`

// planRow mirrors the payment_plans table.
type planRow struct {
	ID              string         `db:"id"`
	InstituteID     string         `db:"institute_id"`
	Name            string         `db:"name"`
	Type            string         `db:"type"`
	Currency        string         `db:"currency"`
	IsDefault       bool           `db:"is_default"`
	Tag             null.String    `db:"tag"`
	RequireApproval bool           `db:"require_approval"`
	Unit            null.String    `db:"unit"`
	Features        types.JSONText `db:"features"`
	Config          types.JSONText `db:"config"`
	ValidityDays    int            `db:"validity_days"`
	CreatedAt       null.Time      `db:"created_at"`
	UpdatedAt       null.Time      `db:"updated_at"`
}

type planRepository struct {
	db *sqlx.DB
}

var _ paymentplan.Repository = (*planRepository)(nil) // interface compliance check

func NewPlanRepository(db *sqlx.DB) paymentplan.Repository {
	return &planRepository{db: db}
}

func toRow(p paymentplan.Plan) (planRow, error) {
	features := p.Features
	if features == nil {
		features = []string{}
	}
	featuresJSON, err := json.Marshal(features)
	if err != nil {
		return planRow{}, errors.Wrap(err, "encoding features")
	}
	configJSON, err := json.Marshal(p.Config)
	if err != nil {
		return planRow{}, errors.Wrap(err, "encoding config")
	}
	return planRow{
		ID:              p.ID,
		InstituteID:     p.InstituteID,
		Name:            p.Name,
		Type:            string(p.Type),
		Currency:        p.Currency,
		IsDefault:       p.IsDefault,
		Tag:             null.NewString(p.Tag, p.Tag != ""),
		RequireApproval: p.RequireApproval,
		Unit:            null.NewString(string(p.Unit), p.Unit != ""),
		Features:        featuresJSON,
		Config:          configJSON,
		ValidityDays:    p.ValidityDays,
		CreatedAt:       null.NewTime(p.CreatedAt.UTC(), !p.CreatedAt.IsZero()),
		UpdatedAt:       null.NewTime(p.UpdatedAt.UTC(), !p.UpdatedAt.IsZero()),
	}, nil
}

func fromRow(row planRow) (paymentplan.Plan, error) {
	p := paymentplan.Plan{
		ID:              row.ID,
		InstituteID:     row.InstituteID,
		Name:            row.Name,
		Type:            paymentplan.PlanType(row.Type),
		Currency:        row.Currency,
		IsDefault:       row.IsDefault,
		Tag:             row.Tag.String,
		RequireApproval: row.RequireApproval,
		Unit:            paymentplan.Unit(row.Unit.String),
		ValidityDays:    row.ValidityDays,
		CreatedAt:       row.CreatedAt.Time,
		UpdatedAt:       row.UpdatedAt.Time,
	}
	if err := row.Features.Unmarshal(&p.Features); err != nil {
		return paymentplan.Plan{}, errors.Wrapf(err, "decoding features of %s", row.ID)
	}
	if err := row.Config.Unmarshal(&p.Config); err != nil {
		return paymentplan.Plan{}, errors.Wrapf(err, "decoding config of %s", row.ID)
	}
	return p, nil
}

// planWhere builds the WHERE clause of a plan query.
func planWhere(instituteID string, filter paymentplan.QueryFilter) (string, []interface{}) {
	conds := []string{"institute_id = ?"}
	args := []interface{}{instituteID}
	if filter.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Tag != "" {
		conds = append(conds, "tag = ?")
		args = append(args, filter.Tag)
	}
	if filter.Search != "" {
		conds = append(conds, `name ILIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscaper.Replace(filter.Search)+"%")
	}
	return strings.Join(conds, " AND "), args
}

// likeEscaper makes LIKE wildcards match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func orderBy(orderings []core.DBOrdering) string {
	ords := core.FilterOrderings(orderings, paymentplan.OrderingFields)
	if len(ords) == 0 {
		return "created_at DESC, id"
	}
	parts := make([]string, 0, len(ords)+1)
	for _, ord := range ords {
		parts = append(parts, ord.String())
	}
	return strings.Join(append(parts, "id"), ", ")
}

func (repo *planRepository) QueryPlans(ctx context.Context, instituteID string, filter paymentplan.QueryFilter) ([]paymentplan.Plan, error) {
	where, args := planWhere(instituteID, filter)
	q := repo.db.Rebind("SELECT " + planColumns + " FROM payment_plans WHERE " + where + " ORDER BY " + orderBy(filter.Orderings))

	var rows []planRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting plans")
	}
	plans := make([]paymentplan.Plan, 0, len(rows))
	for _, row := range rows {
		p, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func (repo *planRepository) GetPlan(ctx context.Context, instituteID, id string) (paymentplan.Plan, error) {
	q := repo.db.Rebind("SELECT " + planColumns + " FROM payment_plans WHERE institute_id = ? AND id = ?")

	var row planRow
	if err := repo.db.GetContext(ctx, &row, q, instituteID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return paymentplan.Plan{}, paymentplan.ErrNotFound
		}
		return paymentplan.Plan{}, errors.Wrap(err, "selecting plan")
	}
	return fromRow(row)
}

const upsertPlan = `INSERT INTO payment_plans (` + planColumns + `)
	VALUES (:id, :institute_id, :name, :type, :currency, :is_default, :tag, :require_approval, :unit,
		:features, :config, :validity_days, COALESCE(:created_at, now()), :updated_at)
	ON CONFLICT (institute_id, id) DO UPDATE SET
		name = EXCLUDED.name,
		type = EXCLUDED.type,
		currency = EXCLUDED.currency,
		tag = EXCLUDED.tag,
		require_approval = EXCLUDED.require_approval,
		unit = EXCLUDED.unit,
		features = EXCLUDED.features,
		config = EXCLUDED.config,
		validity_days = EXCLUDED.validity_days,
		updated_at = EXCLUDED.updated_at`

func (repo *planRepository) SavePlan(ctx context.Context, instituteID string, plan paymentplan.Plan) (paymentplan.Plan, error) {
	plan.InstituteID = instituteID
	row, err := toRow(plan)
	if err != nil {
		return paymentplan.Plan{}, err
	}
	if _, err = repo.db.NamedExecContext(ctx, upsertPlan, row); err != nil {
		return paymentplan.Plan{}, errors.Wrap(err, "upserting plan")
	}
	return repo.GetPlan(ctx, instituteID, plan.ID)
}

// MakeDefault swaps the default flag inside one transaction.
func (repo *planRepository) MakeDefault(ctx context.Context, instituteID, id string) (err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "starting transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// unflag first: the partial unique index allows a single default row
	q := tx.Rebind("UPDATE payment_plans SET is_default = false WHERE institute_id = ? AND is_default AND id <> ?")
	if _, err = tx.ExecContext(ctx, q, instituteID, id); err != nil {
		return errors.Wrap(err, "unflagging default plan")
	}

	res, err := tx.ExecContext(ctx, tx.Rebind("UPDATE payment_plans SET is_default = true WHERE institute_id = ? AND id = ?"), instituteID, id)
	if err != nil {
		return errors.Wrap(err, "flagging default plan")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = paymentplan.ErrNotFound
		return err
	}
	return errors.Wrap(tx.Commit(), "committing default plan")
}

func (repo *planRepository) DeletePlan(ctx context.Context, instituteID, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM payment_plans WHERE institute_id = ? AND id = ?"), instituteID, id)
	if err != nil {
		return errors.Wrap(err, "deleting plan")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return paymentplan.ErrNotFound
	}
	return nil
}
