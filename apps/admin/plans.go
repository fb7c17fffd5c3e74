package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/paymentplan"
)

func (cli *commandLine) quote(price, currency, discount, amount string) error {
	qr := paymentplan.QuoteRequest{
		Price:    paymentplan.Amount(price),
		Currency: currency,
		Discount: paymentplan.Discount{Type: paymentplan.DiscountType(discount), Amount: paymentplan.Amount(amount)},
	}
	if err := qr.Validate(cli.validate); err != nil {
		return err
	}
	q := paymentplan.NewQuote(qr)
	fmt.Fprintf(cli.out, "%s -> %s\n", paymentplan.FormatPrice(qr.Currency, q.OriginalPrice), q.Display)
	return nil
}

func (cli *commandLine) convert(value int, from, to string) error {
	var flds []core.FieldError
	if value < 0 {
		flds = append(flds, core.FieldError{Field: "value", Error: "must be a positive integer"})
	}
	fromUnit, toUnit := paymentplan.Unit(from), paymentplan.Unit(to)
	if !fromUnit.IsValid() {
		flds = append(flds, core.FieldError{Field: "from", Error: "must be one of days or months"})
	}
	if !toUnit.IsValid() {
		flds = append(flds, core.FieldError{Field: "to", Error: "must be one of days or months"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	fmt.Fprintf(cli.out, "%d %s = %d %s\n", value, fromUnit, paymentplan.ConvertValue(value, fromUnit, toUnit), toUnit)
	return nil
}

func (cli *commandLine) plans(instituteID, pt, search string) error {
	filter := paymentplan.QueryFilter{Type: paymentplan.PlanType(pt), Search: search}
	if err := filter.Validate(cli.validate); err != nil {
		return err
	}
	plans, err := cli.planSvc.Query(context.Background(), instituteID, filter)
	if err != nil {
		return err
	}
	if len(plans) == 0 {
		fmt.Fprintln(cli.out, "no payment plans")
		return nil
	}

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tVALIDITY\tDEFAULT")
	for _, p := range plans {
		def := ""
		if p.IsDefault {
			def = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", p.ID, p.Name, p.Type, p.ValidityDays, def)
	}
	return w.Flush()
}

func (cli *commandLine) validity(instituteID, planID string) error {
	plan, err := cli.planSvc.Get(context.Background(), instituteID, planID)
	if err != nil {
		return err
	}
	if plan.ValidityDays == 0 {
		fmt.Fprintf(cli.out, "%s has no validity\n", plan.Name)
		return nil
	}
	fmt.Fprintf(cli.out, "%s is valid %d days\n", plan.Name, plan.ValidityDays)
	return nil
}

func (cli *commandLine) makeDefault(instituteID, planID string) error {
	plan, err := cli.planSvc.MakeDefault(context.Background(), instituteID, planID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s is now the default payment plan\n", plan.Name)
	return nil
}
