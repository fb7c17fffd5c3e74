package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/paymentplan"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp    = errors.New("help provided")
	errNoDB    = errors.New("migrations need the postgres storage driver")
	errNoToken = errors.New("a backend token is required")
)

type commandLine struct {
	conf     *core.Config
	db       *sql.DB
	planSvc  paymentplan.ServiceInterface
	validate *validator.Validate
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  quote -price PRICE [-currency CODE] [-discount TYPE -amount AMOUNT] - price an amount after its discount")
	fmt.Fprintln(cli.out, "  convert -value N -from UNIT -to UNIT - convert a duration between days and months")
	fmt.Fprintln(cli.out, "  plans -institute ID [-type TYPE] [-search TEXT] - list the payment plans of an institute")
	fmt.Fprintln(cli.out, "  validity -institute ID -plan ID - print the validity of a payment plan")
	fmt.Fprintln(cli.out, "  make-default -institute ID -plan ID - make a payment plan the institute default")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run database migrations (goose commands)")
}

// storageCommands need the plan storage, hence a backend token with the backend driver.
var storageCommands = map[string]bool{"plans": true, "validity": true, "make-default": true}

func needsStorage(args []string) bool {
	return len(args) > 1 && storageCommands[args[1]]
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	quoteCmd := flag.NewFlagSet("quote", flag.ContinueOnError)
	quotePrice := quoteCmd.String("price", "", "The price to quote.")
	quoteCurrency := quoteCmd.String("currency", cli.conf.Plans.DefaultCurrency, "The currency code.")
	quoteDiscount := quoteCmd.String("discount", string(paymentplan.DiscountNone), "The discount type: none, percentage or fixed.")
	quoteAmount := quoteCmd.String("amount", "", "The discount amount.")

	convertCmd := flag.NewFlagSet("convert", flag.ContinueOnError)
	convertValue := convertCmd.Int("value", 0, "The duration to convert.")
	convertFrom := convertCmd.String("from", string(paymentplan.UnitMonths), "The unit of the duration: days or months.")
	convertTo := convertCmd.String("to", string(paymentplan.UnitDays), "The target unit: days or months.")

	plansCmd := flag.NewFlagSet("plans", flag.ContinueOnError)
	plansInstitute := plansCmd.String("institute", "", "The institute ID.")
	plansType := plansCmd.String("type", "", "Only list plans of this type.")
	plansSearch := plansCmd.String("search", "", "Only list plans whose name contains this text.")

	validityCmd := flag.NewFlagSet("validity", flag.ContinueOnError)
	validityInstitute := validityCmd.String("institute", "", "The institute ID.")
	validityPlan := validityCmd.String("plan", "", "The payment plan ID.")

	defaultCmd := flag.NewFlagSet("make-default", flag.ContinueOnError)
	defaultInstitute := defaultCmd.String("institute", "", "The institute ID.")
	defaultPlan := defaultCmd.String("plan", "", "The payment plan ID.")

	for _, fs := range []*flag.FlagSet{quoteCmd, convertCmd, plansCmd, validityCmd, defaultCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "quote":
		if err := quoteCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *quotePrice == "" {
			quoteCmd.Usage()
			return errHelp
		}
		return cli.quote(*quotePrice, *quoteCurrency, *quoteDiscount, *quoteAmount)

	case "convert":
		if err := convertCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.convert(*convertValue, *convertFrom, *convertTo)

	case "plans":
		if err := plansCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *plansInstitute == "" {
			plansCmd.Usage()
			return errHelp
		}
		return cli.plans(*plansInstitute, *plansType, *plansSearch)

	case "validity":
		if err := validityCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *validityInstitute == "" || *validityPlan == "" {
			validityCmd.Usage()
			return errHelp
		}
		return cli.validity(*validityInstitute, *validityPlan)

	case "make-default":
		if err := defaultCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *defaultInstitute == "" || *defaultPlan == "" {
			defaultCmd.Usage()
			return errHelp
		}
		return cli.makeDefault(*defaultInstitute, *defaultPlan)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	default:
		cli.printUsage()
		return errHelp
	}
}

// promptToken asks for the backend token without echoing it.
func promptToken(out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter backend token:")
	token, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	if len(token) == 0 {
		return "", errNoToken
	}
	return string(token), nil
}
