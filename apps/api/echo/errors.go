package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/paymentplan"
	"github.com/trezcool/masomo-admin/core/report"
	"github.com/trezcool/masomo-admin/services/backend"
)

var (
	errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errNoInstitute  = echo.NewHTTPError(http.StatusForbidden, "token is not scoped to an institute")
	errHttpNotFound = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// notFoundErrs are answered with a 404 and their own message.
var notFoundErrs = []error{
	paymentplan.ErrNotFound,
	paymentplan.ErrDraftNotFound,
	paymentplan.ErrIntervalNotFound,
	report.ErrUnknownKind,
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		person, _ := contextPerson(ctx)

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, fErr := range core.TranslateErrors(origErr, translator) {
				fldErrs[fErr.Field] = fErr.Error
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if len(origErr.Fields) > 0 {
				message = origErr.FieldMap()
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *backend.APIError:
			// the upstream answer is not ours to expose
			code = http.StatusBadGateway
			message = http.StatusText(http.StatusBadGateway)
			logger.Error("backend error", errors.Wrap(err, "calling backend"), person)
		default:
			if nfErr, ok := asNotFound(err); ok {
				code = http.StatusNotFound
				message = nfErr.Error()
				break
			}
			if errors.Is(err, report.ErrPDFNotReady) {
				code = http.StatusNotImplemented
				message = report.ErrPDFNotReady.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			logger.Error(msg, errors.Wrap(err, msg), person)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func asNotFound(err error) (error, bool) {
	for _, nfErr := range notFoundErrs {
		if errors.Is(err, nfErr) {
			return nfErr, true
		}
	}
	return nil, false
}
