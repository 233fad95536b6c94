package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/penahikmah/sekolah/core"
	"github.com/penahikmah/sekolah/core/rbac"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errInvalidBody   = echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON body")
	errMissingAction = echo.NewHTTPError(http.StatusBadRequest, "action is required")
)

func newUnknownActionError(action string) error {
	return echo.NewHTTPError(http.StatusBadRequest, "Unknown action: "+action)
}

// errorStatus maps an error to the HTTP status it is reported with.
func errorStatus(err error) int {
	switch origErr := errors.Cause(err).(type) {
	case *echo.HTTPError:
		if origErr == middleware.ErrJWTMissing {
			return http.StatusUnauthorized
		}
		if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
			return herr.Code
		}
		return origErr.Code
	case validator.ValidationErrors, *core.ValidationError:
		return http.StatusBadRequest
	case *rbac.ForbiddenError:
		return http.StatusForbidden
	case *core.NotFoundError:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// Every error is sent as {"error": message}; validation errors also carry "fields".
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code := errorStatus(err)
		var message string
		var fields map[string]string

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
				origErr = herr
			}
			if m, ok := origErr.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(code)
			}
		case validator.ValidationErrors:
			fields = make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fields[vErr.Field()] = vErr.Translate(translator)
			}
			message = origErr[0].Field() + ": " + fields[origErr[0].Field()]
		case *core.ValidationError:
			if len(origErr.Fields) > 0 {
				fields = make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fields[fErr.Field] = fErr.Error
				}
			}
			message = origErr.Error()
		case *rbac.ForbiddenError, *core.NotFoundError:
			message = origErr.Error()
		default: // any other error is a server error
			message = origErr.Error()

			extras := map[string]interface{}{"path": ctx.Path()}
			caller, _ := getContextCaller(ctx)
			logger.Error(http.StatusText(code), errors.WithStack(err), extras, caller)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		body := echo.Map{"error": message}
		if fields != nil {
			body["fields"] = fields
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, body)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
