package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-attendance/core"
	"github.com/trezcool/masomo-attendance/core/attendance"
	"github.com/trezcool/masomo-attendance/services/metrics"
)

var errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "operator not authenticated")

func newBadRequestError(err error) error {
	if herr, ok := err.(*echo.HTTPError); ok && herr.Internal != nil {
		err = herr.Internal
	}
	return echo.NewHTTPError(http.StatusBadRequest, "malformed request").SetInternal(err)
}

// attendanceHTTPError maps attendance errors to the response sent to the display layer.
func attendanceHTTPError(err error) (code int, message string, ok bool) {
	switch {
	case errors.Is(err, attendance.ErrUnknownSubject):
		return http.StatusNotFound, attendance.ErrUnknownSubject.Error(), true
	case errors.Is(err, attendance.ErrInvalidStatus):
		return http.StatusBadRequest, attendance.ErrInvalidStatus.Error(), true
	case errors.Is(err, attendance.ErrCommitInFlight):
		return http.StatusConflict, attendance.ErrCommitInFlight.Error(), true
	case errors.Is(err, attendance.ErrSelectionChanged):
		return http.StatusConflict, attendance.ErrSelectionChanged.Error(), true
	case errors.Is(err, attendance.ErrNoSelection):
		return http.StatusConflict, attendance.ErrNoSelection.Error(), true
	case errors.Is(err, attendance.ErrFetchFailed):
		return http.StatusBadGateway, attendance.ErrFetchFailed.Error(), true
	case errors.Is(err, attendance.ErrCommitFailed):
		return http.StatusBadGateway, attendance.ErrCommitFailed.Error(), true
	}
	return 0, "", false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, collector *metrics.Collector) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		operator, _ := getContextOperator(ctx)

		if c, msg, ok := attendanceHTTPError(err); ok {
			code, message = c, msg
			switch {
			case errors.Is(err, attendance.ErrSelectionChanged):
				collector.StaleResult()
			case code == http.StatusBadGateway:
				logger.Warn(msg, err, operator)
			}
		} else {
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
				for _, vErr := range origErr {
					fldErrs[vErr.Field()] = vErr.Translate(translator)
				}
				code = http.StatusBadRequest
				message = fldErrs
			case *core.ValidationError:
				if origErr.Fields != nil {
					fldErrs := make(map[string]string, len(origErr.Fields))
					for _, fErr := range origErr.Fields {
						fldErrs[fErr.Field] = fErr.Error
					}
					message = fldErrs
				} else {
					message = origErr.Error()
				}
				code = http.StatusBadRequest
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg
				logger.Error(msg, errors.Wrap(err, msg), operator)
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
